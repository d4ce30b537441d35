package main

import "llamate/internal/cli"

func main() {
	cli.Execute()
}
