package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newAliasCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alias",
		Short: "Manage short names for models",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "set <alias> <model>",
			Short: "Bind an alias to a model name",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := app.Aliases.Register(args[0], args[1]); err != nil {
					return err
				}
				fmt.Printf("Alias %q -> %q\n", args[0], args[1])
				return nil
			},
		},
		&cobra.Command{
			Use:   "rm <alias>",
			Short: "Remove an alias",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return app.Aliases.Remove(args[0])
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List aliases",
			RunE: func(cmd *cobra.Command, args []string) error {
				pairs, err := app.Aliases.List()
				if err != nil {
					return err
				}
				if len(pairs) == 0 {
					fmt.Println("No aliases defined")
					return nil
				}
				for _, p := range pairs {
					fmt.Printf("  %s -> %s\n", p[0], p[1])
				}
				return nil
			},
		},
	)
	return cmd
}
