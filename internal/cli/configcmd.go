package cli

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"llamate/internal/config"
	"llamate/internal/render"
	"llamate/internal/store"
)

func newInitCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the configuration directories and a default settings file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Paths.EnsureDirs(); err != nil {
				return err
			}
			st, err := app.Settings.Load()
			if err != nil {
				return err
			}
			if err := app.Settings.Save(st); err != nil {
				return err
			}
			fmt.Printf("Initialized %s\n", app.Paths.Home)
			fmt.Printf("Place the llama-swap and llama-server binaries under %s\n", app.Paths.BinDir)
			return nil
		},
	}
}

func newSetCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "set [KEY=VALUE... | <model> KEY=VALUE...]",
		Short: "Set global settings or model serving arguments",
		Example: "  llamate set server_path=/opt/llama/llama-server\n" +
			"  llamate set qwen3 ctx-size=4096 flash-attn=true",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.Contains(args[0], "=") {
				return setGlobal(app, args)
			}
			name, err := app.resolveModelName(args[0])
			if err != nil {
				return err
			}
			return setModelArgs(app, name, args[1:])
		},
	}
}

func setGlobal(app *App, pairs []string) error {
	st, err := app.Settings.Load()
	if err != nil {
		return err
	}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return store.ErrValidation(fmt.Sprintf("argument %q is not in KEY=VALUE format", pair))
		}
		if err := applySetting(app, &st, key, value); err != nil {
			return err
		}
	}
	if err := app.Settings.Save(st); err != nil {
		return err
	}
	app.refreshDocument()
	fmt.Printf("Updated %d global setting(s).\n", len(pairs))
	return nil
}

func applySetting(app *App, st *config.Settings, key, value string) error {
	switch key {
	case "server_path":
		st.ServerBinPath = value
	case "gguf_dir":
		st.GGUFDir = value
	case "listen_port":
		n, err := strconv.Atoi(value)
		if err != nil {
			return store.ErrValidation(fmt.Sprintf("listen_port must be an integer, got %q", value))
		}
		st.ListenPort = n
	case "healthCheckTimeout":
		n, err := strconv.Atoi(value)
		if err != nil {
			return store.ErrValidation(fmt.Sprintf("healthCheckTimeout must be an integer, got %q", value))
		}
		st.HealthCheckTimeout = &n
	case "logLevel":
		st.LogLevel = value
	case "startPort":
		n, err := strconv.Atoi(value)
		if err != nil {
			return store.ErrValidation(fmt.Sprintf("startPort must be an integer, got %q", value))
		}
		st.StartPort = &n
	default:
		app.Log.Warn().Str("key", key).Msg("not a standard global setting, storing as-is")
		if st.Extra == nil {
			st.Extra = map[string]any{}
		}
		st.Extra[key] = value
	}
	return nil
}

func setModelArgs(app *App, name string, pairs []string) error {
	rec, err := app.Models.Load(name)
	if err != nil {
		return err
	}
	updates, err := store.ParseArgList(pairs)
	if err != nil {
		return err
	}
	if len(updates) == 0 {
		return store.ErrValidation("no KEY=VALUE arguments given")
	}
	for k, v := range updates {
		rec.Args[k] = v
	}
	if err := app.Models.Save(name, rec); err != nil {
		return err
	}
	app.refreshDocument()
	fmt.Printf("Updated %d argument(s) for model %q.\n", len(updates), name)
	return nil
}

func newGetCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "get <model> <key>",
		Short: "Print one serving argument of a model",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := app.resolveModelName(args[0])
			if err != nil {
				return err
			}
			rec, err := app.Models.Load(name)
			if err != nil {
				return err
			}
			v, ok := rec.Args[args[1]]
			if !ok {
				return store.ErrValidation(fmt.Sprintf("argument %q not set for model %q", args[1], name))
			}
			fmt.Println(v)
			return nil
		},
	}
}

func newArgsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "args <model>",
		Short: "List all serving arguments of a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := app.resolveModelName(args[0])
			if err != nil {
				return err
			}
			rec, err := app.Models.Load(name)
			if err != nil {
				return err
			}
			if len(rec.Args) == 0 {
				fmt.Printf("No arguments set for model %q\n", name)
				return nil
			}
			keys := make([]string, 0, len(rec.Args))
			for k := range rec.Args {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Printf("Arguments for model %q:\n", name)
			for _, k := range keys {
				fmt.Printf("  %s: %s\n", k, rec.Args[k])
			}
			return nil
		},
	}
}

func newUnsetCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "unset <model> <key>",
		Short: "Remove a serving argument from a model",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := app.resolveModelName(args[0])
			if err != nil {
				return err
			}
			rec, err := app.Models.Load(name)
			if err != nil {
				return err
			}
			if _, ok := rec.Args[args[1]]; !ok {
				return store.ErrValidation(fmt.Sprintf("argument %q not set for model %q", args[1], name))
			}
			delete(rec.Args, args[1])
			if err := app.Models.Save(name, rec); err != nil {
				return err
			}
			app.refreshDocument()
			fmt.Printf("Argument %q removed from model %q.\n", args[1], name)
			return nil
		},
	}
}

func newPrintConfigCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "print-config",
		Short: "Print the rendered supervisor configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := app.Settings.Load()
			if err != nil {
				return err
			}
			models, err := app.Models.List()
			if err != nil {
				return err
			}
			doc := render.Render(st, app.Paths.ServerBin(), models)
			return yaml.NewEncoder(os.Stdout).Encode(doc)
		},
	}
}
