// Package cli wires the cobra command tree to the stores, renderer and
// supervisor. Commands stay thin; behavior lives in the internal packages.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"llamate/internal/alias"
	"llamate/internal/config"
	"llamate/internal/render"
	"llamate/internal/store"
)

// App carries the configuration context built once at process start.
// Every command reads its collaborators from here; no package globals.
type App struct {
	Paths    config.Paths
	Settings *config.SettingsStore
	Models   *store.ModelStore
	Aliases  *alias.Resolver
	Log      zerolog.Logger
}

// refreshDocument re-renders the supervisor document after a mutation so a
// running supervisor picks the change up on its next poll.
func (a *App) refreshDocument() {
	st, err := a.Settings.Load()
	if err != nil {
		a.Log.Warn().Err(err).Msg("failed to load settings, supervisor document not updated")
		return
	}
	if err := render.Refresh(a.Paths, st, a.Models); err != nil {
		a.Log.Warn().Err(err).Msg("failed to update supervisor document")
	}
}

// resolveModelName maps an alias to its canonical model name, or returns the
// input unchanged. A broken settings file aborts the command here.
func (a *App) resolveModelName(name string) (string, error) {
	resolved, ok, err := a.Aliases.Resolve(name)
	if err != nil {
		return "", err
	}
	if ok {
		return resolved, nil
	}
	return name, nil
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl).With().Timestamp().Logger()
}

func buildRootCmd() *cobra.Command {
	app := &App{}
	var home, logLevel string

	root := &cobra.Command{
		Use:           "llamate",
		Short:         "Manage local model profiles and keep llama-swap in sync with them",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&home, "home", "", "Base directory (defaults to ~/.config/llamate)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug|info|warn|error")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		app.Log = newLogger(logLevel)
		render.SetLogger(app.Log)
		p, err := config.NewPaths(home)
		if err != nil {
			return err
		}
		app.Paths = p
		app.Settings = config.NewSettingsStore(p)
		app.Models = store.NewModelStore(p.ModelsDir)
		app.Aliases = alias.NewResolver(app.Settings, app.Models)
		return nil
	}

	root.AddCommand(
		newInitCmd(app),
		newModelCmd(app),
		newSetCmd(app),
		newGetCmd(app),
		newArgsCmd(app),
		newUnsetCmd(app),
		newAliasCmd(app),
		newPrintConfigCmd(app),
		newServeCmd(app),
	)
	return root
}

// Execute runs the CLI and exits non-zero on any fatal error.
func Execute() {
	if err := buildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
