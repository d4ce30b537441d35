package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"llamate/internal/store"
	"llamate/pkg/types"
)

func newModelCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model",
		Short: "Manage model profiles",
	}
	cmd.AddCommand(newModelAddCmd(app), newModelListCmd(app), newModelRemoveCmd(app))
	return cmd
}

func newModelAddCmd(app *App) *cobra.Command {
	var name string
	var setArgs []string
	cmd := &cobra.Command{
		Use:     "add <repo:file | huggingface.co URL>",
		Short:   "Add a model profile from a repo spec",
		Example: "  llamate model add Qwen/Qwen3-32B-GGUF:Qwen3-32B-Q4_K_M.gguf --name qwen3",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(app.Paths.Home); err != nil {
				return fmt.Errorf("not initialized, run 'llamate init' first")
			}
			repo, file, err := store.ParseSourceSpec(args[0])
			if err != nil {
				return err
			}
			if name == "" {
				name = strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
			}
			name, err = store.SanitizeName(name)
			if err != nil {
				return err
			}
			rec := types.ModelRecord{
				SourceRepo:   repo,
				ArtifactFile: file,
				Args:         map[string]string{},
			}
			if len(setArgs) > 0 {
				rec.Args, err = store.ParseArgList(setArgs)
				if err != nil {
					return err
				}
			}
			// Each model gets a fixed upstream URL; the renderer turns its
			// port into the child's --port flag.
			port := rec.Args["port"]
			if port == "" {
				port = "9999"
			}
			rec.Proxy = "http://127.0.0.1:" + port
			if err := app.Models.Save(name, rec); err != nil {
				return err
			}
			app.refreshDocument()
			fmt.Printf("Model %q added.\n", name)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Model name (defaults to the artifact filename stem)")
	cmd.Flags().StringArrayVar(&setArgs, "set", nil, "Serving argument KEY=VALUE (repeatable)")
	return cmd
}

func newModelListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured models",
		RunE: func(cmd *cobra.Command, args []string) error {
			models, err := app.Models.List()
			if err != nil {
				return err
			}
			if len(models) == 0 {
				fmt.Println("No models defined")
				return nil
			}
			names := make([]string, 0, len(models))
			for n := range models {
				names = append(names, n)
			}
			sort.Strings(names)
			fmt.Println("Defined models:")
			for _, n := range names {
				rec := models[n]
				fmt.Printf("  %s: %s (%s)\n", n, rec.SourceRepo, rec.ArtifactFile)
			}
			return nil
		},
	}
}

func newModelRemoveCmd(app *App) *cobra.Command {
	var deleteArtifact bool
	cmd := &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a model profile",
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
			if err := app.Models.Delete(name); err != nil {
				return err
			}
			fmt.Printf("Model %q removed.\n", name)
			if deleteArtifact && rec.ArtifactFile != "" {
				st, err := app.Settings.Load()
				if err != nil {
					return err
				}
				path := filepath.Join(st.GGUFDir, rec.ArtifactFile)
				if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("delete artifact %s: %w", path, err)
				}
				fmt.Printf("Artifact %q removed.\n", rec.ArtifactFile)
			}
			app.refreshDocument()
			return nil
		},
	}
	cmd.Flags().BoolVar(&deleteArtifact, "delete-artifact", false, "Also delete the downloaded artifact file")
	return cmd
}
