package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"llamate/internal/statusapi"
	"llamate/internal/supervise"
)

func newServeCmd(app *App) *cobra.Command {
	var port int
	var public bool
	var statusAddr string
	var pollInterval time.Duration

	cmd := &cobra.Command{
		Use:   "serve [-- extra llama-swap args...]",
		Short: "Run llama-swap, restarting it whenever the configuration changes",
		Example: "  llamate serve\n" +
			"  llamate serve --port 9000 --public\n" +
			"  llamate serve -- --watch-config",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(app.Paths.SwapBin()); err != nil {
				return fmt.Errorf("llama-swap not found at %s, run 'llamate init' and install it", app.Paths.SwapBin())
			}
			st, err := app.Settings.Load()
			if err != nil {
				return err
			}
			if port == 0 {
				port = st.ListenPort
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			sup := supervise.New(supervise.Options{
				Paths:        app.Paths,
				Settings:     app.Settings,
				Models:       app.Models,
				Port:         port,
				Public:       public,
				ExtraArgs:    args,
				PollInterval: pollInterval,
				Events:       statusapi.Metrics{},
				Log:          app.Log,
			})
			if statusAddr != "" {
				go statusapi.Serve(ctx, statusAddr, sup, app.Log)
			}

			app.Log.Info().Int("port", port).Bool("public", public).Msg("starting llama-swap")
			if err := sup.Run(ctx); err != nil {
				if code, ok := supervise.IsChildExit(err); ok {
					return fmt.Errorf("llama-swap exited with code %d", code)
				}
				return err
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "Listen port for llama-swap (defaults to the configured listen_port)")
	cmd.Flags().BoolVar(&public, "public", false, "Bind 0.0.0.0 instead of loopback")
	cmd.Flags().StringVar(&statusAddr, "status-addr", "", "Optional address for the status/metrics API, e.g. 127.0.0.1:8089")
	cmd.Flags().DurationVar(&pollInterval, "poll-interval", 0, "Config poll interval (default 5s)")
	return cmd
}
