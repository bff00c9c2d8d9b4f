package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/pablasso/routeright/internal/logging"
)

func newDemoCmd(a *app) *cobra.Command {
	demoCmd := &cobra.Command{
		Use:   "demo",
		Short: "Run the built-in demo planning service",
		Long: `The demo service answers the same endpoints as the real planning service
with canned places. Use --preset to change its pacing and --scenario to
choose how generations end.`,
	}

	var addr string
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the demo planning service until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := a.logger(cmd, false, logging.NewSyncWriter(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			defer logger.Close()

			if addr == "" {
				addr = a.cfg.Demo.Addr
			}

			g, ctx := errgroup.WithContext(cmd.Context())
			_, baseURL, err := startDemo(ctx, g, a.cfg.Demo, addr, logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Demo planning service at %s (scenario %s, preset %s)\n",
				baseURL, a.cfg.Demo.Scenario, a.cfg.Demo.Preset)
			fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl+C to stop.")
			return g.Wait()
		},
	}
	serveCmd.Flags().StringVar(&addr, "addr", "", "listen address (default demo.addr)")

	demoCmd.AddCommand(serveCmd)
	return demoCmd
}
