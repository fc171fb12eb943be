package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/relstore/internal/web/api"
	"github.com/conduit-lang/relstore/internal/web/feed"
	"github.com/conduit-lang/relstore/internal/web/server"
)

// NewServeCommand creates the serve command
func NewServeCommand(configPath *string) *cobra.Command {
	var (
		flags loadFlags
		host  string
		port  int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Load a batch and serve the store over HTTP",
		Long: `Load a batch like the load command, then serve the store:

  GET    /api/models
  GET    /api/models/{model}/records
  GET    /api/models/{model}/records/{id}
  DELETE /api/models/{model}/records/{id}
  GET    /api/models/{model}/by/{key}/{value}
  POST   /api/load
  GET    /feed  (websocket, ?model=NAME to subscribe)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(*configPath)
			if err != nil {
				return err
			}
			defer e.logger.Sync()

			if cmd.Flags().Changed("host") {
				e.cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				e.cfg.Server.Port = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			s, err := e.openStore(flags.schema, nil)
			if err != nil {
				return err
			}
			sum, err := e.load(ctx, s, flags)
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), sum, flags.backfill)

			hub := feed.NewHub(ctx, e.logger)
			if err := hub.Attach(s); err != nil {
				return err
			}
			go hub.Run()

			router := api.New(s, e.logger).Routes()
			router.Get("/feed", hub.Handler())

			cfg := server.DefaultConfig(router)
			cfg.Address = e.cfg.Server.Address()
			cfg.Logger = e.logger
			srv, err := server.New(cfg)
			if err != nil {
				return err
			}
			srv.RegisterHook(func(context.Context) error {
				hub.Shutdown()
				return nil
			})
			if err := srv.Listen(); err != nil {
				return err
			}

			color.New(color.FgGreen, color.Bold).Fprintf(cmd.OutOrStdout(), "Serving on http://%s\n", srv.Addr())
			e.logger.Info("serving store", zap.String("addr", srv.Addr()))
			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&flags.schema, "schema", "", "schema file (YAML or JSON)")
	cmd.Flags().StringVar(&flags.data, "data", "", "data file {model: [records]} (default: snapshot of the configured source)")
	cmd.Flags().StringArrayVar(&flags.models, "model", nil, "only load these models (repeatable)")
	cmd.Flags().BoolVar(&flags.backfill, "backfill", false, "fetch missing references from the configured source")
	cmd.Flags().StringVar(&host, "host", "", "listen host (overrides server.host)")
	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides server.port)")
	return cmd
}
