package gluvib

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ecology747-sudo/gluvib/internal/api"
	"github.com/ecology747-sudo/gluvib/internal/logging"
	"github.com/ecology747-sudo/gluvib/internal/service"
	"github.com/ecology747-sudo/gluvib/internal/store"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the live snapshot and sample writes over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := cfg.Server.Addr
		if serveAddr != "" {
			addr = serveAddr
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return withStore(ctx, func(s *store.SQLite) error {
			p := newPipeline(s, service.AfterFuncDeferrer{Delay: cfg.Scheduler.SettleDelay})
			p.Start()
			defer p.Close()
			p.RecomputeNow()

			srv := &http.Server{
				Addr:         addr,
				Handler:      api.NewRouter(p, s, logging.Component("api")),
				ReadTimeout:  cfg.Server.ReadTimeout,
				WriteTimeout: cfg.Server.WriteTimeout,
			}
			return serveHTTP(ctx, cmd, srv)
		})
	},
}

func serveHTTP(ctx context.Context, cmd *cobra.Command, srv *http.Server) error {
	log := logging.Component("serve")
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("listening")
		fmt.Fprintf(cmd.OutOrStdout(), "Serving on http://%s\n", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown failed: %w", err)
		}
		log.Info().Msg("server stopped")
		return nil
	})
	return g.Wait()
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config, 127.0.0.1:8787)")
}
