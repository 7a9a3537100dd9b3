package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kolah/speclens/internal/relay"
	"github.com/spf13/cobra"
)

const (
	shutdownTimeout = 10 * time.Second
	purgeInterval   = time.Minute
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the relay API used by the browser",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			sess, err := a.openSession(ctx)
			if err != nil {
				return err
			}
			defer sess.Close()

			srv, err := relay.New(relay.Options{
				Workspace:        sess.ws,
				Fetcher:          a.fetcher,
				Proxy:            sess.proxy,
				Metrics:          a.metrics,
				Logger:           a.logger,
				Token:            a.cfg.Relay.Token,
				ValidateRequests: a.cfg.Relay.ValidateRequests,
			})
			if err != nil {
				return err
			}

			ln, err := net.Listen("tcp", a.cfg.Listen)
			if err != nil {
				return err
			}
			return serve(ctx, a, ln, srv.Handler(), sess.ws.PurgeExpired)
		},
	}
}

// serve runs handler on ln until ctx is done, then drains in-flight
// requests. purge runs periodically to drop expired session cookies.
func serve(ctx context.Context, a *app, ln net.Listener, handler http.Handler, purge func() int) error {
	httpSrv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.Serve(ln)
	}()
	a.logger.Info("relay listening", "addr", ln.Addr().String(), "token_required", a.cfg.Relay.Token != "")

	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for {
		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ticker.C:
			if n := purge(); n > 0 {
				a.logger.Debug("purged expired session cookies", "count", n)
			}
		case <-ctx.Done():
			a.logger.Info("shutting down relay")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return httpSrv.Shutdown(shutdownCtx)
		}
	}
}
