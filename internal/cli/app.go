package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/kolah/speclens/internal/config"
	"github.com/kolah/speclens/internal/cookies"
	"github.com/kolah/speclens/internal/format"
	"github.com/kolah/speclens/internal/loader"
	"github.com/kolah/speclens/internal/metrics"
	"github.com/kolah/speclens/internal/proxy"
	"github.com/kolah/speclens/internal/store"
	"github.com/kolah/speclens/internal/workspace"
	"github.com/spf13/cobra"
)

// app holds what every command needs once flags are parsed.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *metrics.Registry
	fetcher *loader.Fetcher
	out     *format.Printer
	errOut  *format.Printer
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := config.NewLogger(cmd.ErrOrStderr(), cfg.Log)
	if err != nil {
		return nil, err
	}
	reg := metrics.New()
	return &app{
		cfg:     cfg,
		logger:  logger,
		metrics: reg,
		fetcher: loader.NewFetcher(loader.FetcherOptions{
			Timeout:         cfg.Fetch.Timeout,
			BreakerFailures: cfg.Fetch.Breaker.Failures,
			Logger:          logger,
			Metrics:         reg,
		}),
		out:    format.New(cmd.OutOrStdout()),
		errOut: format.New(cmd.ErrOrStderr()),
	}, nil
}

// session is an open workspace and the resources behind it.
type session struct {
	ws    *workspace.Workspace
	store *store.Store
	proxy *proxy.Proxy
}

func (s *session) Close() error {
	return s.store.Close()
}

func (a *app) openSession(ctx context.Context) (*session, error) {
	st, err := store.OpenDir(a.cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	jar, err := cookies.NewJar()
	if err != nil {
		st.Close()
		return nil, err
	}
	p := proxy.New(proxy.Options{
		Jar:             jar,
		Timeout:         a.cfg.Proxy.Timeout,
		MaxResponseSize: a.cfg.Proxy.MaxResponseSize,
		Logger:          a.logger,
		Metrics:         a.metrics,
	})

	ws, err := workspace.New(ctx, workspace.Options{
		Store:             st,
		Fetcher:           a.fetcher,
		Proxy:             p,
		Jar:               jar,
		HistoryLimit:      a.cfg.History.Limit,
		ValidateResponses: a.cfg.Proxy.ValidateResponses,
		Logger:            a.logger,
	})
	if err != nil {
		st.Close()
		return nil, err
	}
	return &session{ws: ws, store: st, proxy: p}, nil
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// loadSpec reads a document from a file or URL without touching the
// workspace. Warnings go to stderr.
func (a *app) loadSpec(ctx context.Context, source string) (*loader.Result, error) {
	var (
		res *loader.Result
		err error
	)
	if isURL(source) {
		fetched, ferr := a.fetcher.FetchExternal(ctx, source)
		if ferr != nil {
			return nil, fmt.Errorf("fetching spec: %w", ferr)
		}
		res, err = loader.Parse(fetched.Data)
	} else {
		res, err = loader.LoadFile(source)
	}
	if err != nil {
		return nil, fmt.Errorf("loading spec: %w", err)
	}
	for _, w := range res.Warnings {
		a.errOut.Warning(w)
	}
	return res, nil
}

// loadIntoWorkspace makes source the active document of ws.
func loadIntoWorkspace(ctx context.Context, ws *workspace.Workspace, source string) (workspace.Info, error) {
	if isURL(source) {
		return ws.LoadURL(ctx, source)
	}
	path, err := filepath.Abs(source)
	if err != nil {
		return workspace.Info{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return workspace.Info{}, fmt.Errorf("reading spec file: %w", err)
	}
	return ws.LoadBytes(ctx, path, data)
}
