// Package workspace coordinates the state of one interactive session: the
// loaded document and its source, the selected endpoint, credentials,
// cookies, variables, per endpoint test data and the execution history.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/kolah/speclens/internal/cookies"
	"github.com/kolah/speclens/internal/endpoint"
	"github.com/kolah/speclens/internal/executor"
	"github.com/kolah/speclens/internal/loader"
	"github.com/kolah/speclens/internal/model"
	"github.com/kolah/speclens/internal/proxy"
	"github.com/kolah/speclens/internal/store"
)

// stateVersion tags every persisted state entry. Bumping it discards the
// stored entries instead of misreading them.
const stateVersion = 1

var (
	ErrNoSpec           = errors.New("no spec loaded")
	ErrNotURLSource     = errors.New("spec was not loaded from a URL")
	ErrEndpointNotFound = errors.New("endpoint not found")
)

type Options struct {
	Store   *store.Store
	Fetcher *loader.Fetcher
	Proxy   *proxy.Proxy
	// Jar must be the jar the proxy was built with.
	Jar               *cookies.Jar
	HistoryLimit      int
	ValidateResponses bool
	Logger            *slog.Logger
	Now               func() time.Time
}

type Workspace struct {
	store        *store.Store
	fetcher      *loader.Fetcher
	proxy        *proxy.Proxy
	jar          *cookies.Jar
	historyLimit int
	validate     bool
	logger       *slog.Logger
	now          func() time.Time

	mu        sync.RWMutex
	spec      *loadedSpec
	selected  string
	auth      executor.AuthConfig
	custom    []cookies.Custom
	variables []executor.Variable
	session   *cookies.SessionStore
	origins   map[string]*url.URL
}

type loadedSpec struct {
	doc       *model.Document
	raw       []byte
	version   string
	warnings  []string
	source    store.SpecSource
	endpoints []endpoint.Endpoint
	tags      []string
	validator *loader.ResponseValidator
}

type selection struct {
	SourceID string `json:"sourceId"`
	Key      string `json:"key"`
}

// Info summarizes the loaded document.
type Info struct {
	Source    store.SpecSource `json:"source"`
	Title     string           `json:"title"`
	Version   string           `json:"openapi"`
	Warnings  []string         `json:"warnings,omitempty"`
	Endpoints int              `json:"endpoints"`
	Selected  string           `json:"selected,omitempty"`
}

// New builds a workspace and restores whatever the store holds. Entries
// that fail to restore are logged and skipped.
func New(ctx context.Context, opts Options) (*Workspace, error) {
	if opts.Store == nil {
		return nil, errors.New("workspace requires a store")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = store.DefaultHistoryLimit
	}
	if opts.Fetcher == nil {
		opts.Fetcher = loader.NewFetcher(loader.FetcherOptions{Logger: opts.Logger})
	}
	if opts.Jar == nil {
		jar, err := cookies.NewJar()
		if err != nil {
			return nil, err
		}
		opts.Jar = jar
	}
	if opts.Proxy == nil {
		opts.Proxy = proxy.New(proxy.Options{Jar: opts.Jar, Logger: opts.Logger})
	}

	w := &Workspace{
		store:        opts.Store,
		fetcher:      opts.Fetcher,
		proxy:        opts.Proxy,
		jar:          opts.Jar,
		historyLimit: opts.HistoryLimit,
		validate:     opts.ValidateResponses,
		logger:       opts.Logger.With("component", "workspace"),
		now:          opts.Now,
		auth:         executor.AuthConfig{Type: executor.AuthNone},
		custom:       []cookies.Custom{},
		variables:    []executor.Variable{},
		session:      cookies.NewSessionStore(),
		origins:      make(map[string]*url.URL),
	}
	if err := w.restore(ctx); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Workspace) restore(ctx context.Context) error {
	stored, err := w.store.LoadSpec(ctx)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return fmt.Errorf("loading stored spec: %w", err)
	default:
		spec, err := w.parse(stored.Data, stored.Source)
		if err != nil {
			w.logger.Warn("discarding stored spec", "source", stored.Source.ID, "error", err)
		} else {
			w.spec = spec
		}
	}

	var auth executor.AuthConfig
	if ok, err := w.store.LoadState(ctx, store.KeyAuth, stateVersion, &auth); err != nil {
		return fmt.Errorf("loading auth: %w", err)
	} else if ok && auth.Validate() == nil {
		w.auth = auth
	}

	var custom []cookies.Custom
	if ok, err := w.store.LoadState(ctx, store.KeyCustomCookies, stateVersion, &custom); err != nil {
		return fmt.Errorf("loading custom cookies: %w", err)
	} else if ok && custom != nil {
		w.custom = custom
	}

	var vars []executor.Variable
	if ok, err := w.store.LoadState(ctx, store.KeyVariables, stateVersion, &vars); err != nil {
		return fmt.Errorf("loading variables: %w", err)
	} else if ok && vars != nil {
		w.variables = vars
	}

	var sel selection
	if ok, err := w.store.LoadState(ctx, store.KeySelection, stateVersion, &sel); err != nil {
		return fmt.Errorf("loading selection: %w", err)
	} else if ok && w.spec != nil && sel.SourceID == w.spec.source.ID && w.spec.has(sel.Key) {
		w.selected = sel.Key
	}
	return nil
}

// parse builds the derived state of a document without touching the
// workspace, so a failure leaves the active document in place.
func (w *Workspace) parse(data []byte, source store.SpecSource) (*loadedSpec, error) {
	res, err := loader.Parse(data)
	if err != nil {
		return nil, err
	}
	spec := &loadedSpec{
		doc:       res.Document,
		raw:       res.RawData,
		version:   res.Version,
		warnings:  res.Warnings,
		source:    source,
		endpoints: endpoint.Parse(res.Document),
		tags:      endpoint.AllTags(res.Document),
	}
	if w.validate {
		v, err := loader.NewResponseValidator(data)
		if err != nil {
			w.logger.Warn("response validation disabled for this document", "error", err)
		} else {
			spec.validator = v
		}
	}
	return spec, nil
}

func (s *loadedSpec) has(key string) bool {
	for _, ep := range s.endpoints {
		if ep.Key() == key {
			return true
		}
	}
	return false
}

// servers lists the servers that apply to ep. Relative server URLs of a
// document fetched over HTTP resolve against the document URL.
func (s *loadedSpec) servers(ep endpoint.Endpoint) []string {
	servers := endpoint.Servers(s.doc, ep)
	if s.source.Type != store.SourceURL {
		return servers
	}
	return endpoint.ResolveAgainst(servers, s.source.Name)
}

// Info returns ErrNoSpec when nothing is loaded.
func (w *Workspace) Info() (Info, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.spec == nil {
		return Info{}, ErrNoSpec
	}
	return w.infoLocked(), nil
}

func (w *Workspace) infoLocked() Info {
	return Info{
		Source:    w.spec.source,
		Title:     w.spec.doc.Title(),
		Version:   w.spec.version,
		Warnings:  w.spec.warnings,
		Endpoints: len(w.spec.endpoints),
		Selected:  w.selected,
	}
}

func (w *Workspace) Document() *model.Document {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.spec == nil {
		return nil
	}
	return w.spec.doc
}

// Endpoints returns the endpoints matching c, or an empty list when no
// document is loaded.
func (w *Workspace) Endpoints(c endpoint.Criteria) []endpoint.Endpoint {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.spec == nil {
		return []endpoint.Endpoint{}
	}
	return endpoint.Filter(w.spec.endpoints, c)
}

func (w *Workspace) Tags() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.spec == nil {
		return []string{}
	}
	return w.spec.tags
}

// Describe returns the detail of one endpoint of the loaded document.
func (w *Workspace) Describe(method model.Method, path string) (Detail, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.spec == nil {
		return Detail{}, ErrNoSpec
	}
	ep, ok := endpoint.Find(w.spec.endpoints, method, path)
	if !ok {
		return Detail{}, fmt.Errorf("%w: %s %s", ErrEndpointNotFound, method, path)
	}
	d := Describe(w.spec.doc, ep)
	d.Servers = w.spec.servers(ep)
	return d, nil
}

// Select marks an endpoint as the current one and persists the choice.
func (w *Workspace) Select(ctx context.Context, method model.Method, path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.spec == nil {
		return ErrNoSpec
	}
	key := endpoint.Key(method, path)
	if !w.spec.has(key) {
		return fmt.Errorf("%w: %s %s", ErrEndpointNotFound, method, path)
	}
	w.selected = key
	return w.store.SaveState(ctx, store.KeySelection, stateVersion, selection{SourceID: w.spec.source.ID, Key: key})
}

// Selected returns the key of the current endpoint, or "".
func (w *Workspace) Selected() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.selected
}

// TestData returns what was last saved for an endpoint of the current
// source, or store.ErrNotFound.
func (w *Workspace) TestData(ctx context.Context, method model.Method, path string) (*store.TestData, error) {
	w.mu.RLock()
	spec := w.spec
	w.mu.RUnlock()
	if spec == nil {
		return nil, ErrNoSpec
	}
	return w.store.LoadTestData(ctx, spec.source.ID, endpoint.Key(method, path))
}
