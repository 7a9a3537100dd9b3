package workspace

import (
	"context"
	"fmt"
	"time"

	"github.com/kolah/speclens/internal/loader"
	"github.com/kolah/speclens/internal/store"
)

type RefreshResult struct {
	HasUpdate bool `json:"hasUpdate"`
	Info      Info `json:"info"`
}

// LoadBytes activates an inline document. name identifies the source, so
// loading the same name again keeps its saved test data.
func (w *Workspace) LoadBytes(ctx context.Context, name string, data []byte) (Info, error) {
	source := store.SpecSource{
		ID:       store.SourceID(store.SourceFile, name),
		Type:     store.SourceFile,
		Name:     name,
		LoadedAt: w.now().UTC(),
	}
	spec, err := w.parse(data, source)
	if err != nil {
		return Info{}, err
	}
	return w.activate(ctx, spec)
}

// LoadURL fetches and activates a remote document. On any failure the
// previously loaded document stays active.
func (w *Workspace) LoadURL(ctx context.Context, rawURL string) (Info, error) {
	res, err := w.fetcher.FetchExternal(ctx, rawURL)
	if err != nil {
		return Info{}, err
	}
	source := store.SpecSource{
		ID:           store.SourceID(store.SourceURL, rawURL),
		Type:         store.SourceURL,
		Name:         rawURL,
		ETag:         res.ETag,
		LastModified: res.LastModified,
		LoadedAt:     w.now().UTC(),
	}
	spec, err := w.parse(res.Data, source)
	if err != nil {
		return Info{}, err
	}
	return w.activate(ctx, spec)
}

func (w *Workspace) activate(ctx context.Context, spec *loadedSpec) (Info, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.store.SaveSpec(ctx, store.StoredSpec{Source: spec.source, Data: spec.raw}); err != nil {
		return Info{}, fmt.Errorf("saving spec: %w", err)
	}

	previous := ""
	if w.spec != nil {
		previous = w.spec.source.ID
	}
	if previous != spec.source.ID {
		if err := w.store.ClearTestData(ctx); err != nil {
			return Info{}, fmt.Errorf("clearing test data: %w", err)
		}
		w.logger.Info("spec source changed", "from", previous, "to", spec.source.ID)
	}
	if w.selected != "" && spec.has(w.selected) {
		sel := selection{SourceID: spec.source.ID, Key: w.selected}
		if err := w.store.SaveState(ctx, store.KeySelection, stateVersion, sel); err != nil {
			return Info{}, fmt.Errorf("saving selection: %w", err)
		}
	} else {
		w.selected = ""
		if err := w.store.DeleteState(ctx, store.KeySelection); err != nil {
			return Info{}, fmt.Errorf("clearing selection: %w", err)
		}
	}

	w.spec = spec
	w.logger.Info("spec loaded",
		"source", spec.source.ID,
		"endpoints", len(spec.endpoints),
		"warnings", len(spec.warnings),
	)
	return w.infoLocked(), nil
}

// Refresh asks the origin of a URL source whether the document changed.
// An unchanged document only gets a new refresh time; a changed one is
// reparsed and keeps the selection when the endpoint still exists.
func (w *Workspace) Refresh(ctx context.Context) (RefreshResult, error) {
	w.mu.RLock()
	current := w.spec
	w.mu.RUnlock()
	if current == nil {
		return RefreshResult{}, ErrNoSpec
	}
	if current.source.Type != store.SourceURL {
		return RefreshResult{}, ErrNotURLSource
	}

	res, err := w.fetcher.CheckUpdate(ctx, loader.UpdateRequest{
		URL:          current.source.Name,
		ETag:         current.source.ETag,
		LastModified: current.source.LastModified,
	})
	if err != nil {
		return RefreshResult{}, err
	}

	now := w.now().UTC()
	if !res.HasUpdate {
		return w.touch(ctx, current, now)
	}

	source := current.source
	source.ETag = res.NewETag
	source.LastModified = res.NewLastModified
	source.RefreshedAt = &now
	next, err := w.parse(res.Data, source)
	if err != nil {
		return RefreshResult{}, err
	}
	info, err := w.activate(ctx, next)
	if err != nil {
		return RefreshResult{}, err
	}
	return RefreshResult{HasUpdate: true, Info: info}, nil
}

func (w *Workspace) touch(ctx context.Context, current *loadedSpec, now time.Time) (RefreshResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.spec != current {
		return RefreshResult{Info: w.infoLocked()}, nil
	}

	touched := *current
	touched.source.RefreshedAt = &now
	if err := w.store.SaveSpec(ctx, store.StoredSpec{Source: touched.source, Data: touched.raw}); err != nil {
		return RefreshResult{}, fmt.Errorf("saving spec: %w", err)
	}
	w.spec = &touched
	return RefreshResult{Info: w.infoLocked()}, nil
}

// Clear drops the document and its source. Auth, cookies and variables
// are kept.
func (w *Workspace) Clear(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.store.ClearSpec(ctx); err != nil {
		return fmt.Errorf("clearing spec: %w", err)
	}
	if err := w.store.DeleteState(ctx, store.KeySelection); err != nil {
		return fmt.Errorf("clearing selection: %w", err)
	}
	w.spec = nil
	w.selected = ""
	return nil
}
