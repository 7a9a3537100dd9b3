package workspace

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/kolah/speclens/internal/endpoint"
	"github.com/kolah/speclens/internal/executor"
	"github.com/kolah/speclens/internal/loader"
	"github.com/kolah/speclens/internal/model"
	"github.com/kolah/speclens/internal/proxy"
	"github.com/kolah/speclens/internal/store"
)

type ExecuteInput struct {
	executor.Input
	// SaveTestData keeps the entered values and the response for the
	// endpoint so they can be restored later.
	SaveTestData bool `json:"saveTestData,omitempty"`
}

type ExecutionError struct {
	Kind    proxy.Kind `json:"kind"`
	Message string     `json:"message"`
}

// Execution is the outcome of one Execute call. Exactly one of Response
// and Error is set.
type Execution struct {
	Request   proxy.Request   `json:"request"`
	Response  *proxy.Response `json:"response,omitempty"`
	Error     *ExecutionError `json:"error,omitempty"`
	HistoryID string          `json:"historyId,omitempty"`
}

// Execute prepares the request with the current credentials, cookies and
// variables, relays it and records the exchange. A failed relay is
// reported in Execution.Error; the returned error is only set when the
// exchange could not be recorded.
func (w *Workspace) Execute(ctx context.Context, in ExecuteInput) (*Execution, error) {
	w.mu.RLock()
	spec := w.spec
	auth := w.auth
	custom := append(w.custom[:0:0], w.custom...)
	vars := append(w.variables[:0:0], w.variables...)
	w.mu.RUnlock()

	if strings.TrimSpace(in.BaseURL) == "" && spec != nil {
		in.BaseURL = defaultServer(spec, in.Method, in.Path)
	}

	req := executor.Prepare(in.Input, auth, custom, vars)
	exec := &Execution{Request: req}

	resp, err := w.proxy.Do(ctx, req)
	if err != nil {
		perr := proxy.Classify(err, req.URL)
		exec.Error = &ExecutionError{Kind: perr.Kind, Message: perr.Error()}
	} else {
		exec.Response = resp
		if u, err := url.Parse(req.URL); err == nil {
			w.capture(u, resp.SetCookies)
		}
		if spec != nil && spec.validator != nil {
			resp.Validation = validateExchange(ctx, spec.validator, req, resp)
		}
	}

	if in.SaveTestData && spec != nil {
		data := store.TestData{
			PathParams:     in.PathParams,
			QueryParams:    in.QueryParams,
			Headers:        in.Headers,
			RequestBody:    in.Body,
			SelectedServer: in.BaseURL,
			Response:       resp,
		}
		key := endpoint.Key(model.Method(strings.ToUpper(in.Method)), in.Path)
		if err := w.store.SaveTestData(ctx, spec.source.ID, key, data); err != nil {
			w.logger.Warn("saving test data failed", "endpoint", key, "error", err)
		}
	}

	entry := store.HistoryEntry{
		Method:   req.Method,
		URL:      req.URL,
		Request:  redactQuery(req, auth),
		Response: resp,
	}
	if exec.Error != nil {
		entry.Error = exec.Error.Message
	} else {
		duration := resp.Duration
		entry.Duration = &duration
	}

	var sensitive []string
	if auth.Type == executor.AuthAPIKey && auth.APIKeyLocation != executor.APIKeyInQuery {
		sensitive = append(sensitive, auth.APIKeyName)
	}
	saved, err := w.store.AddHistory(ctx, entry, w.historyLimit, sensitive...)
	if err != nil {
		return exec, fmt.Errorf("recording history: %w", err)
	}
	exec.HistoryID = saved.ID
	return exec, nil
}

// defaultServer returns the first server that applies to the endpoint, or
// the first document server when the endpoint is unknown.
func defaultServer(spec *loadedSpec, method, path string) string {
	ep, ok := endpoint.Find(spec.endpoints, model.Method(strings.ToUpper(method)), path)
	if !ok {
		ep = endpoint.Endpoint{}
	}
	servers := spec.servers(ep)
	if len(servers) == 0 {
		return ""
	}
	return servers[0]
}

func redactQuery(req proxy.Request, auth executor.AuthConfig) proxy.Request {
	if auth.Type == executor.AuthAPIKey && auth.APIKeyLocation == executor.APIKeyInQuery {
		req.QueryParams = store.RedactHeaders(req.QueryParams, auth.APIKeyName)
	}
	return req
}

// validateExchange rebuilds the exchange as net/http values for the
// document validator.
func validateExchange(ctx context.Context, v *loader.ResponseValidator, req proxy.Request, resp *proxy.Response) []string {
	u, err := url.Parse(req.URL)
	if err != nil {
		return nil
	}
	q := u.Query()
	for k, val := range req.QueryParams {
		q.Set(k, val)
	}
	u.RawQuery = q.Encode()

	hreq, err := http.NewRequestWithContext(ctx, req.Method, u.String(), nil)
	if err != nil {
		return nil
	}
	for k, val := range req.Headers {
		hreq.Header.Set(k, val)
	}

	header := resp.RawHeader.Clone()
	if header == nil {
		header = http.Header{}
	}
	hresp := &http.Response{
		StatusCode: resp.Status,
		Header:     header,
		Body:       io.NopCloser(bytes.NewReader(resp.Raw)),
		Request:    hreq,
	}
	return v.Validate(hreq, hresp)
}

// History returns the newest entries first.
func (w *Workspace) History(ctx context.Context, limit int) ([]store.HistoryEntry, error) {
	if limit <= 0 {
		limit = w.historyLimit
	}
	return w.store.ListHistory(ctx, limit)
}

func (w *Workspace) HistoryEntry(ctx context.Context, id string) (*store.HistoryEntry, error) {
	return w.store.GetHistory(ctx, id)
}

func (w *Workspace) ClearHistory(ctx context.Context) error {
	return w.store.ClearHistory(ctx)
}
