package relay

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/kolah/speclens/internal/cookies"
	"github.com/kolah/speclens/internal/endpoint"
	"github.com/kolah/speclens/internal/executor"
	"github.com/kolah/speclens/internal/loader"
	"github.com/kolah/speclens/internal/model"
	"github.com/kolah/speclens/internal/proxy"
	"github.com/kolah/speclens/internal/workspace"
)

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return badRequest(errors.New("invalid JSON body: " + err.Error()))
	}
	return nil
}

type urlRequest struct {
	URL string `json:"url"`
}

type fetchResponse struct {
	Data         string `json:"data"`
	ETag         string `json:"etag,omitempty"`
	LastModified string `json:"lastModified,omitempty"`
}

type checkUpdateResponse struct {
	HasUpdate       bool   `json:"hasUpdate"`
	NewETag         string `json:"newEtag,omitempty"`
	NewLastModified string `json:"newLastModified,omitempty"`
	Data            string `json:"data,omitempty"`
}

func (s *Server) fetchSpec(w http.ResponseWriter, r *http.Request) {
	var req urlRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.fetcher.FetchExternal(r.Context(), req.URL)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, fetchResponse{
		Data:         string(res.Data),
		ETag:         res.ETag,
		LastModified: res.LastModified,
	})
}

func (s *Server) checkSpecUpdate(w http.ResponseWriter, r *http.Request) {
	var req loader.UpdateRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.fetcher.CheckUpdate(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, checkUpdateResponse{
		HasUpdate:       res.HasUpdate,
		NewETag:         res.NewETag,
		NewLastModified: res.NewLastModified,
		Data:            string(res.Data),
	})
}

func (s *Server) proxyRequest(w http.ResponseWriter, r *http.Request) {
	var req proxy.Request
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	resp, err := s.proxy.Do(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.ws.CaptureCookies(req.URL, resp.SetCookies)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) getSpec(w http.ResponseWriter, r *http.Request) {
	info, err := s.ws.Info()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

type loadSpecRequest struct {
	URL     string `json:"url"`
	Name    string `json:"name"`
	Content string `json:"content"`
}

// loadSpec accepts either a URL to fetch or an inline document.
func (s *Server) loadSpec(w http.ResponseWriter, r *http.Request) {
	var req loadSpecRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	var (
		info workspace.Info
		err  error
	)
	switch {
	case req.URL != "":
		info, err = s.ws.LoadURL(r.Context(), req.URL)
	case req.Content != "":
		name := req.Name
		if name == "" {
			name = "inline"
		}
		info, err = s.ws.LoadBytes(r.Context(), name, []byte(req.Content))
	default:
		err = badRequest(errors.New("either url or content is required"))
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) clearSpec(w http.ResponseWriter, r *http.Request) {
	if err := s.ws.Clear(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) refreshSpec(w http.ResponseWriter, r *http.Request) {
	res, err := s.ws.Refresh(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type endpointSummary struct {
	Key         string       `json:"key"`
	Method      model.Method `json:"method"`
	Path        string       `json:"path"`
	OperationID string       `json:"operationId,omitempty"`
	Summary     string       `json:"summary,omitempty"`
	Tags        []string     `json:"tags,omitempty"`
	Deprecated  bool         `json:"deprecated,omitempty"`
}

func summarize(ep endpoint.Endpoint) endpointSummary {
	sum := endpointSummary{Key: ep.Key(), Method: ep.Method, Path: ep.Path, Tags: ep.Tags()}
	if op := ep.Operation; op != nil {
		sum.OperationID = op.OperationID
		sum.Summary = op.Summary
		sum.Deprecated = op.Deprecated
	}
	return sum
}

// splitList accepts repeated parameters as well as comma separated values.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func (s *Server) listEndpoints(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	eps := s.ws.Endpoints(endpoint.Criteria{
		Search:  q.Get("search"),
		Tags:    splitList(q["tag"]),
		Methods: endpoint.ParseMethods(splitList(q["method"])),
	})
	out := make([]endpointSummary, 0, len(eps))
	for _, ep := range eps {
		out = append(out, summarize(ep))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) listTags(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.ws.Tags())
}

func endpointQuery(r *http.Request) (model.Method, string) {
	q := r.URL.Query()
	return model.Method(strings.ToUpper(strings.TrimSpace(q.Get("method")))), q.Get("path")
}

func (s *Server) describeEndpoint(w http.ResponseWriter, r *http.Request) {
	method, path := endpointQuery(r)
	d, err := s.ws.Describe(method, path)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

type selectionRequest struct {
	Method string `json:"method"`
	Path   string `json:"path"`
}

func (s *Server) selectEndpoint(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.ws.Select(r.Context(), model.Method(strings.ToUpper(req.Method)), req.Path); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getTestData(w http.ResponseWriter, r *http.Request) {
	method, path := endpointQuery(r)
	data, err := s.ws.TestData(r.Context(), method, path)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

func (s *Server) execute(w http.ResponseWriter, r *http.Request) {
	var in workspace.ExecuteInput
	if err := decode(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(in.Method) == "" {
		s.writeError(w, r, badRequest(errors.New("method is required")))
		return
	}
	exec, err := s.ws.Execute(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, exec)
}

func (s *Server) getAuth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.ws.Auth())
}

func (s *Server) setAuth(w http.ResponseWriter, r *http.Request) {
	var auth executor.AuthConfig
	if err := decode(r, &auth); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := auth.Validate(); err != nil {
		s.writeError(w, r, badRequest(err))
		return
	}
	if err := s.ws.SetAuth(r.Context(), auth); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.ws.Auth())
}

func (s *Server) getVariables(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.ws.Variables())
}

func (s *Server) setVariables(w http.ResponseWriter, r *http.Request) {
	var vars []executor.Variable
	if err := decode(r, &vars); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := workspace.ValidateVariables(vars); err != nil {
		s.writeError(w, r, badRequest(err))
		return
	}
	if err := s.ws.SetVariables(r.Context(), vars); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.ws.Variables())
}

func (s *Server) getCookies(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.ws.Cookies())
}

func (s *Server) setCustomCookies(w http.ResponseWriter, r *http.Request) {
	var custom []cookies.Custom
	if err := decode(r, &custom); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := workspace.ValidateCustomCookies(custom); err != nil {
		s.writeError(w, r, badRequest(err))
		return
	}
	if err := s.ws.SetCustomCookies(r.Context(), custom); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.ws.Cookies())
}

func (s *Server) removeSessionCookie(w http.ResponseWriter, r *http.Request) {
	removed := s.ws.RemoveSessionCookie(chi.URLParam(r, "name"))
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

func (s *Server) clearSessionCookies(w http.ResponseWriter, r *http.Request) {
	if err := s.ws.ClearSessionCookies(); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.writeError(w, r, badRequest(errors.New("limit must be a positive integer")))
			return
		}
		limit = n
	}
	entries, err := s.ws.History(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) getHistoryEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := s.ws.HistoryEntry(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) clearHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.ws.ClearHistory(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
