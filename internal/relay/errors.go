package relay

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kolah/speclens/internal/loader"
	"github.com/kolah/speclens/internal/proxy"
	"github.com/kolah/speclens/internal/store"
	"github.com/kolah/speclens/internal/workspace"
	validatorErrors "github.com/pb33f/libopenapi-validator/errors"
)

// ValidationError wraps libopenapi-validator errors with HTTP semantics.
type ValidationError struct {
	StatusCode int
	Message    string
	Errors     []*validatorErrors.ValidationError
}

func (e *ValidationError) Error() string {
	return e.Message
}

// AuthError rejects a request without the relay token.
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	return e.Message
}

func NewUnauthorizedError(message string) *AuthError {
	return &AuthError{
		StatusCode: http.StatusUnauthorized,
		Message:    message,
	}
}

// RequestError is a malformed payload that passed schema validation, or
// one sent while validation is disabled.
type RequestError struct {
	Err error
}

func (e *RequestError) Error() string {
	return e.Err.Error()
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

func badRequest(err error) error {
	return &RequestError{Err: err}
}

type errorBody struct {
	Error   string   `json:"error"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

// classify maps an error to its status code and the machine readable kind
// rendered in the "error" field.
func classify(err error) (int, string) {
	var (
		verr   *ValidationError
		aerr   *AuthError
		rerr   *RequestError
		specer *loader.ValidationError
		serr   *loader.StatusError
		perr   *proxy.Error
	)
	switch {
	case errors.As(err, &verr):
		return verr.StatusCode, "validation_error"
	case errors.As(err, &aerr):
		return aerr.StatusCode, "authentication_error"
	case errors.As(err, &rerr):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, workspace.ErrNoSpec):
		return http.StatusNotFound, "no_spec"
	case errors.Is(err, workspace.ErrEndpointNotFound), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, workspace.ErrNotURLSource):
		return http.StatusConflict, "not_url_source"
	case errors.Is(err, loader.ErrInvalidURL):
		return http.StatusBadRequest, "invalid_url"
	case errors.As(err, &specer), errors.Is(err, loader.ErrInvalidDocument):
		return http.StatusUnprocessableEntity, "invalid_spec"
	case errors.As(err, &serr):
		return http.StatusBadGateway, "upstream_status"
	case errors.As(err, &perr):
		switch perr.Kind {
		case proxy.KindTimeout:
			return http.StatusGatewayTimeout, string(perr.Kind)
		case proxy.KindInvalid:
			return http.StatusBadRequest, string(perr.Kind)
		}
		return http.StatusBadGateway, string(perr.Kind)
	}
	return http.StatusInternalServerError, "internal"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError renders err as {"error": kind, "message": text}. Internal
// errors are logged and their text is not exposed.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := classify(err)
	body := errorBody{Error: kind, Message: err.Error()}

	var verr *ValidationError
	if errors.As(err, &verr) {
		body.Details = loader.FormatValidationErrors(verr.Errors)
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		body.Message = "internal error"
	}
	writeJSON(w, status, body)
}
