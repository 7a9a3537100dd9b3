package relay

import (
	_ "embed"
	"errors"
	"fmt"
	"net/http"

	"github.com/pb33f/libopenapi"
	validator "github.com/pb33f/libopenapi-validator"
)

// apiDocument describes the relay's own API. Incoming requests are
// validated against it before reaching a handler.
//
//go:embed openapi.yaml
var apiDocument []byte

// ErrorHandler is called when a request is rejected.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// RequestValidator validates requests against an OpenAPI document.
type RequestValidator struct {
	validator validator.Validator
	onError   ErrorHandler
}

func NewRequestValidator(spec []byte, onError ErrorHandler) (*RequestValidator, error) {
	doc, err := libopenapi.NewDocument(spec)
	if err != nil {
		return nil, fmt.Errorf("parsing relay document: %w", err)
	}

	v, errs := validator.NewValidator(doc)
	if len(errs) > 0 {
		return nil, fmt.Errorf("building relay validator: %w", errors.Join(errs...))
	}

	return &RequestValidator{
		validator: v,
		onError:   onError,
	}, nil
}

// Handler returns an http.Handler middleware.
func (v *RequestValidator) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		valid, errs := v.validator.ValidateHttpRequestSync(r)
		if !valid {
			v.onError(w, r, &ValidationError{
				StatusCode: http.StatusBadRequest,
				Message:    "request validation failed",
				Errors:     errs,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
