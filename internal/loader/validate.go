package loader

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/pb33f/libopenapi"
	validator "github.com/pb33f/libopenapi-validator"
	validatorErrors "github.com/pb33f/libopenapi-validator/errors"
)

// ResponseValidator checks proxied exchanges against the loaded document.
type ResponseValidator struct {
	validator validator.Validator
}

func NewResponseValidator(data []byte) (*ResponseValidator, error) {
	doc, err := libopenapi.NewDocument(data)
	if err != nil {
		return nil, fmt.Errorf("parsing OpenAPI document: %w", err)
	}
	v, errs := validator.NewValidator(doc)
	if len(errs) > 0 {
		return nil, fmt.Errorf("building validator: %w", errors.Join(errs...))
	}
	return &ResponseValidator{validator: v}, nil
}

// Validate returns one line per problem, or nil when resp conforms to the
// operation matched by req.
func (v *ResponseValidator) Validate(req *http.Request, resp *http.Response) []string {
	if v == nil {
		return nil
	}
	valid, errs := v.validator.ValidateHttpResponse(req, resp)
	if valid {
		return nil
	}
	return FormatValidationErrors(errs)
}

func FormatValidationErrors(errs []*validatorErrors.ValidationError) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		if e == nil {
			continue
		}
		line := e.Message
		if e.Reason != "" {
			line += ": " + e.Reason
		}
		out = append(out, line)
	}
	return out
}
