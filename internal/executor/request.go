// Package executor turns the values entered for an endpoint into a concrete
// proxy request: variable and path substitution, body parsing, auth and
// cookie injection.
package executor

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strings"

	"github.com/kolah/speclens/internal/cookies"
	"github.com/kolah/speclens/internal/model"
	"github.com/kolah/speclens/internal/proxy"
)

// Input holds the raw, unsubstituted values for one execution.
type Input struct {
	Method      string            `json:"method"`
	Path        string            `json:"path"`
	BaseURL     string            `json:"baseUrl"`
	PathParams  map[string]string `json:"pathParams,omitempty"`
	QueryParams map[string]string `json:"queryParams,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	Body        string            `json:"body,omitempty"`
}

// Variable is a named value referenced as @name in any input field.
type Variable struct {
	Name        string `json:"name"`
	Value       string `json:"value"`
	Description string `json:"description,omitempty"`
}

var variableToken = regexp.MustCompile(`@(\w+)`)

// Substitute replaces every @name token with the value of the variable of
// that name. The result is not rescanned and unknown names are left intact.
func Substitute(s string, vars []Variable) string {
	if len(vars) == 0 || !strings.Contains(s, "@") {
		return s
	}
	values := make(map[string]string, len(vars))
	for _, v := range vars {
		values[v.Name] = v.Value
	}
	return variableToken.ReplaceAllStringFunc(s, func(token string) string {
		if v, ok := values[token[1:]]; ok {
			return v
		}
		return token
	})
}

// componentUnescaper undoes the query escaping of characters that
// encodeURIComponent leaves alone. Spaces become %20 rather than "+".
var componentUnescaper = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// EncodeComponent escapes s for use inside a single path segment with the
// same reserved set as encodeURIComponent.
func EncodeComponent(s string) string {
	return componentUnescaper.Replace(url.QueryEscape(s))
}

// SubstitutePath replaces each {name} token of template with the encoded
// value of params[name]. Tokens without a value are left in place.
func SubstitutePath(template string, params map[string]string) string {
	out := template
	for name, value := range params {
		token := regexp.MustCompile(`\{` + regexp.QuoteMeta(name) + `\}`)
		out = token.ReplaceAllLiteralString(out, EncodeComponent(value))
	}
	return out
}

// BuildURL joins base and path with exactly one slash between them.
func BuildURL(base, path string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if path == "" {
		return base
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}

// ParseBody returns the JSON value of s when it parses, the raw string
// otherwise, and nil for a blank body. Objects keep their key order.
func ParseBody(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	if !json.Valid([]byte(s)) {
		return s
	}
	if v, err := model.ParseLiteral([]byte(s)); err == nil {
		return v
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	return v
}

// Prepare builds the proxy request for in. Variables are substituted in
// every field before anything else. Query parameters and headers with a
// blank value are not sent.
func Prepare(in Input, auth AuthConfig, custom []cookies.Custom, vars []Variable) proxy.Request {
	pathParams := make(map[string]string, len(in.PathParams))
	for k, v := range in.PathParams {
		pathParams[k] = Substitute(v, vars)
	}

	req := proxy.Request{
		URL:         BuildURL(Substitute(in.BaseURL, vars), SubstitutePath(in.Path, pathParams)),
		Method:      strings.ToUpper(in.Method),
		Headers:     substituteNonBlank(in.Headers, vars),
		QueryParams: substituteNonBlank(in.QueryParams, vars),
		Body:        ParseBody(Substitute(in.Body, vars)),
	}

	ApplyAuth(&req, auth)
	ApplyCookies(&req, custom)
	return req
}

func substituteNonBlank(in map[string]string, vars []Variable) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		if strings.TrimSpace(k) == "" {
			continue
		}
		v = Substitute(v, vars)
		if v == "" {
			continue
		}
		out[k] = v
	}
	return out
}
