// Package snippet renders a prepared request as text the user can paste
// elsewhere: a curl command line or an .http file entry.
package snippet

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"text/template"

	"github.com/kolah/speclens/internal/proxy"
)

type Format string

const (
	FormatCurl Format = "curl"
	FormatHTTP Format = "http"
)

var validFormats = map[Format]bool{
	FormatCurl: true,
	FormatHTTP: true,
}

func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if !validFormats[f] {
		return "", fmt.Errorf("invalid snippet format: %s (valid: curl, http)", s)
	}
	return f, nil
}

type Header struct {
	Name  string
	Value string
}

// Data is what the templates see.
type Data struct {
	Method  string
	URL     string
	Headers []Header
	Body    string
}

var funcs = template.FuncMap{
	"quote": shellQuote,
}

// shellQuote wraps s in single quotes for POSIX shells.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// NewData flattens r the way the proxy would send it: query parameters
// are appended to the URL and non-string bodies are JSON encoded, adding a
// JSON content type when none is set. Headers are sorted by name.
func NewData(r proxy.Request) (Data, error) {
	method := strings.ToUpper(strings.TrimSpace(r.Method))
	if method == "" {
		method = "GET"
	}
	d := Data{Method: method, URL: withQuery(r.URL, r.QueryParams)}

	hasContentType := false
	for name, value := range r.Headers {
		if strings.EqualFold(name, "Content-Type") {
			hasContentType = true
		}
		d.Headers = append(d.Headers, Header{Name: name, Value: value})
	}

	switch body := r.Body.(type) {
	case nil:
	case string:
		d.Body = body
	case []byte:
		d.Body = string(body)
	default:
		data, err := json.MarshalIndent(body, "", "  ")
		if err != nil {
			return Data{}, fmt.Errorf("encoding body: %w", err)
		}
		d.Body = string(data)
		if !hasContentType {
			d.Headers = append(d.Headers, Header{Name: "Content-Type", Value: "application/json"})
		}
	}

	sort.Slice(d.Headers, func(i, j int) bool {
		return strings.ToLower(d.Headers[i].Name) < strings.ToLower(d.Headers[j].Name)
	})
	return d, nil
}

func withQuery(raw string, params map[string]string) string {
	if len(params) == 0 {
		return raw
	}
	values := url.Values{}
	for k, v := range params {
		values.Set(k, v)
	}
	sep := "?"
	if strings.Contains(raw, "?") {
		sep = "&"
	}
	return raw + sep + values.Encode()
}

// Render renders r in format f.
func (e *Engine) Render(f Format, r proxy.Request) (string, error) {
	if !validFormats[f] {
		return "", fmt.Errorf("invalid snippet format: %s (valid: curl, http)", f)
	}
	d, err := NewData(r)
	if err != nil {
		return "", err
	}
	return e.Execute(string(f)+".tmpl", d)
}
