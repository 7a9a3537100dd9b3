// Package format prints workspace data for the terminal.
package format

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode"

	"github.com/fatih/color"
	"github.com/kolah/speclens/internal/endpoint"
	"github.com/kolah/speclens/internal/proxy"
	"github.com/kolah/speclens/internal/store"
	"github.com/kolah/speclens/internal/workspace"
)

var (
	successColor   = color.New(color.FgGreen, color.Bold)
	redirectColor  = color.New(color.FgYellow, color.Bold)
	clientErrColor = color.New(color.FgRed, color.Bold)
	serverErrColor = color.New(color.FgRed, color.Bold, color.BgWhite)
	headerKeyColor = color.New(color.FgCyan)
	methodColor    = color.New(color.FgMagenta, color.Bold)
	urlColor       = color.New(color.FgBlue)
	dimColor       = color.New(color.Faint)
	warnColor      = color.New(color.FgYellow)
)

// Printer writes coloured output to w. Colours follow color.NoColor.
type Printer struct {
	w io.Writer
}

func New(w io.Writer) *Printer {
	return &Printer{w: w}
}

// sanitizeOutput escapes control characters that could rewrite the
// terminal. Newlines and tabs pass through.
func sanitizeOutput(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			b.WriteRune(r)
		case r == '\x1b':
			b.WriteString(`\x1b`)
		case unicode.IsControl(r) && r < 0x20:
			fmt.Fprintf(&b, `\x%02x`, r)
		case r == 0x7f:
			b.WriteString(`\x7f`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func statusColor(code int) *color.Color {
	switch {
	case code >= 200 && code < 300:
		return successColor
	case code >= 300 && code < 400:
		return redirectColor
	case code >= 400 && code < 500:
		return clientErrColor
	default:
		return serverErrColor
	}
}

func (p *Printer) Success(msg string) {
	successColor.Fprintf(p.w, "✓ %s\n", sanitizeOutput(msg))
}

func (p *Printer) Error(msg string) {
	clientErrColor.Fprintf(p.w, "✗ %s\n", sanitizeOutput(msg))
}

func (p *Printer) Warning(msg string) {
	warnColor.Fprintf(p.w, "! %s\n", sanitizeOutput(msg))
}

// Endpoints prints one line per endpoint.
func (p *Printer) Endpoints(eps []endpoint.Endpoint) {
	if len(eps) == 0 {
		dimColor.Fprintln(p.w, "No endpoints match")
		return
	}
	for _, ep := range eps {
		methodColor.Fprintf(p.w, "%-7s ", ep.Method)
		urlColor.Fprint(p.w, sanitizeOutput(ep.Path))
		if op := ep.Operation; op != nil {
			if op.Summary != "" {
				dimColor.Fprintf(p.w, "  %s", sanitizeOutput(op.Summary))
			}
			if op.Deprecated {
				warnColor.Fprint(p.w, " (deprecated)")
			}
		}
		fmt.Fprintln(p.w)
	}
}

func (p *Printer) Tags(tags []string) {
	if len(tags) == 0 {
		dimColor.Fprintln(p.w, "No tags")
		return
	}
	for _, t := range tags {
		headerKeyColor.Fprintln(p.w, sanitizeOutput(t))
	}
}

// Detail prints an endpoint with its parameters and generated examples.
func (p *Printer) Detail(d workspace.Detail) {
	methodColor.Fprintf(p.w, "%s ", d.Method)
	urlColor.Fprintln(p.w, sanitizeOutput(d.Path))
	if d.Summary != "" {
		fmt.Fprintln(p.w, sanitizeOutput(d.Summary))
	}
	if d.Deprecated {
		warnColor.Fprintln(p.w, "Deprecated")
	}
	for _, s := range d.Servers {
		dimColor.Fprintf(p.w, "  Server: %s\n", sanitizeOutput(s))
	}
	fmt.Fprintln(p.w)

	if len(d.Parameters) > 0 {
		fmt.Fprintln(p.w, "Parameters:")
		for _, param := range d.Parameters {
			if param.Error != "" {
				clientErrColor.Fprintf(p.w, "  %s\n", sanitizeOutput(param.Error))
				continue
			}
			headerKeyColor.Fprintf(p.w, "  %s", sanitizeOutput(param.Name))
			dimColor.Fprintf(p.w, " (%s", param.In)
			if param.Required {
				dimColor.Fprint(p.w, ", required")
			}
			dimColor.Fprint(p.w, ")")
			if param.Example != nil {
				fmt.Fprintf(p.w, " = %s", sanitizeOutput(compactJSON(param.Example)))
			}
			fmt.Fprintln(p.w)
		}
		fmt.Fprintln(p.w)
	}

	switch {
	case d.RequestBody != nil && d.RequestBody.Error != "":
		fmt.Fprint(p.w, "Request body: ")
		clientErrColor.Fprintln(p.w, sanitizeOutput(d.RequestBody.Error))
		fmt.Fprintln(p.w)
	case d.RequestBody != nil:
		fmt.Fprintf(p.w, "Request body (%s):\n", sanitizeOutput(d.RequestBody.ContentType))
		fmt.Fprintln(p.w, sanitizeOutput(prettyValue(d.RequestBody.Value)))
		fmt.Fprintln(p.w)
	}

	for _, r := range d.Responses {
		fmt.Fprint(p.w, "Response ")
		statusColor(statusCode(r.Status)).Fprint(p.w, r.Status)
		if r.Description != "" {
			dimColor.Fprintf(p.w, " %s", sanitizeOutput(r.Description))
		}
		if r.Error != "" {
			clientErrColor.Fprintf(p.w, " %s", sanitizeOutput(r.Error))
		}
		fmt.Fprintln(p.w)
		if r.Value != nil {
			fmt.Fprintln(p.w, sanitizeOutput(prettyValue(r.Value)))
		}
	}
}

// statusCode maps "default" and range keys like "2XX" to a code in the
// matching class.
func statusCode(key string) int {
	var code int
	if _, err := fmt.Sscanf(key, "%d", &code); err == nil && code >= 100 {
		return code
	}
	if len(key) == 3 && key[0] >= '1' && key[0] <= '5' {
		return int(key[0]-'0') * 100
	}
	return 500
}

// Response prints the status line, timing, optional headers and the body.
func (p *Printer) Response(resp *proxy.Response, showHeaders bool) {
	statusColor(resp.Status).Fprintf(p.w, "%d %s\n", resp.Status, sanitizeOutput(resp.StatusText))
	dimColor.Fprintf(p.w, "  Time: %dms  Size: %d bytes\n\n", resp.Duration, resp.Size)

	if showHeaders {
		p.headers(resp.Headers)
	}
	for _, v := range resp.Validation {
		p.Warning(v)
	}
	p.body(resp.Data)
}

func (p *Printer) headers(headers map[string]string) {
	if len(headers) == 0 {
		return
	}
	fmt.Fprintln(p.w, "Headers:")
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		headerKeyColor.Fprintf(p.w, "  %s: ", sanitizeOutput(k))
		fmt.Fprintln(p.w, sanitizeOutput(headers[k]))
	}
	fmt.Fprintln(p.w)
}

func (p *Printer) body(data any) {
	if data == nil || data == "" {
		dimColor.Fprintln(p.w, "(empty body)")
		return
	}
	fmt.Fprintln(p.w, sanitizeOutput(prettyValue(data)))
}

// HistoryList prints entries newest first in a compact form.
func (p *Printer) HistoryList(entries []store.HistoryEntry) {
	if len(entries) == 0 {
		dimColor.Fprintln(p.w, "No requests in history")
		return
	}
	for i, e := range entries {
		dimColor.Fprintf(p.w, "[%d] ", i+1)
		methodColor.Fprintf(p.w, "%-7s ", e.Method)

		u := e.URL
		if len(u) > 60 {
			u = u[:57] + "..."
		}
		urlColor.Fprintf(p.w, "%-60s ", sanitizeOutput(u))

		switch {
		case e.Response != nil:
			statusColor(e.Response.Status).Fprintf(p.w, "%d ", e.Response.Status)
			dimColor.Fprintf(p.w, "(%dms)", e.Response.Duration)
		case e.Error != "":
			clientErrColor.Fprint(p.w, "error")
		}
		dimColor.Fprintf(p.w, "  %s\n", e.ID)
	}
}

// HistoryDetail prints one recorded exchange.
func (p *Printer) HistoryDetail(e *store.HistoryEntry) {
	fmt.Fprintln(p.w, "Request:")
	fmt.Fprintln(p.w, strings.Repeat("-", 40))
	methodColor.Fprintf(p.w, "%s ", e.Method)
	urlColor.Fprintln(p.w, sanitizeOutput(e.URL))
	dimColor.Fprintf(p.w, "ID: %s\n", e.ID)
	dimColor.Fprintf(p.w, "Time: %s\n\n", e.Timestamp.Format("2006-01-02 15:04:05"))
	p.headers(e.Request.Headers)
	if e.Request.Body != nil {
		fmt.Fprintln(p.w, "Body:")
		fmt.Fprintln(p.w, sanitizeOutput(prettyValue(e.Request.Body)))
		fmt.Fprintln(p.w)
	}

	if e.Error != "" {
		p.Error(e.Error)
		return
	}
	if e.Response != nil {
		fmt.Fprintln(p.w, "Response:")
		fmt.Fprintln(p.w, strings.Repeat("-", 40))
		p.Response(e.Response, true)
	}
}

// JSON prints v indented.
func (p *Printer) JSON(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func prettyValue(v any) string {
	if s, ok := v.(string); ok {
		return prettyJSON(s)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

func prettyJSON(s string) string {
	var out bytes.Buffer
	if err := json.Indent(&out, []byte(s), "", "  "); err != nil {
		return s
	}
	return out.String()
}

func compactJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
