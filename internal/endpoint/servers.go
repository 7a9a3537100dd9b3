package endpoint

import (
	"net/url"

	"github.com/kolah/speclens/internal/model"
)

// Servers returns the servers that apply to ep: the operation's own list,
// else the path item's, else the document's. Templated URLs are resolved
// with their variable defaults.
func Servers(doc *model.Document, ep Endpoint) []string {
	var declared []model.Server
	switch {
	case ep.Operation != nil && len(ep.Operation.Servers) > 0:
		declared = ep.Operation.Servers
	case ep.PathItem != nil && len(ep.PathItem.Servers) > 0:
		declared = ep.PathItem.Servers
	case doc != nil:
		declared = doc.Servers
	}

	urls := make([]string, 0, len(declared))
	for _, s := range declared {
		if u := s.ResolvedURL(); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

// ResolveAgainst resolves relative server URLs against base, the URL the
// document was fetched from. Absolute URLs pass through, and so does every
// URL when base is not absolute.
func ResolveAgainst(servers []string, base string) []string {
	b, err := url.Parse(base)
	if err != nil || !b.IsAbs() {
		return servers
	}
	out := make([]string, len(servers))
	for i, raw := range servers {
		out[i] = raw
		ref, err := url.Parse(raw)
		if err != nil || ref.IsAbs() {
			continue
		}
		out[i] = b.ResolveReference(ref).String()
	}
	return out
}
