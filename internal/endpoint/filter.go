package endpoint

import (
	"slices"
	"strings"

	"github.com/kolah/speclens/internal/model"
)

// Criteria selects endpoints. Empty fields do not constrain the result.
type Criteria struct {
	Search  string
	Tags    []string
	Methods []model.Method
}

// Filter returns the endpoints matching every non-empty criterion, in input
// order. Search terms are whitespace separated and must all appear in the
// endpoint's path, summary, description, operationId or tags.
func Filter(endpoints []Endpoint, c Criteria) []Endpoint {
	terms := strings.Fields(strings.ToLower(c.Search))

	out := make([]Endpoint, 0, len(endpoints))
	for _, ep := range endpoints {
		if len(c.Methods) > 0 && !slices.Contains(c.Methods, ep.Method) {
			continue
		}
		if len(c.Tags) > 0 && !hasAnyTag(ep, c.Tags) {
			continue
		}
		if len(terms) > 0 && !matchesAll(searchText(ep), terms) {
			continue
		}
		out = append(out, ep)
	}
	return out
}

func hasAnyTag(ep Endpoint, tags []string) bool {
	for _, t := range ep.Tags() {
		if slices.Contains(tags, t) {
			return true
		}
	}
	return false
}

func searchText(ep Endpoint) string {
	var b strings.Builder
	b.WriteString(ep.Path)
	if op := ep.Operation; op != nil {
		for _, s := range []string{op.Summary, op.Description, op.OperationID} {
			b.WriteByte(' ')
			b.WriteString(s)
		}
		for _, t := range op.Tags {
			b.WriteByte(' ')
			b.WriteString(t)
		}
	}
	return strings.ToLower(b.String())
}

func matchesAll(text string, terms []string) bool {
	for _, term := range terms {
		if !strings.Contains(text, term) {
			return false
		}
	}
	return true
}

// ParseMethods normalises method names ("get", "Post") into methods,
// ignoring unknown names.
func ParseMethods(names []string) []model.Method {
	var out []model.Method
	for _, n := range names {
		m := model.Method(strings.ToUpper(strings.TrimSpace(n)))
		if slices.Contains(model.Methods, m) {
			out = append(out, m)
		}
	}
	return out
}
