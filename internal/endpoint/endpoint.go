// Package endpoint derives the navigable endpoint list from a document:
// parsing, tag indexing, grouping, parameter merging and filtering.
package endpoint

import (
	"sort"

	"github.com/kolah/speclens/internal/model"
)

// Untagged is the group name for endpoints whose operation declares no tags.
const Untagged = "untagged"

// Endpoint is one (path, method) pair of a document. It is derived data and
// is recomputed whenever the document changes.
type Endpoint struct {
	Path      string
	Method    model.Method
	Operation *model.Operation
	PathItem  *model.PathItem
}

// Key identifies the endpoint within one document ("GET:/pets/{id}").
func (e Endpoint) Key() string {
	return Key(e.Method, e.Path)
}

func Key(method model.Method, path string) string {
	return string(method) + ":" + path
}

// Tags returns the operation tags, or nil.
func (e Endpoint) Tags() []string {
	if e.Operation == nil {
		return nil
	}
	return e.Operation.Tags
}

// Parse lists every declared operation in path order, then fixed method order.
func Parse(doc *model.Document) []Endpoint {
	if doc == nil {
		return nil
	}
	var endpoints []Endpoint
	for path, item := range doc.Paths.FromOldest() {
		if item == nil {
			continue
		}
		for _, method := range model.Methods {
			op := item.Operation(method)
			if op == nil {
				continue
			}
			endpoints = append(endpoints, Endpoint{
				Path:      path,
				Method:    method,
				Operation: op,
				PathItem:  item,
			})
		}
	}
	return endpoints
}

// Find returns the endpoint for method and path.
func Find(endpoints []Endpoint, method model.Method, path string) (Endpoint, bool) {
	for _, ep := range endpoints {
		if ep.Method == method && ep.Path == path {
			return ep, true
		}
	}
	return Endpoint{}, false
}

// AllTags unions the top-level tag declarations with every operation's tags,
// deduplicated and sorted.
func AllTags(doc *model.Document) []string {
	if doc == nil {
		return nil
	}
	seen := make(map[string]bool)
	for _, t := range doc.Tags {
		seen[t.Name] = true
	}
	for _, ep := range Parse(doc) {
		for _, t := range ep.Tags() {
			seen[t] = true
		}
	}
	tags := make([]string, 0, len(seen))
	for t := range seen {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}

// Group is an ordered bucket of endpoints sharing a primary tag.
type Group struct {
	Tag       string
	Endpoints []Endpoint
}

// GroupByTag buckets endpoints by their first tag, or Untagged. Groups are
// returned in the order their tag is first seen; every endpoint appears in
// exactly one group.
func GroupByTag(endpoints []Endpoint) []Group {
	index := make(map[string]int)
	var groups []Group
	for _, ep := range endpoints {
		tag := Untagged
		if tags := ep.Tags(); len(tags) > 0 {
			tag = tags[0]
		}
		i, ok := index[tag]
		if !ok {
			i = len(groups)
			index[tag] = i
			groups = append(groups, Group{Tag: tag})
		}
		groups[i].Endpoints = append(groups[i].Endpoints, ep)
	}
	return groups
}
