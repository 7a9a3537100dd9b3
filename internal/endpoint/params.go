package endpoint

import (
	"github.com/kolah/speclens/internal/model"
)

// MergedParameters combines path-item and operation parameters keyed by
// "in:name". Operation entries replace path-item entries with the same key;
// output follows first-insertion order. Reference parameters are skipped.
func MergedParameters(ep Endpoint) []*model.Parameter {
	return merge(ep, func(p *model.Parameter) *model.Parameter {
		if p.IsRef() {
			return nil
		}
		return p
	})
}

// ResolvedParameters behaves like MergedParameters but resolves reference
// parameters against doc first. A dangling reference stays in the result as
// the unresolved reference parameter, so callers can mark it.
func ResolvedParameters(ep Endpoint, doc *model.Document) []*model.Parameter {
	return merge(ep, func(p *model.Parameter) *model.Parameter {
		if resolved := model.ResolveParameter(p, doc); resolved != nil {
			return resolved
		}
		return p
	})
}

func merge(ep Endpoint, accept func(*model.Parameter) *model.Parameter) []*model.Parameter {
	merged := model.NewOrderedMap[*model.Parameter]()

	add := func(params []*model.Parameter) {
		for _, p := range params {
			if p == nil {
				continue
			}
			p = accept(p)
			if p == nil {
				continue
			}
			merged.Set(mergeKey(p), p)
		}
	}

	if ep.PathItem != nil {
		add(ep.PathItem.Parameters)
	}
	if ep.Operation != nil {
		add(ep.Operation.Parameters)
	}

	result := make([]*model.Parameter, 0, merged.Len())
	for _, p := range merged.FromOldest() {
		result = append(result, p)
	}
	return result
}

// ParametersIn filters params by location.
func ParametersIn(params []*model.Parameter, in model.ParameterLocation) []*model.Parameter {
	var out []*model.Parameter
	for _, p := range params {
		if p.In == in {
			out = append(out, p)
		}
	}
	return out
}

func mergeKey(p *model.Parameter) string {
	if p.IsRef() {
		return "$ref:" + p.Ref
	}
	return string(p.In) + ":" + p.Name
}
