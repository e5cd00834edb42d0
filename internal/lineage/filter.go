package lineage

import (
	"strings"

	"sql-lineage/internal/model"
)

var displayCodes = map[rune]model.QueryType{
	'i': model.QueryTypeInsert,
	'd': model.QueryTypeDelete,
	'u': model.QueryTypeUpdate,
	's': model.QueryTypeSelect,
}

// DisplayTypes is the set of query types allowed into the graph.
type DisplayTypes map[model.QueryType]struct{}

// AllDisplayTypes returns the set of every displayable query type.
func AllDisplayTypes() DisplayTypes {
	d := make(DisplayTypes, len(model.DisplayedQueryTypes))
	for _, q := range model.DisplayedQueryTypes {
		d[q] = struct{}{}
	}
	return d
}

// ParseDisplayTypes reads one-letter codes (i, d, u, s, any case).
// An empty string selects every type. Unknown letters are ignored, so a
// string without any known code selects nothing.
func ParseDisplayTypes(codes string) DisplayTypes {
	if codes == "" {
		return AllDisplayTypes()
	}
	d := make(DisplayTypes)
	for _, r := range strings.ToLower(codes) {
		if q, ok := displayCodes[r]; ok {
			d[q] = struct{}{}
		}
	}
	return d
}

// Contains reports whether q may be displayed.
func (d DisplayTypes) Contains(q model.QueryType) bool {
	_, ok := d[q]
	return ok
}

// String lists the selected types in report order.
func (d DisplayTypes) String() string {
	var names []string
	for _, q := range model.DisplayedQueryTypes {
		if d.Contains(q) {
			names = append(names, q.String())
		}
	}
	return strings.Join(names, ",")
}

// ShouldIgnore reports whether a statement stays out of the graph: a SELECT
// without tables carries no lineage, and types outside the filter are hidden.
func (d DisplayTypes) ShouldIgnore(q model.QueryType, tables []string) bool {
	return (q == model.QueryTypeSelect && len(tables) == 0) || !d.Contains(q)
}
