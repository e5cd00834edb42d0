package lineage

import "sql-lineage/internal/model"

// ResolveRoles splits the tables of a statement into sources and target.
//
//   - SELECT: every table is a source, no target.
//   - no tables: nothing.
//   - one table: it is both the target and its own source.
//   - more: the first table is the target, the rest are sources.
//
// An empty target means there is none.
func ResolveRoles(q model.QueryType, tables []string) ([]string, string) {
	switch {
	case q == model.QueryTypeSelect:
		return append([]string{}, tables...), ""
	case len(tables) == 0:
		return []string{}, ""
	case len(tables) == 1:
		return []string{tables[0]}, tables[0]
	default:
		return append([]string{}, tables[1:]...), tables[0]
	}
}
