// Package lineage turns SQL statements and declared relations into
// lineage records and feeds them to the graph.
package lineage

import (
	"regexp"

	"sql-lineage/internal/model"
)

// classifierChain is tested in order and the first match wins, wherever the
// keyword sits in the text. Mutating verbs come before SELECT so that
// INSERT ... SELECT is classified by its write.
var classifierChain = []struct {
	queryType model.QueryType
	pattern   *regexp.Regexp
}{
	{model.QueryTypeDelete, regexp.MustCompile(`(?i)DELETE`)},
	{model.QueryTypeUpdate, regexp.MustCompile(`(?i)UPDATE`)},
	{model.QueryTypeInsert, regexp.MustCompile(`(?i)INSERT`)},
	{model.QueryTypeSelect, regexp.MustCompile(`(?i)SELECT`)},
}

// Classify returns the operation kind of a purified statement.
func Classify(sql string) model.QueryType {
	for _, c := range classifierChain {
		if c.pattern.MatchString(sql) {
			return c.queryType
		}
	}
	return model.QueryTypeUnknown
}
