package model

import (
	"fmt"
	"strings"
)

// Location represents the physical location of a statement
type Location struct {
	FilePath string
	Line     int
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d", l.FilePath, l.Line)
}

// QueryType is the operation kind of a statement
type QueryType int

const (
	QueryTypeUnknown QueryType = iota
	QueryTypeSelect
	QueryTypeInsert
	QueryTypeUpdate
	QueryTypeDelete
)

var queryTypeNames = map[QueryType]string{
	QueryTypeUnknown: "UNKNOWN",
	QueryTypeSelect:  "SELECT",
	QueryTypeInsert:  "INSERT",
	QueryTypeUpdate:  "UPDATE",
	QueryTypeDelete:  "DELETE",
}

// DisplayedQueryTypes lists the query types that can reach the graph, in report order.
var DisplayedQueryTypes = []QueryType{
	QueryTypeInsert,
	QueryTypeUpdate,
	QueryTypeDelete,
	QueryTypeSelect,
}

func (q QueryType) String() string {
	if name, ok := queryTypeNames[q]; ok {
		return name
	}
	return queryTypeNames[QueryTypeUnknown]
}

// ParseQueryType maps a token such as "insert" to its QueryType.
// Unrecognized tokens yield QueryTypeUnknown.
func ParseQueryType(token string) QueryType {
	token = strings.ToUpper(strings.TrimSpace(token))
	for q, name := range queryTypeNames {
		if name == token {
			return q
		}
	}
	return QueryTypeUnknown
}

// Statement is a candidate SQL statement taken from an artifact
type Statement struct {
	Origin   string // artifact name, e.g. the file's base name without extension
	SQL      string
	Location Location
}

// LineageRecord is the resolved outcome of one statement or one declared relation.
// An empty Target means the record has no write side.
type LineageRecord struct {
	Sources     []string
	Target      string
	QueryType   QueryType
	OriginLabel string
}

// HasTarget reports whether the record writes to a table.
func (r LineageRecord) HasTarget() bool {
	return r.Target != ""
}

// Tables returns every table the record touches, sources first.
func (r LineageRecord) Tables() []string {
	tables := make([]string, 0, len(r.Sources)+1)
	tables = append(tables, r.Sources...)
	if r.HasTarget() {
		tables = append(tables, r.Target)
	}
	return tables
}

// UnparsableEntry is a statement the table extractor rejected
type UnparsableEntry struct {
	Origin   string
	SQL      string
	Location Location
	Reason   string
}

// RunStats summarizes one pipeline run
type RunStats struct {
	Files         int
	Statements    int
	Skipped       int
	Relations     int
	RecordsByType map[QueryType]int
	Unparsable    []UnparsableEntry
	DiagramPath   string
	ReportPath    string
	Nodes         int
	Edges         int
}
