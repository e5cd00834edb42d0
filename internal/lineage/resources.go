package lineage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"sql-lineage/internal/model"
)

var (
	ErrMalformedMapping  = errors.New("malformed mapping row")
	ErrMalformedRelation = errors.New("malformed relation row")
)

// RowError locates a malformed row in a CSV resource.
type RowError struct {
	Path string
	Row  int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("%s:%d: %v", e.Path, e.Row, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// LabelMap is a case-insensitive table name to display label lookup.
type LabelMap map[string]string

// Label returns the display string of a table: its raw name, a newline,
// and its label ("" when unmapped).
func (m LabelMap) Label(name string) string {
	return name + "\n" + m[mappingKey(name)]
}

// Apply maps every table of a record. An absent target stays absent.
func (m LabelMap) Apply(r model.LineageRecord) model.LineageRecord {
	mapped := r
	mapped.Sources = make([]string, len(r.Sources))
	for i, src := range r.Sources {
		mapped.Sources[i] = m.Label(src)
	}
	if r.HasTarget() {
		mapped.Target = m.Label(r.Target)
	}
	return mapped
}

func mappingKey(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// LoadMapping reads (table, label) rows from a CSV file; a `table,label`
// header is skipped.
//
// When the file cannot be opened an empty map is returned together with the
// open error, and callers may carry on with unlabeled tables. A file that
// opens but holds a bad row fails with ErrMalformedMapping.
func LoadMapping(path string) (LabelMap, error) {
	m := LabelMap{}
	f, err := os.Open(path)
	if err != nil {
		return m, err
	}
	defer f.Close()

	err = readRows(path, f, 2, ErrMalformedMapping, func(row int, rec []string) {
		if row == 1 && isHeader(rec, "table", "label") {
			return
		}
		m[mappingKey(rec[0])] = strings.TrimSpace(rec[1])
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// ReadRelations reads statically declared lineage rows of the form
// (colon-separated sources, target, origin label, query type). A
// `from,to,query,type` header is skipped. Unknown query type tokens yield
// records of type UNKNOWN, which the display filter never lets through.
func ReadRelations(path string) ([]model.LineageRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var records []model.LineageRecord
	err = readRows(path, f, 4, ErrMalformedRelation, func(row int, rec []string) {
		if row == 1 && isHeader(rec, "from", "to", "query", "type") {
			return
		}
		records = append(records, model.LineageRecord{
			Sources:     splitSources(rec[0]),
			Target:      strings.TrimSpace(rec[1]),
			OriginLabel: strings.TrimSpace(rec[2]),
			QueryType:   model.ParseQueryType(rec[3]),
		})
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func splitSources(list string) []string {
	var sources []string
	for _, name := range strings.Split(list, ":") {
		if name = strings.TrimSpace(name); name != "" {
			sources = append(sources, name)
		}
	}
	return sources
}

// readRows feeds each CSV record to fn, requiring at least minCols columns.
// Blank lines are skipped by the CSV reader.
func readRows(path string, r io.Reader, minCols int, malformed error, fn func(row int, rec []string)) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	for row := 1; ; row++ {
		rec, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return &RowError{Path: path, Row: row, Err: fmt.Errorf("%w: %v", malformed, err)}
		}
		if len(rec) < minCols {
			return &RowError{Path: path, Row: row, Err: fmt.Errorf("%w: want %d columns, got %d", malformed, minCols, len(rec))}
		}
		fn(row, rec)
	}
}

func isHeader(rec []string, names ...string) bool {
	for i, name := range names {
		if !strings.EqualFold(strings.TrimSpace(rec[i]), name) {
			return false
		}
	}
	return true
}
