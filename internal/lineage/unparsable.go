package lineage

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"sql-lineage/internal/model"
)

// UnparsableLog collects statements the table extractor rejected.
type UnparsableLog struct {
	entries []model.UnparsableEntry
}

func NewUnparsableLog() *UnparsableLog {
	return &UnparsableLog{}
}

// Add records a rejected statement.
func (l *UnparsableLog) Add(stmt model.Statement, reason error) {
	entry := model.UnparsableEntry{
		Origin:   stmt.Origin,
		SQL:      stmt.SQL,
		Location: stmt.Location,
	}
	if reason != nil {
		entry.Reason = reason.Error()
	}
	l.entries = append(l.entries, entry)
}

func (l *UnparsableLog) Entries() []model.UnparsableEntry {
	return append([]model.UnparsableEntry(nil), l.entries...)
}

func (l *UnparsableLog) Len() int {
	return len(l.entries)
}

// Write emits one (origin, statement) CSV row per entry with line breaks
// removed from the statement.
func (l *UnparsableLog) Write(w io.Writer) error {
	cw := csv.NewWriter(w)
	for _, e := range l.entries {
		if err := cw.Write([]string{e.Origin, stripNewlines(e.SQL)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Save writes the report to path, replacing any previous report.
func (l *UnparsableLog) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating report directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating unparsable report: %w", err)
	}
	if err := l.Write(f); err != nil {
		f.Close()
		return fmt.Errorf("writing unparsable report: %w", err)
	}
	return f.Close()
}

func stripNewlines(s string) string {
	return strings.NewReplacer("\r", "", "\n", "").Replace(s)
}
