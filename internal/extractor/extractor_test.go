package extractor

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"sql-lineage/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{"trailing separator", "A;B;", []string{"A", "B"}},
		{"no trailing separator", "A;B", []string{"A", "B"}},
		{"empty", "", []string{}},
		{"inner empty kept", "A;;B", []string{"A", "", "B"}},
		{"trailing whitespace kept", "A;\n", []string{"A", "\n"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Split(tt.content))
		})
	}
}

func TestIsStatement(t *testing.T) {
	tests := []struct {
		name     string
		fragment string
		want     bool
	}{
		{"insert", "insert into a values (1)", true},
		{"update mixed case", "UpDaTe a set x = 1", true},
		{"delete", "\n-- cleanup\nDELETE FROM a", true},
		{"select from across lines", "SELECT *\n  FROM a", true},
		{"select without from", "SELECT 1", false},
		{"shell noise", "#!/bin/bash\necho done", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsStatement(tt.fragment))
		})
	}
}

func TestPurify(t *testing.T) {
	tests := []struct {
		name     string
		fragment string
		want     string
	}{
		{"leading comment", "-- nightly load\nINSERT INTO a SELECT * FROM b\n", "INSERT INTO a SELECT * FROM b"},
		{"shell prefix", "psql <<EOF\nselect * from a", "select * from a"},
		{"with clause", "\n\nWITH x AS (SELECT 1) SELECT * FROM x", "WITH x AS (SELECT 1) SELECT * FROM x"},
		{"already pure", "DELETE FROM a", "DELETE FROM a"},
		{"no keyword", "echo hello", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Purify(tt.fragment)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, Purify(got), "purification must be idempotent")
		})
	}
}

func TestStatementSegmenter_Segment(t *testing.T) {
	content := "-- header\nUPDATE accounts SET x=1 WHERE id=1;\n\nSELECT * FROM accounts;\necho not sql;\n"

	seg := NewStatementSegmenter()
	got := slices.Collect(seg.Segment("job", "scripts/job.sh", []byte(content)))

	require.Len(t, got, 2)
	assert.Equal(t, model.Statement{
		Origin:   "job",
		SQL:      "UPDATE accounts SET x=1 WHERE id=1",
		Location: model.Location{FilePath: "scripts/job.sh", Line: 2},
	}, got[0])
	assert.Equal(t, "SELECT * FROM accounts", got[1].SQL)
	assert.Equal(t, 4, got[1].Location.Line)
}

func TestStatementSegmenter_SegmentStopsEarly(t *testing.T) {
	seg := NewStatementSegmenter()
	count := 0
	for range seg.Segment("a", "a.sql", []byte("DELETE FROM a; DELETE FROM b; DELETE FROM c;")) {
		count++
		if count == 2 {
			break
		}
	}
	assert.Equal(t, 2, count)
}

func TestOrigin(t *testing.T) {
	assert.Equal(t, "daily_load", Origin(filepath.Join("resources", "queries", "daily_load.sql")))
	assert.Equal(t, "run", Origin("run.sh"))
	assert.Equal(t, "noext", Origin("noext"))
}

func TestManager_Statements(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "a.sql")
	second := filepath.Join(dir, "b.SH")
	ignored := filepath.Join(dir, "c.txt")
	missing := filepath.Join(dir, "missing.sql")

	require.NoError(t, os.WriteFile(first, []byte("INSERT INTO t SELECT * FROM s;"), 0o644))
	require.NoError(t, os.WriteFile(second, []byte("DELETE FROM t;"), 0o644))
	require.NoError(t, os.WriteFile(ignored, []byte("DELETE FROM x;"), 0o644))

	mgr := NewManager()
	generic := NewStatementSegmenter()
	mgr.Register("sql", generic)
	mgr.Register(".sh", generic)

	assert.True(t, mgr.Supports(second))
	assert.False(t, mgr.Supports(ignored))

	var origins []string
	var errs []error
	for stmt, err := range mgr.Statements([]string{first, missing, second, ignored}) {
		if err != nil {
			errs = append(errs, err)
			assert.Equal(t, missing, stmt.Location.FilePath)
			continue
		}
		origins = append(origins, stmt.Origin)
	}

	assert.Equal(t, []string{"a", "b"}, origins)
	require.Len(t, errs, 1)
	assert.True(t, errors.Is(errs[0], os.ErrNotExist))
}
