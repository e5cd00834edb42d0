package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sql-lineage/internal/config"
	"sql-lineage/internal/lineage"
	"sql-lineage/internal/model"
	"sql-lineage/internal/reporter"
	"sql-lineage/internal/testutil"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func testConfig(dir string) *config.Config {
	return &config.Config{
		QueriesDir:     filepath.Join(dir, "queries"),
		Extensions:     []string{"sql", "sh"},
		Excludes:       []string{"vendor"},
		Gitignore:      true,
		MappingsFile:   filepath.Join(dir, "mappings.csv"),
		RelationsFile:  filepath.Join(dir, "relations.csv"),
		OutputDir:      filepath.Join(dir, "output"),
		DiagramName:    "diagram",
		Format:         "dot",
		UnparsableFile: "unparsable_queries.csv",
		RankDir:        "LR",
		LogFormat:      "text",
	}
}

func TestRunAnalysis(t *testing.T) {
	color.NoColor = true
	dir := t.TempDir()
	cfg := testConfig(dir)

	writeFile(t, filepath.Join(cfg.QueriesDir, "billing.sql"), "UPDATE accounts SET x=1 WHERE id=1;\nSELECT * FROM accounts;\n")
	writeFile(t, filepath.Join(cfg.QueriesDir, "nightly.sh"), "psql <<SQL\nINSERT INTO orders (id\nVALUES;\nSQL\n")
	writeFile(t, filepath.Join(cfg.QueriesDir, "vendor", "skip.sql"), "DELETE FROM vendored;")
	writeFile(t, cfg.MappingsFile, "table,label\naccounts,Customer accounts\n")
	writeFile(t, cfg.RelationsFile, "from,to,query,type\nledger:accounts,warehouse,export job,INSERT\n")

	var out bytes.Buffer
	stats, err := runAnalysis(context.Background(), cfg, lineage.AllDisplayTypes(), testutil.NewTestLogger(t), reporter.NewConsoleReporter(&out))
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Files)
	assert.Equal(t, 1, stats.Relations)
	assert.Equal(t, 1, stats.RecordsByType[model.QueryTypeUpdate])
	assert.Equal(t, 1, stats.RecordsByType[model.QueryTypeSelect])
	assert.Equal(t, 1, stats.RecordsByType[model.QueryTypeInsert])
	require.Len(t, stats.Unparsable, 1)
	assert.Equal(t, "nightly", stats.Unparsable[0].Origin)

	assert.Equal(t, filepath.Join(cfg.OutputDir, "diagram.dot"), stats.DiagramPath)
	diagram, err := os.ReadFile(stats.DiagramPath)
	require.NoError(t, err)
	assert.Contains(t, string(diagram), "Customer accounts")
	assert.Contains(t, string(diagram), "warehouse")
	assert.NotContains(t, string(diagram), "vendored")

	report, err := os.ReadFile(cfg.UnparsablePath())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(report), "nightly,"))

	assert.Contains(t, out.String(), "Scanned 2 files")
	assert.Contains(t, out.String(), "1 statements could not be parsed")
}

func TestRunAnalysis_OptionalResources(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	writeFile(t, filepath.Join(cfg.QueriesDir, "purge.sql"), "DELETE FROM sessions;")

	stats, err := runAnalysis(context.Background(), cfg, lineage.ParseDisplayTypes("d"), testutil.NewTestLogger(t), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.RecordsByType[model.QueryTypeDelete])
	assert.Equal(t, 2, stats.Nodes)
	assert.Equal(t, 2, stats.Edges)
}

func TestRunAnalysis_Errors(t *testing.T) {
	t.Run("missing queries dir", func(t *testing.T) {
		cfg := testConfig(t.TempDir())
		_, err := runAnalysis(context.Background(), cfg, lineage.AllDisplayTypes(), testutil.NewTestLogger(t), nil)
		assert.ErrorContains(t, err, "queries dir")
	})

	t.Run("malformed mapping aborts", func(t *testing.T) {
		dir := t.TempDir()
		cfg := testConfig(dir)
		writeFile(t, filepath.Join(cfg.QueriesDir, "purge.sql"), "DELETE FROM sessions;")
		writeFile(t, cfg.MappingsFile, "accounts\n")

		_, err := runAnalysis(context.Background(), cfg, lineage.AllDisplayTypes(), testutil.NewTestLogger(t), nil)
		assert.True(t, errors.Is(err, lineage.ErrMalformedMapping))
		_, statErr := os.Stat(filepath.Join(cfg.OutputDir, "diagram.dot"))
		assert.True(t, os.IsNotExist(statErr), "nothing is rendered after a fatal resource error")
	})

	t.Run("malformed relation", func(t *testing.T) {
		dir := t.TempDir()
		cfg := testConfig(dir)
		writeFile(t, filepath.Join(cfg.QueriesDir, "purge.sql"), "DELETE FROM sessions;")
		writeFile(t, cfg.RelationsFile, "a,b\n")

		_, err := runAnalysis(context.Background(), cfg, lineage.AllDisplayTypes(), testutil.NewTestLogger(t), nil)
		assert.True(t, errors.Is(err, lineage.ErrMalformedRelation))
	})
}
