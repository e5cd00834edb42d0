package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"sql-lineage/internal/config"
	"sql-lineage/internal/extractor"
	"sql-lineage/internal/graph"
	"sql-lineage/internal/lineage"
	"sql-lineage/internal/model"
	"sql-lineage/internal/parser"
	"sql-lineage/internal/render"
	"sql-lineage/internal/scanner"
)

// runAnalysis performs one sequential pass: load resources, walk the queries
// dir, draw every statement and declared relation into a fresh graph, then
// write the unparsable report and the diagram.
func runAnalysis(ctx context.Context, cfg *config.Config, display lineage.DisplayTypes, logger *slog.Logger, rpt model.Reporter) (model.RunStats, error) {
	// 0. Validate inputs
	info, err := os.Stat(cfg.QueriesDir)
	if err != nil {
		return model.RunStats{}, fmt.Errorf("queries dir %s: %w", cfg.QueriesDir, err)
	}
	if !info.IsDir() {
		return model.RunStats{}, fmt.Errorf("queries dir %s is not a directory", cfg.QueriesDir)
	}

	// 1. Label mapping
	labels, err := lineage.LoadMapping(cfg.MappingsFile)
	switch {
	case errors.Is(err, lineage.ErrMalformedMapping):
		return model.RunStats{}, fmt.Errorf("loading mappings: %w", err)
	case errors.Is(err, fs.ErrNotExist):
		logger.Info("no mapping file, tables are drawn unlabeled", "path", cfg.MappingsFile)
	case err != nil:
		logger.Warn("cannot read mapping file, tables are drawn unlabeled", "path", cfg.MappingsFile, "error", err)
	default:
		logger.Debug("loaded mappings", "path", cfg.MappingsFile, "count", len(labels))
	}

	// 2. Enumerate artifacts
	walker := scanner.NewFileWalker(cfg.Extensions, cfg.Excludes)
	walker.UseGitignore = cfg.Gitignore
	files, err := walker.Walk(ctx, cfg.QueriesDir)
	if err != nil {
		return model.RunStats{}, fmt.Errorf("scanning %s: %w", cfg.QueriesDir, err)
	}
	logger.Debug("scan complete", "dir", cfg.QueriesDir, "files", len(files))

	mgr := extractor.NewManager()
	segmenter := extractor.NewStatementSegmenter()
	for _, ext := range cfg.Extensions {
		mgr.Register(ext, segmenter)
	}

	// 3. Statements
	g := graph.NewGraph()
	analyzer := lineage.NewAnalyzer(g, parser.NewSQLParser(), lineage.Options{
		Labels:  labels,
		Display: display,
		Logger:  logger,
	})
	analyzer.Analyze(mgr.Statements(files))

	// 4. Declared relations
	relations, err := lineage.ReadRelations(cfg.RelationsFile)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		logger.Info("no relations file", "path", cfg.RelationsFile)
	case err != nil:
		return model.RunStats{}, fmt.Errorf("loading relations: %w", err)
	}
	for _, r := range relations {
		analyzer.AddRelation(r)
	}

	// 5. Outputs
	reportPath := cfg.UnparsablePath()
	if err := analyzer.Unparsable().Save(reportPath); err != nil {
		return model.RunStats{}, fmt.Errorf("writing unparsable report: %w", err)
	}

	diagram, err := render.NewDotRenderer(cfg.RankDir).Render(ctx, g, cfg.DiagramBase(), cfg.Format)
	if err != nil {
		return model.RunStats{}, fmt.Errorf("rendering diagram: %w", err)
	}

	stats := analyzer.Stats()
	stats.Files = len(files)
	stats.DiagramPath = diagram
	stats.ReportPath = reportPath

	if rpt != nil {
		if err := rpt.Report(stats); err != nil {
			return stats, fmt.Errorf("reporting failed: %w", err)
		}
	}
	return stats, nil
}
