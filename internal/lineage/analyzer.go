package lineage

import (
	"iter"
	"log/slog"

	"sql-lineage/internal/graph"
	"sql-lineage/internal/model"
)

// Options tunes an Analyzer. Zero values mean no labels, every query type
// displayed and no logging.
type Options struct {
	Labels  LabelMap
	Display DisplayTypes
	Logger  *slog.Logger
}

// Analyzer resolves statements and declared relations into lineage and
// adds them to a graph it does not own. It is not safe for concurrent use.
type Analyzer struct {
	graph      *graph.Graph
	extractor  model.TableExtractor
	labels     LabelMap
	display    DisplayTypes
	unparsable *UnparsableLog
	logger     *slog.Logger
	stats      model.RunStats
}

func NewAnalyzer(g *graph.Graph, extractor model.TableExtractor, opts Options) *Analyzer {
	a := &Analyzer{
		graph:      g,
		extractor:  extractor,
		labels:     opts.Labels,
		display:    opts.Display,
		unparsable: NewUnparsableLog(),
		logger:     opts.Logger,
		stats:      model.RunStats{RecordsByType: make(map[model.QueryType]int)},
	}
	if a.labels == nil {
		a.labels = LabelMap{}
	}
	if a.display == nil {
		a.display = AllDisplayTypes()
	}
	if a.logger == nil {
		a.logger = slog.New(slog.DiscardHandler)
	}
	return a
}

// Analyze consumes statements in order. Read errors are logged and skipped.
func (a *Analyzer) Analyze(stmts iter.Seq2[model.Statement, error]) {
	for stmt, err := range stmts {
		if err != nil {
			a.logger.Warn("skipping unreadable file", "path", stmt.Location.FilePath, "error", err)
			continue
		}
		a.AddStatement(stmt)
	}
}

// AddStatement classifies one statement, resolves its tables and draws it.
// It reports whether the statement reached the graph.
func (a *Analyzer) AddStatement(stmt model.Statement) bool {
	a.stats.Statements++
	log := a.logger.With("origin", stmt.Origin, "location", stmt.Location.String())

	q := Classify(stmt.SQL)
	if q == model.QueryTypeUnknown {
		log.Debug("statement has no known operation")
		a.stats.Skipped++
		return false
	}

	tables, err := a.extractor.Tables(stmt.SQL)
	if err != nil {
		log.Warn("could not extract tables", "error", err)
		a.unparsable.Add(stmt, err)
		return false
	}

	if a.display.ShouldIgnore(q, tables) {
		log.Debug("statement filtered", "type", q.String(), "tables", len(tables))
		a.stats.Skipped++
		return false
	}

	sources, target := ResolveRoles(q, tables)
	if len(sources) == 0 && target == "" {
		log.Debug("statement references no tables", "type", q.String())
		a.stats.Skipped++
		return false
	}

	a.draw(model.LineageRecord{
		Sources:     sources,
		Target:      target,
		QueryType:   q,
		OriginLabel: stmt.Origin,
	})
	log.Debug("lineage added", "type", q.String(), "target", target, "sources", sources)
	return true
}

// AddRelation draws a declared relation, subject to the display filter.
func (a *Analyzer) AddRelation(r model.LineageRecord) bool {
	if a.display.ShouldIgnore(r.QueryType, r.Tables()) {
		a.logger.Debug("relation filtered", "origin", r.OriginLabel, "type", r.QueryType.String())
		return false
	}
	if len(r.Sources) == 0 && !r.HasTarget() {
		a.logger.Debug("relation references no tables", "origin", r.OriginLabel)
		return false
	}
	a.draw(r)
	a.stats.Relations++
	return true
}

func (a *Analyzer) draw(r model.LineageRecord) {
	a.graph.AddLineage(a.labels.Apply(r))
	a.stats.RecordsByType[r.QueryType]++
}

func (a *Analyzer) Unparsable() *UnparsableLog {
	return a.unparsable
}

// Stats returns the counters gathered so far.
func (a *Analyzer) Stats() model.RunStats {
	stats := a.stats
	stats.RecordsByType = make(map[model.QueryType]int, len(a.stats.RecordsByType))
	for q, n := range a.stats.RecordsByType {
		stats.RecordsByType[q] = n
	}
	stats.Unparsable = a.unparsable.Entries()
	stats.Nodes = a.graph.NodeCount()
	stats.Edges = a.graph.EdgeCount()
	return stats
}
