package model

import "iter"

// TableExtractor lists the tables a statement references
type TableExtractor interface {
	// Tables returns the referenced table names, the written table first
	// when the statement both writes and reads.
	Tables(sql string) ([]string, error)
}

// Segmenter splits the raw content of one artifact into statements
type Segmenter interface {
	Segment(origin, filePath string, content []byte) iter.Seq[Statement]
}

// Reporter defines how to output the summary of a run
type Reporter interface {
	Report(stats RunStats) error
}
