package extractor

import (
	"iter"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"sql-lineage/internal/model"
)

// Separator splits statements within an artifact
const Separator = ";"

// Patterns deciding whether a fragment holds a statement.
// (?s) lets SELECT and FROM sit on different lines.
var (
	mutatingKeyword = regexp.MustCompile(`(?i)DELETE|UPDATE|INSERT`)
	selectFrom      = regexp.MustCompile(`(?is)SELECT.*FROM`)
	statementStart  = regexp.MustCompile(`(?i)WITH|SELECT|DELETE|UPDATE|INSERT`)
)

// StatementSegmenter splits raw artifact text into purified statements
type StatementSegmenter struct {
}

func NewStatementSegmenter() *StatementSegmenter {
	return &StatementSegmenter{}
}

// Split cuts content on the statement separator. A trailing empty
// fragment left by a final separator is dropped.
func Split(content string) []string {
	fragments := strings.Split(content, Separator)
	if n := len(fragments); n > 0 && fragments[n-1] == "" {
		fragments = fragments[:n-1]
	}
	return fragments
}

// IsStatement reports whether a fragment contains a mutating keyword or
// a SELECT ... FROM pair, in any case.
func IsStatement(fragment string) bool {
	return mutatingKeyword.MatchString(fragment) || selectFrom.MatchString(fragment)
}

// Purify drops everything before the first statement-opening keyword.
// It returns "" when no such keyword exists.
func Purify(fragment string) string {
	_, s := purify(fragment)
	return s
}

func purify(fragment string) (int, string) {
	loc := statementStart.FindStringIndex(fragment)
	if loc == nil {
		return -1, ""
	}
	return loc[0], strings.TrimRightFunc(fragment[loc[0]:], unicode.IsSpace)
}

// Segment yields the statements of one artifact in textual order.
func (s *StatementSegmenter) Segment(origin, filePath string, content []byte) iter.Seq[model.Statement] {
	return func(yield func(model.Statement) bool) {
		text := string(content)
		offset := 0
		for _, fragment := range Split(text) {
			start := offset
			offset += len(fragment) + len(Separator)

			if !IsStatement(fragment) {
				continue
			}
			at, sql := purify(fragment)
			if sql == "" {
				continue
			}

			stmt := model.Statement{
				Origin: origin,
				SQL:    sql,
				Location: model.Location{
					FilePath: filePath,
					Line:     strings.Count(text[:start+at], "\n") + 1,
				},
			}
			if !yield(stmt) {
				return
			}
		}
	}
}

// Origin returns the artifact name for a file: its base name without extension.
func Origin(filePath string) string {
	base := filepath.Base(filePath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Manager selects the appropriate segmenter based on file extension
type Manager struct {
	segmenters map[string]model.Segmenter
}

func NewManager() *Manager {
	return &Manager{
		segmenters: make(map[string]model.Segmenter),
	}
}

func (m *Manager) Register(ext string, seg model.Segmenter) {
	m.segmenters[normalizeExt(ext)] = seg
}

// Supports reports whether a segmenter is registered for the file's extension.
func (m *Manager) Supports(filePath string) bool {
	_, ok := m.segmenters[normalizeExt(filepath.Ext(filePath))]
	return ok
}

// Statements lazily reads each file in order and yields its statements.
// A file that cannot be read yields a single error carrying its path,
// after which iteration moves on to the next file.
func (m *Manager) Statements(files []string) iter.Seq2[model.Statement, error] {
	return func(yield func(model.Statement, error) bool) {
		for _, path := range files {
			seg, ok := m.segmenters[normalizeExt(filepath.Ext(path))]
			if !ok {
				continue
			}

			content, err := os.ReadFile(path)
			if err != nil {
				if !yield(model.Statement{Origin: Origin(path), Location: model.Location{FilePath: path}}, err) {
					return
				}
				continue
			}

			for stmt := range seg.Segment(Origin(path), path, content) {
				if !yield(stmt, nil) {
					return
				}
			}
		}
	}
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
