package parser

import (
	"errors"
	"fmt"

	"github.com/pingcap/tidb/parser"
	"github.com/pingcap/tidb/parser/ast"
	_ "github.com/pingcap/tidb/parser/test_driver"
)

// ErrTableExtraction is returned when a statement cannot be parsed into tables.
var ErrTableExtraction = errors.New("table extraction failed")

// SQLParser wraps the TiDB parser
type SQLParser struct {
	p *parser.Parser
}

func NewSQLParser() *SQLParser {
	return &SQLParser{
		p: parser.New(),
	}
}

// Parse converts a SQL string into an AST
func (sp *SQLParser) Parse(sql string) (ast.StmtNode, error) {
	stmtNodes, _, err := sp.p.Parse(sql, "", "")
	if err != nil {
		return nil, err
	}
	if len(stmtNodes) == 0 {
		return nil, fmt.Errorf("no valid SQL found")
	}
	// Statements are split upstream, so only the first one matters
	return stmtNodes[0], nil
}

// Tables parses sql and returns the tables it references.
// Any parse failure is reported as ErrTableExtraction.
func (sp *SQLParser) Tables(sql string) ([]string, error) {
	stmt, err := sp.Parse(sql)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTableExtraction, err)
	}
	return ExtractTableNames(stmt), nil
}
