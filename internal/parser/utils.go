package parser

import (
	"strings"

	"github.com/pingcap/tidb/parser/ast"
)

// ExtractTableNames extracts all table names mentioned in a SQL statement.
// Names are returned once each, in first-seen order, with the table a
// mutating statement writes to placed first. Common table expression
// names are not tables and are left out.
func ExtractTableNames(node ast.StmtNode) []string {
	c := newTableCollector()

	// Visit the written table before the rest of the statement
	switch stmt := node.(type) {
	case *ast.InsertStmt:
		if stmt.Table != nil {
			stmt.Table.Accept(c)
		}
	case *ast.DeleteStmt:
		if stmt.Tables != nil {
			stmt.Tables.Accept(c)
		}
	}
	node.Accept(c)

	return c.result()
}

type tableCollector struct {
	names []string
	seen  map[string]struct{}
	ctes  map[string]struct{}
}

func newTableCollector() *tableCollector {
	return &tableCollector{
		seen: make(map[string]struct{}),
		ctes: make(map[string]struct{}),
	}
}

func (c *tableCollector) Enter(in ast.Node) (ast.Node, bool) {
	switch n := in.(type) {
	case *ast.WithClause:
		for _, cte := range n.CTEs {
			c.ctes[cte.Name.L] = struct{}{}
		}
	case *ast.TableName:
		c.add(qualifiedName(n))
	}
	return in, false
}

func (c *tableCollector) Leave(in ast.Node) (ast.Node, bool) {
	return in, true
}

func (c *tableCollector) add(name string) {
	if name == "" {
		return
	}
	key := strings.ToLower(name)
	if _, ok := c.seen[key]; ok {
		return
	}
	c.seen[key] = struct{}{}
	c.names = append(c.names, name)
}

// result drops CTE references, which are only known once the whole tree is walked.
func (c *tableCollector) result() []string {
	tables := make([]string, 0, len(c.names))
	for _, name := range c.names {
		if _, ok := c.ctes[strings.ToLower(name)]; ok {
			continue
		}
		tables = append(tables, name)
	}
	return tables
}

func qualifiedName(tn *ast.TableName) string {
	if tn.Schema.O != "" {
		return tn.Schema.O + "." + tn.Name.O
	}
	return tn.Name.O
}
