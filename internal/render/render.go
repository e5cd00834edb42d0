// Package render turns a lineage graph into a Graphviz diagram.
package render

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/emicklei/dot"

	"sql-lineage/internal/graph"
)

// FormatDOT writes the DOT source without invoking Graphviz.
const FormatDOT = "dot"

// Formats lists the supported output formats.
var Formats = []string{FormatDOT, "svg", "png", "pdf"}

// IsSupported reports whether format is one of Formats.
func IsSupported(format string) bool {
	for _, f := range Formats {
		if f == format {
			return true
		}
	}
	return false
}

// DotRenderer renders through the Graphviz `dot` command
type DotRenderer struct {
	RankDir string
	// Command is the Graphviz executable, "dot" when empty
	Command string
}

func NewDotRenderer(rankDir string) *DotRenderer {
	return &DotRenderer{RankDir: rankDir, Command: "dot"}
}

// Build converts the lineage graph into a DOT graph. Nodes and edges keep
// the graph's order; duplicate edges stay duplicated.
func (r *DotRenderer) Build(g *graph.Graph) *dot.Graph {
	dg := dot.NewGraph(dot.Directed)
	if r.RankDir != "" {
		dg.Attr("rankdir", r.RankDir)
	}

	nodes := make(map[string]dot.Node, g.NodeCount())
	for _, n := range g.Nodes() {
		dn := dg.Node(n.ID).Attr("shape", string(n.Shape))
		if n.Color != "" {
			dn = dn.Attr("color", n.Color)
		}
		nodes[n.ID] = dn
	}

	for _, e := range g.Edges() {
		dg.Edge(nodes[e.Tail], nodes[e.Head]).Attr("color", e.Color)
	}
	return dg
}

// WriteDOT writes the DOT source of g to w.
func (r *DotRenderer) WriteDOT(w io.Writer, g *graph.Graph) error {
	_, err := io.WriteString(w, r.Build(g).String())
	return err
}

// Render writes the diagram to base + "." + format, replacing any previous
// output, and returns the written path.
func (r *DotRenderer) Render(ctx context.Context, g *graph.Graph, base, format string) (string, error) {
	if !IsSupported(format) {
		return "", fmt.Errorf("unsupported format %q (supported: %s)", format, strings.Join(Formats, ", "))
	}
	if dir := filepath.Dir(base); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("creating output directory: %w", err)
		}
	}

	out := base + "." + format
	var src bytes.Buffer
	if err := r.WriteDOT(&src, g); err != nil {
		return "", err
	}

	if format == FormatDOT {
		if err := os.WriteFile(out, src.Bytes(), 0o644); err != nil {
			return "", fmt.Errorf("writing diagram: %w", err)
		}
		return out, nil
	}

	command := r.Command
	if command == "" {
		command = "dot"
	}
	if _, err := exec.LookPath(command); err != nil {
		return "", fmt.Errorf("graphviz %q not found, install it or use --format %s: %w", command, FormatDOT, err)
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, command, "-T"+format, "-o", out)
	cmd.Stdin = &src
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("graphviz failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}
