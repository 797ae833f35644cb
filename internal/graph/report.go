package graph

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"dagtemplate/internal/core"
)

// Levels groups steps by longest-path depth from any root. Steps in the same
// level never depend on each other.
func (g *Graph) Levels() ([][]string, error) {
	order := g.topoOrderIndices()
	if len(order) != len(g.steps) {
		return nil, cycleError(g.findCycle())
	}

	depth := make([]int, len(g.steps))
	maxDepth := 0
	for _, u := range order {
		for _, p := range g.incoming[u] {
			if depth[p]+1 > depth[u] {
				depth[u] = depth[p] + 1
			}
		}
		if depth[u] > maxDepth {
			maxDepth = depth[u]
		}
	}

	levels := make([][]string, maxDepth+1)
	for i, s := range g.steps {
		levels[depth[i]] = append(levels[depth[i]], s.ID)
	}
	return levels, nil
}

// ParallelGroups returns sets of two or more steps that share exactly the same
// upstream and downstream steps, in declaration order. In an acyclic graph the
// members of a group are mutually independent.
func (g *Graph) ParallelGroups() [][]string {
	bySignature := make(map[string]int)
	var groups [][]int
	for i := range g.steps {
		sig := signature(g.incoming[i]) + "|" + signature(g.outgoing[i])
		gi, ok := bySignature[sig]
		if !ok {
			gi = len(groups)
			bySignature[sig] = gi
			groups = append(groups, nil)
		}
		groups[gi] = append(groups[gi], i)
	}

	var out [][]string
	for _, members := range groups {
		if len(members) > 1 {
			out = append(out, g.names(members))
		}
	}
	return out
}

func signature(idx []int) string {
	parts := make([]string, len(idx))
	for i, n := range idx {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}

// Report bundles the structural facts of one job's graph.
type Report struct {
	JobID          string     `json:"jobId"`
	Version        string     `json:"version"`
	Steps          int        `json:"steps"`
	Edges          int        `json:"edges"`
	Roots          []string   `json:"roots"`
	Sinks          []string   `json:"sinks"`
	Acyclic        bool       `json:"acyclic"`
	Cycle          string     `json:"cycle,omitempty"`
	Order          []string   `json:"order,omitempty"`
	Levels         [][]string `json:"levels,omitempty"`
	SoleSink       string     `json:"soleSink,omitempty"`
	SinkProblem    string     `json:"sinkProblem,omitempty"`
	ParallelGroups [][]string `json:"parallelGroups,omitempty"`
}

// OK reports whether the graph is a DAG with a single sink reached by every step.
func (r Report) OK() bool { return r.Acyclic && r.SoleSink != "" }

// Inspect analyses job without failing: problems are recorded on the report.
func Inspect(job *core.Job) Report {
	g := New(job)
	r := Report{
		JobID:          job.ID(),
		Version:        job.Version(),
		Steps:          g.Len(),
		Edges:          len(job.Edges()),
		Roots:          g.Roots(),
		Sinks:          g.Sinks(),
		ParallelGroups: g.ParallelGroups(),
	}

	order, err := g.TopologicalOrder()
	if err != nil {
		r.Cycle = err.Error()
	} else {
		r.Acyclic = true
		r.Order = order
		r.Levels, _ = g.Levels()
	}

	if sink, err := g.SoleSink(); err != nil {
		r.SinkProblem = err.Error()
	} else {
		r.SoleSink = sink
	}
	return r
}

// WriteDOT renders the graph in Graphviz DOT syntax.
func WriteDOT(w io.Writer, job *core.Job) error {
	g := New(job)
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "digraph %s {\n", strconv.Quote(job.ID()))
	fmt.Fprintln(bw, "  rankdir=LR;")
	for _, s := range g.steps {
		shape := "box"
		if s.Kind == core.StepKindNoOp {
			shape = "ellipse"
		}
		fmt.Fprintf(bw, "  %s [shape=%s", strconv.Quote(s.ID), shape)
		if s.Command != "" {
			fmt.Fprintf(bw, ", tooltip=%s", strconv.Quote(string(s.Command)))
		}
		fmt.Fprintln(bw, "];")
	}
	for _, e := range g.Edges() {
		fmt.Fprintf(bw, "  %s -> %s;\n", strconv.Quote(e.Upstream), strconv.Quote(e.Downstream))
	}
	fmt.Fprintln(bw, "}")
	return bw.Flush()
}
