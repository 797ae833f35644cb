package graph

import (
	"sort"

	"dagtemplate/internal/core"
)

// Graph is a read-only adjacency list over a job's steps.
//
// It is safe for concurrent read access.
type Graph struct {
	steps    []core.Step // declaration order
	index    map[string]int
	outgoing [][]int // by declaration index, sorted ascending
	incoming [][]int // by declaration index, sorted ascending
}

// New builds the adjacency list for job. Edges always name declared steps
// because core.Builder only accepts step refs.
func New(job *core.Job) *Graph {
	steps := job.Steps()
	g := &Graph{
		steps:    steps,
		index:    make(map[string]int, len(steps)),
		outgoing: make([][]int, len(steps)),
		incoming: make([][]int, len(steps)),
	}
	for i, s := range steps {
		g.index[s.ID] = i
	}
	for _, e := range job.Edges() {
		from, to := g.index[e.Upstream], g.index[e.Downstream]
		g.outgoing[from] = append(g.outgoing[from], to)
		g.incoming[to] = append(g.incoming[to], from)
	}
	for i := range steps {
		sort.Ints(g.outgoing[i])
		sort.Ints(g.incoming[i])
	}
	return g
}

func (g *Graph) Len() int { return len(g.steps) }

// Nodes returns step ids in declaration order.
func (g *Graph) Nodes() []string {
	out := make([]string, 0, len(g.steps))
	for _, s := range g.steps {
		out = append(out, s.ID)
	}
	return out
}

// Edges returns every edge ordered by upstream then downstream declaration index.
func (g *Graph) Edges() []core.Edge {
	var out []core.Edge
	for from, tos := range g.outgoing {
		for _, to := range tos {
			out = append(out, core.Edge{Upstream: g.steps[from].ID, Downstream: g.steps[to].ID})
		}
	}
	return out
}

// Downstream returns the direct successors of id.
func (g *Graph) Downstream(id string) []string {
	i, ok := g.index[id]
	if !ok {
		return nil
	}
	return g.names(g.outgoing[i])
}

// Upstream returns the direct predecessors of id.
func (g *Graph) Upstream(id string) []string {
	i, ok := g.index[id]
	if !ok {
		return nil
	}
	return g.names(g.incoming[i])
}

// Roots returns steps without upstream dependencies.
func (g *Graph) Roots() []string {
	var out []string
	for i, in := range g.incoming {
		if len(in) == 0 {
			out = append(out, g.steps[i].ID)
		}
	}
	return out
}

// Sinks returns steps without downstream dependents.
func (g *Graph) Sinks() []string {
	var out []string
	for i, o := range g.outgoing {
		if len(o) == 0 {
			out = append(out, g.steps[i].ID)
		}
	}
	return out
}

// HasPath reports whether a non-empty path leads from one step to another.
func (g *Graph) HasPath(from, to string) bool {
	src, ok := g.index[from]
	if !ok {
		return false
	}
	dst, ok := g.index[to]
	if !ok {
		return false
	}

	seen := make([]bool, len(g.steps))
	stack := append([]int(nil), g.outgoing[src]...)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == dst {
			return true
		}
		if seen[n] {
			continue
		}
		seen[n] = true
		stack = append(stack, g.outgoing[n]...)
	}
	return false
}

// Independent reports whether no path connects any two of the given steps,
// meaning the orchestrator may run them concurrently.
func (g *Graph) Independent(ids ...string) bool {
	for _, id := range ids {
		if _, ok := g.index[id]; !ok {
			return false
		}
	}
	for i, a := range ids {
		for _, b := range ids[i+1:] {
			if a == b || g.HasPath(a, b) || g.HasPath(b, a) {
				return false
			}
		}
	}
	return true
}

// SoleSink returns the unique step with no dependents, provided every other
// step reaches it.
func (g *Graph) SoleSink() (string, error) {
	sinks := g.Sinks()
	if len(sinks) != 1 {
		return "", sinkErrorf("found %d sinks %v", len(sinks), sinks)
	}
	sink := sinks[0]
	for _, s := range g.steps {
		if s.ID == sink {
			continue
		}
		if !g.HasPath(s.ID, sink) {
			return "", sinkErrorf("%q does not reach %q", s.ID, sink)
		}
	}
	return sink, nil
}

// Step returns the declared step for id.
func (g *Graph) Step(id string) (core.Step, error) {
	i, ok := g.index[id]
	if !ok {
		return core.Step{}, unknownf("%q", id)
	}
	return g.steps[i], nil
}

func (g *Graph) names(idx []int) []string {
	out := make([]string, 0, len(idx))
	for _, i := range idx {
		out = append(out, g.steps[i].ID)
	}
	return out
}
