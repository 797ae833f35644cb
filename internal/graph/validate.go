package graph

import (
	"container/heap"
)

type intMinHeap []int

func (h intMinHeap) Len() int           { return len(h) }
func (h intMinHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h intMinHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *intMinHeap) Push(x any)        { *h = append(*h, x.(int)) }
func (h *intMinHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// topoOrderIndices runs Kahn's algorithm with a ready queue ordered by
// declaration index. A result shorter than the node count means a cycle.
func (g *Graph) topoOrderIndices() []int {
	indeg := make([]int, len(g.steps))
	for i, in := range g.incoming {
		indeg[i] = len(in)
	}

	ready := &intMinHeap{}
	for i := range indeg {
		if indeg[i] == 0 {
			heap.Push(ready, i)
		}
	}

	out := make([]int, 0, len(indeg))
	for ready.Len() > 0 {
		n := heap.Pop(ready).(int)
		out = append(out, n)
		for _, m := range g.outgoing[n] {
			indeg[m]--
			if indeg[m] == 0 {
				heap.Push(ready, m)
			}
		}
	}
	return out
}

// TopologicalOrder returns a deterministic ordering in which every step comes
// after all of its upstream steps.
func (g *Graph) TopologicalOrder() ([]string, error) {
	order := g.topoOrderIndices()
	if len(order) != len(g.steps) {
		return nil, cycleError(g.findCycle())
	}
	return g.names(order), nil
}

// Acyclic returns nil for a DAG, or an ErrCycleFound error naming one cycle.
func (g *Graph) Acyclic() error {
	_, err := g.TopologicalOrder()
	return err
}

// findCycle returns one cycle as a closed path, e.g. [a b a]. The DFS visits
// nodes in declaration order, so the witness is stable.
func (g *Graph) findCycle() []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)

	color := make([]int, len(g.steps))
	parent := make([]int, len(g.steps))
	for i := range parent {
		parent[i] = -1
	}

	var cycle []int
	var dfs func(u int) bool
	dfs = func(u int) bool {
		color[u] = gray
		for _, v := range g.outgoing[u] {
			switch color[v] {
			case white:
				parent[v] = u
				if dfs(v) {
					return true
				}
			case gray:
				// back edge u -> v closes v ... u -> v
				cycle = append(cycle, v)
				for cur := u; cur != -1 && cur != v; cur = parent[cur] {
					cycle = append(cycle, cur)
				}
				cycle = append(cycle, v)
				return true
			}
		}
		color[u] = black
		return false
	}

	for i := range g.steps {
		if color[i] == white && dfs(i) {
			break
		}
	}
	if len(cycle) == 0 {
		return nil
	}

	out := make([]string, 0, len(cycle))
	for i := len(cycle) - 1; i >= 0; i-- {
		out = append(out, g.steps[cycle[i]].ID)
	}
	return out
}
