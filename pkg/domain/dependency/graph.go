package dependency

import (
	"container/heap"
	"fmt"
	"sort"
)

// Link is a dependency declared on a node: the node depends on PredecessorID.
type Link struct {
	PredecessorID string
	Type          Type
	LagDays       float64
}

// NodeSpec declares a node and its dependencies.
type NodeSpec struct {
	ID           string
	Dependencies []Link
}

// Edge connects two node indices, predecessor to successor.
type Edge struct {
	From    int
	To      int
	Type    Type
	LagDays float64
}

// Graph is a directed graph over task and milestone identifiers. Nodes live
// in an arena addressed by index; edges reference indices, never the nodes
// themselves.
type Graph struct {
	ids   []string
	index map[string]int
	edges []Edge
	out   [][]int
	in    [][]int
}

// Build assembles a graph from node declarations, validates every reference
// and rejects cycles. No graph is returned on failure.
func Build(nodes []NodeSpec) (*Graph, error) {
	g := &Graph{
		ids:   make([]string, 0, len(nodes)),
		index: make(map[string]int, len(nodes)),
		out:   make([][]int, len(nodes)),
		in:    make([][]int, len(nodes)),
	}

	for _, n := range nodes {
		if n.ID == "" {
			return nil, ErrEmptyIdentifier
		}
		if _, exists := g.index[n.ID]; exists {
			return nil, &DuplicateNodeError{ID: n.ID}
		}
		g.index[n.ID] = len(g.ids)
		g.ids = append(g.ids, n.ID)
	}

	for to, n := range nodes {
		for _, link := range n.Dependencies {
			from, ok := g.index[link.PredecessorID]
			if !ok {
				return nil, &DanglingReferenceError{MissingID: link.PredecessorID, ReferencedBy: n.ID}
			}
			typ := link.Type.OrDefault()
			if !typ.IsValid() {
				return nil, fmt.Errorf("%w: %q on %s", ErrInvalidDependencyType, link.Type, n.ID)
			}
			g.addEdge(Edge{From: from, To: to, Type: typ, LagDays: link.LagDays})
		}
	}

	if cycle := g.FindCycle(); cycle != nil {
		return nil, &CircularDependencyError{Cycle: cycle}
	}
	return g, nil
}

func (g *Graph) addEdge(e Edge) {
	idx := len(g.edges)
	g.edges = append(g.edges, e)
	g.out[e.From] = append(g.out[e.From], idx)
	g.in[e.To] = append(g.in[e.To], idx)
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.ids)
}

// ID returns the identifier of the node at index i.
func (g *Graph) ID(i int) string {
	return g.ids[i]
}

// Index returns the index of a node identifier.
func (g *Graph) Index(id string) (int, bool) {
	i, ok := g.index[id]
	return i, ok
}

// Incoming returns the edges whose successor is node i.
func (g *Graph) Incoming(i int) []Edge {
	return g.collect(g.in[i])
}

// Outgoing returns the edges whose predecessor is node i.
func (g *Graph) Outgoing(i int) []Edge {
	return g.collect(g.out[i])
}

func (g *Graph) collect(idx []int) []Edge {
	edges := make([]Edge, 0, len(idx))
	for _, e := range idx {
		edges = append(edges, g.edges[e])
	}
	return edges
}

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// Predecessors returns the identifiers the given node depends on.
func (g *Graph) Predecessors(id string) []string {
	i, ok := g.index[id]
	if !ok {
		return nil
	}
	result := make([]string, 0, len(g.in[i]))
	for _, e := range g.in[i] {
		result = append(result, g.ids[g.edges[e].From])
	}
	return result
}

// Successors returns the identifiers that depend on the given node.
func (g *Graph) Successors(id string) []string {
	i, ok := g.index[id]
	if !ok {
		return nil
	}
	result := make([]string, 0, len(g.out[i]))
	for _, e := range g.out[i] {
		result = append(result, g.ids[g.edges[e].To])
	}
	return result
}

// Sources returns the indices of nodes without predecessors.
func (g *Graph) Sources() []int {
	var result []int
	for i := range g.ids {
		if len(g.in[i]) == 0 {
			result = append(result, i)
		}
	}
	return result
}

// Sinks returns the indices of nodes without successors.
func (g *Graph) Sinks() []int {
	var result []int
	for i := range g.ids {
		if len(g.out[i]) == 0 {
			result = append(result, i)
		}
	}
	return result
}

// FindCycle returns the first cycle found, or nil. Nodes are visited in
// identifier order so the result does not depend on declaration order. The
// returned sequence is rotated to start at its smallest identifier and closes
// back on it.
func (g *Graph) FindCycle() []string {
	const (
		white = iota
		grey
		black
	)

	color := make([]int, len(g.ids))
	stack := make([]int, 0, len(g.ids))
	var cycle []int

	var visit func(u int) bool
	visit = func(u int) bool {
		color[u] = grey
		stack = append(stack, u)

		for _, v := range g.sortedSuccessors(u) {
			switch color[v] {
			case grey:
				for i := len(stack) - 1; i >= 0; i-- {
					if stack[i] == v {
						cycle = append([]int(nil), stack[i:]...)
						break
					}
				}
				return true
			case white:
				if visit(v) {
					return true
				}
			}
		}

		color[u] = black
		stack = stack[:len(stack)-1]
		return false
	}

	for _, u := range g.sortedIndices() {
		if color[u] == white && visit(u) {
			return g.normalizeCycle(cycle)
		}
	}
	return nil
}

func (g *Graph) normalizeCycle(cycle []int) []string {
	start := 0
	for i, n := range cycle {
		if g.ids[n] < g.ids[cycle[start]] {
			start = i
		}
	}
	result := make([]string, 0, len(cycle)+1)
	for i := range cycle {
		result = append(result, g.ids[cycle[(start+i)%len(cycle)]])
	}
	return append(result, result[0])
}

func (g *Graph) sortedIndices() []int {
	idx := make([]int, len(g.ids))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return g.ids[idx[a]] < g.ids[idx[b]] })
	return idx
}

func (g *Graph) sortedSuccessors(u int) []int {
	succ := make([]int, 0, len(g.out[u]))
	for _, e := range g.out[u] {
		succ = append(succ, g.edges[e].To)
	}
	sort.Slice(succ, func(a, b int) bool { return g.ids[succ[a]] < g.ids[succ[b]] })
	return succ
}

// readySet is a min-heap of node indices.
type readySet []int

func (r readySet) Len() int           { return len(r) }
func (r readySet) Less(i, j int) bool { return r[i] < r[j] }
func (r readySet) Swap(i, j int)      { r[i], r[j] = r[j], r[i] }
func (r *readySet) Push(x any)        { *r = append(*r, x.(int)) }
func (r *readySet) Pop() any {
	old := *r
	n := old[len(old)-1]
	*r = old[:len(old)-1]
	return n
}

// TopologicalOrder returns node indices with every predecessor before its
// successors (Kahn's algorithm). Among the nodes ready at any step the one
// declared first comes next.
func (g *Graph) TopologicalOrder() []int {
	inDegree := make([]int, len(g.ids))
	ready := &readySet{}
	for i := range g.ids {
		inDegree[i] = len(g.in[i])
		if inDegree[i] == 0 {
			*ready = append(*ready, i)
		}
	}
	heap.Init(ready)

	order := make([]int, 0, len(g.ids))
	for ready.Len() > 0 {
		node := heap.Pop(ready).(int)
		order = append(order, node)
		for _, e := range g.out[node] {
			succ := g.edges[e].To
			inDegree[succ]--
			if inDegree[succ] == 0 {
				heap.Push(ready, succ)
			}
		}
	}
	return order
}

// TopologicalIDs returns TopologicalOrder as identifiers.
func (g *Graph) TopologicalIDs() []string {
	order := g.TopologicalOrder()
	ids := make([]string, len(order))
	for i, n := range order {
		ids[i] = g.ids[n]
	}
	return ids
}
