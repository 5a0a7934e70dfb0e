// Package dag provides directed graph operations over grammar rule references.
// It supports cycle detection, dependency ordering, reachability and depth queries.
package dag

import (
	"fmt"
	"sort"
)

// Graph is a directed graph keyed by rule id. An edge from A to B means
// rule A references rule B.
type Graph struct {
	nodes   map[int]struct{}
	edges   map[int][]int // rule -> referenced rules
	parents map[int][]int // rule -> referencing rules
}

// NewGraph creates a new empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:   make(map[int]struct{}),
		edges:   make(map[int][]int),
		parents: make(map[int][]int),
	}
}

// AddNode adds a node to the graph. Adding an existing node is a no-op.
func (g *Graph) AddNode(id int) {
	if _, exists := g.nodes[id]; exists {
		return
	}
	g.nodes[id] = struct{}{}
	g.edges[id] = []int{}
	g.parents[id] = []int{}
}

// AddEdge records that rule from references rule to.
// Self references are kept so that cycle detection can report them.
func (g *Graph) AddEdge(from, to int) error {
	if _, exists := g.nodes[from]; !exists {
		return fmt.Errorf("node %d does not exist", from)
	}
	if _, exists := g.nodes[to]; !exists {
		return fmt.Errorf("node %d does not exist", to)
	}

	if !contains(g.edges[from], to) {
		g.edges[from] = append(g.edges[from], to)
	}
	if !contains(g.parents[to], from) {
		g.parents[to] = append(g.parents[to], from)
	}
	return nil
}

// HasNode reports whether id is part of the graph.
func (g *Graph) HasNode(id int) bool {
	_, ok := g.nodes[id]
	return ok
}

// Children returns the rules referenced by id, in insertion order.
func (g *Graph) Children(id int) []int {
	return g.edges[id]
}

// Parents returns the rules that reference id, in insertion order.
func (g *Graph) Parents(id int) []int {
	return g.parents[id]
}

// Nodes returns all node ids in ascending order.
func (g *Graph) Nodes() []int {
	ids := make([]int, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int {
	count := 0
	for _, children := range g.edges {
		count += len(children)
	}
	return count
}

// HasCycle returns true if the graph contains a cycle, along with the cycle path.
func (g *Graph) HasCycle() (bool, []int) {
	return g.HasCycleFrom(g.Nodes()...)
}

// HasCycleFrom is like HasCycle but only considers nodes reachable from roots.
// The returned path starts and ends with the same id, e.g. [8 8] or [1 2 1].
func (g *Graph) HasCycleFrom(roots ...int) (bool, []int) {
	visited := make(map[int]bool)
	onStack := make(map[int]bool)
	via := make(map[int]int)

	var cyclePath []int

	var dfs func(id int) bool
	dfs = func(id int) bool {
		visited[id] = true
		onStack[id] = true

		for _, child := range g.edges[id] {
			if !visited[child] {
				via[child] = id
				if dfs(child) {
					return true
				}
			} else if onStack[child] {
				cyclePath = []int{child}
				for curr := id; curr != child; curr = via[curr] {
					cyclePath = append([]int{curr}, cyclePath...)
				}
				cyclePath = append([]int{child}, cyclePath...)
				return true
			}
		}

		onStack[id] = false
		return false
	}

	for _, id := range roots {
		if !g.HasNode(id) || visited[id] {
			continue
		}
		if dfs(id) {
			return true, cyclePath
		}
	}

	return false, nil
}

// Reachable returns every node reachable from roots (roots included), ascending.
func (g *Graph) Reachable(roots ...int) []int {
	seen := make(map[int]bool)

	var walk func(id int)
	walk = func(id int) {
		if seen[id] {
			return
		}
		seen[id] = true
		for _, child := range g.edges[id] {
			walk(child)
		}
	}

	for _, id := range roots {
		if g.HasNode(id) {
			walk(id)
		}
	}

	result := make([]int, 0, len(seen))
	for id := range seen {
		result = append(result, id)
	}
	sort.Ints(result)
	return result
}

// TopologicalSort returns node ids with every referenced rule before the rules
// that reference it. Returns an error if the graph contains a cycle.
func (g *Graph) TopologicalSort() ([]int, error) {
	if hasCycle, cyclePath := g.HasCycle(); hasCycle {
		return nil, fmt.Errorf("cycle detected: %v", cyclePath)
	}

	visited := make(map[int]bool)
	result := make([]int, 0, len(g.nodes))

	var visit func(id int)
	visit = func(id int) {
		if visited[id] {
			return
		}
		visited[id] = true

		for _, child := range g.edges[id] {
			visit(child)
		}

		result = append(result, id)
	}

	for _, id := range g.Nodes() {
		visit(id)
	}

	return result, nil
}

// Depth returns the length of the longest reference chain starting at id,
// counting id itself. A rule with no references has depth 1.
// Returns an error if a cycle is reachable from id.
func (g *Graph) Depth(id int) (int, error) {
	if !g.HasNode(id) {
		return 0, fmt.Errorf("node %d does not exist", id)
	}
	if hasCycle, cyclePath := g.HasCycleFrom(id); hasCycle {
		return 0, fmt.Errorf("cycle detected: %v", cyclePath)
	}

	memo := make(map[int]int)

	var depth func(id int) int
	depth = func(id int) int {
		if d, ok := memo[id]; ok {
			return d
		}
		deepest := 0
		for _, child := range g.edges[id] {
			if d := depth(child); d > deepest {
				deepest = d
			}
		}
		memo[id] = deepest + 1
		return deepest + 1
	}

	return depth(id), nil
}

func contains(slice []int, item int) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
