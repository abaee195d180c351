package dependency

import (
	"fmt"
	"strings"
)

// Node represents one feature together with its declared dependency list.
//
// The graph must be a Directed Acyclic Graph (DAG); Resolve detects cycles
// and reports them as errors rather than returning a partial order.
type Node struct {
	ID        string
	DependsOn []string
}

// UnknownError reports a reference to a node that is not in the graph.
type UnknownError struct {
	// Requester is the node that declared the dependency; empty when the
	// missing id was requested directly.
	Requester  string
	Dependency string
}

// Error implements the error interface.
func (e *UnknownError) Error() string {
	if e.Requester == "" {
		return fmt.Sprintf("unknown feature %q", e.Dependency)
	}
	return fmt.Sprintf("feature %q depends on unknown feature %q", e.Requester, e.Dependency)
}

// CycleError reports a dependency cycle. Path holds the ids along the cycle,
// ending where it started.
type CycleError struct {
	Path []string
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle: %s", strings.Join(e.Path, " -> "))
}

// Graph answers activation-order queries over a set of nodes. Keys are
// case-insensitive. It is *not* thread-safe by itself; callers must
// synchronise if they write concurrently. In practice the graph is built
// once per resolution from an immutable registry.
type Graph struct {
	nodes map[string]*Node
	order []string
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{nodes: make(map[string]*Node)}
}

// AddNode adds (or replaces) a node in the graph. Insertion order is
// remembered for deterministic listing.
func (g *Graph) AddNode(n Node) {
	if g.nodes == nil {
		g.nodes = make(map[string]*Node)
	}
	key := strings.ToLower(n.ID)
	// Copy to avoid external mutations
	copied := n
	if _, exists := g.nodes[key]; !exists {
		g.order = append(g.order, key)
	}
	g.nodes[key] = &copied
}

// Get returns a pointer to the stored node or nil if it does not exist.
func (g *Graph) Get(id string) *Node {
	return g.nodes[strings.ToLower(id)]
}

// Dependencies returns a slice of immediate dependency IDs for the given node.
func (g *Graph) Dependencies(id string) []string {
	if n, ok := g.nodes[strings.ToLower(id)]; ok {
		// Return a copy to avoid callers modifying internal slice.
		depsCopy := make([]string, len(n.DependsOn))
		copy(depsCopy, n.DependsOn)
		return depsCopy
	}
	return nil
}

// Dependents returns all node IDs that have a direct dependency on the given
// node. This is an O(n) walk but the graph is small, so fine.
func (g *Graph) Dependents(id string) []string {
	var res []string
	for _, key := range g.order {
		n := g.nodes[key]
		for _, dep := range n.DependsOn {
			if strings.EqualFold(dep, id) {
				res = append(res, n.ID)
				break
			}
		}
	}
	return res
}

// Resolve computes the activation order for the requested ids: a depth-first
// expansion that emits each node after all of its dependencies (post-order),
// deduplicating shared ancestors so a diamond emits the common dependency
// exactly once. Requested ids that do not depend on each other keep their
// relative request order, which makes the result reproducible across runs
// with identical input.
func (g *Graph) Resolve(requested []string) ([]string, error) {
	visited := make(map[string]bool, len(g.nodes))
	visiting := make(map[string]bool)
	var stack []string
	var result []string

	var visit func(id, requester string) error
	visit = func(id, requester string) error {
		key := strings.ToLower(id)
		node, ok := g.nodes[key]
		if !ok {
			return &UnknownError{Requester: requester, Dependency: id}
		}
		if visited[key] {
			return nil
		}
		if visiting[key] {
			// Trim the stack back to where the cycle entered.
			start := 0
			for i, s := range stack {
				if strings.EqualFold(s, node.ID) {
					start = i
					break
				}
			}
			path := append(append([]string{}, stack[start:]...), node.ID)
			return &CycleError{Path: path}
		}

		visiting[key] = true
		stack = append(stack, node.ID)
		for _, dep := range node.DependsOn {
			if err := visit(dep, node.ID); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		delete(visiting, key)

		visited[key] = true
		result = append(result, node.ID)
		return nil
	}

	for _, id := range requested {
		if err := visit(id, ""); err != nil {
			return nil, err
		}
	}
	return result, nil
}
