package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/indrajit-intglobal/novaintel-latest-sub000/workflow/condition"
)

// Handler executes one node against a read-only state copy and returns a
// patch. Handlers must not retain or mutate the copy's reference fields.
type Handler func(ctx context.Context, st State) (Patch, error)

// NodeSpec declares a node before compilation.
type NodeSpec struct {
	Name     string
	Handler  Handler
	Critical bool          // failure terminates the run
	Timeout  time.Duration // 0 = engine default
}

// EdgeSpec declares an edge. When is a CEL guard over "state" and "cfg";
// empty means the edge always fires.
type EdgeSpec struct {
	From string
	To   string
	When string
}

// Definition is the declarative graph fed to Compile.
type Definition struct {
	Entry string
	Nodes []NodeSpec
	Edges []EdgeSpec
}

// Node is the compiled form with adjacency filled in.
type Node struct {
	Name         string
	Handler      Handler
	Critical     bool
	Timeout      time.Duration
	Dependencies []string
	Dependents   []string
	WaitForAll   bool
	IsTerminal   bool
}

// Graph is the compiled, validated workflow graph.
type Graph struct {
	Entry string
	Nodes map[string]*Node
	edges map[string][]EdgeSpec // out-edges in declaration order
}

// Compile converts a definition into an executable graph.
func Compile(def *Definition) (*Graph, error) {
	if def.Entry == "" {
		return nil, fmt.Errorf("definition has no entry node")
	}

	g := &Graph{
		Entry: def.Entry,
		Nodes: make(map[string]*Node, len(def.Nodes)),
		edges: make(map[string][]EdgeSpec),
	}

	// 1. Build nodes
	for _, spec := range def.Nodes {
		if spec.Name == "" {
			return nil, fmt.Errorf("node with empty name")
		}
		if _, exists := g.Nodes[spec.Name]; exists {
			return nil, fmt.Errorf("duplicate node: %s", spec.Name)
		}
		g.Nodes[spec.Name] = &Node{
			Name:         spec.Name,
			Handler:      spec.Handler,
			Critical:     spec.Critical,
			Timeout:      spec.Timeout,
			Dependencies: []string{},
			Dependents:   []string{},
		}
	}

	// 2. Build edges (dependencies and dependents)
	for _, edge := range def.Edges {
		fromNode, exists := g.Nodes[edge.From]
		if !exists {
			return nil, fmt.Errorf("edge references non-existent node: %s", edge.From)
		}
		toNode, exists := g.Nodes[edge.To]
		if !exists {
			return nil, fmt.Errorf("edge references non-existent node: %s", edge.To)
		}

		fromNode.Dependents = append(fromNode.Dependents, edge.To)
		toNode.Dependencies = append(toNode.Dependencies, edge.From)
		g.edges[edge.From] = append(g.edges[edge.From], edge)
	}

	// 3. Set wait_for_all flag for join nodes
	for _, node := range g.Nodes {
		if len(node.Dependencies) > 1 {
			node.WaitForAll = true
		}
	}

	// 4. Compute terminal nodes
	for _, node := range g.Nodes {
		node.IsTerminal = len(node.Dependents) == 0
	}

	// 5. Validate
	if err := g.validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return g, nil
}

// Route evaluates a node's out-edges against the state snapshot and returns
// the targets that fire, in declaration order without duplicates.
func (g *Graph) Route(node string, eval *condition.Evaluator, snapshot, cfg map[string]any) ([]string, error) {
	var targets []string
	seen := make(map[string]bool)

	for _, edge := range g.edges[node] {
		fire := true
		if edge.When != "" {
			ok, err := eval.Evaluate(edge.When, snapshot, cfg)
			if err != nil {
				return nil, fmt.Errorf("guard on %s -> %s: %w", edge.From, edge.To, err)
			}
			fire = ok
		}
		if fire && !seen[edge.To] {
			seen[edge.To] = true
			targets = append(targets, edge.To)
		}
	}

	return targets, nil
}

// OutEdges returns the declared out-edges of a node.
func (g *Graph) OutEdges(node string) []EdgeSpec {
	return g.edges[node]
}

func (g *Graph) validate() error {
	// 1. Entry must exist and have no dependencies
	entry, exists := g.Nodes[g.Entry]
	if !exists {
		return fmt.Errorf("entry node does not exist: %s", g.Entry)
	}
	if len(entry.Dependencies) > 0 {
		return fmt.Errorf("entry node %s has incoming edges", g.Entry)
	}

	// 2. Check for terminal nodes
	terminalCount := 0
	for _, node := range g.Nodes {
		if node.IsTerminal {
			terminalCount++
		}
	}
	if terminalCount == 0 {
		return fmt.Errorf("workflow has no terminal nodes (would run forever)")
	}

	// 3. Check for cycles over unconditional edges only. Guarded cycles are
	// legal because a guard bounds them; a cycle every edge of which always
	// fires can never terminate.
	visited := make(map[string]bool)
	recStack := make(map[string]bool)

	var hasCycle func(nodeID string) bool
	hasCycle = func(nodeID string) bool {
		visited[nodeID] = true
		recStack[nodeID] = true

		for _, edge := range g.edges[nodeID] {
			if edge.When != "" {
				continue
			}
			if !visited[edge.To] {
				if hasCycle(edge.To) {
					return true
				}
			} else if recStack[edge.To] {
				return true
			}
		}

		recStack[nodeID] = false
		return false
	}

	for nodeID := range g.Nodes {
		if !visited[nodeID] {
			if hasCycle(nodeID) {
				return fmt.Errorf("workflow contains a cycle with no guarded edge")
			}
		}
	}

	// 4. Every node must be reachable from the entry
	reached := make(map[string]bool)
	var walk func(nodeID string)
	walk = func(nodeID string) {
		if reached[nodeID] {
			return
		}
		reached[nodeID] = true
		for _, edge := range g.edges[nodeID] {
			walk(edge.To)
		}
	}
	walk(g.Entry)

	for nodeID := range g.Nodes {
		if !reached[nodeID] {
			return fmt.Errorf("node %s is unreachable from entry", nodeID)
		}
	}

	return nil
}
