package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/logicsim/internal/ir"
)

// CycleWarning represents a recursive unit invocation.
//
// Recursion is a warning here, not an error: a cycle that no test reaches is
// harmless. Elaboration rejects any cycle a test actually instantiates.
type CycleWarning struct {
	Path    []string `json:"path"`    // Cycle path: ["a", "b", "a"]
	Message string   `json:"message"` // Human-readable description
	Level   string   `json:"level"`   // "warning" or "info"
}

// AnalyzeCycles performs static cycle analysis on unit invocations.
//
// The algorithm:
//  1. Build unit → invoked unit graph from every custom gate call
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with size > 1 or self-loops as a cycle warning
//
// Tests are roots of the graph but cannot themselves be invoked.
// An acyclic program returns an empty warning list.
func AnalyzeCycles(p *ir.Program) []CycleWarning {
	if p == nil {
		return []CycleWarning{}
	}

	graph, order := buildCallGraph(p)
	sccs := tarjanSCC(graph, order)

	warnings := []CycleWarning{}
	for _, scc := range sccs {
		if len(scc) > 1 || (len(scc) == 1 && hasSelfLoop(scc[0], graph)) {
			warnings = append(warnings, cycleSCCToWarning(scc, graph))
		}
	}
	return warnings
}

// callGraph maps unit name → names of the units its body invokes.
type callGraph map[string][]string

// buildCallGraph returns the graph and its nodes in declaration order,
// so that results are deterministic.
func buildCallGraph(p *ir.Program) (callGraph, []string) {
	graph := make(callGraph)
	var order []string

	for _, u := range p.Units() {
		caller := u.Name.Key()
		if u.Kind == ir.KindTest {
			// Tests live in their own namespace and may share a unit's name.
			caller = "test:" + caller
		}
		if _, ok := graph[caller]; !ok {
			graph[caller] = []string{}
			order = append(order, caller)
		}
		for _, st := range u.Body {
			var exprs []ir.Expr
			switch s := st.(type) {
			case *ir.Assign:
				exprs = append(exprs, s.Expr)
			case *ir.Assert:
				exprs = append(exprs, s.Expr)
			}
			for _, e := range exprs {
				walkCalls(e, func(callee ir.Name) {
					if _, ok := p.Lookup(callee.Text); ok {
						graph[caller] = append(graph[caller], callee.Key())
					}
				})
			}
		}
	}
	return graph, order
}

// walkCalls visits every custom gate name in e, outermost first.
func walkCalls(e ir.Expr, visit func(ir.Name)) {
	if name, _, ok := ir.Callee(e); ok {
		visit(name)
	}
	switch x := e.(type) {
	case *ir.BinaryOp:
		walkCalls(x.A, visit)
		walkCalls(x.B, visit)
	case *ir.NaryOp:
		for _, p := range x.Params {
			walkCalls(p, visit)
		}
	}
}

func hasSelfLoop(node string, graph callGraph) bool {
	for _, neighbor := range graph[node] {
		if neighbor == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Single-node SCCs without self-loops are NOT cycles.
func tarjanSCC(graph callGraph, order []string) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, node := range order {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}

func cycleSCCToWarning(scc []string, graph callGraph) CycleWarning {
	if len(scc) == 1 {
		name := scc[0]
		return CycleWarning{
			Path:    []string{name, name},
			Message: fmt.Sprintf("Self-invoking unit detected: %s → %s", name, name),
			Level:   "warning",
		}
	}

	path := reconstructCyclePath(scc, graph)
	return CycleWarning{
		Path:    path,
		Message: fmt.Sprintf("Recursive invocation detected: %s", strings.Join(path, " → ")),
		Level:   "warning",
	}
}

// reconstructCyclePath follows edges inside the SCC from its first member
// until it returns to the start.
func reconstructCyclePath(scc []string, graph callGraph) []string {
	if len(scc) == 0 {
		return []string{}
	}

	members := make(map[string]bool)
	for _, node := range scc {
		members[node] = true
	}

	start := scc[len(scc)-1]
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	for {
		visited[current] = true

		var next string
		for _, neighbor := range graph[current] {
			if members[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}
		if next == "" {
			break
		}

		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}
	return path
}
