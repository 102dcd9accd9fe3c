package assets

import (
	"regexp"
	"sort"
	"strings"
)

// findCycles returns every import cycle in the metafile input graph, each
// reported once starting from its lexically smallest module. Modules
// matching exclude are left out of the graph.
func findCycles(meta *BuildMetadata, exclude *regexp.Regexp) [][]string {
	if meta == nil {
		return nil
	}

	skip := func(path string) bool {
		return exclude != nil && exclude.MatchString(path)
	}

	nodes := make([]string, 0, len(meta.Inputs))
	for path := range meta.Inputs {
		if !skip(path) {
			nodes = append(nodes, path)
		}
	}
	sort.Strings(nodes)

	edges := make(map[string][]string, len(nodes))
	for _, path := range nodes {
		for _, imp := range meta.Inputs[path].Imports {
			if imp.External || skip(imp.Path) {
				continue
			}
			if _, ok := meta.Inputs[imp.Path]; !ok {
				continue
			}
			edges[path] = append(edges[path], imp.Path)
		}
		sort.Strings(edges[path])
	}

	const (
		unvisited = iota
		onStack
		done
	)

	state := make(map[string]int, len(nodes))
	seen := map[string]bool{}
	var stack []string
	var cycles [][]string

	var visit func(string)
	visit = func(node string) {
		state[node] = onStack
		stack = append(stack, node)

		for _, next := range edges[node] {
			switch state[next] {
			case unvisited:
				visit(next)
			case onStack:
				start := len(stack) - 1
				for stack[start] != next {
					start--
				}
				cycle := canonicalCycle(stack[start:])
				key := cycleKey(cycle)
				if !seen[key] {
					seen[key] = true
					cycles = append(cycles, cycle)
				}
			}
		}

		stack = stack[:len(stack)-1]
		state[node] = done
	}

	for _, node := range nodes {
		if state[node] == unvisited {
			visit(node)
		}
	}

	return cycles
}

// canonicalCycle rotates the cycle so it starts at its smallest module and
// closes it by repeating that module at the end.
func canonicalCycle(members []string) []string {
	first := 0
	for i, m := range members {
		if m < members[first] {
			first = i
		}
	}

	cycle := make([]string, 0, len(members)+1)
	cycle = append(cycle, members[first:]...)
	cycle = append(cycle, members[:first]...)
	return append(cycle, cycle[0])
}

func cycleKey(cycle []string) string {
	return strings.Join(cycle, "\x00")
}
