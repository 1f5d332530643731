package render_graph

import (
	"github.com/Carmen-Shannon/oxy-frame/common"
)

// sortPasses orders passes with Kahn's algorithm. passes must be in registration order;
// among passes that are ready at the same time the earliest registered runs first.
// Before/After references to ids not in the set are ignored.
// The returned slice is shorter than passes when the constraints contain a cycle.
func sortPasses(passes []*pass) []*pass {
	index := make(map[string]int, len(passes))
	for i, p := range passes {
		index[p.id] = i
	}

	edges := make([][]int, len(passes))
	inDegree := make([]int, len(passes))
	addEdge := func(from, to int) {
		edges[from] = append(edges[from], to)
		inDegree[to]++
	}
	for i, p := range passes {
		if p.before != "" {
			if j, ok := index[p.before]; ok {
				addEdge(i, j)
			}
		}
		if p.after != "" {
			if j, ok := index[p.after]; ok {
				addEdge(j, i)
			}
		}
	}

	// ready holds indices in ascending order, which is registration order.
	var ready []int
	for i := range passes {
		if inDegree[i] == 0 {
			ready = append(ready, i)
		}
	}

	out := make([]*pass, 0, len(passes))
	for len(ready) > 0 {
		n := ready[0]
		ready = ready[1:]
		out = append(out, passes[n])
		for _, m := range edges[n] {
			inDegree[m]--
			if inDegree[m] == 0 {
				ready = insertSorted(ready, m)
			}
		}
	}
	return out
}

func insertSorted(s []int, v int) []int {
	i := 0
	for i < len(s) && s[i] < v {
		i++
	}
	s = append(s, 0)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}

// warnDangling logs constraints that reference passes not currently registered.
func warnDangling(p *pass, known map[string]*pass) {
	if p.before != "" {
		if _, ok := known[p.before]; !ok {
			common.Logger().Warn("render_graph: before constraint references unknown pass", "pass", p.id, "before", p.before)
		}
	}
	if p.after != "" {
		if _, ok := known[p.after]; !ok {
			common.Logger().Warn("render_graph: after constraint references unknown pass", "pass", p.id, "after", p.after)
		}
	}
}
