package individual

import (
	"sort"
	"strings"

	"github.com/jayquinn/interview-scheduler/core/model"
)

// step is one activity of a unit, offset from the unit start.
type step struct {
	act    model.Activity
	offset int
}

// unit is placed atomically. Chains of adjacent activities become one unit
// with fixed offsets.
type unit struct {
	chain string
	steps []step
	order int
}

func (u unit) length() int {
	last := u.steps[len(u.steps)-1]
	return last.offset + last.act.Duration
}

func (u unit) name() string {
	if u.chain != "" {
		return u.chain
	}
	return u.steps[0].act.Name
}

// chainSep joins activity names into a chain label.
const chainSep = ">"

// buildChains links non-batched activities connected by adjacent rules. Each
// activity belongs to at most one chain; only the first adjacent successor of
// an activity extends its chain.
func buildChains(day model.DateConfig) [][]string {
	next := make(map[string]string)
	hasPrev := make(map[string]bool)
	for _, r := range day.Precedence {
		if !r.Adjacent {
			continue
		}
		p, okp := day.Activity(r.Predecessor)
		s, oks := day.Activity(r.Successor)
		if !okp || !oks || p.Batched() || s.Batched() {
			continue
		}
		if _, taken := next[p.Name]; taken || hasPrev[s.Name] {
			continue
		}
		next[p.Name] = s.Name
		hasPrev[s.Name] = true
	}
	var chains [][]string
	for _, a := range day.Activities {
		if hasPrev[a.Name] || next[a.Name] == "" {
			continue
		}
		seen := map[string]bool{a.Name: true}
		chain := []string{a.Name}
		for cur := next[a.Name]; cur != "" && !seen[cur]; cur = next[cur] {
			seen[cur] = true
			chain = append(chain, cur)
		}
		if len(chain) > 1 {
			chains = append(chains, chain)
		}
	}
	return chains
}

// planUnits returns the candidate's non-batched units in precedence order,
// stable with respect to the configured activity order.
func planUnits(day model.DateConfig, chains [][]string, c model.Candidate) []unit {
	index := make(map[string]int, len(day.Activities))
	for i, a := range day.Activities {
		index[a.Name] = i
	}
	used := make(map[string]bool)
	var units []unit
	for _, ch := range chains {
		all := true
		for _, name := range ch {
			if !c.Needs(name) {
				all = false
				break
			}
		}
		if !all {
			continue
		}
		u := unit{chain: strings.Join(ch, chainSep), order: index[ch[0]]}
		offset := 0
		for i, name := range ch {
			act, _ := day.Activity(name)
			if i > 0 {
				r, _ := day.Rule(ch[i-1], name)
				offset += r.Gap
			}
			u.steps = append(u.steps, step{act: act, offset: offset})
			offset += act.Duration
			used[name] = true
		}
		units = append(units, u)
	}
	for _, a := range day.Activities {
		if a.Batched() || used[a.Name] || !c.Needs(a.Name) {
			continue
		}
		units = append(units, unit{steps: []step{{act: a}}, order: index[a.Name]})
	}
	return topoSort(day, units)
}

// topoSort orders units by precedence with Kahn's algorithm. Units caught in
// a cycle are appended in configured order.
func topoSort(day model.DateConfig, units []unit) []unit {
	sort.SliceStable(units, func(i, j int) bool { return units[i].order < units[j].order })
	owner := make(map[string]int)
	for i, u := range units {
		for _, s := range u.steps {
			owner[s.act.Name] = i
		}
	}
	indeg := make([]int, len(units))
	edges := make([][]int, len(units))
	for _, r := range day.Precedence {
		p, okp := owner[r.Predecessor]
		s, oks := owner[r.Successor]
		if !okp || !oks || p == s {
			continue
		}
		edges[p] = append(edges[p], s)
		indeg[s]++
	}
	done := make([]bool, len(units))
	out := make([]unit, 0, len(units))
	for len(out) < len(units) {
		picked := -1
		for i := range units {
			if !done[i] && indeg[i] == 0 {
				picked = i
				break
			}
		}
		if picked < 0 {
			for i := range units {
				if !done[i] {
					picked = i
					break
				}
			}
		}
		done[picked] = true
		out = append(out, units[picked])
		for _, s := range edges[picked] {
			indeg[s]--
		}
	}
	return out
}
