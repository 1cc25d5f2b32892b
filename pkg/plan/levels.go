package plan

import "fmt"

func validate(p *Plan) error {
	ids := make(map[string]bool, len(p.Calls))
	for _, c := range p.Calls {
		if ids[c.ID] {
			return fmt.Errorf("%w: %s", ErrDuplicateCall, c.ID)
		}
		ids[c.ID] = true
	}

	for _, c := range p.Calls {
		for _, dep := range c.DependsOn {
			if !ids[dep] {
				return fmt.Errorf("%w: call %s depends on %s", ErrUnknownDependency, c.ID, dep)
			}
		}
	}

	for _, ref := range references(p.FinalAnswer) {
		if !ids[ref] {
			return fmt.Errorf("%w: final answer references %s", ErrUnknownDependency, ref)
		}
	}

	return checkCycles(p)
}

func checkCycles(p *Plan) error {
	graph := make(map[string][]string, len(p.Calls))
	for _, c := range p.Calls {
		graph[c.ID] = c.DependsOn
	}

	visited := make(map[string]bool)
	onStack := make(map[string]bool)

	var hasCycle func(string) bool
	hasCycle = func(id string) bool {
		visited[id] = true
		onStack[id] = true
		for _, dep := range graph[id] {
			if !visited[dep] {
				if hasCycle(dep) {
					return true
				}
			} else if onStack[dep] {
				return true
			}
		}
		onStack[id] = false
		return false
	}

	// declared order keeps the reported id deterministic
	for _, c := range p.Calls {
		if !visited[c.ID] && hasCycle(c.ID) {
			return fmt.Errorf("%w involving call %s", ErrCycle, c.ID)
		}
	}
	return nil
}

// Levels groups calls into dependency levels. Every call in a level depends
// only on calls in earlier levels; inside a level calls keep declared order.
// The plan must come from Parse.
func Levels(p *Plan) [][]Call {
	depth := make(map[string]int, len(p.Calls))
	byID := make(map[string]Call, len(p.Calls))
	for _, c := range p.Calls {
		byID[c.ID] = c
	}

	var levelOf func(string) int
	levelOf = func(id string) int {
		if d, ok := depth[id]; ok {
			return d
		}
		d := 0
		for _, dep := range byID[id].DependsOn {
			if l := levelOf(dep) + 1; l > d {
				d = l
			}
		}
		depth[id] = d
		return d
	}

	var levels [][]Call
	for _, c := range p.Calls {
		l := levelOf(c.ID)
		for len(levels) <= l {
			levels = append(levels, nil)
		}
		levels[l] = append(levels[l], c)
	}
	return levels
}
