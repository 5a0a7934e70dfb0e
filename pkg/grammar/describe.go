package grammar

// RuleInfo describes one rule of a grammar.
type RuleInfo struct {
	ID         int    `json:"id" yaml:"id"`
	Definition string `json:"definition" yaml:"definition"`
	References []int  `json:"references,omitempty" yaml:"references,omitempty"`
	Literal    bool   `json:"literal" yaml:"literal"`
	// Depth is the longest reference chain below the rule, counting the rule
	// itself. It is 0 when a cycle is reachable from the rule.
	Depth     int  `json:"depth" yaml:"depth"`
	Reachable bool `json:"reachable" yaml:"reachable"`
}

// Summary describes the structure of a grammar relative to a root rule.
type Summary struct {
	Root  int        `json:"root" yaml:"root"`
	Rules []RuleInfo `json:"rules" yaml:"rules"`
	// Order lists rule ids with referenced rules first. It is empty when the
	// grammar is cyclic.
	Order []int `json:"order,omitempty" yaml:"order,omitempty"`
	// Cycle is a reference cycle reachable from Root, if any.
	Cycle       []int `json:"cycle,omitempty" yaml:"cycle,omitempty"`
	Unreachable []int `json:"unreachable,omitempty" yaml:"unreachable,omitempty"`
}

// Describe analyses rs from root. The rule set must validate.
func Describe(rs *RuleSet, root int) (*Summary, error) {
	g, err := rs.Graph()
	if err != nil {
		return nil, err
	}

	reachable := make(map[int]bool)
	for _, id := range g.Reachable(root) {
		reachable[id] = true
	}

	sum := &Summary{Root: root}
	for _, r := range rs.Rules() {
		info := RuleInfo{
			ID:         r.ID,
			Definition: r.String(),
			References: r.References(),
			Literal:    r.IsLiteral(),
			Reachable:  reachable[r.ID],
		}
		if d, err := g.Depth(r.ID); err == nil {
			info.Depth = d
		}
		if !info.Reachable {
			sum.Unreachable = append(sum.Unreachable, r.ID)
		}
		sum.Rules = append(sum.Rules, info)
	}

	if order, err := g.TopologicalSort(); err == nil {
		sum.Order = order
	}
	if hasCycle, path := g.HasCycleFrom(root); hasCycle {
		sum.Cycle = path
	}

	return sum, nil
}
