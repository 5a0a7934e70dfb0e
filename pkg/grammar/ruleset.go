package grammar

import (
	"fmt"
	"sort"
	"strings"

	"github.com/leapstack-labs/msgcheck/internal/dag"
)

// RuleSet maps rule ids to rules. It is not modified after construction;
// derived sets (see WithLoopingRules) share unchanged rules with their source.
type RuleSet struct {
	rules map[int]*Rule
}

// NewRuleSet creates a rule set, rejecting duplicate ids and rules that break
// the structural invariants (no alternatives, empty composites).
// References are not resolved here; see Validate.
func NewRuleSet(rules ...*Rule) (*RuleSet, error) {
	rs := &RuleSet{rules: make(map[int]*Rule, len(rules))}
	for _, r := range rules {
		if r == nil {
			continue
		}
		if err := r.validate(); err != nil {
			return nil, err
		}
		if _, exists := rs.rules[r.ID]; exists {
			return nil, &MalformedGrammarError{RuleID: r.ID, Message: errDuplicateRule}
		}
		rs.rules[r.ID] = r
	}
	return rs, nil
}

// Get returns the rule with the given id. A missing id is a
// MalformedGrammarError, not a non-match.
func (rs *RuleSet) Get(id int) (*Rule, error) {
	r, ok := rs.rules[id]
	if !ok {
		return nil, &MalformedGrammarError{RuleID: id, Message: errNotDefined}
	}
	return r, nil
}

// Lookup returns the rule with the given id and whether it exists.
func (rs *RuleSet) Lookup(id int) (*Rule, bool) {
	r, ok := rs.rules[id]
	return r, ok
}

// References returns the distinct rule ids referenced by rule id.
func (rs *RuleSet) References(id int) ([]int, error) {
	r, err := rs.Get(id)
	if err != nil {
		return nil, err
	}
	return r.References(), nil
}

// Len returns the number of rules.
func (rs *RuleSet) Len() int {
	return len(rs.rules)
}

// IDs returns all rule ids in ascending order.
func (rs *RuleSet) IDs() []int {
	ids := make([]int, 0, len(rs.rules))
	for id := range rs.rules {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Rules returns all rules ordered by id.
func (rs *RuleSet) Rules() []*Rule {
	ids := rs.IDs()
	rules := make([]*Rule, len(ids))
	for i, id := range ids {
		rules[i] = rs.rules[id]
	}
	return rules
}

// Validate checks that every composite reference resolves to a defined rule.
// The first problem found, in rule id order, is returned.
func (rs *RuleSet) Validate() error {
	for _, r := range rs.Rules() {
		for _, ref := range r.References() {
			if _, ok := rs.rules[ref]; !ok {
				return &MalformedGrammarError{RuleID: r.ID, Message: fmt.Sprintf(errUndefinedRule, ref)}
			}
		}
	}
	return nil
}

// Graph builds the reference graph of the rule set.
// The rule set must validate.
func (rs *RuleSet) Graph() (*dag.Graph, error) {
	if err := rs.Validate(); err != nil {
		return nil, err
	}

	g := dag.NewGraph()
	for _, id := range rs.IDs() {
		g.AddNode(id)
	}
	for _, r := range rs.Rules() {
		for _, ref := range r.References() {
			if err := g.AddEdge(r.ID, ref); err != nil {
				return nil, fmt.Errorf("failed to add reference %d -> %d: %w", r.ID, ref, err)
			}
		}
	}
	return g, nil
}

// with returns a copy of rs where the given rules replace rules with the same id.
func (rs *RuleSet) with(replacements ...*Rule) *RuleSet {
	rules := make(map[int]*Rule, len(rs.rules))
	for id, r := range rs.rules {
		rules[id] = r
	}
	for _, r := range replacements {
		rules[r.ID] = r
	}
	return &RuleSet{rules: rules}
}

// String renders the rule set as rule lines ordered by id.
func (rs *RuleSet) String() string {
	var sb strings.Builder
	for _, r := range rs.Rules() {
		sb.WriteString(r.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
