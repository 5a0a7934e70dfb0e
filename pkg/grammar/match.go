package grammar

import "fmt"

// Acceptor decides whether a whole message is generated by a grammar.
type Acceptor interface {
	Matches(msg string) (bool, error)
}

// Matcher is the greedy recursive matcher. For each rule it tries the
// alternatives in declaration order and keeps the first one that matches;
// a composite consumes each sub-rule match as returned and never revisits an
// earlier split point. It is safe for concurrent use.
type Matcher struct {
	rules    *RuleSet
	root     int
	maxDepth int
}

// NewMatcher creates a matcher for rs. Roots default to RootRule; every root
// must be defined, every reference in rs must resolve, and no reference cycle
// may be reachable from a root.
func NewMatcher(rs *RuleSet, roots ...int) (*Matcher, error) {
	if len(roots) == 0 {
		roots = []int{RootRule}
	}

	for _, id := range roots {
		if _, err := rs.Get(id); err != nil {
			return nil, err
		}
	}

	g, err := rs.Graph()
	if err != nil {
		return nil, err
	}
	if hasCycle, path := g.HasCycleFrom(roots...); hasCycle {
		return nil, &CycleError{RuleID: path[0], Path: path}
	}

	return &Matcher{
		rules:    rs,
		root:     roots[0],
		maxDepth: rs.Len(),
	}, nil
}

// Rules returns the rule set the matcher evaluates.
func (m *Matcher) Rules() *RuleSet {
	return m.rules
}

// MatchRule matches rule id against a prefix of msg and returns the number of
// bytes consumed. ok is false when the rule does not match; a successful match
// always consumes at least one byte.
func (m *Matcher) MatchRule(id int, msg []byte) (n int, ok bool, err error) {
	return m.matchRule(id, msg, 1)
}

// Matches reports whether the root rule consumes all of msg.
// The empty message never matches.
func (m *Matcher) Matches(msg string) (bool, error) {
	if msg == "" {
		return false, nil
	}
	n, ok, err := m.MatchRule(m.root, []byte(msg))
	if err != nil {
		return false, err
	}
	return ok && n == len(msg), nil
}

func (m *Matcher) matchRule(id int, msg []byte, depth int) (int, bool, error) {
	// A chain longer than the rule count must revisit a rule
	if depth > m.maxDepth {
		return 0, false, &CycleError{RuleID: id}
	}

	rule, err := m.rules.Get(id)
	if err != nil {
		return 0, false, err
	}

	for _, v := range rule.Variants {
		n, ok, err := m.matchVariant(v, msg, depth)
		if err != nil {
			return 0, false, err
		}
		if ok {
			return n, true, nil
		}
	}

	return 0, false, nil
}

func (m *Matcher) matchVariant(v SingleRule, msg []byte, depth int) (int, bool, error) {
	switch v := v.(type) {
	case Literal:
		if len(msg) > 0 && msg[0] == v.Symbol {
			return 1, true, nil
		}
		return 0, false, nil

	case Composite:
		cursor := 0
		for _, ref := range v.Refs {
			n, ok, err := m.matchRule(ref, msg[cursor:], depth+1)
			if err != nil {
				return 0, false, err
			}
			if !ok {
				return 0, false, nil
			}
			cursor += n
		}
		return cursor, cursor > 0, nil

	default:
		return 0, false, fmt.Errorf("%w: unsupported alternative type %T", ErrMalformedGrammar, v)
	}
}
