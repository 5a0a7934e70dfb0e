package grammar

import (
	"fmt"
	"sort"
	"strings"
)

// LoopShape names the rules of the recognized recursive grammar:
//
//	Root:   Repeat Nested
//	Repeat: Head | Head Repeat
//	Nested: Head Tail | Head Nested Tail
//
// so Root accepts n >= 2 Head matches followed by 1..n-1 Tail matches.
type LoopShape struct {
	Root   int
	Repeat int
	Nested int
	Head   int
	Tail   int
}

// DefaultLoopShape is the shape of the puzzle grammar: 0: 8 11, 8: 42 | 42 8,
// 11: 42 31 | 42 11 31.
var DefaultLoopShape = LoopShape{Root: 0, Repeat: 8, Nested: 11, Head: 42, Tail: 31}

// RepeatRule returns the self-referential form of the Repeat rule.
func (s LoopShape) RepeatRule() *Rule {
	return NewCompositeRule(s.Repeat, []int{s.Head}, []int{s.Head, s.Repeat})
}

// NestedRule returns the self-referential form of the Nested rule.
func (s LoopShape) NestedRule() *Rule {
	return NewCompositeRule(s.Nested, []int{s.Head, s.Tail}, []int{s.Head, s.Nested, s.Tail})
}

// check verifies that rs has this shape, either with the plain forms
// (Repeat: Head, Nested: Head Tail) or with the self-referential forms.
func (s LoopShape) check(rs *RuleSet) error {
	root, err := rs.Get(s.Root)
	if err != nil {
		return err
	}
	if !sameAlternatives(root.Variants, []int{s.Repeat, s.Nested}) {
		return s.shapeError(root, fmt.Sprintf("%d %d", s.Repeat, s.Nested))
	}

	repeat, err := rs.Get(s.Repeat)
	if err != nil {
		return err
	}
	if !sameAlternatives(repeat.Variants, []int{s.Head}) &&
		!sameAlternatives(repeat.Variants, []int{s.Head}, []int{s.Head, s.Repeat}) {
		return s.shapeError(repeat, fmt.Sprintf("%d or %s", s.Head, alternativesString(s.RepeatRule())))
	}

	nested, err := rs.Get(s.Nested)
	if err != nil {
		return err
	}
	if !sameAlternatives(nested.Variants, []int{s.Head, s.Tail}) &&
		!sameAlternatives(nested.Variants, []int{s.Head, s.Tail}, []int{s.Head, s.Nested, s.Tail}) {
		return s.shapeError(nested, fmt.Sprintf("%d %d or %s", s.Head, s.Tail, alternativesString(s.NestedRule())))
	}

	for _, id := range []int{s.Head, s.Tail} {
		if _, err := rs.Get(id); err != nil {
			return err
		}
	}
	return nil
}

func (s LoopShape) shapeError(r *Rule, want string) error {
	return &MalformedGrammarError{
		RuleID:  r.ID,
		Message: fmt.Sprintf(errUnexpectedShape, want, alternativesString(r)),
	}
}

// WithLoopingRules returns a rule set in which the Repeat and Nested rules are
// replaced by their self-referential forms. rs must have the shape described
// by shape; rs itself is left unchanged.
func (rs *RuleSet) WithLoopingRules(shape LoopShape) (*RuleSet, error) {
	if err := shape.check(rs); err != nil {
		return nil, err
	}
	return rs.with(shape.RepeatRule(), shape.NestedRule()), nil
}

// LoopingMatcher validates messages for the self-referential grammar by
// counting Head and Tail repetitions with the greedy matcher instead of
// evaluating the Repeat and Nested rules. It is safe for concurrent use.
type LoopingMatcher struct {
	shape LoopShape
	rules *RuleSet
	inner *Matcher
}

// NewLoopingMatcher creates a looping matcher for rs. It fails with a
// MalformedGrammarError unless rs has the given shape, and with a CycleError
// if the Head or Tail sub-grammar is cyclic.
func NewLoopingMatcher(rs *RuleSet, shape LoopShape) (*LoopingMatcher, error) {
	looped, err := rs.WithLoopingRules(shape)
	if err != nil {
		return nil, err
	}

	inner, err := NewMatcher(looped, shape.Head, shape.Tail)
	if err != nil {
		return nil, err
	}

	return &LoopingMatcher{shape: shape, rules: looped, inner: inner}, nil
}

// Rules returns the rule set with the self-referential rules substituted.
func (m *LoopingMatcher) Rules() *RuleSet {
	return m.rules
}

// Matches reports whether msg is n >= 2 Head matches followed by between 1
// and n-1 Tail matches that consume the rest of msg exactly.
func (m *LoopingMatcher) Matches(msg string) (bool, error) {
	b := []byte(msg)

	// Repeat and Nested each need one Head
	offset := 0
	for i := 0; i < 2; i++ {
		n, ok, err := m.inner.MatchRule(m.shape.Head, b[offset:])
		if err != nil || !ok {
			return false, err
		}
		offset += n
	}

	heads := 2
	for {
		end, err := m.consumeTails(b, offset, heads-1)
		if err != nil {
			return false, err
		}
		if end > offset && end == len(b) {
			return true, nil
		}

		n, ok, err := m.inner.MatchRule(m.shape.Head, b[offset:])
		if err != nil || !ok {
			return false, err
		}
		offset += n
		heads++
	}
}

// consumeTails greedily matches up to limit Tail repetitions starting at
// offset and returns the end of the last one.
func (m *LoopingMatcher) consumeTails(b []byte, offset, limit int) (int, error) {
	end := offset
	for k := 0; k < limit; k++ {
		n, ok, err := m.inner.MatchRule(m.shape.Tail, b[end:])
		if err != nil {
			return 0, err
		}
		if !ok {
			break
		}
		end += n
	}
	return end, nil
}

// sameAlternatives reports whether variants are exactly the given composites,
// in any order.
func sameAlternatives(variants []SingleRule, want ...[]int) bool {
	if len(variants) != len(want) {
		return false
	}

	got := make([]string, 0, len(variants))
	for _, v := range variants {
		c, ok := v.(Composite)
		if !ok {
			return false
		}
		got = append(got, c.String())
	}

	expected := make([]string, len(want))
	for i, refs := range want {
		expected[i] = Composite{Refs: refs}.String()
	}

	sort.Strings(got)
	sort.Strings(expected)
	for i := range got {
		if got[i] != expected[i] {
			return false
		}
	}
	return true
}

func alternativesString(r *Rule) string {
	alts := make([]string, len(r.Variants))
	for i, v := range r.Variants {
		alts[i] = v.String()
	}
	return strings.Join(alts, " | ")
}
