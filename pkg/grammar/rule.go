package grammar

import (
	"fmt"
	"strconv"
	"strings"
)

// RootRule is the rule a whole message must be generated by.
const RootRule = 0

// SingleRule is one alternative of a rule: either a Literal or a Composite.
type SingleRule interface {
	// String renders the alternative in rule syntax.
	String() string
	isSingleRule()
}

// Literal matches exactly one input symbol equal to Symbol.
type Literal struct {
	Symbol byte
}

func (Literal) isSingleRule() {}

func (l Literal) String() string {
	return `"` + string(l.Symbol) + `"`
}

// Composite matches each referenced rule in order against the unconsumed suffix.
type Composite struct {
	Refs []int
}

func (Composite) isSingleRule() {}

func (c Composite) String() string {
	parts := make([]string, len(c.Refs))
	for i, ref := range c.Refs {
		parts[i] = strconv.Itoa(ref)
	}
	return strings.Join(parts, " ")
}

// Rule is a numbered production with its alternatives in declaration order.
type Rule struct {
	ID       int
	Variants []SingleRule
}

// NewLiteralRule creates a rule matching a single symbol.
func NewLiteralRule(id int, symbol byte) *Rule {
	return &Rule{ID: id, Variants: []SingleRule{Literal{Symbol: symbol}}}
}

// NewCompositeRule creates a rule with one composite alternative per refs slice.
func NewCompositeRule(id int, alternatives ...[]int) *Rule {
	variants := make([]SingleRule, len(alternatives))
	for i, refs := range alternatives {
		variants[i] = Composite{Refs: refs}
	}
	return &Rule{ID: id, Variants: variants}
}

// String renders the rule as an input line, e.g. `1: 2 3 | 3 2`.
func (r *Rule) String() string {
	alts := make([]string, len(r.Variants))
	for i, v := range r.Variants {
		alts[i] = v.String()
	}
	return strconv.Itoa(r.ID) + ": " + strings.Join(alts, " | ")
}

// References returns the distinct rule ids referenced by r, in first-seen order.
func (r *Rule) References() []int {
	var refs []int
	seen := make(map[int]bool)
	for _, v := range r.Variants {
		c, ok := v.(Composite)
		if !ok {
			continue
		}
		for _, ref := range c.Refs {
			if !seen[ref] {
				seen[ref] = true
				refs = append(refs, ref)
			}
		}
	}
	return refs
}

// IsLiteral reports whether every alternative of r is a literal.
func (r *Rule) IsLiteral() bool {
	for _, v := range r.Variants {
		if _, ok := v.(Literal); !ok {
			return false
		}
	}
	return len(r.Variants) > 0
}

// validate checks the structural invariants of a single rule.
func (r *Rule) validate() error {
	if r.ID < 0 {
		return &MalformedGrammarError{RuleID: r.ID, Message: errNegativeID}
	}
	if len(r.Variants) == 0 {
		return &MalformedGrammarError{RuleID: r.ID, Message: errNoVariants}
	}
	for i, v := range r.Variants {
		switch v := v.(type) {
		case Literal:
		case Composite:
			if len(v.Refs) == 0 {
				return &MalformedGrammarError{RuleID: r.ID, Message: fmt.Sprintf(errEmptyComposite, i+1)}
			}
		default:
			return &MalformedGrammarError{RuleID: r.ID, Message: fmt.Sprintf(errUnknownVariant, i+1, v)}
		}
	}
	return nil
}
