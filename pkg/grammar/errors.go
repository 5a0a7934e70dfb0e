package grammar

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedGrammar is wrapped by every error describing an unusable grammar.
var ErrMalformedGrammar = errors.New("malformed grammar")

// ParseError represents a syntax error in the rule or input text.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse error at line %d: %s", e.Line, e.Message)
	}
	return fmt.Sprintf("parse error: %s", e.Message)
}

// MalformedGrammarError reports a grammar that cannot be matched against,
// such as a reference to an undefined rule.
type MalformedGrammarError struct {
	RuleID  int
	Message string
}

func (e *MalformedGrammarError) Error() string {
	return fmt.Sprintf("malformed grammar: rule %d: %s", e.RuleID, e.Message)
}

func (e *MalformedGrammarError) Unwrap() error {
	return ErrMalformedGrammar
}

// CycleError reports a reference cycle reached by the generic matcher.
// Path starts and ends with the same rule id when it is known.
type CycleError struct {
	RuleID int
	Path   []int
}

func (e *CycleError) Error() string {
	if len(e.Path) == 0 {
		return fmt.Sprintf("malformed grammar: rule %d: recursion exceeds rule count", e.RuleID)
	}
	parts := make([]string, len(e.Path))
	for i, id := range e.Path {
		parts[i] = strconv.Itoa(id)
	}
	return fmt.Sprintf("malformed grammar: reference cycle %s", strings.Join(parts, " -> "))
}

func (e *CycleError) Unwrap() error {
	return ErrMalformedGrammar
}

// Common error messages
const (
	errUndefinedRule    = "references undefined rule %d"
	errNotDefined       = "is not defined"
	errNoVariants       = "has no alternatives"
	errEmptyComposite   = "alternative %d has no references"
	errNegativeID       = "rule id must not be negative"
	errDuplicateRule    = "is defined more than once"
	errUnknownVariant   = "alternative %d has unsupported type %T"
	errUnexpectedShape  = "expected %s, got %s"
	errBadLiteral       = "literal must be a single quoted character, got %s"
	errBadReference     = "invalid rule reference %q"
	errMissingSeparator = "missing ':' after rule id"
	errBadRuleID        = "invalid rule id %q"
)
