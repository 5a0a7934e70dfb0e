// Package grammar validates messages against numbered production rules.
//
// This package contains:
//   - The rule model (SingleRule, Literal, Composite, Rule) and the RuleSet
//   - A parser for the "<id>: <alt> | <alt>" rule syntax and the
//     rules/blank line/messages input layout
//   - Matcher, a greedy recursive matcher: the first alternative that matches
//     wins and composites never retry earlier split points
//   - LoopingMatcher, which accepts the self-referential forms of rules 8 and
//     11 by counting repetitions of rules 42 and 31 instead of recursing
//
// Grammar problems (undefined references, reference cycles, unsupported loop
// shapes) are returned as errors wrapping ErrMalformedGrammar. A message that
// simply does not match is a false result, never an error.
package grammar
