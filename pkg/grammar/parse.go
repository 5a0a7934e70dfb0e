package grammar

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// maxLineSize bounds a single input line; messages can be long.
const maxLineSize = 1 << 20

// Input is a parsed input file: a rule set followed by candidate messages.
type Input struct {
	Rules    *RuleSet
	Messages []string
}

// ParseInput reads rule lines up to the first blank line, then one message
// per line. Blank lines after the separator are skipped. An input without a
// separator is a rule listing with no messages.
func ParseInput(r io.Reader) (*Input, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	p := newRuleParser()
	var messages []string
	inMessages := false
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		if inMessages {
			if line != "" {
				messages = append(messages, line)
			}
			continue
		}

		if line == "" {
			// Leading blank lines do not end the rule section
			if p.count() > 0 {
				inMessages = true
			}
			continue
		}

		if err := p.add(line, lineNo); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	rs, err := p.ruleSet()
	if err != nil {
		return nil, err
	}

	return &Input{Rules: rs, Messages: messages}, nil
}

// ParseRuleSet parses newline separated rule lines. Blank lines are ignored.
func ParseRuleSet(text string) (*RuleSet, error) {
	p := newRuleParser()
	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if err := p.add(line, i+1); err != nil {
			return nil, err
		}
	}
	return p.ruleSet()
}

// ParseRule parses a single `<id>: <alt> | <alt>` line.
func ParseRule(line string) (*Rule, error) {
	head, body, ok := strings.Cut(line, ":")
	if !ok {
		return nil, &ParseError{Message: errMissingSeparator}
	}

	head = strings.TrimSpace(head)
	id, err := strconv.Atoi(head)
	if err != nil {
		return nil, &ParseError{Message: fmt.Sprintf(errBadRuleID, head)}
	}
	if id < 0 {
		return nil, &ParseError{Message: errNegativeID}
	}

	body = strings.TrimSpace(body)
	if body == "" {
		return nil, &ParseError{Message: fmt.Sprintf("rule %d %s", id, errNoVariants)}
	}

	alts := strings.Split(body, "|")
	rule := &Rule{ID: id, Variants: make([]SingleRule, 0, len(alts))}
	for i, alt := range alts {
		v, err := ParseAlternative(alt)
		if err != nil {
			return nil, &ParseError{Message: fmt.Sprintf("rule %d alternative %d: %s", id, i+1, errMessage(err))}
		}
		rule.Variants = append(rule.Variants, v)
	}

	return rule, nil
}

// ParseAlternative parses a quoted single-character literal (`"a"`) or a
// whitespace separated list of rule ids (`12 3 45`).
func ParseAlternative(s string) (SingleRule, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, &ParseError{Message: "empty alternative"}
	}

	if strings.HasPrefix(s, `"`) {
		if len(s) != 3 || s[2] != '"' {
			return nil, &ParseError{Message: fmt.Sprintf(errBadLiteral, s)}
		}
		return Literal{Symbol: s[1]}, nil
	}

	fields := strings.Fields(s)
	refs := make([]int, len(fields))
	for i, f := range fields {
		ref, err := strconv.Atoi(f)
		if err != nil || ref < 0 {
			return nil, &ParseError{Message: fmt.Sprintf(errBadReference, f)}
		}
		refs[i] = ref
	}
	return Composite{Refs: refs}, nil
}

// ruleParser accumulates rules and remembers where each was defined.
type ruleParser struct {
	rules     []*Rule
	definedAt map[int]int
}

func newRuleParser() *ruleParser {
	return &ruleParser{definedAt: make(map[int]int)}
}

func (p *ruleParser) count() int {
	return len(p.rules)
}

func (p *ruleParser) add(line string, lineNo int) error {
	rule, err := ParseRule(line)
	if err != nil {
		return &ParseError{Line: lineNo, Message: errMessage(err)}
	}
	if prev, exists := p.definedAt[rule.ID]; exists {
		return &ParseError{Line: lineNo, Message: fmt.Sprintf("rule %d already defined at line %d", rule.ID, prev)}
	}
	p.definedAt[rule.ID] = lineNo
	p.rules = append(p.rules, rule)
	return nil
}

func (p *ruleParser) ruleSet() (*RuleSet, error) {
	return NewRuleSet(p.rules...)
}

// errMessage unwraps a ParseError to its bare message so that positions are
// not reported twice.
func errMessage(err error) string {
	if pe, ok := err.(*ParseError); ok {
		return pe.Message
	}
	return err.Error()
}
