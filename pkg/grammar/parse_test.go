package grammar

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRule(t *testing.T) {
	tests := []struct {
		name      string
		line      string
		want      string
		wantErr   bool
		errSubstr string
	}{
		{name: "literal", line: `4: "a"`, want: `4: "a"`},
		{name: "composite", line: "0: 4 1 5", want: "0: 4 1 5"},
		{name: "alternation", line: "1: 2 3 | 3 2", want: "1: 2 3 | 3 2"},
		{name: "extra whitespace", line: "  11 :  42   31|42 11 31 ", want: "11: 42 31 | 42 11 31"},
		{name: "missing colon", line: "0 4 1 5", wantErr: true, errSubstr: "missing ':'"},
		{name: "bad id", line: "x: 1", wantErr: true, errSubstr: "invalid rule id"},
		{name: "negative id", line: "-1: 2", wantErr: true, errSubstr: "must not be negative"},
		{name: "empty body", line: "3:", wantErr: true, errSubstr: "has no alternatives"},
		{name: "empty alternative", line: "3: 1 |", wantErr: true, errSubstr: "empty alternative"},
		{name: "long literal", line: `3: "ab"`, wantErr: true, errSubstr: "single quoted character"},
		{name: "unterminated literal", line: `3: "a`, wantErr: true, errSubstr: "single quoted character"},
		{name: "bad reference", line: "3: 1 b", wantErr: true, errSubstr: `invalid rule reference "b"`},
		{name: "negative reference", line: "3: 1 -2", wantErr: true, errSubstr: "invalid rule reference"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, err := ParseRule(tt.line)
			if tt.wantErr {
				require.Error(t, err)
				var pe *ParseError
				assert.True(t, errors.As(err, &pe), "expected *ParseError, got %T", err)
				assert.Contains(t, err.Error(), tt.errSubstr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, rule.String())
		})
	}
}

func TestParseAlternative(t *testing.T) {
	lit, err := ParseAlternative(`"b"`)
	require.NoError(t, err)
	assert.Equal(t, Literal{Symbol: 'b'}, lit)

	comp, err := ParseAlternative("42 31")
	require.NoError(t, err)
	assert.Equal(t, Composite{Refs: []int{42, 31}}, comp)
}

func TestParseInput(t *testing.T) {
	const text = `0: 4 1 5
1: 2 3 | 3 2
2: 4 4 | 5 5
3: 4 5 | 5 4
4: "a"
5: "b"

ababbb
bababa
abbbab
aaabbb
aaaabbb
`
	in, err := ParseInput(strings.NewReader(text))
	require.NoError(t, err)

	assert.Equal(t, 6, in.Rules.Len())
	assert.Equal(t, []string{"ababbb", "bababa", "abbbab", "aaabbb", "aaaabbb"}, in.Messages)
}

func TestParseInput_CRLFAndBlankLines(t *testing.T) {
	text := "\r\n0: 1 2\r\n1: \"a\"\r\n2: \"b\"\r\n\r\nab\r\n\r\nba\r\n\r\n"

	in, err := ParseInput(strings.NewReader(text))
	require.NoError(t, err)

	assert.Equal(t, 3, in.Rules.Len())
	assert.Equal(t, []string{"ab", "ba"}, in.Messages)
}

func TestParseInput_RulesOnly(t *testing.T) {
	in, err := ParseInput(strings.NewReader("0: 1\n1: \"a\"\n"))
	require.NoError(t, err)

	assert.Equal(t, 2, in.Rules.Len())
	assert.Empty(t, in.Messages)
}

func TestParseInput_ReportsLine(t *testing.T) {
	_, err := ParseInput(strings.NewReader("0: 1\n1: \"a\n\nab\n"))
	require.Error(t, err)

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 2, pe.Line)
	assert.Contains(t, err.Error(), "line 2")
}

func TestParseRuleSet_Duplicate(t *testing.T) {
	_, err := ParseRuleSet("0: 1\n1: \"a\"\n1: \"b\"")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rule 1 already defined at line 2")
}

func TestRuleSet_StringRoundTrip(t *testing.T) {
	const text = "0: 4 1 5\n1: 2 3 | 3 2\n4: \"a\"\n5: \"b\"\n2: 4 4\n3: 4 5\n"

	rs, err := ParseRuleSet(text)
	require.NoError(t, err)

	again, err := ParseRuleSet(rs.String())
	require.NoError(t, err)
	assert.Equal(t, rs.String(), again.String())
	assert.True(t, strings.HasPrefix(rs.String(), "0: 4 1 5\n1: 2 3 | 3 2\n2: 4 4\n"))
}
