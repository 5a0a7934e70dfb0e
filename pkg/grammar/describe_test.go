package grammar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribe(t *testing.T) {
	rs := mustRuleSet(t, exampleRules+"\n9: 4 5\n")

	sum, err := Describe(rs, RootRule)
	require.NoError(t, err)

	assert.Equal(t, RootRule, sum.Root)
	assert.Len(t, sum.Rules, 7)
	assert.Equal(t, []int{9}, sum.Unreachable)
	assert.Empty(t, sum.Cycle)
	require.Len(t, sum.Order, 7)

	byID := make(map[int]RuleInfo)
	for _, info := range sum.Rules {
		byID[info.ID] = info
	}
	assert.Equal(t, 4, byID[0].Depth)
	assert.Equal(t, []int{4, 1, 5}, byID[0].References)
	assert.Equal(t, "0: 4 1 5", byID[0].Definition)
	assert.True(t, byID[4].Literal)
	assert.Equal(t, 1, byID[4].Depth)
	assert.False(t, byID[9].Reachable)
	assert.True(t, byID[3].Reachable)

	position := make(map[int]int)
	for i, id := range sum.Order {
		position[id] = i
	}
	for _, info := range sum.Rules {
		for _, ref := range info.References {
			assert.Less(t, position[ref], position[info.ID], "rule %d must come after %d", info.ID, ref)
		}
	}
}

func TestDescribe_Cyclic(t *testing.T) {
	rs := mustRuleSet(t, "0: 8 11\n8: 42 | 42 8\n11: 42 31 | 42 11 31\n42: \"a\"\n31: \"b\"")

	sum, err := Describe(rs, RootRule)
	require.NoError(t, err)

	assert.Equal(t, []int{8, 8}, sum.Cycle)
	assert.Empty(t, sum.Order)
	for _, info := range sum.Rules {
		switch info.ID {
		case 42, 31:
			assert.Equal(t, 1, info.Depth)
		default:
			assert.Equal(t, 0, info.Depth, "rule %d reaches a cycle", info.ID)
		}
	}
}

func TestDescribe_UndefinedReference(t *testing.T) {
	_, err := Describe(mustRuleSet(t, "0: 1"), RootRule)
	assert.ErrorIs(t, err, ErrMalformedGrammar)
}
