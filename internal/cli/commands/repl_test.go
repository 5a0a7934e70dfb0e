package commands

import (
	"bytes"
	"strings"
	"testing"

	"github.com/leapstack-labs/msgcheck/internal/engine"
	"github.com/leapstack-labs/msgcheck/internal/testutil"
	"github.com/leapstack-labs/msgcheck/pkg/grammar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T, input string, modes ...engine.Mode) (*replSession, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	in, err := grammar.ParseInput(strings.NewReader(input))
	require.NoError(t, err)

	eng, err := engine.New(engine.Config{Workers: 1, Modes: modes, Logger: testutil.NewTestLogger(t)})
	require.NoError(t, err)

	out, errOut := new(bytes.Buffer), new(bytes.Buffer)
	sess, err := newREPLSession(out, errOut, eng, in.Rules)
	require.NoError(t, err)
	return sess, out, errOut
}

func TestREPL_ChecksMessages(t *testing.T) {
	sess, out, _ := newTestSession(t, testutil.LoopingInput)

	tests := []struct {
		line string
		want string
	}{
		{line: "bbabbbbaabaabba", want: "plain=yes looping=yes"},
		{line: "babbbbaabbbbbabbbbbbaabaaabaaa", want: "plain=no looping=yes"},
		{line: "  aaaabbb  ", want: "plain=no looping=no"},
	}

	for _, tt := range tests {
		out.Reset()
		assert.False(t, sess.handleLine(tt.line))
		assert.Equal(t, tt.want+"\n", out.String(), "line %q", tt.line)
	}
}

func TestREPL_BlankLine(t *testing.T) {
	sess, out, errOut := newTestSession(t, testutil.ExampleInput, engine.ModePlain)

	assert.False(t, sess.handleLine("   "))
	assert.Empty(t, out.String())
	assert.Empty(t, errOut.String())
}

func TestREPL_DotCommands(t *testing.T) {
	sess, out, errOut := newTestSession(t, testutil.ExampleInput, engine.ModePlain)

	assert.False(t, sess.handleLine(".help"))
	assert.Contains(t, out.String(), ".rules")

	out.Reset()
	assert.False(t, sess.handleLine(".rules"))
	assert.Contains(t, out.String(), "0: 4 1 5")

	out.Reset()
	assert.False(t, sess.handleLine(".modes"))
	assert.Equal(t, "plain\n", out.String())

	assert.False(t, sess.handleLine(".bogus"))
	assert.Contains(t, errOut.String(), "Unknown command: .bogus")

	assert.True(t, sess.handleLine(".quit"))
	assert.True(t, sess.handleLine(".EXIT"))
}

func TestREPL_SetModes(t *testing.T) {
	sess, out, errOut := newTestSession(t, testutil.LoopingInput, engine.ModePlain)

	assert.False(t, sess.handleLine(".modes looping"))
	assert.Empty(t, errOut.String())

	out.Reset()
	sess.handleLine("babbbbaabbbbbabbbbbbaabaaabaaa")
	assert.Equal(t, "looping=yes\n", out.String())

	// Invalid modes keep the current ones
	sess.handleLine(".modes fuzzy")
	assert.Contains(t, errOut.String(), "fuzzy")
	assert.Equal(t, []engine.Mode{engine.ModeLooping}, sess.engine.Modes())
}

func TestREPL_SetModesRejectsUnusableGrammar(t *testing.T) {
	sess, _, errOut := newTestSession(t, testutil.ExampleInput, engine.ModePlain)

	sess.handleLine(".modes plain,looping")
	assert.Contains(t, errOut.String(), "looping mode")
	assert.Equal(t, []engine.Mode{engine.ModePlain}, sess.engine.Modes())
}

func TestREPL_Load(t *testing.T) {
	sess, out, errOut := newTestSession(t, testutil.ExampleInput, engine.ModePlain)

	path := testutil.WriteFile(t, "other.txt", "0: 1 1\n1: \"x\"\n")
	sess.handleLine(".load " + path)
	require.Empty(t, errOut.String())
	assert.Contains(t, out.String(), "loaded 2 rules")

	out.Reset()
	sess.handleLine("xx")
	assert.Equal(t, "plain=yes\n", out.String())

	// A broken grammar leaves the loaded one in place
	broken := testutil.WriteFile(t, "broken.txt", "0: 7\n")
	sess.handleLine(".load " + broken)
	assert.Contains(t, errOut.String(), "rule 7")
	assert.Equal(t, 2, sess.rules.Len())

	errOut.Reset()
	sess.handleLine(".load")
	assert.Contains(t, errOut.String(), "Usage: .load")
}
