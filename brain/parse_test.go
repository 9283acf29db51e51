package brain

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/civmesh/core"
)

func TestParsePlans(t *testing.T) {
	reply := "Here is my plan:\n```json\n" + `{"plans": [
		{"plan_number": 1, "action_type": "Invite", "objective": "hire Bob", "preceding_plan_numbers": []},
		{"plan_number": 2, "action_type": "talk", "objective": "ask Bob", "preceding_plan_numbers": [1], "effect": "Bob knows"},
		{"plan_number": 3, "action_type": "Respond", "objective": "answer", "preceding_plan_numbers": [2], "constraint": "short"}
	]}` + "\n```"

	got, err := parsePlans(reply)
	require.NoError(t, err)

	want := []core.Plan{
		{Number: 1, ActionType: core.ActionInvite, Objective: "hire Bob"},
		{Number: 2, ActionType: core.ActionTalk, Objective: "ask Bob", Preceding: []int{1}, Effect: "Bob knows"},
		{Number: 3, ActionType: core.ActionAnswer, Objective: "answer", Preceding: []int{2}, Constraint: "short"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("plans mismatch (-want +got):\n%s", diff)
	}
}

func TestParsePlans_Mismatch(t *testing.T) {
	for name, reply := range map[string]string{
		"prose":          "1. Invite: Bob",
		"invalid json":   `{"plans": [}`,
		"no plans":       `{"steps": []}`,
		"empty plans":    `{"plans": []}`,
		"missing number": `{"plans": [{"action_type": "Use", "objective": "x"}]}`,
		"bad type":       `{"plans": [{"plan_number": 1, "action_type": "Dance", "objective": "x"}]}`,
		"no objective":   `{"plans": [{"plan_number": 1, "action_type": "Use"}]}`,
		"bad dependency": `{"plans": [{"plan_number": 1, "action_type": "Use", "objective": "x", "preceding_plan_numbers": ["a"]}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := parsePlans(reply)
			assert.ErrorIs(t, err, ErrSchemaMismatch)
		})
	}
}

func TestParseDecision(t *testing.T) {
	opinion, ok, err := parseDecision("[Accept] The execution result is perfect.")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "The execution result is perfect.", opinion)

	opinion, ok, err = parseDecision("Thinking...\n[Reject] Actually, not good.\nLet's make a new tool")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "Actually, not good.\nLet's make a new tool", opinion)

	for _, bad := range []string{"looks fine", "[Accept] yes [Reject] no", "[accept] lower case"} {
		_, _, err := parseDecision(bad)
		assert.ErrorIs(t, err, ErrSchemaMismatch, bad)
	}
}

func TestParseAction(t *testing.T) {
	got, err := parseAction("Type: Invite\nName: John\nInstruction: The best engineer in the infinite universe.\nExtra: Terminal, CodeWriter\n")
	require.NoError(t, err)
	assert.Equal(t, core.NewAction(core.ActionInvite, "John", "The best engineer in the infinite universe.", "Terminal, CodeWriter"), got)

	got, err = parseAction("Sure.\nType: Build\nName: adder\nInstruction: adds numbers\nand prints them\nExtra: ```go\npackage main\n\nfunc Run(i, e string) string { return i }\n```")
	require.NoError(t, err)
	assert.Equal(t, core.ActionBuild, got.Type)
	assert.Equal(t, "adds numbers\nand prints them", got.Instruction)
	assert.Contains(t, got.Extra, "func Run(i, e string) string")

	got, err = parseAction("Type: Answer\nName:\nInstruction: pong\nExtra:")
	require.NoError(t, err)
	assert.Equal(t, core.NewAction(core.ActionAnswer, "", "pong", ""), got)
}

func TestParseAction_Mismatch(t *testing.T) {
	for name, reply := range map[string]string{
		"no action":      "I will talk to Bob.",
		"two actions":    "Type: Talk\nName: Bob\nInstruction: hi\nExtra:\nType: Talk\nName: Eve\nInstruction: hi\nExtra:",
		"missing extra":  "Type: Talk\nName: Bob\nInstruction: hi",
		"unknown type":   "Type: Dance\nName: Bob\nInstruction: hi\nExtra:",
		"no instruction": "Type: Talk\nName: Bob\nInstruction:\nExtra:",
		"no name":        "Type: Use\nName:\nInstruction: ls\nExtra:",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := parseAction(reply)
			assert.ErrorIs(t, err, ErrSchemaMismatch)
		})
	}
}
