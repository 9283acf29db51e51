package core

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func numbers(plans []Plan) []int {
	out := make([]int, len(plans))
	for i, p := range plans {
		out[i] = p.Number
	}
	return out
}

func TestOrderPlans(t *testing.T) {
	tests := []struct {
		name  string
		plans []Plan
		want  []int
	}{
		{
			name:  "single",
			plans: []Plan{{Number: 1, ActionType: ActionAnswer}},
			want:  []int{1},
		},
		{
			name: "already ordered chain",
			plans: []Plan{
				{Number: 1, ActionType: ActionInvite},
				{Number: 2, ActionType: ActionTalk, Preceding: []int{1}},
				{Number: 3, ActionType: ActionAnswer, Preceding: []int{2}},
			},
			want: []int{1, 2, 3},
		},
		{
			name: "reversed input",
			plans: []Plan{
				{Number: 3, ActionType: ActionAnswer, Preceding: []int{1, 2}},
				{Number: 2, ActionType: ActionUse, Preceding: []int{1}},
				{Number: 1, ActionType: ActionBuild},
			},
			want: []int{1, 2, 3},
		},
		{
			name: "ties broken by number",
			plans: []Plan{
				{Number: 4, ActionType: ActionAnswer, Preceding: []int{7, 2}},
				{Number: 7, ActionType: ActionUse},
				{Number: 2, ActionType: ActionUse},
			},
			want: []int{2, 7, 4},
		},
		{
			name: "duplicate dependency counted once",
			plans: []Plan{
				{Number: 1, ActionType: ActionUse},
				{Number: 2, ActionType: ActionAnswer, Preceding: []int{1, 1}},
			},
			want: []int{1, 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := OrderPlans(tt.plans)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, numbers(got)); diff != "" {
				t.Errorf("order mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestOrderPlans_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		plans []Plan
		msg   string
	}{
		{name: "empty", plans: nil, msg: "no plans"},
		{
			name:  "duplicate number",
			plans: []Plan{{Number: 1}, {Number: 1}},
			msg:   "used twice",
		},
		{
			name:  "dangling dependency",
			plans: []Plan{{Number: 1, Preceding: []int{9}}},
			msg:   "unknown plan 9",
		},
		{
			name:  "self dependency",
			plans: []Plan{{Number: 1, Preceding: []int{1}}},
			msg:   "depends on itself",
		},
		{
			name: "cycle",
			plans: []Plan{
				{Number: 1, Preceding: []int{3}},
				{Number: 2, Preceding: []int{1}},
				{Number: 3, Preceding: []int{2}},
			},
			msg: "cycle",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePlans(tt.plans)
			require.ErrorIs(t, err, ErrInvalidPlan)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestPlan_Describe(t *testing.T) {
	p := Plan{
		Number:       2,
		ActionType:   ActionTalk,
		Objective:    "ask Bob",
		Preceding:    []int{1},
		Precondition: "Bob exists",
		Constraint:   "be short",
	}

	assert.Equal(t, "2. Talk: ask Bob (after 1)", p.String())
	assert.Equal(t, "2. Talk: ask Bob (after 1)\nPrecondition: Bob exists\nConstraint: be short", p.Describe())
}
