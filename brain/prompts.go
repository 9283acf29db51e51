package brain

import (
	"strings"

	"github.com/hupe1980/civmesh/core"
	"github.com/hupe1980/civmesh/internal/util"
)

const systemPrompt = `Your name is {{.Name}}. {{.Instruction}}`

const contextSection = `Your relations:{{range .Relations}}
    {{.Name}}: {{.Description}}{{else}} N/A{{end}}
Your tools:{{range .Tools}}
    {{.Name}}: {{.Description}}{{else}} N/A{{end}}
{{if .Referee}}You report to {{.Referee}}.
{{end}}`

const actionTable = `Type | Description | Name | Instruction | Extra
-|-|-|-|-
Invite | {{.Describe "Invite"}} | a short person name (at most 12 bytes) | Personality | comma separated tools among {{quoted .ToolNames}} the person needs
Talk | {{.Describe "Talk"}} | one of {{quoted .RelationNames}} | Message | Attachment
Build | {{.Describe "Build"}} | Tool's name | Tool's description: objective, instruction format, extra format, output format | Go source in a ` + "```go" + ` block defining func Run(instruction, extra string) string
Use | {{.Describe "Use"}} | one of {{quoted .ToolNames}} | Tool instruction | Tool extra
Answer | {{.Describe "Answer"}} | {{if .Referee}}{{.Referee}}{{else}}N/A{{end}} | The final answer | N/A
`

var (
	planTemplate = util.MustParse("plan", `You must consider the following opinions about your previous plans:
{{numbered .Opinions}}

You must respect the following constraints learned from failed attempts:
{{numbered .Constraints}}

The type of action you can take is:
`+actionTable+`
`+contextSection+`
You should make a plan to respond to the request. Request is:
{{.Request}}

Respond only with JSON in the following schema:
{"plans": [{"plan_number": 1, "action_type": "Invite|Talk|Build|Use|Answer", "objective": "...", "preceding_plan_numbers": [], "precondition": "...", "effect": "...", "constraint": "..."}]}
Plan numbers must be unique and preceding_plan_numbers may only refer to plans of the same response.
Finish with an Answer plan once the request is fulfilled.
Make a plan!!
`)

	optimizeTemplate = util.MustParse("optimize", `## Background
The type of action you can take is:
`+actionTable+`
`+contextSection+`
## Request
{{.Request}}

## Plans
{{.Plans}}

## Response
Your response is a review of the plans and you need to decide whether it is Accept or Reject.
Reject if the plans seem strange and write down your opinion. That opinion will be reflected and the plans will be redrawn.
==========your response schema==========
[Accept] or [Reject] your review of the plans
==========  response example 1==========
[Reject] Bob cannot be asked before he is invited.
==========  response example 2==========
[Accept] The plans are fine.
========================================
`)

	executeTemplate = util.MustParse("execute", `You must respond only one action and the action consists of type, name, instruction, and extra.

==========desired format==========
You must adhere to a format that includes Type, Name, Instruction, and Extra.
If you don't have anything to write in Extra, leave it empty after "Extra:".
Type: example type
Name: example name
Instruction: example instruction
Extra: example extra
==========  response example  ==========
Type: Invite
Name: John
Instruction: The best engineer in the infinite universe.
Extra: Terminal, CodeWriter
========================================

You must consider the following opinions before you execute the action.
opinions:
{{numbered .Opinions}}

The type of action you can take is:
`+actionTable+`
`+contextSection+`
Your plan: {{.Plan}}

Make action based on opinions and your plan. Don't execute the action you made.
`)

	reviewTemplate = util.MustParse("review", `## Background
The type of action you can take is:
`+actionTable+`
`+contextSection+`
## Response
Your response is a review of the action and its result and you need to decide whether it is Accept or Reject.
Reject if the result is not good and write down your opinion. That opinion will be reflected and the action will be redone.
==========your response schema==========
[Accept] or [Reject] your review of the action
==========  response example 1==========
[Reject] Actually, I think that the execution result is not good.
Let's make a new tool
==========  response example 2==========
[Accept] The execution result is perfect.
========================================

## Request
Review your execution result for executing "{{.Plan}}". Don't execute again, just say your opinion about action and result.
Your action is:
{{.Action}}
Your result of action is:
{{.Result}}
`)

	systemTemplate = util.MustParse("system", systemPrompt)
)

type promptData struct {
	Name        string
	Instruction string
	Referee     string
	Relations   []core.Profile
	Tools       []core.Profile

	Request     string
	Opinions    []string
	Constraints []string
	Plans       string
	Plan        string
	Action      string
	Result      string
}

func newPromptData(self Self) promptData {
	return promptData{
		Name:        self.Name(),
		Instruction: self.Instruction(),
		Referee:     self.Referee(),
		Relations:   self.Relations(),
		Tools:       self.Tools(),
	}
}

func (d promptData) RelationNames() []string { return profileNames(d.Relations) }

func (d promptData) ToolNames() []string { return profileNames(d.Tools) }

func (d promptData) Describe(t string) string { return core.ActionType(t).Description() }

func profileNames(ps []core.Profile) []string {
	names := make([]string, len(ps))
	for i, p := range ps {
		names[i] = p.Name
	}
	return names
}

func renderPlans(plans []core.Plan) string {
	lines := make([]string, len(plans))
	for i, p := range plans {
		lines[i] = p.Describe()
	}
	return strings.Join(lines, "\n")
}
