// Package brain is the reasoning boundary of an agent.
//
// A Brain answers four structured questions: which plans serve a request,
// whether those plans are good, which single action carries out a plan, and
// whether the result of that action is good. LLM implements Brain on top of
// a model.Model by rendering prompts and parsing the replies. Replies that
// cannot be parsed fail with ErrSchemaMismatch, which callers treat as an
// ordinary rejection rather than a fatal error.
package brain
