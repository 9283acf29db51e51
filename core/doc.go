// Package core provides the foundational domain types shared by every other
// civmesh package. It defines:
//
//   - Actions (the single step an agent decides to perform)
//   - Plans (the dependency graph produced by one planning round)
//   - Profiles (name + description of a relation or tool, as shown to a brain)
//   - The error taxonomy for action handling and agent naming
//   - Text formatting helpers for results that flow back into reviews
//
// The package has no dependencies on transport, tracing or model code so that
// it can be imported from anywhere without cycles.
package core
