// Package tracer records the lifecycle of every agent.
//
// A Tracer belongs to exactly one agent and broadcasts each Event to its
// sinks in registration order. Sinks are observational only: a sink that
// fails or panics is logged and skipped, and the remaining sinks still see
// the event. Sinks are passed explicitly to each agent; there is no global
// registry.
package tracer
