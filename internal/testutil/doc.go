// Package testutil contains helper builders and doubles used across tests:
// a fluent plan builder, a scripted Brain that replays canned decisions, and
// a helper reserving a contiguous range of free loopback ports. They are not
// intended for production usage.
package testutil
