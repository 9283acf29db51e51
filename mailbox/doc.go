// Package mailbox provides the network endpoints of an agent.
//
// A Mailbox owns one listening TCP port picked from a configured range and
// decodes inbound wire frames. Root agents block on Wait for a single reply;
// every other agent runs Serve, which hands each message to a Handler one at
// a time. A Dispatcher sends a single frame over a fresh connection and
// closes it; delivery is fire-and-forget.
package mailbox
