// Package agent implements the person at the heart of a civilization: an
// agent with a persona, relations, tools and a mailbox, driven by a brain
// through the plan, optimize, execute and review loop.
//
// A request arrives through Respond, either called directly or delivered by
// the mailbox. The agent asks its brain for plans until one is accepted,
// executes them in dependency order through Act and finally dispatches the
// result to the sender's mailbox. Talk is fire-and-forget: the reply of the
// relation arrives later as a new request.
//
// A root agent (no referee) does not serve its mailbox. It talks to its
// relations and blocks on Wait for the single reply.
package agent
