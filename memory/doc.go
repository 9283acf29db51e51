// Package memory holds the conversation memory of an LLM brain.
//
// ShortTerm keeps the system message plus the most recent prompt/reply pairs
// and replays them in front of every new prompt. Persistent long-term memory
// is not provided; a Store backed by a vector index can be plugged into the
// brain through the Store interface.
package memory
