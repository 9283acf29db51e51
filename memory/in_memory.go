package memory

import (
	"sync"

	"github.com/hupe1980/civmesh/model"
)

// Store remembers the exchanges of one brain.
type Store interface {
	// Load returns the remembered conversation followed by prompt as a user message.
	Load(prompt string) []model.Message
	// Save records a prompt and the reply it produced.
	Save(prompt, reply string)
}

// ShortTerm is a process-local Store.
//
// Concurrency: protected by RWMutex.
// Window: when MaxTurns is positive only the latest MaxTurns prompt/reply
// pairs are replayed; the system message is always kept.
type ShortTerm struct {
	mu       sync.RWMutex
	system   string
	turns    []model.Message
	maxTurns int
}

// NewShortTerm creates a memory seeded with a system message. maxTurns <= 0
// keeps every turn.
func NewShortTerm(system string, maxTurns int) *ShortTerm {
	return &ShortTerm{system: system, maxTurns: maxTurns}
}

// System returns the system message.
func (m *ShortTerm) System() string {
	return m.system
}

// Load implements Store. The returned slice is a copy.
func (m *ShortTerm) Load(prompt string) []model.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Message, 0, len(m.turns)+2)
	if m.system != "" {
		out = append(out, model.Message{Role: model.RoleSystem, Text: m.system})
	}
	out = append(out, m.turns...)
	return append(out, model.Message{Role: model.RoleUser, Text: prompt})
}

// Save implements Store.
func (m *ShortTerm) Save(prompt, reply string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = append(m.turns,
		model.Message{Role: model.RoleUser, Text: prompt},
		model.Message{Role: model.RoleAssistant, Text: reply},
	)
	if m.maxTurns > 0 && len(m.turns) > 2*m.maxTurns {
		m.turns = append([]model.Message(nil), m.turns[len(m.turns)-2*m.maxTurns:]...)
	}
}

// Len returns the number of remembered prompt/reply pairs.
func (m *ShortTerm) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.turns) / 2
}

// Reset forgets every turn and keeps the system message.
func (m *ShortTerm) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = nil
}
