package tracer

import (
	"context"
	"fmt"
	"hash/fnv"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

var palette = []lipgloss.Color{"39", "208", "112", "170", "220", "45", "203", "141", "78", "214"}

// ConsoleSink renders events for humans, one colour per agent. Thought chunks
// are streamed inline.
type ConsoleSink struct {
	mu     sync.Mutex
	w      io.Writer
	styles map[string]lipgloss.Style
	errSty lipgloss.Style
}

// NewConsoleSink creates a console sink writing to w.
func NewConsoleSink(w io.Writer) *ConsoleSink {
	return &ConsoleSink{
		w:      w,
		styles: map[string]lipgloss.Style{},
		errSty: lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
}

func (s *ConsoleSink) style(agent string) lipgloss.Style {
	if st, ok := s.styles[agent]; ok {
		return st
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(agent))
	st := lipgloss.NewStyle().Foreground(palette[h.Sum32()%uint32(len(palette))])
	s.styles[agent] = st
	return st
}

// Handle implements Sink.
func (s *ConsoleSink) Handle(_ context.Context, ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.style(ev.Agent)
	var err error
	switch ev.Kind {
	case KindThoughtStart:
		_, err = fmt.Fprint(s.w, st.Bold(true).Render(ev.Agent+" thinks")+" ")
	case KindThought:
		_, err = fmt.Fprint(s.w, st.Render(ev.Payload))
	case KindThoughtEnd:
		_, err = fmt.Fprintln(s.w)
	default:
		line := st.Bold(true).Render("["+ev.Agent+"]") + " "
		if ev.Error != "" {
			line += s.errSty.Render(ev.Summary())
		} else {
			line += st.Render(ev.Summary())
		}
		_, err = fmt.Fprintln(s.w, line)
	}
	return err
}
