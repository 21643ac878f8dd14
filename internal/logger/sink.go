package logger

import (
	"sync"
	"time"
)

// Line is one human-readable status line emitted through a Sink.
type Line struct {
	Time time.Time `json:"time"`
	Text string    `json:"text"`
}

// Sink is the status-line collaborator handed to the core components.
// Every line is written to the global logger and published to subscribers.
type Sink struct {
	component string

	mu          sync.RWMutex
	subscribers []chan Line
}

// NewSink creates a sink that tags lines with the given component.
func NewSink(component string) *Sink {
	return &Sink{component: component}
}

// Log writes a status line.
func (s *Sink) Log(text string) {
	WithComponent(s.component).Info().Msg(text)
	s.publish(Line{Time: time.Now(), Text: text})
}

// Subscribe returns a channel receiving every subsequent line.
func (s *Sink) Subscribe() chan Line {
	ch := make(chan Line, 32)
	s.mu.Lock()
	s.subscribers = append(s.subscribers, ch)
	s.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes a channel returned by Subscribe.
func (s *Sink) Unsubscribe(ch chan Line) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, sub := range s.subscribers {
		if sub == ch {
			s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
			close(ch)
			break
		}
	}
}

func (s *Sink) publish(line Line) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sub := range s.subscribers {
		select {
		case sub <- line:
		default:
			// Slow subscriber, drop the line
		}
	}
}
