package models

import (
	"sync"
	"time"
)

// Transcript is an append-only, chronologically ordered message list.
type Transcript struct {
	messages []Message
	mu       sync.RWMutex
}

// NewTranscript returns a transcript seeded with the court greeting.
func NewTranscript() *Transcript {
	return &Transcript{
		messages: []Message{{
			Role:      RoleSystem,
			Content:   GreetingText,
			Timestamp: time.Now(),
		}},
	}
}

// Append stamps msg if needed and returns the stored copy.
func (t *Transcript) Append(msg Message) Message {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	t.mu.Lock()
	t.messages = append(t.messages, msg)
	t.mu.Unlock()
	return msg
}

func (t *Transcript) Snapshot() []Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}

func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}
