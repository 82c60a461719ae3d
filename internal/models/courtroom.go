package models

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Courtroom is one live hearing: a transcript, the in-flight flag and the
// subscribers watching it. Lock order is writeMu before Mu.
type Courtroom struct {
	ID          uuid.UUID
	Transcript  *Transcript
	Subscribers map[uuid.UUID]*Subscriber
	Loading     bool      // a turn is waiting on the court agents
	LastActive  time.Time // refreshed on every turn and subscription
	Mu          sync.Mutex

	// writeMu serialises transcript appends with the frames announcing
	// them, so subscribers see every event exactly once and in order.
	writeMu sync.Mutex
}

func NewCourtroom() *Courtroom {
	return &Courtroom{
		ID:          uuid.New(),
		Transcript:  NewTranscript(),
		Subscribers: make(map[uuid.UUID]*Subscriber),
		LastActive:  time.Now(),
	}
}

// BeginTurn sets the in-flight flag. It returns false if a turn is already
// running. Subscribers whose write failed are returned for removal.
func (c *Courtroom) BeginTurn() (bool, []*Subscriber) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.Mu.Lock()
	if c.Loading {
		c.Mu.Unlock()
		return false, nil
	}
	c.Loading = true
	c.LastActive = time.Now()
	c.Mu.Unlock()

	return true, c.publishLocked(LoadingEvent(true))
}

func (c *Courtroom) EndTurn() []*Subscriber {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.Mu.Lock()
	c.Loading = false
	c.LastActive = time.Now()
	c.Mu.Unlock()

	return c.publishLocked(LoadingEvent(false))
}

// Record appends msg to the transcript and announces it.
func (c *Courtroom) Record(msg Message) (Message, []*Subscriber) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	stored := c.Transcript.Append(msg)
	return stored, c.publishLocked(MessageEvent(stored))
}

// Attach replays the transcript and loading state to sub, then registers it
// for live events.
func (c *Courtroom) Attach(sub *Subscriber) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	for _, msg := range c.Transcript.Snapshot() {
		if err := sub.Sink.WriteJSON(MessageEvent(msg)); err != nil {
			return err
		}
	}

	c.Mu.Lock()
	loading := c.Loading
	c.Subscribers[sub.Id] = sub
	c.LastActive = time.Now()
	c.Mu.Unlock()

	return sub.Sink.WriteJSON(LoadingEvent(loading))
}

// Detach waits out any publish in progress, so sub is never written to
// once Detach returns.
func (c *Courtroom) Detach(sub *Subscriber) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.Mu.Lock()
	delete(c.Subscribers, sub.Id)
	c.LastActive = time.Now()
	c.Mu.Unlock()
}

// Idle reports whether nobody is watching and nothing has happened since
// before cutoff.
func (c *Courtroom) Idle(cutoff time.Time) bool {
	c.Mu.Lock()
	defer c.Mu.Unlock()
	return len(c.Subscribers) == 0 && !c.Loading && c.LastActive.Before(cutoff)
}

func (c *Courtroom) IsLoading() bool {
	c.Mu.Lock()
	defer c.Mu.Unlock()
	return c.Loading
}

func (c *Courtroom) publishLocked(ev Event) []*Subscriber {
	c.Mu.Lock()
	subs := make([]*Subscriber, 0, len(c.Subscribers))
	for _, s := range c.Subscribers {
		subs = append(subs, s)
	}
	c.Mu.Unlock()

	var failed []*Subscriber
	for _, s := range subs {
		if s.Sink == nil {
			continue
		}
		if err := s.Sink.WriteJSON(ev); err != nil {
			failed = append(failed, s)
		}
	}
	return failed
}

type CourtroomManager struct {
	Courtrooms map[uuid.UUID]*Courtroom
	Mu         sync.Mutex
}

func NewCourtroomManager() *CourtroomManager {
	return &CourtroomManager{Courtrooms: make(map[uuid.UUID]*Courtroom)}
}
