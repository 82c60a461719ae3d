package models

import "time"

type Role string

const (
	RoleYou             Role = "You"
	RoleJudge           Role = "AI Judge"
	RoleOpposingCounsel Role = "AI Opposing Counsel"
	RoleSystem          Role = "System"
)

const (
	GreetingText     = "Court is in session. The Judge is waiting for your opening statement."
	AgentFailureText = "Error: Could not reach the court agents."
	TrialEndedText   = "Your free trial has ended. Please upgrade to continue."
)

type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	EventMessage = "message"
	EventLoading = "loading"
)

// Event is what live subscribers receive: either a newly appended message
// or a change of the in-flight flag.
type Event struct {
	Type    string   `json:"type"`
	Message *Message `json:"message,omitempty"`
	Loading bool     `json:"loading"`
}

func MessageEvent(msg Message) Event {
	return Event{Type: EventMessage, Message: &msg}
}

func LoadingEvent(loading bool) Event {
	return Event{Type: EventLoading, Loading: loading}
}
