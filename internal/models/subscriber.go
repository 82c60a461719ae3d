package models

import "github.com/google/uuid"

// Sink is anything that accepts JSON frames; *websocket.Conn satisfies it,
// as does the terminal view's channel adapter.
type Sink interface {
	WriteJSON(v interface{}) error
}

type Subscriber struct {
	Id   uuid.UUID `json:"subscriberid"`
	Sink Sink      `json:"-"`
}
