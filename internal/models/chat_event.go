package models

import "time"

// ChatEvent is one message delivered by a chat source.
type ChatEvent struct {
	User       string    `json:"user"`
	Text       string    `json:"text"`
	Admin      bool      `json:"admin"`
	ReceivedAt time.Time `json:"received_at"`
}
