package models

import (
	"time"

	"github.com/google/uuid"
)

// HistoryLimit caps how many records a session history returns.
const HistoryLimit = 100

// ChatMessage is one persisted question and answer exchange. Records are append-only.
type ChatMessage struct {
	ID           string    `bson:"id" json:"id"`
	SessionID    string    `bson:"session_id" json:"session_id"`
	Message      string    `bson:"message" json:"message"`
	Response     string    `bson:"response" json:"response"`
	MessageType  string    `bson:"message_type" json:"message_type"`
	TrustScore   *float64  `bson:"trust_score,omitempty" json:"trust_score"`
	Sources      []string  `bson:"sources" json:"sources"`
	Timestamp    time.Time `bson:"timestamp" json:"timestamp"`
	Downloadable bool      `bson:"downloadable" json:"downloadable"`
	Degraded     bool      `bson:"degraded" json:"degraded"`
}

// NewChatMessage stamps a fresh id and UTC timestamp; an empty sessionID gets a generated one.
func NewChatMessage(sessionID, message, messageType string) *ChatMessage {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	return &ChatMessage{
		ID:          uuid.NewString(),
		SessionID:   sessionID,
		Message:     message,
		MessageType: messageType,
		Timestamp:   time.Now().UTC(),
	}
}
