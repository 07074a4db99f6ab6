package store

import (
	"context"
	"time"
)

// Message is one persisted chat message. ID and CreatedAt are assigned by
// the store at insert time; the record is immutable afterwards.
type Message struct {
	ID            string    `bson:"_id" json:"id"`
	HelpRequestID string    `bson:"help_request_id" json:"helpRequestId"`
	SenderID      string    `bson:"sender_id" json:"senderId"`
	Body          string    `bson:"body" json:"body"`
	CreatedAt     time.Time `bson:"created_at" json:"createdAt"`
}

// UserProfile is the display metadata resolved for a message sender.
type UserProfile struct {
	ID          string `bson:"_id" json:"id"`
	DisplayName string `bson:"display_name" json:"displayName"`
}

// MessageStore persists chat messages and serves history fetches.
type MessageStore interface {
	// Insert stores the message, assigning ID and CreatedAt, and returns
	// the stored record.
	Insert(ctx context.Context, senderID, helpRequestID, body string) (*Message, error)
	// History returns up to limit most recent messages for a help request,
	// oldest first.
	History(ctx context.Context, helpRequestID string, limit int64) ([]Message, error)
}

// UserStore resolves sender display metadata. Lookups are best-effort for
// the ingestion pipeline; a failure degrades the sender label, never the send.
type UserStore interface {
	GetProfile(ctx context.Context, userID string) (*UserProfile, error)
}
