package models

import "time"

// Message direction tags. Inbound messages from the client are stored as
// FromClient, operator/bot replies as FromUser.
const (
	FromClient = "client"
	FromUser   = "user"
)

// Message represents a message stored in the 'messages' table.
// Rows are immutable after insert; created_at is the ordering key
// for a client's history.
type Message struct {
	ID                int64     `db:"id" json:"id"`
	ClientID          int64     `db:"client_id" json:"client_id"`
	TelegramMessageID int64     `db:"telegram_message_id" json:"telegram_message_id"` // 0 for synthesized messages
	Text              string    `db:"text" json:"text"`
	FromType          string    `db:"from_type" json:"from_type"`
	Username          string    `db:"username" json:"username"` // sender name snapshot at time of send
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}
