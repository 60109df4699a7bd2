package models

import "time"

// Client represents a CRM client stored in the 'clients' table.
// A client is identified by its Telegram chat ID and created automatically
// on the first inbound message from that chat.
type Client struct {
	ID               int64     `db:"id" json:"id"`
	TelegramChatID   int64     `db:"telegram_chat_id" json:"telegram_chat_id"`
	TelegramUsername string    `db:"telegram_username" json:"telegram_username"`
	FirstName        string    `db:"first_name" json:"first_name"`
	LastName         string    `db:"last_name" json:"last_name"`
	Phone            string    `db:"phone" json:"phone"`
	Email            string    `db:"email" json:"email"`
	Notes            string    `db:"notes" json:"notes"`
	Status           string    `db:"status" json:"status"` // "active" by default, managed by the CRM UI
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// DisplayName returns the best human-readable name for the client.
func (c *Client) DisplayName() string {
	name := c.FirstName
	if c.LastName != "" {
		if name != "" {
			name += " "
		}
		name += c.LastName
	}
	if name == "" {
		name = c.TelegramUsername
	}
	if name == "" {
		name = "Без имени"
	}
	return name
}
