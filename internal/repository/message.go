package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"tgcrm/internal/models"
)

// MessageRepository provides access to stored client messages.
type MessageRepository interface {
	AppendMessage(ctx context.Context, msg *models.Message) error
	ListMessages(ctx context.Context, clientID int64) ([]*models.Message, error)
	CountMessages(ctx context.Context, clientID int64) (int, error)
}

type messageRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewMessageRepository(db *sqlx.DB, logger *zap.Logger) MessageRepository {
	return &messageRepository{db: db, logger: logger}
}

// AppendMessage inserts a single message row. The client_id must reference an
// existing client; the foreign key constraint surfaces a violation as an error.
func (r *messageRepository) AppendMessage(ctx context.Context, msg *models.Message) error {
	query := `INSERT INTO messages (client_id, telegram_message_id, text, from_type, username, created_at)
	          VALUES ($1, $2, $3, $4, $5, now()) RETURNING id, created_at`
	err := r.db.QueryRowxContext(ctx, query, msg.ClientID, msg.TelegramMessageID, msg.Text, msg.FromType, msg.Username).
		Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to append message", zap.Int64("client_id", msg.ClientID), zap.Error(err))
		return err
	}
	return nil
}

// ListMessages returns a client's messages in chronological order, oldest first.
func (r *messageRepository) ListMessages(ctx context.Context, clientID int64) ([]*models.Message, error) {
	var messages []*models.Message
	query := `SELECT id, client_id, telegram_message_id, text, from_type, username, created_at
	          FROM messages WHERE client_id = $1 ORDER BY created_at ASC`
	err := r.db.SelectContext(ctx, &messages, query, clientID)
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *messageRepository) CountMessages(ctx context.Context, clientID int64) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM messages WHERE client_id = $1`
	err := r.db.GetContext(ctx, &count, query, clientID)
	if err != nil {
		return 0, err
	}
	return count, nil
}
