package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"tgcrm/internal/models"
)

// ClientRepository provides access to CRM clients keyed by Telegram chat ID.
type ClientRepository interface {
	UpsertClient(ctx context.Context, chatID int64, username, firstName, lastName string) (int64, error)
	GetClientByID(ctx context.Context, id int64) (*models.Client, error)
	GetChatID(ctx context.Context, clientID int64) (int64, bool, error)
	ListClients(ctx context.Context) ([]*models.Client, error)
}

type clientRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewClientRepository(db *sqlx.DB, logger *zap.Logger) ClientRepository {
	return &clientRepository{db: db, logger: logger}
}

// UpsertClient inserts a client for the given chat ID or, if one already
// exists, overwrites its display fields and bumps updated_at. The upsert is
// atomic; concurrent calls for the same chat ID cannot produce two rows.
func (r *clientRepository) UpsertClient(ctx context.Context, chatID int64, username, firstName, lastName string) (int64, error) {
	query := `INSERT INTO clients (telegram_chat_id, telegram_username, first_name, last_name, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, now(), now())
	          ON CONFLICT (telegram_chat_id) DO UPDATE SET
	              telegram_username = EXCLUDED.telegram_username,
	              first_name = EXCLUDED.first_name,
	              last_name = EXCLUDED.last_name,
	              updated_at = now()
	          RETURNING id`
	var id int64
	if err := r.db.QueryRowxContext(ctx, query, chatID, username, firstName, lastName).Scan(&id); err != nil {
		r.logger.Error("Failed to upsert client", zap.Int64("chat_id", chatID), zap.Error(err))
		return 0, err
	}
	return id, nil
}

func (r *clientRepository) GetClientByID(ctx context.Context, id int64) (*models.Client, error) {
	var client models.Client
	query := `SELECT id, telegram_chat_id, telegram_username, first_name, last_name, phone, email, notes, status, created_at, updated_at
	          FROM clients WHERE id = $1`
	err := r.db.GetContext(ctx, &client, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Client not found
		}
		return nil, err
	}
	return &client, nil
}

// GetChatID resolves an internal client ID to the external Telegram chat ID.
// The second return value reports whether the client exists.
func (r *clientRepository) GetChatID(ctx context.Context, clientID int64) (int64, bool, error) {
	var chatID int64
	query := `SELECT telegram_chat_id FROM clients WHERE id = $1`
	err := r.db.GetContext(ctx, &chatID, query, clientID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return chatID, true, nil
}

// ListClients returns the most recently updated clients, newest first.
func (r *clientRepository) ListClients(ctx context.Context) ([]*models.Client, error) {
	var clients []*models.Client
	query := `SELECT id, telegram_chat_id, telegram_username, first_name, last_name, phone, email, notes, status, created_at, updated_at
	          FROM clients ORDER BY updated_at DESC LIMIT 20`
	err := r.db.SelectContext(ctx, &clients, query)
	if err != nil {
		return nil, err
	}
	return clients, nil
}
