// Package dispatcher implements the bot command processing for inbound
// Telegram messages: leading-slash commands are parsed and answered, any
// other text is stored as a client message.
package dispatcher

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"tgcrm/internal/models"
	"tgcrm/internal/repository"
)

// Inbound carries the fields of an incoming Telegram message the dispatcher
// operates on.
type Inbound struct {
	ChatID    int64
	MessageID int64
	Text      string
	Username  string
	FirstName string
	LastName  string
}

// Dispatcher routes inbound messages to command handlers and renders replies.
// It holds no state of its own; every call is a function of the inbound
// message plus repository reads and writes.
type Dispatcher struct {
	clients  repository.ClientRepository
	messages repository.MessageRepository
	logger   *zap.Logger
}

func New(clients repository.ClientRepository, messages repository.MessageRepository, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{clients: clients, messages: messages, logger: logger}
}

// Dispatch processes one inbound message and returns the reply text to send
// back to the chat. Store errors propagate to the caller.
func (d *Dispatcher) Dispatch(ctx context.Context, in Inbound) (string, error) {
	command, args := splitCommand(in.Text)

	switch command {
	case "/start":
		return d.handleStart(ctx, in)
	case "/list":
		return d.handleList(ctx)
	case "/info":
		return d.handleInfo(ctx, args)
	case "/add":
		return d.handleAdd()
	case "/save":
		return d.handleSave(ctx, in, args)
	default:
		return d.handleDefault(ctx, in)
	}
}

// splitCommand splits text on the first whitespace. The first token is
// lower-cased; the remainder (possibly empty) is returned as args.
func splitCommand(text string) (string, string) {
	trimmed := strings.TrimSpace(text)
	idx := strings.IndexFunc(trimmed, unicode.IsSpace)
	if idx < 0 {
		return strings.ToLower(trimmed), ""
	}
	return strings.ToLower(trimmed[:idx]), strings.TrimSpace(trimmed[idx:])
}

func (d *Dispatcher) handleStart(ctx context.Context, in Inbound) (string, error) {
	// /start registers the client without a last name.
	if _, err := d.clients.UpsertClient(ctx, in.ChatID, in.Username, in.FirstName, ""); err != nil {
		return "", err
	}
	return "👋 Добро пожаловать в CRM-бот!\n\n" +
		"Доступные команды:\n" +
		"/list — список клиентов\n" +
		"/info &lt;id&gt; — карточка клиента\n" +
		"/add — как добавить клиента\n" +
		"/save &lt;данные&gt; — сохранить данные клиента\n\n" +
		"Любое другое сообщение будет сохранено в истории.", nil
}

func (d *Dispatcher) handleList(ctx context.Context) (string, error) {
	clients, err := d.clients.ListClients(ctx)
	if err != nil {
		return "", err
	}
	if len(clients) == 0 {
		return "📭 Список клиентов пуст", nil
	}

	var b strings.Builder
	b.WriteString("📋 <b>Клиенты:</b>\n\n")
	for _, c := range clients {
		b.WriteString(fmt.Sprintf("• <b>%s</b>", c.DisplayName()))
		if c.TelegramUsername != "" {
			b.WriteString(" (@" + c.TelegramUsername + ")")
		}
		b.WriteString(fmt.Sprintf(" — id %d\n", c.ID))
	}
	return b.String(), nil
}

func (d *Dispatcher) handleInfo(ctx context.Context, args string) (string, error) {
	if !isDigits(args) {
		return "❌ Укажите числовой ID клиента, например: /info 7", nil
	}
	id, err := strconv.ParseInt(args, 10, 64)
	if err != nil {
		return "❌ Укажите числовой ID клиента, например: /info 7", nil
	}

	client, err := d.clients.GetClientByID(ctx, id)
	if err != nil {
		return "", err
	}
	if client == nil {
		return fmt.Sprintf("❌ Клиент с ID %d не найден", id), nil
	}

	count, err := d.messages.CountMessages(ctx, client.ID)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("👤 <b>%s</b>\n\n", client.DisplayName()))
	b.WriteString(fmt.Sprintf("ID: %d\n", client.ID))
	b.WriteString("Username: " + orDash(at(client.TelegramUsername)) + "\n")
	b.WriteString("Телефон: " + orDash(client.Phone) + "\n")
	b.WriteString("Email: " + orDash(client.Email) + "\n")
	b.WriteString("Статус: " + orDash(client.Status) + "\n")
	b.WriteString(fmt.Sprintf("Сообщений: %d", count))
	return b.String(), nil
}

func (d *Dispatcher) handleAdd() (string, error) {
	return "➕ Чтобы добавить клиента, отправьте команду /save с данными, например:\n/save Иван Петров", nil
}

func (d *Dispatcher) handleSave(ctx context.Context, in Inbound, args string) (string, error) {
	if args == "" {
		return "❌ Укажите данные после команды, например: /save Иван Петров", nil
	}
	// The argument is stored verbatim as the client's first name.
	if _, err := d.clients.UpsertClient(ctx, in.ChatID, in.Username, args, ""); err != nil {
		return "", err
	}
	return "✅ Сохранено: " + args, nil
}

// handleDefault stores unrecognized commands and plain text as client
// messages. The client is upserted once and the message row references the
// returned id.
func (d *Dispatcher) handleDefault(ctx context.Context, in Inbound) (string, error) {
	clientID, err := d.clients.UpsertClient(ctx, in.ChatID, in.Username, in.FirstName, in.LastName)
	if err != nil {
		return "", err
	}

	msg := &models.Message{
		ClientID:          clientID,
		TelegramMessageID: in.MessageID,
		Text:              in.Text,
		FromType:          models.FromClient,
		Username:          in.Username,
	}
	if err := d.messages.AppendMessage(ctx, msg); err != nil {
		return "", err
	}

	d.logger.Debug("Stored inbound message",
		zap.Int64("client_id", clientID),
		zap.Int64("chat_id", in.ChatID))
	return "💾 Сообщение сохранено", nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}

func at(username string) string {
	if username == "" {
		return ""
	}
	return "@" + username
}
