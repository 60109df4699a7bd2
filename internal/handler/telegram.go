package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tgcrm/internal/dispatcher"
	"tgcrm/internal/models"
	"tgcrm/internal/repository"
	"tgcrm/internal/telegram"
)

// TelegramHandler exposes the /telegram endpoint: GET query actions, POST
// webhook ingestion and explicit sends.
type TelegramHandler interface {
	HandleGet(c *gin.Context)
	HandlePost(c *gin.Context)
}

type telegramHandler struct {
	clients    repository.ClientRepository
	messages   repository.MessageRepository
	bot        *telegram.Client
	dispatcher *dispatcher.Dispatcher
	logger     *zap.Logger
}

func NewTelegramHandler(clients repository.ClientRepository, messages repository.MessageRepository,
	bot *telegram.Client, d *dispatcher.Dispatcher, logger *zap.Logger) TelegramHandler {
	return &telegramHandler{
		clients:    clients,
		messages:   messages,
		bot:        bot,
		dispatcher: d,
		logger:     logger,
	}
}

// HandleGet dispatches GET /telegram by the 'action' query parameter.
func (h *telegramHandler) HandleGet(c *gin.Context) {
	action := c.DefaultQuery("action", "getClients")

	switch action {
	case "getUpdates":
		h.proxyGetUpdates(c)
	case "getMe":
		h.proxyGetMe(c)
	case "getClients":
		h.getClients(c)
	case "getMessages":
		h.getMessages(c)
	case "syncUpdates":
		h.syncUpdates(c)
	default:
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
	}
}

// proxyGetUpdates forwards getUpdates to the Bot API and passes the response
// through verbatim, including ok=false payloads.
func (h *telegramHandler) proxyGetUpdates(c *gin.Context) {
	resp, err := h.bot.GetUpdates(c.Request.Context(), c.Query("offset"))
	if err != nil {
		h.logger.Error("Failed to fetch updates from Telegram", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.Data(http.StatusOK, "application/json", resp.Body)
}

func (h *telegramHandler) proxyGetMe(c *gin.Context) {
	resp, err := h.bot.GetMe(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to fetch bot info from Telegram", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.Data(http.StatusOK, "application/json", resp.Body)
}

func (h *telegramHandler) getClients(c *gin.Context) {
	clients, err := h.clients.ListClients(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list clients", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if clients == nil {
		clients = []*models.Client{}
	}
	c.JSON(http.StatusOK, gin.H{"clients": clients})
}

func (h *telegramHandler) getMessages(c *gin.Context) {
	clientIDStr := c.Query("client_id")
	if clientIDStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "client_id is required"})
		return
	}
	clientID, err := strconv.ParseInt(clientIDStr, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "client_id must be a number"})
		return
	}

	messages, err := h.messages.ListMessages(c.Request.Context(), clientID)
	if err != nil {
		h.logger.Error("Failed to list messages", zap.Int64("client_id", clientID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if messages == nil {
		messages = []*models.Message{}
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// syncUpdates pulls pending updates from the Bot API and materializes them
// into client and message rows.
func (h *telegramHandler) syncUpdates(c *gin.Context) {
	ctx := c.Request.Context()

	resp, err := h.bot.GetUpdates(ctx, c.Query("offset"))
	if err != nil {
		h.logger.Error("Failed to fetch updates for sync", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if !resp.Ok {
		c.Data(http.StatusOK, "application/json", resp.Body)
		return
	}

	var updates []telegram.Update
	if err := json.Unmarshal(resp.Result, &updates); err != nil {
		h.logger.Error("Failed to decode updates result", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	synced := 0
	for _, update := range updates {
		if update.Message == nil || update.Message.Chat.ID == 0 {
			continue
		}
		msg := update.Message

		var username, firstName, lastName string
		if msg.From != nil {
			username = msg.From.Username
			firstName = msg.From.FirstName
			lastName = msg.From.LastName
		}

		clientID, err := h.clients.UpsertClient(ctx, msg.Chat.ID, username, firstName, lastName)
		if err != nil {
			h.logger.Error("Failed to upsert client during sync",
				zap.Int64("chat_id", msg.Chat.ID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		if err := h.messages.AppendMessage(ctx, &models.Message{
			ClientID:          clientID,
			TelegramMessageID: msg.MessageID,
			Text:              msg.Text,
			FromType:          models.FromClient,
			Username:          username,
		}); err != nil {
			h.logger.Error("Failed to append message during sync",
				zap.Int64("client_id", clientID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		synced++
	}

	h.logger.Info("Synced updates into store", zap.Int("count", synced))
	c.JSON(http.StatusOK, gin.H{"ok": true, "synced": synced})
}

// postBody is the union of the two accepted POST shapes: a webhook update
// (message key present) or an explicit action request.
type postBody struct {
	Message *telegram.IncomingMessage `json:"message"`

	Action   string `json:"action"`
	ChatID   int64  `json:"chat_id"`
	ClientID int64  `json:"client_id"`
	Text     string `json:"text"`
}

// HandlePost routes POST /telegram: the presence of a 'message' key selects
// webhook ingestion, otherwise the 'action' field (default sendMessage).
func (h *telegramHandler) HandlePost(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}

	var body postBody
	if err := json.Unmarshal(raw, &body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}

	if _, ok := keys["message"]; ok {
		h.handleWebhook(c, body.Message)
		return
	}

	action := body.Action
	if action == "" {
		action = "sendMessage"
	}
	switch action {
	case "sendMessage":
		h.sendMessage(c, body)
	default:
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
	}
}

// handleWebhook ingests one webhook update: the dispatcher stores the client
// and/or message and renders a reply, which is sent best-effort. A failed
// reply send is logged and swallowed; the webhook response stays 200.
func (h *telegramHandler) handleWebhook(c *gin.Context, msg *telegram.IncomingMessage) {
	if msg == nil || msg.Chat.ID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message.chat.id is required"})
		return
	}

	in := dispatcher.Inbound{
		ChatID:    msg.Chat.ID,
		MessageID: msg.MessageID,
		Text:      msg.Text,
	}
	if msg.From != nil {
		in.Username = msg.From.Username
		in.FirstName = msg.From.FirstName
		in.LastName = msg.From.LastName
	}

	reply, err := h.dispatcher.Dispatch(c.Request.Context(), in)
	if err != nil {
		h.logger.Error("Failed to process webhook update",
			zap.Int64("chat_id", msg.Chat.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if reply != "" {
		resp, err := h.bot.SendMessage(c.Request.Context(), msg.Chat.ID, reply)
		if err != nil {
			h.logger.Warn("Failed to send webhook reply",
				zap.Int64("chat_id", msg.Chat.ID), zap.Error(err))
		} else if !resp.Ok {
			h.logger.Warn("Telegram rejected webhook reply",
				zap.Int64("chat_id", msg.Chat.ID),
				zap.Int("error_code", resp.ErrorCode),
				zap.String("description", resp.Description))
		}
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// sendMessage sends a message to a chat identified either directly by chat_id
// or through a stored client via client_id. The Bot API response is passed
// through verbatim; for known clients the outbound message is also persisted.
func (h *telegramHandler) sendMessage(c *gin.Context, body postBody) {
	ctx := c.Request.Context()

	if body.Text == "" || (body.ChatID == 0 && body.ClientID == 0) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "chat_id and text are required"})
		return
	}

	chatID := body.ChatID
	if chatID == 0 {
		resolved, found, err := h.clients.GetChatID(ctx, body.ClientID)
		if err != nil {
			h.logger.Error("Failed to resolve client chat id",
				zap.Int64("client_id", body.ClientID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		if !found {
			c.JSON(http.StatusNotFound, gin.H{"error": "client not found"})
			return
		}
		chatID = resolved
	}

	resp, err := h.bot.SendMessage(ctx, chatID, body.Text)
	if err != nil {
		h.logger.Error("Failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if resp.Ok && body.ClientID != 0 {
		if err := h.messages.AppendMessage(ctx, &models.Message{
			ClientID: body.ClientID,
			Text:     body.Text,
			FromType: models.FromUser,
		}); err != nil {
			// The send already succeeded; a failed write must not change the
			// passed-through Bot API response.
			h.logger.Error("Failed to persist outbound message",
				zap.Int64("client_id", body.ClientID), zap.Error(err))
		}
	}

	c.Data(http.StatusOK, "application/json", resp.Body)
}
