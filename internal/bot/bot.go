package bot

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/xaenox/jobpost-bot/internal/conversation"
	"github.com/xaenox/jobpost-bot/internal/models"
	"go.uber.org/zap"
)

// Sender is the part of the Telegram API the bot writes to.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Handler receives chat events translated from Telegram updates.
type Handler interface {
	HandleMessage(ctx context.Context, in conversation.Inbound) error
	HandleAction(ctx context.Context, act conversation.Action) error
	Reset(ctx context.Context, chatID int64) (bool, error)
}

// DraftLister lists saved drafts for the /drafts command.
type DraftLister interface {
	ListDrafts(ctx context.Context) ([]models.Draft, error)
}

// maxListedDrafts caps the /drafts reply.
const maxListedDrafts = 5

type Bot struct {
	api     *tgbotapi.BotAPI
	sender  Sender
	handler Handler
	drafts  DraftLister
	queues  *chatQueues
	workers sync.WaitGroup
	logger  *zap.Logger
}

func New(token string, drafts DraftLister, logger *zap.Logger) (*Bot, error) {
	return NewWithClient(token, tgbotapi.APIEndpoint, &http.Client{}, drafts, logger)
}

// NewWithClient talks to apiEndpoint through client instead of the default
// Telegram endpoint and HTTP client.
func NewWithClient(token, apiEndpoint string, client tgbotapi.HTTPClient, drafts DraftLister, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPIWithClient(token, apiEndpoint, client)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	logger.Info("Authorized on Telegram", zap.String("username", api.Self.UserName))

	return &Bot{
		api:    api,
		sender: api,
		drafts: drafts,
		queues: newChatQueues(),
		logger: logger,
	}, nil
}

// Start polls for updates and hands them to h until ctx is cancelled.
// Updates of one chat are handled in arrival order; chats run concurrently.
func (b *Bot) Start(ctx context.Context, h Handler) error {
	b.handler = h

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	defer b.workers.Wait()

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.enqueue(ctx, update)
		}
	}
}

func (b *Bot) enqueue(ctx context.Context, update tgbotapi.Update) {
	chatID := updateChatID(update)
	if chatID == 0 {
		// Nothing to order against; still answer stray callbacks.
		b.workers.Add(1)
		go func() {
			defer b.workers.Done()
			b.handleUpdate(ctx, update)
		}()
		return
	}

	if !b.queues.push(chatID, update) {
		return
	}
	b.workers.Add(1)
	go func() {
		defer b.workers.Done()
		b.drain(ctx, chatID)
	}()
}

func (b *Bot) drain(ctx context.Context, chatID int64) {
	for {
		update, ok := b.queues.next(chatID)
		if !ok {
			return
		}
		b.handleUpdate(ctx, update)
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	if message.From == nil || message.From.IsBot || message.Chat == nil {
		return
	}

	if message.IsCommand() {
		b.handleCommand(ctx, message)
		return
	}

	content := message.Text
	if message.Caption != "" {
		content = message.Caption
	}
	if content == "" {
		return
	}

	err := b.handler.HandleMessage(ctx, conversation.Inbound{
		ChatID: message.Chat.ID,
		UserID: message.From.ID,
		Text:   content,
	})
	if err != nil {
		b.logger.Error("Failed to handle message",
			zap.Error(err),
			zap.Int64("chat_id", message.Chat.ID),
			zap.Int64("user_id", message.From.ID))
		b.sendErrorMessage(message.Chat.ID, "Sorry, something went wrong. Please try again.")
	}
}

func (b *Bot) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	// Telegram keeps the button spinner running until the query is answered.
	if _, err := b.sender.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		b.logger.Warn("Failed to answer callback query", zap.Error(err), zap.String("query_id", query.ID))
	}

	if query.From == nil || query.Message == nil || query.Message.Chat == nil {
		return
	}

	chatID := query.Message.Chat.ID
	err := b.handler.HandleAction(ctx, conversation.Action{
		ChatID:   chatID,
		UserID:   query.From.ID,
		ActionID: query.Data,
	})
	if err != nil {
		b.logger.Error("Failed to handle button click",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
			zap.Int64("user_id", query.From.ID),
			zap.String("action", query.Data))
		b.sendErrorMessage(chatID, "Sorry, something went wrong. Please try again.")
	}
}

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	switch message.Command() {
	case "start":
		b.handleStart(message)
	case "help":
		b.handleHelp(message)
	case "cancel":
		b.handleCancel(ctx, message)
	case "drafts":
		b.handleDrafts(ctx, message)
	default:
		b.sendMessage(message.Chat.ID, "Unknown command. Use /help to see available commands.")
	}
}

func (b *Bot) handleStart(message *tgbotapi.Message) {
	welcome := `Welcome to JobPost Bot! 💼
I turn hiring requests into ready-to-publish job postings.

Tell me who you're looking for, e.g. "I need a backend developer", and I'll ask for anything that's missing.
Use /help to see all available commands.`

	b.sendMessage(message.Chat.ID, welcome)
}

func (b *Bot) handleHelp(message *tgbotapi.Message) {
	help := `Available commands:
/start - Start the bot
/help - Show this help message
/cancel - Discard the job posting in progress
/drafts - Show the latest saved drafts

I collect these details before writing the posting:
- Job title
- Experience
- Skills
- Job type
- Location

Once everything is in place you can post it to LinkedIn, save it as a draft, edit it, or drop it.`

	b.sendMessage(message.Chat.ID, help)
}

func (b *Bot) handleCancel(ctx context.Context, message *tgbotapi.Message) {
	existed, err := b.handler.Reset(ctx, message.Chat.ID)
	if err != nil {
		b.logger.Error("Failed to reset conversation",
			zap.Error(err),
			zap.Int64("chat_id", message.Chat.ID))
		b.sendErrorMessage(message.Chat.ID, "Sorry, I couldn't cancel the conversation. Please try again.")
		return
	}

	if !existed {
		b.sendMessage(message.Chat.ID, "There is nothing to cancel.")
		return
	}
	b.sendMessage(message.Chat.ID, "❌ Job posting cancelled. Send new job details whenever you're ready.")
}

func (b *Bot) handleDrafts(ctx context.Context, message *tgbotapi.Message) {
	if b.drafts == nil {
		b.sendMessage(message.Chat.ID, "Drafts are not available.")
		return
	}

	drafts, err := b.drafts.ListDrafts(ctx)
	if err != nil {
		b.logger.Error("Failed to list drafts",
			zap.Error(err),
			zap.Int64("chat_id", message.Chat.ID))
		b.sendErrorMessage(message.Chat.ID, "Sorry, I couldn't load the drafts. Please try again later.")
		return
	}

	if len(drafts) == 0 {
		b.sendMessage(message.Chat.ID, "There are no saved drafts yet.")
		return
	}

	b.sendMessage(message.Chat.ID, formatDrafts(drafts))
}

// formatDrafts lists the newest drafts first.
func formatDrafts(drafts []models.Draft) string {
	var sb strings.Builder
	sb.WriteString("💾 Saved drafts:")

	shown := 0
	for i := len(drafts) - 1; i >= 0 && shown < maxListedDrafts; i-- {
		d := drafts[i]
		title, ok := d.Entities.Get(models.AttrJobTitle)
		if !ok {
			title = "Untitled"
		}
		fmt.Fprintf(&sb, "\n• %s", title)
		if location, ok := d.Entities.Get(models.AttrLocation); ok {
			fmt.Fprintf(&sb, ", %s", location)
		}
		fmt.Fprintf(&sb, " (Job ID: %s, %s)", d.ID, d.CreatedAt.Format("2006-01-02"))
		shown++
	}

	if rest := len(drafts) - shown; rest > 0 {
		fmt.Fprintf(&sb, "\n…and %d more", rest)
	}
	return sb.String()
}

// Send delivers an engine reply, rendering its buttons as an inline keyboard.
func (b *Bot) Send(_ context.Context, chatID int64, reply models.Reply) error {
	msg := tgbotapi.NewMessage(chatID, reply.Text)
	if len(reply.Buttons) > 0 {
		msg.ReplyMarkup = keyboard(reply.Buttons)
	}

	if _, err := b.sender.Send(msg); err != nil {
		return fmt.Errorf("send message to chat %d: %w", chatID, err)
	}
	return nil
}

func keyboard(buttons []models.Button) tgbotapi.InlineKeyboardMarkup {
	row := make([]tgbotapi.InlineKeyboardButton, 0, len(buttons))
	for _, btn := range buttons {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(styled(btn), btn.ActionID))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

// Telegram has no button styles, so the style becomes an emoji prefix.
func styled(btn models.Button) string {
	switch btn.Style {
	case "primary":
		return "✅ " + btn.Label
	case "danger":
		return "❌ " + btn.Label
	default:
		return btn.Label
	}
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.sender.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendErrorMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, "⚠️ "+text)
	if _, err := b.sender.Send(msg); err != nil {
		b.logger.Error("Failed to send error message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}
