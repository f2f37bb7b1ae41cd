// Package telegram runs the Telegram bot transport. Each chat maps to one
// session, so a chat's turns are serialized by the service queue.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/pachico/pachico/internal/config"
	"github.com/pachico/pachico/pkg/agent"
)

const maxMessageLength = 4096

const typingRefreshInterval = 4 * time.Second

const apologyMessage = "Sorry, something went wrong. Please try again."

const startMessage = "Hey! I'm Pachico, your personal nutrition assistant.\n\n" +
	"Tell me what you ate, ask for charts, or export your food log.\n" +
	"Type /help for examples."

const helpMessage = "Here's what I can do:\n\n" +
	"Log food: \"I had 2 eggs and toast for breakfast\"\n" +
	"Review data: \"How many calories did I eat today?\"\n" +
	"Charts: \"Show me a calorie chart for this week\"\n" +
	"Export: \"Export my food log as CSV\"\n"

// Invoker processes one user turn. The service implements it.
type Invoker interface {
	Invoke(ctx context.Context, sessionID, userText string) (agent.TurnResult, error)
}

// Bot represents the Telegram bot instance
type Bot struct {
	api     *tgbotapi.BotAPI
	invoker Invoker
	logger  zerolog.Logger

	running bool
	updates tgbotapi.UpdatesChannel
}

// New creates a new Telegram bot instance
func New(cfg *config.TelegramConfig, invoker Invoker, logger zerolog.Logger) (*Bot, error) {
	if cfg == nil {
		return nil, fmt.Errorf("telegram config is required")
	}
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("bot token is required")
	}
	if invoker == nil {
		return nil, fmt.Errorf("invoker is required")
	}

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}

	bot := &Bot{
		api:     api,
		invoker: invoker,
		logger:  logger.With().Str("component", "telegram").Logger(),
	}

	bot.logger.Info().
		Str("username", api.Self.UserName).
		Int64("id", api.Self.ID).
		Msg("Telegram bot authenticated")

	return bot, nil
}

// Start starts the bot and begins processing updates
func (b *Bot) Start() error {
	if b.running {
		return fmt.Errorf("bot is already running")
	}

	b.logger.Info().Msg("Starting Telegram bot")

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	b.updates = b.api.GetUpdatesChan(u)
	b.running = true

	go b.processUpdates()

	return nil
}

// Stop stops the bot
func (b *Bot) Stop() error {
	if !b.running {
		return fmt.Errorf("bot is not running")
	}

	b.logger.Info().Msg("Stopping Telegram bot")

	b.running = false
	b.api.StopReceivingUpdates()

	return nil
}

func (b *Bot) processUpdates() {
	for update := range b.updates {
		if !b.running {
			break
		}

		if err := b.handleUpdate(update); err != nil {
			b.logger.Error().
				Err(err).
				Int("update_id", update.UpdateID).
				Msg("Failed to handle update")
		}
	}
}

func (b *Bot) handleUpdate(update tgbotapi.Update) error {
	if update.Message == nil || update.Message.Text == "" {
		return nil
	}

	if update.Message.IsCommand() {
		return b.handleCommand(update.Message)
	}

	return b.handleMessage(update.Message)
}

func (b *Bot) handleCommand(msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.sendText(msg.Chat.ID, startMessage)
	case "help":
		return b.sendText(msg.Chat.ID, helpMessage)
	default:
		return b.sendText(msg.Chat.ID, "Unknown command. Type /help for what I can do.")
	}
}

// handleMessage runs the turn while a typing indicator refreshes every few
// seconds, then delivers artifacts and the chunked text reply.
func (b *Bot) handleMessage(msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	sessionID := strconv.FormatInt(chatID, 10)

	stopTyping := make(chan struct{})
	go b.typingLoop(chatID, stopTyping)
	defer close(stopTyping)

	result, err := b.invoker.Invoke(context.Background(), sessionID, msg.Text)
	if err != nil {
		b.logger.Error().
			Int64("chat_id", chatID).
			Err(err).
			Msg("Turn failed")
		return b.sendText(chatID, apologyMessage)
	}

	for _, path := range result.ArtifactPaths {
		if err := b.sendArtifact(chatID, path); err != nil {
			b.logger.Warn().
				Int64("chat_id", chatID).
				Str("path", path).
				Err(err).
				Msg("Failed to send artifact")
		}
	}

	if result.Text != "" {
		for _, chunk := range chunkText(result.Text, maxMessageLength) {
			if err := b.sendText(chatID, chunk); err != nil {
				return err
			}
		}
	}

	return nil
}

func (b *Bot) typingLoop(chatID int64, stop <-chan struct{}) {
	ticker := time.NewTicker(typingRefreshInterval)
	defer ticker.Stop()

	b.sendTyping(chatID)
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			b.sendTyping(chatID)
		}
	}
}

func (b *Bot) sendTyping(chatID int64) {
	action := tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)
	if _, err := b.api.Request(action); err != nil {
		b.logger.Debug().Int64("chat_id", chatID).Err(err).Msg("Failed to send chat action")
	}
}

// sendArtifact delivers a chart as a photo and a CSV export as a document.
func (b *Bot) sendArtifact(chatID int64, path string) error {
	file := tgbotapi.FilePath(path)

	var err error
	if strings.HasSuffix(path, ".png") {
		_, err = b.api.Send(tgbotapi.NewPhoto(chatID, file))
	} else {
		_, err = b.api.Send(tgbotapi.NewDocument(chatID, file))
	}
	return err
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// chunkText splits text into pieces no longer than limit.
func chunkText(text string, limit int) []string {
	if limit <= 0 || len(text) <= limit {
		return []string{text}
	}

	var chunks []string
	for len(text) > limit {
		chunks = append(chunks, text[:limit])
		text = text[limit:]
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}
