package domain

import (
	"context"
	"time"

	"onionsite/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// KVStore is the client-local key-value store the gate and consent records live in.
// SetMany must be atomic from a reader's perspective.
type KVStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	SetMany(ctx context.Context, entries map[string]string) error
	Delete(ctx context.Context, keys ...string) error
}

type RateLimiter interface {
	CheckRateLimit(ctx context.Context, clientID string, limit int, window time.Duration) (bool, error)
}

// StateRepository is a store backend able to serve many clients.
type StateRepository interface {
	KVStore
	RateLimiter
}

type DisclaimerGate interface {
	IsAccepted(ctx context.Context) bool
	Record(ctx context.Context) models.DisclaimerRecord
	RequestAcceptance(ctx context.Context, checked bool) (models.DisclaimerRecord, error)
	RejectPrompt() string
	Reject(prompter Prompter) models.Rejection
}

type ConsentManager interface {
	GetStatus(ctx context.Context) models.ConsentRecord
	GetCategories(ctx context.Context) models.Categories
	AcceptAll(ctx context.Context) (models.ConsentRecord, error)
	RejectAll(ctx context.Context) (models.ConsentRecord, error)
	SaveCustom(ctx context.Context, selections map[models.CategoryID]bool) (models.ConsentRecord, error)
	ApplyPreferences(ctx context.Context, record models.ConsentRecord)
}

// PreferenceToggle is a downstream feature switched by one consent category.
type PreferenceToggle interface {
	Category() models.CategoryID
	Apply(ctx context.Context, enabled bool) error
}

// Prompter asks the user a blocking yes/no question.
type Prompter interface {
	Confirm(message string) bool
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	GetSelf() tgbotapi.User
	StopReceivingUpdates()
}

// TelegramService is what the bot needs from Telegram.
type TelegramService interface {
	SendView(chatID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) error
	EditView(chatID int64, messageID int, text string, keyboard *tgbotapi.InlineKeyboardMarkup) error
	EditKeyboard(chatID int64, messageID int, keyboard tgbotapi.InlineKeyboardMarkup) error
	AnswerCallback(callbackID string, text string) error
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	GetSelf() tgbotapi.User
	StopReceivingUpdates()
}
