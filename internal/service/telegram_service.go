package service

import (
	"errors"
	"strings"

	"onionsite/internal/domain"
	"onionsite/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramService sends the site surfaces as Markdown messages with inline keyboards.
type TelegramService struct {
	bot domain.TelegramSender
}

func NewTelegramService(bot domain.TelegramSender) *TelegramService {
	return &TelegramService{
		bot: bot,
	}
}

// SendView posts a new Markdown message. keyboard may be nil.
func (s *TelegramService) SendView(chatID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = models.ParseModeMarkdown
	msg.DisableWebPagePreview = true
	if keyboard != nil {
		msg.ReplyMarkup = *keyboard
	}
	_, err := s.bot.Send(msg)
	return err
}

// EditView replaces the text and keyboard of a message the bot sent earlier.
// Re-rendering an unchanged surface is not an error.
func (s *TelegramService) EditView(chatID int64, messageID int, text string, keyboard *tgbotapi.InlineKeyboardMarkup) error {
	msg := tgbotapi.NewEditMessageText(chatID, messageID, text)
	msg.ParseMode = models.ParseModeMarkdown
	msg.DisableWebPagePreview = true
	msg.ReplyMarkup = keyboard
	_, err := s.bot.Send(msg)
	return ignoreNotModified(err)
}

// EditKeyboard swaps only the inline keyboard, e.g. after a checkbox tick.
func (s *TelegramService) EditKeyboard(chatID int64, messageID int, keyboard tgbotapi.InlineKeyboardMarkup) error {
	_, err := s.bot.Send(tgbotapi.NewEditMessageReplyMarkup(chatID, messageID, keyboard))
	return ignoreNotModified(err)
}

func (s *TelegramService) AnswerCallback(callbackID, text string) error {
	_, err := s.bot.Request(tgbotapi.NewCallback(callbackID, text))
	return err
}

func (s *TelegramService) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return s.bot.GetUpdatesChan(config)
}

func (s *TelegramService) GetSelf() tgbotapi.User {
	return s.bot.GetSelf()
}

func (s *TelegramService) StopReceivingUpdates() {
	s.bot.StopReceivingUpdates()
}

// Telegram отвечает 400, если текст и клавиатура не изменились
func ignoreNotModified(err error) error {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) && strings.Contains(apiErr.Message, "message is not modified") {
		return nil
	}
	return err
}
