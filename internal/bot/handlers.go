package bot

import (
	"context"
	"errors"
	"strings"

	"onionsite/internal/beacon"
	"onionsite/internal/domain"
	"onionsite/internal/logging"
	"onionsite/internal/models"
	"onionsite/internal/repository"
	"onionsite/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// telegramUserAgent identifies the bot to the redirect planner and the beacon.
const telegramUserAgent = "Telegram"

type fixedAnswer bool

func (a fixedAnswer) Confirm(string) bool { return bool(a) }

// openSite builds the site of user and runs its initialization.
func (b *Bot) openSite(ctx context.Context, user *tgbotapi.User) (*service.Site, *beacon.Tracker, models.View) {
	clientID := clientIDOf(user.ID)

	var tracker *beacon.Tracker
	var toggles []domain.PreferenceToggle
	if b.sender != nil {
		tracker = beacon.NewTracker(
			b.sender,
			repository.Scope(b.sessions, clientID),
			b.config.Beacon.LoadDelay,
			logging.Component(zerolog.Ctx(ctx), "beacon"),
		)
		toggles = append(toggles, tracker)
	}

	site := b.sites.For(clientID, toggles...)
	return site, tracker, site.Initialize(ctx)
}

func (b *Bot) clientInfo(user *tgbotapi.User) models.ClientInfo {
	return models.ClientInfo{
		URL:           b.config.Site.URL,
		UserAgent:     telegramUserAgent,
		Language:      user.LanguageCode,
		CookieEnabled: true,
		Online:        true,
		Platform:      "telegram",
	}
}

func (b *Bot) contactURL() string {
	if b.planner == nil {
		return ""
	}
	plan := b.planner.Plan(telegramUserAgent)
	if len(plan.Steps) == 0 {
		return ""
	}
	// inline buttons only accept web links, so the last step is the one to show
	return plan.Steps[len(plan.Steps)-1].URL
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg == nil {
		return
	}
	if b.metrics != nil {
		b.metrics.MessagesProcessed.Inc()
	}

	if !msg.IsCommand() {
		b.reply(msg.Chat.ID, 0, textUnknown, nil)
		return
	}

	cmd := msg.Command()
	if b.metrics != nil {
		b.metrics.CommandsProcessed.WithLabelValues(cmd).Inc()
	}

	switch cmd {
	case "start":
		b.handleStart(ctx, msg)
	case "help":
		b.reply(msg.Chat.ID, 0, b.helpText(), nil)
	case "settings":
		b.handleSettings(ctx, msg)
	default:
		b.reply(msg.Chat.ID, 0, textUnknown, nil)
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	site, tracker, view := b.openSite(ctx, msg.From)

	if lang := msg.From.LanguageCode; lang != "" {
		if _, err := site.Preferences().Remember(ctx, service.PreferenceLanguage, lang); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("Failed to remember language")
		}
	}
	if tracker != nil {
		tracker.TrackPageView(ctx, b.clientInfo(msg.From))
	}

	b.render(ctx, msg.Chat.ID, 0, view)
}

func (b *Bot) handleSettings(ctx context.Context, msg *tgbotapi.Message) {
	site, _, view := b.openSite(ctx, msg.From)
	if view.ShowsDisclaimer() {
		b.render(ctx, msg.Chat.ID, 0, view)
		return
	}
	kb := customizeKeyboard(site.Consent().GetCategories(ctx))
	b.reply(msg.Chat.ID, 0, textCustomize, &kb)
}

// render shows the surface of view. The banner delay is a browser effect and is not applied here.
func (b *Bot) render(ctx context.Context, chatID int64, messageID int, view models.View) {
	switch view.Surface {
	case models.SurfaceDisclaimer:
		kb := disclaimerKeyboard(false)
		b.reply(chatID, messageID, textDisclaimer, &kb)
	case models.SurfaceConsentBanner:
		kb := bannerKeyboard()
		b.reply(chatID, messageID, textConsentBanner, &kb)
	default:
		b.reply(chatID, messageID, b.welcomeText(), linksKeyboard(b.config.Site.URL, b.contactURL()))
	}
}

// reply edits messageID when set, otherwise sends a new message.
func (b *Bot) reply(chatID int64, messageID int, text string, kb *tgbotapi.InlineKeyboardMarkup) {
	var err error
	if messageID != 0 {
		err = b.tgService.EditView(chatID, messageID, text, kb)
	} else {
		err = b.tgService.SendView(chatID, text, kb)
	}
	if err != nil {
		if b.metrics != nil {
			b.metrics.ErrorsTotal.Inc()
		}
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send message")
	}
}

func (b *Bot) editKeyboard(chatID int64, messageID int, kb tgbotapi.InlineKeyboardMarkup) {
	if err := b.tgService.EditKeyboard(chatID, messageID, kb); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to update keyboard")
	}
}

func (b *Bot) handleCallbackQuery(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	answer := ""
	// Отвечаем на callback в конце, чтобы убрать "часики"
	defer func() {
		if err := b.tgService.AnswerCallback(cq.ID, answer); err != nil {
			b.logger.Debug().Err(err).Msg("Failed to answer callback")
		}
	}()

	if cq.Message == nil {
		return
	}
	chatID := cq.Message.Chat.ID
	messageID := cq.Message.MessageID
	data := cq.Data

	action, _, _ := strings.Cut(data, ":")
	if b.metrics != nil {
		b.metrics.CallbacksProcessed.WithLabelValues(action).Inc()
	}

	site, _, _ := b.openSite(ctx, cq.From)

	switch {
	case strings.HasPrefix(data, cbDisclaimerCheck):
		checked := strings.TrimPrefix(data, cbDisclaimerCheck) == "1"
		b.editKeyboard(chatID, messageID, disclaimerKeyboard(checked))

	case strings.HasPrefix(data, cbDisclaimerAccept):
		checked := strings.TrimPrefix(data, cbDisclaimerAccept) == "1"
		view, err := site.AcceptDisclaimer(ctx, checked)
		switch {
		case errors.Is(err, service.ErrNotConfirmed):
			answer = textConfirmFirst
			return
		case err != nil:
			answer = textSaveFailed
		}
		b.render(ctx, chatID, messageID, view)

	case data == cbDisclaimerReject:
		kb := rejectPromptKeyboard()
		b.reply(chatID, messageID, escapeMarkdown(site.Disclaimer().RejectPrompt()), &kb)

	case data == cbDisclaimerLeave:
		rejection := site.RejectDisclaimer(fixedAnswer(true))
		kb := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL(labelLeave, rejection.RedirectURL),
		))
		b.reply(chatID, messageID, textLeaveGoodbye, &kb)

	case data == cbDisclaimerStay:
		site.RejectDisclaimer(fixedAnswer(false))
		b.render(ctx, chatID, messageID, site.View(ctx))

	case data == cbConsentAll:
		_, view, err := site.AcceptAll(ctx)
		answer = b.consentAnswer(err)
		b.render(ctx, chatID, messageID, view)

	case data == cbConsentNone:
		_, view, err := site.RejectAll(ctx)
		answer = b.consentAnswer(err)
		b.render(ctx, chatID, messageID, view)

	case strings.HasPrefix(data, cbConsentCustomize):
		kb := customizeKeyboard(decodeSelection(strings.TrimPrefix(data, cbConsentCustomize)))
		b.reply(chatID, messageID, textCustomize, &kb)

	case strings.HasPrefix(data, cbConsentToggle):
		b.editKeyboard(chatID, messageID, customizeKeyboard(toggleSelection(strings.TrimPrefix(data, cbConsentToggle))))

	case strings.HasPrefix(data, cbConsentSave):
		selection := decodeSelection(strings.TrimPrefix(data, cbConsentSave))
		_, view, err := site.SaveCustom(ctx, map[models.CategoryID]bool{
			models.CategoryAnalytics:   selection.Analytics,
			models.CategoryPreferences: selection.Preferences,
		})
		answer = b.consentAnswer(err)
		b.render(ctx, chatID, messageID, view)

	default:
		b.logger.Debug().Str("data", data).Msg("Unknown callback")
	}
}

func (b *Bot) consentAnswer(err error) string {
	switch {
	case err == nil:
		return textConsentSaved
	case errors.Is(err, service.ErrGateClosed):
		return textConfirmFirst
	default:
		return textSaveFailed
	}
}
