package bot

import (
	"context"
	"errors"
	"os"
	"strconv"
	"time"

	"onionsite/internal/beacon"
	"onionsite/internal/config"
	"onionsite/internal/domain"
	"onionsite/internal/redirect"
	"onionsite/internal/repository"
	"onionsite/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const updateTimeout = 30 * time.Second

// Bot renders the disclaimer gate and the cookie banner of every Telegram user
// as inline keyboards. Each user is one client of the site core.
type Bot struct {
	tgService domain.TelegramService
	config    *config.Config
	sites     *service.SiteFactory
	store     domain.StateRepository
	sessions  domain.KVStore
	sender    *beacon.Sender
	planner   *redirect.Planner
	metrics   *Metrics
	logger    *zerolog.Logger
}

func NewBot(
	tgService domain.TelegramService,
	config *config.Config,
	sites *service.SiteFactory,
	store domain.StateRepository,
	sender *beacon.Sender,
	planner *redirect.Planner,
	metrics *Metrics,
	logger *zerolog.Logger,
) (*Bot, error) {
	if tgService == nil {
		return nil, errors.New("telegram service is required")
	}
	if sites == nil || store == nil {
		return nil, errors.New("site factory and store are required")
	}

	if logger == nil {
		l := zerolog.New(os.Stdout).With().Timestamp().Logger()
		logger = &l
	}

	return &Bot{
		tgService: tgService,
		config:    config,
		sites:     sites,
		store:     store,
		sessions:  repository.NewMemoryStateRepository(),
		sender:    sender,
		planner:   planner,
		metrics:   metrics,
		logger:    logger,
	}, nil
}

func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.tgService.GetUpdatesChan(u)

	b.logger.Info().Str("username", b.tgService.GetSelf().UserName).Msg("Authorized on account")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info().Msg("Bot stopping...")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.processUpdate(ctx, update)
		}
	}
}

// Stop stops receiving Telegram updates (best-effort).
func (b *Bot) Stop() {
	if b == nil || b.tgService == nil {
		return
	}
	b.tgService.StopReceivingUpdates()
}

func clientIDOf(userID int64) string {
	return strconv.FormatInt(userID, 10)
}

func (b *Bot) processUpdate(ctx context.Context, update tgbotapi.Update) {
	start := time.Now()
	defer func() {
		if b.metrics != nil {
			b.metrics.UpdateProcessingTime.Observe(time.Since(start).Seconds())
		}
	}()

	// Создаем контекст для обработки каждого обновления
	updateCtx, cancel := context.WithTimeout(ctx, updateTimeout)
	defer cancel()

	requestID := uuid.New().String()
	l := b.logger.With().Str("request_id", requestID).Logger()
	updateCtx = l.WithContext(updateCtx)

	b.withRecovery(func() {
		var user *tgbotapi.User
		switch {
		case update.Message != nil:
			user = update.Message.From
		case update.CallbackQuery != nil:
			user = update.CallbackQuery.From
		}
		if user == nil || user.ID == 0 {
			return
		}

		if !b.allow(updateCtx, clientIDOf(user.ID)) {
			l.Warn().Int64("user_id", user.ID).Msg("Rate limit exceeded")
			if update.Message != nil {
				b.reply(update.Message.Chat.ID, 0, textRateLimited, nil)
			}
			return
		}

		if update.CallbackQuery != nil {
			b.handleCallbackQuery(updateCtx, update.CallbackQuery)
			return
		}

		b.handleMessage(updateCtx, update.Message)
	})
}
