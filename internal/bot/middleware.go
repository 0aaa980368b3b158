package bot

import (
	"context"
	"time"
)

func (b *Bot) withRecovery(handler func()) {
	defer func() {
		if r := recover(); r != nil {
			if b.metrics != nil {
				b.metrics.ErrorsTotal.Inc()
			}
			b.logger.Error().Interface("panic", r).Msg("Recovered from panic in update handler")
		}
	}()
	handler()
}

// allow applies the per-user rate limit. Limiter errors let the update through.
func (b *Bot) allow(ctx context.Context, clientID string) bool {
	if b.store == nil {
		return true
	}
	window := time.Duration(b.config.Bot.RateLimitWindow) * time.Second
	allowed, err := b.store.CheckRateLimit(ctx, clientID, b.config.Bot.RateLimitMessages, window)
	if err != nil {
		b.logger.Error().Err(err).Str("client_id", clientID).Msg("Rate limit check failed")
		return true
	}
	if !allowed && b.metrics != nil {
		b.metrics.RateLimited.Inc()
	}
	return allowed
}
