package beacon

import (
	"context"
	"fmt"
	"strings"
	"time"

	"onionsite/internal/domain"
	"onionsite/internal/models"

	"github.com/google/uuid"
	"golang.org/x/text/language"
)

const sessionPrefix = "session_"

// NewSessionID returns session_<unix ms>_<9 random chars>.
func NewSessionID(now time.Time) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("%s%d_%s", sessionPrefix, now.UnixMilli(), random[:9])
}

// SessionID returns the stored session id, creating it on first use.
// When the store is unavailable a fresh id is returned without being kept.
func SessionID(ctx context.Context, store domain.KVStore, now time.Time) (string, error) {
	id, ok, err := store.Get(ctx, models.KeyVisitorSessionID)
	if err != nil {
		return NewSessionID(now), fmt.Errorf("read session id: %w", err)
	}
	if ok && strings.HasPrefix(id, sessionPrefix) {
		return id, nil
	}

	id = NewSessionID(now)
	if err := store.Set(ctx, models.KeyVisitorSessionID, id); err != nil {
		return id, fmt.Errorf("store session id: %w", err)
	}
	return id, nil
}

// CanonicalLanguage normalizes a browser language to a BCP 47 tag.
// Unparseable values are passed through unchanged.
func CanonicalLanguage(raw string) string {
	if raw == "" {
		return ""
	}
	tag, err := language.Parse(raw)
	if err != nil {
		return raw
	}
	return tag.String()
}

// Collect builds the visit descriptor for info.
func Collect(info models.ClientInfo, sessionID string, now time.Time) models.Visit {
	referrer := info.Referrer
	if referrer == "" {
		referrer = "direct"
	}
	return models.Visit{
		Timestamp:      now.UTC().Format(models.TimestampLayout),
		URL:            info.URL,
		Referrer:       referrer,
		UserAgent:      info.UserAgent,
		Language:       CanonicalLanguage(info.Language),
		ScreenWidth:    info.ScreenWidth,
		ScreenHeight:   info.ScreenHeight,
		ViewportWidth:  info.ViewportWidth,
		ViewportHeight: info.ViewportHeight,
		Timezone:       info.Timezone,
		CookieEnabled:  info.CookieEnabled,
		Online:         info.Online,
		Platform:       info.Platform,
		SessionID:      sessionID,
	}
}
