package models

import "time"

// Ключи клиентского хранилища
const (
	KeyDisclaimerAccepted  = "disclaimer_accepted"
	KeyDisclaimerTimestamp = "disclaimer_timestamp"
	KeyCookieConsent       = "cookie_consent"
	KeyCookiePreferences   = "cookie_preferences"
	KeyVisitorSessionID    = "visitor_session_id"

	// PreferenceKeyPrefix префикс значений категории preferences
	PreferenceKeyPrefix = "pref:"
)

const (
	ParseModeMarkdown = "Markdown"
	ParseModeHTML     = "HTML"
)

// TimestampLayout matches the ISO-8601 form browsers produce with toISOString.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

const (
	// DefaultRedisTTL время жизни клиентских записей в Redis (0 = без срока)
	DefaultRedisTTL = 0

	// DefaultBannerDelay задержка перед показом баннера cookies
	DefaultBannerDelay = 100 * time.Millisecond

	// DefaultBeaconLoadDelay задержка отправки page view после загрузки
	DefaultBeaconLoadDelay = time.Second

	// DefaultBeaconPort порт сервера трекинга
	DefaultBeaconPort = 8080

	// DefaultBeaconTimeout таймаут отправки одного beacon
	DefaultBeaconTimeout = 5 * time.Second

	// DefaultRedirectClickDelay задержка визуального отклика кнопки
	DefaultRedirectClickDelay = 200 * time.Millisecond

	// DefaultRedirectFallbackDelay задержка перехода на веб-версию, если приложение не открылось
	DefaultRedirectFallbackDelay = 2 * time.Second

	// DefaultRejectURL куда уходит пользователь, отказавшийся от дисклеймера
	DefaultRejectURL = "https://www.google.com"

	// DisclaimerRejectMessage текст блокирующего запроса при отказе
	DisclaimerRejectMessage = "You must accept the disclaimer to use this service."

	// RateLimitMessages количество сообщений в окне
	RateLimitMessages = 20

	// RateLimitWindow окно ограничения частоты сообщений
	RateLimitWindow = 60 // 1 минута в секундах
)
