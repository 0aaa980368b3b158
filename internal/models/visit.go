package models

// ClientInfo is what the host environment knows about the visitor.
type ClientInfo struct {
	URL            string `json:"url"`
	Referrer       string `json:"referrer"`
	UserAgent      string `json:"user_agent"`
	Language       string `json:"language"`
	ScreenWidth    int    `json:"screen_width"`
	ScreenHeight   int    `json:"screen_height"`
	ViewportWidth  int    `json:"viewport_width"`
	ViewportHeight int    `json:"viewport_height"`
	Timezone       string `json:"timezone"`
	CookieEnabled  bool   `json:"cookie_enabled"`
	Online         bool   `json:"online"`
	Platform       string `json:"platform"`
}

// Visit is the JSON descriptor posted by the analytics beacon.
type Visit struct {
	Timestamp      string `json:"timestamp"`
	URL            string `json:"url"`
	Referrer       string `json:"referrer"`
	UserAgent      string `json:"userAgent"`
	Language       string `json:"language"`
	ScreenWidth    int    `json:"screenWidth"`
	ScreenHeight   int    `json:"screenHeight"`
	ViewportWidth  int    `json:"viewportWidth"`
	ViewportHeight int    `json:"viewportHeight"`
	Timezone       string `json:"timezone"`
	CookieEnabled  bool   `json:"cookieEnabled"`
	Online         bool   `json:"online"`
	Platform       string `json:"platform"`
	SessionID      string `json:"sessionId"`
	Event          string `json:"event,omitempty"`
}

// Beacon event labels. Page views are sent without an event field.
const (
	EventPageView   = "page_view"
	EventPageUnload = "page_unload"
)
