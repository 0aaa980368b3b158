package bot

import (
	"fmt"
	"strings"

	"onionsite/internal/models"
)

const (
	textDisclaimer = "*Disclaimer*\n\n" +
		"This service is provided for informational purposes only. " +
		"By continuing you confirm that you are of legal age in your jurisdiction " +
		"and that you accept full responsibility for how you use it.\n\n" +
		"Tick the box below and press *Accept* to continue."
	textConfirmFirst  = "Please tick the confirmation box first."
	textConsentBanner = "*Cookies*\n\n" +
		"We use essential cookies to make this service work. " +
		"With your permission we also use analytics cookies to understand usage " +
		"and preference cookies to remember your settings."
	textCustomize    = "*Cookie settings*\n\nEssential cookies are always on. Choose the rest:"
	textRateLimited  = "⚠️ You are sending messages too often. Please wait a little."
	textUnknown      = "Unknown command. Send /help to see what I can do."
	textSaveFailed   = "⚠️ Your choice applies now but could not be saved. You may be asked again later."
	textConsentSaved = "✅ Cookie preferences saved."
	textLeaveGoodbye = "Goodbye."
	labelChecked     = "☑️ I have read and accept the disclaimer"
	labelUnchecked   = "⬜ I have read and accept the disclaimer"
	labelAccept      = "Accept"
	labelReject      = "Reject"
	labelLeave       = "Leave"
	labelStay        = "Stay"
	labelAcceptAll   = "Accept all"
	labelRejectAll   = "Reject all"
	labelCustomize   = "Customize"
	labelSave        = "Save preferences"
	labelWebsite     = "🌐 Website"
	labelContact     = "💬 Contact us on Telegram"
)

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

func (b *Bot) welcomeText() string {
	msg := "Welcome to " + escapeMarkdown(b.appName()) + "!"
	if b.config.Site.URL != "" {
		msg += "\n\nVisit our website: " + escapeMarkdown(b.config.Site.URL)
	}
	return msg
}

func (b *Bot) helpText() string {
	var sb strings.Builder
	sb.WriteString("Available commands:\n")
	sb.WriteString("/start - Start using the bot\n")
	sb.WriteString("/settings - Change cookie preferences\n")
	sb.WriteString("/help - Show this help message")
	if b.config.Site.URL != "" {
		sb.WriteString("\n\nVisit our website: ")
		sb.WriteString(escapeMarkdown(b.config.Site.URL))
	}
	return sb.String()
}

func (b *Bot) appName() string {
	if b.config.App.Name == "" {
		return "onionsite"
	}
	return b.config.App.Name
}

func categoryLabel(id models.CategoryID, enabled bool) string {
	mark := "⬜"
	if enabled {
		mark = "☑️"
	}
	def, _ := models.LookupCategory(id)
	suffix := ""
	if def.Required {
		suffix = " (required)"
	}
	return fmt.Sprintf("%s %s%s", mark, strings.ToUpper(string(id[:1]))+string(id[1:]), suffix)
}
