package bot

import (
	"strings"

	"onionsite/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Callback data is stateless: the checkbox and the pending selection
// travel inside the button payload.
const (
	cbDisclaimerCheck  = "disclaimer:check:"
	cbDisclaimerAccept = "disclaimer:accept:"
	cbDisclaimerReject = "disclaimer:reject"
	cbDisclaimerLeave  = "disclaimer:leave"
	cbDisclaimerStay   = "disclaimer:stay"

	cbConsentAll       = "consent:all"
	cbConsentNone      = "consent:none"
	cbConsentCustomize = "consent:custom:"
	cbConsentToggle    = "consent:toggle:"
	cbConsentSave      = "consent:save:"
)

func flag(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

// encodeSelection packs the optional categories as "<analytics><preferences>".
func encodeSelection(c models.Categories) string {
	return flag(c.Analytics) + flag(c.Preferences)
}

func decodeSelection(s string) models.Categories {
	c := models.DefaultCategories()
	if len(s) >= 1 {
		c.Analytics = s[0] == '1'
	}
	if len(s) >= 2 {
		c.Preferences = s[1] == '1'
	}
	return c
}

func disclaimerKeyboard(checked bool) tgbotapi.InlineKeyboardMarkup {
	label := labelUnchecked
	if checked {
		label = labelChecked
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, cbDisclaimerCheck+flag(!checked)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(labelAccept, cbDisclaimerAccept+flag(checked)),
			tgbotapi.NewInlineKeyboardButtonData(labelReject, cbDisclaimerReject),
		),
	)
}

func rejectPromptKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(labelLeave, cbDisclaimerLeave),
			tgbotapi.NewInlineKeyboardButtonData(labelStay, cbDisclaimerStay),
		),
	)
}

func bannerKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(labelAcceptAll, cbConsentAll),
			tgbotapi.NewInlineKeyboardButtonData(labelRejectAll, cbConsentNone),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(labelCustomize, cbConsentCustomize+encodeSelection(models.DefaultCategories())),
		),
	)
}

func customizeKeyboard(selection models.Categories) tgbotapi.InlineKeyboardMarkup {
	encoded := encodeSelection(selection)
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(models.CategoryDefinitions)+1)
	for _, def := range models.CategoryDefinitions {
		data := cbConsentToggle + string(def.ID) + ":" + encoded
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(categoryLabel(def.ID, selection.Enabled(def.ID)), data),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(labelSave, cbConsentSave+encoded),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// toggleSelection flips one optional category. Required categories stay on.
func toggleSelection(payload string) models.Categories {
	id, encoded, _ := strings.Cut(payload, ":")
	selection := decodeSelection(encoded)
	def, ok := models.LookupCategory(models.CategoryID(id))
	if !ok || def.Required {
		return selection
	}
	selection.Set(def.ID, !selection.Enabled(def.ID))
	return selection
}

func linksKeyboard(siteURL, contactURL string) *tgbotapi.InlineKeyboardMarkup {
	var row []tgbotapi.InlineKeyboardButton
	if siteURL != "" {
		row = append(row, tgbotapi.NewInlineKeyboardButtonURL(labelWebsite, siteURL))
	}
	if contactURL != "" {
		row = append(row, tgbotapi.NewInlineKeyboardButtonURL(labelContact, contactURL))
	}
	if len(row) == 0 {
		return nil
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(row)
	return &kb
}
