// Package bot is the Telegram front end for operators: lead cards with status
// keyboards, lookup and edit commands, and new-record notifications.
package bot

import (
	"fmt"
	"html"
	"net/url"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/politifan/school-peaky-minds/internal/domain/records"
)

const (
	emptyValue   = "—"
	defaultEmoji = "📌"
	cardTime     = "02.01.2006 15:04"
)

var statusEmoji = map[string]string{
	records.StatusNew:           "🆕",
	records.StatusContacted:     "📞",
	records.StatusQualified:     "✅",
	records.StatusCallScheduled: "📅",
	records.StatusPaid:          "💰",
	records.StatusLost:          "❌",
	records.StatusInProgress:    "⏳",
	records.StatusClosed:        "📦",
	records.StatusArchived:      "🗄",
	records.StatusAuto:          "🤖",
}

var buttonRows = [][]string{
	{records.StatusNew, records.StatusContacted, records.StatusQualified},
	{records.StatusCallScheduled, records.StatusPaid, records.StatusLost},
	{records.StatusInProgress, records.StatusClosed, records.StatusArchived},
	{records.StatusAuto},
}

func emojiFor(status string) string {
	if e, ok := statusEmoji[status]; ok {
		return e
	}
	return defaultEmoji
}

func orDash(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return emptyValue
	}
	return s
}

// NormalizePhone keeps digits, rewrites a leading 8 of an 11-digit number to 7
// and prefixes "+". Input without digits gives "".
func NormalizePhone(raw string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)
	if digits == "" {
		return ""
	}
	if len(digits) == 11 && digits[0] == '8' {
		digits = "7" + digits[1:]
	}
	return "+" + digits
}

// TelLink is the tel: URI of a contact, empty without digits.
func TelLink(raw string) string {
	if phone := NormalizePhone(raw); phone != "" {
		return "tel:" + phone
	}
	return ""
}

// WhatsAppLink is the wa.me URL of a contact, empty without digits.
func WhatsAppLink(raw string) string {
	if phone := NormalizePhone(raw); phone != "" {
		return "https://wa.me/" + strings.TrimPrefix(phone, "+")
	}
	return ""
}

// ParseTags reads operator tag input. '#' marks are dropped; commas, semicolons
// and newlines separate tags.
func ParseTags(raw string) string {
	raw = strings.ReplaceAll(raw, "#", " ")
	split := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ';' || r == '\n' })
	var tags []string
	for _, part := range split {
		if part = strings.TrimSpace(part); part != "" {
			tags = append(tags, part)
		}
	}
	return strings.Join(tags, ", ")
}

// hashtags renders stored tags as "#a #b".
func hashtags(stored string) string {
	tags := ParseTags(stored)
	if tags == "" {
		return ""
	}
	var out []string
	for _, tag := range strings.Split(tags, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, "#"+tag)
		}
	}
	return strings.Join(out, " ")
}

func formatTime(doc records.Document, loc *time.Location) string {
	ts, ok := doc.Timestamp()
	if !ok || ts == 0 {
		return emptyValue
	}
	return time.Unix(ts, 0).In(loc).Format(cardTime)
}

// AdminURL links the lead search in the admin panel, or "" without a base URL.
func AdminURL(baseURL string, doc records.Document) string {
	if baseURL == "" {
		return ""
	}
	q := strings.TrimSpace(doc.String(records.FieldContact))
	if q == "" {
		q = strings.TrimSpace(doc.String(records.FieldName))
	}
	if q == "" {
		return baseURL + "/admin?view=leads"
	}
	return baseURL + "/admin?view=leads&q=" + url.QueryEscape(q)
}

// LeadCard renders the HTML card of a lead at now.
func LeadCard(doc records.Document, now time.Time) string {
	status := records.LeadStatuses.Derive(doc, now)
	contact := orDash(doc.String(records.FieldContact))

	title := "🧾 <b>Заявка</b>"
	if status == records.StatusNew {
		title = "🆕 <b>Новая заявка</b>"
	}
	lines := []string{
		title,
		fmt.Sprintf("🆔 <b>ID:</b> <code>%s</code>", html.EscapeString(records.ShortID(doc.File()))),
		fmt.Sprintf("%s <b>Статус:</b> %s", emojiFor(status), records.LeadStatuses.Label(status)),
		fmt.Sprintf("🕒 <b>Время:</b> %s", formatTime(doc, now.Location())),
		"",
		"<b>Контакт</b>",
		"👤 " + html.EscapeString(orDash(doc.String(records.FieldName))),
		"📱 " + html.EscapeString(contact),
		"🎯 " + html.EscapeString(orDash(doc.String(records.FieldCourse))),
		"",
		"<b>Источник</b>",
		"🔗 " + html.EscapeString(orDash(doc.String(records.FieldPage))),
	}
	if tags := hashtags(doc.String(records.FieldTags)); tags != "" {
		lines = append(lines, "🏷 <b>Теги:</b> "+html.EscapeString(tags))
	}
	if note := strings.TrimSpace(doc.String(records.FieldNote)); note != "" {
		lines = append(lines, "📝 <b>Заметка:</b> "+html.EscapeString(note))
	}
	if next := strings.TrimSpace(doc.String(records.FieldNextContact)); next != "" {
		lines = append(lines, "📅 <b>След. контакт:</b> "+html.EscapeString(next))
	}

	var actions []string
	if link := TelLink(contact); link != "" {
		actions = append(actions, fmt.Sprintf(`<a href="%s">📞 Позвонить</a>`, link))
	}
	if link := WhatsAppLink(contact); link != "" {
		actions = append(actions, fmt.Sprintf(`<a href="%s">💬 WhatsApp</a>`, link))
	}
	if len(actions) > 0 {
		lines = append(lines, "", "<b>Быстрые действия</b>", strings.Join(actions, " | "))
	}
	return strings.Join(lines, "\n")
}

// CallbackData addresses a status button: lead:<file>:<status>.
func CallbackData(file, status string) string {
	return "lead:" + file + ":" + status
}

// StatusKeyboard renders the status buttons of a lead with selected marked.
func StatusKeyboard(file, selected, adminURL string) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(buttonRows)+1)
	for _, keys := range buttonRows {
		row := make([]tgbotapi.InlineKeyboardButton, 0, len(keys))
		for _, key := range keys {
			label := records.LeadStatuses.Label(key)
			if key == selected {
				label = "✅ " + label
			}
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(emojiFor(key)+" "+label, CallbackData(file, key)))
		}
		rows = append(rows, row)
	}
	if adminURL != "" {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL("🧭 Открыть в админке", adminURL)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// AgreementText is the notification for a new enrollment.
func AgreementText(doc records.Document) string {
	field := func(key string) string {
		return html.EscapeString(orDash(doc.String(key)))
	}
	return strings.Join([]string{
		"✅ <b>Заявка на покупку курса</b>",
		"🎯 <b>Курс:</b> " + field(records.FieldCourse),
		"👤 <b>ФИО:</b> " + field(records.FieldFullName),
		"📞 <b>Телефон:</b> " + field(records.FieldPhone),
		"✉️ <b>Email:</b> " + field(records.FieldEmail),
		"💬 <b>Telegram:</b> " + field(records.FieldTelegram),
	}, "\n")
}
