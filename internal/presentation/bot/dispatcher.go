package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/politifan/school-peaky-minds/internal/application/services"
	"github.com/politifan/school-peaky-minds/internal/domain/records"
	"github.com/politifan/school-peaky-minds/internal/infrastructure/observability/logging"
	"github.com/politifan/school-peaky-minds/internal/infrastructure/observability/performance"
	"github.com/politifan/school-peaky-minds/pkg/clock"
)

const (
	defaultLeadCount = 5
	maxLeadCount     = 20
	maxFindResults   = 10
)

// Messenger sends Bot API requests. *telegram.Client satisfies it.
type Messenger interface {
	Send(msg tgbotapi.Chattable) error
	Request(req tgbotapi.Chattable) error
}

// Dispatcher routes updates from whitelisted operators to command handlers.
type Dispatcher struct {
	records     *services.RecordService
	access      *services.AccessService
	messenger   Messenger
	baseURL     string
	clock       clock.Clock
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewDispatcher creates a dispatcher. baseURL enables the admin panel button.
func NewDispatcher(
	recordService *services.RecordService,
	access *services.AccessService,
	messenger Messenger,
	baseURL string,
	clk clock.Clock,
	logger *logging.ChanneledLogger,
	perfTracker *performance.Tracker,
) *Dispatcher {
	return &Dispatcher{
		records:     recordService,
		access:      access,
		messenger:   messenger,
		baseURL:     strings.TrimRight(baseURL, "/"),
		clock:       clk,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

// HandleUpdate processes one message or callback. Updates from users outside
// the whitelist are dropped silently.
func (d *Dispatcher) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		cb := update.CallbackQuery
		if cb.From == nil || !d.access.Allowed(ctx, cb.From.ID) {
			return
		}
		if strings.HasPrefix(cb.Data, "lead:") {
			d.handleStatusCallback(ctx, cb)
		}
	case update.Message != nil && update.Message.IsCommand():
		msg := update.Message
		if msg.From == nil || !d.access.Allowed(ctx, msg.From.ID) {
			if msg.From != nil {
				d.logger.Bot().Info("Ignored command from non-whitelisted user", "userId", msg.From.ID, "command", msg.Command())
			}
			return
		}
		d.handleCommand(ctx, msg)
	}
}

func (d *Dispatcher) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	command := msg.Command()
	marker := d.perfTracker.StartOperation("bot_command", command)
	defer marker.Complete()
	d.logger.Bot().Debug("Received command", "command", command, "userId", msg.From.ID)

	args := strings.TrimSpace(msg.CommandArguments())
	chatID := msg.Chat.ID
	switch command {
	case "start":
		d.reply(chatID, startText)
	case "help":
		d.reply(chatID, helpText)
	case "leads":
		d.cmdLeads(ctx, chatID, args)
	case "lead":
		d.cmdLead(ctx, chatID, args)
	case "find":
		d.cmdFind(ctx, chatID, args)
	case "status":
		d.cmdStatus(ctx, chatID, args)
	case "note":
		d.cmdNote(ctx, chatID, args)
	case "tags":
		d.cmdTags(ctx, chatID, args)
	case "next":
		d.cmdNext(ctx, chatID, args)
	case "stats":
		d.cmdStats(ctx, chatID)
	default:
		marker.SetSuccess(false)
	}
}

// splitArg separates the first word from the rest.
func splitArg(args string) (string, string) {
	args = strings.TrimSpace(args)
	i := strings.IndexFunc(args, unicode.IsSpace)
	if i < 0 {
		return args, ""
	}
	return args[:i], strings.TrimSpace(args[i:])
}

func (d *Dispatcher) cmdLeads(ctx context.Context, chatID int64, args string) {
	limit := defaultLeadCount
	if args != "" {
		if n, err := strconv.Atoi(args); err == nil {
			limit = n
		}
	}
	limit = max(1, min(limit, maxLeadCount))

	leads, err := d.records.List(ctx, records.KindLead)
	if err != nil {
		d.logger.Bot().Error("Failed to load leads", "error", err.Error())
		return
	}
	if len(leads) == 0 {
		d.reply(chatID, "Заявок пока нет.")
		return
	}
	if len(leads) > limit {
		leads = leads[:limit]
	}
	for _, lead := range leads {
		d.sendCard(chatID, lead)
	}
}

func (d *Dispatcher) cmdLead(ctx context.Context, chatID int64, args string) {
	if args == "" {
		d.reply(chatID, "Использование: /lead &lt;id&gt;")
		return
	}
	lead, ok := d.findLead(ctx, args)
	if !ok {
		d.reply(chatID, "Заявка не найдена.")
		return
	}
	d.sendCard(chatID, lead)
}

func (d *Dispatcher) cmdFind(ctx context.Context, chatID int64, args string) {
	if args == "" {
		d.reply(chatID, "Использование: /find &lt;текст&gt;")
		return
	}
	needle := strings.ToLower(args)
	leads, err := d.records.List(ctx, records.KindLead)
	if err != nil {
		d.logger.Bot().Error("Failed to load leads", "error", err.Error())
		return
	}
	var hits []records.Document
	for _, lead := range leads {
		haystack := strings.ToLower(strings.Join([]string{
			lead.String(records.FieldName),
			lead.String(records.FieldContact),
			lead.String(records.FieldCourse),
			lead.String(records.FieldPage),
		}, " "))
		if strings.Contains(haystack, needle) {
			hits = append(hits, lead)
		}
		if len(hits) >= maxFindResults {
			break
		}
	}
	if len(hits) == 0 {
		d.reply(chatID, "Ничего не найдено.")
		return
	}
	now := d.clock.Now()
	lines := []string{"🔎 <b>Найденные заявки</b>"}
	for _, lead := range hits {
		status := records.LeadStatuses.Derive(lead, now)
		lines = append(lines, fmt.Sprintf("%s <code>%s</code> — %s (%s) — %s",
			emojiFor(status),
			html.EscapeString(records.ShortID(lead.File())),
			html.EscapeString(orDash(lead.String(records.FieldName))),
			html.EscapeString(orDash(lead.String(records.FieldContact))),
			records.LeadStatuses.Label(status),
		))
	}
	lines = append(lines, "\nОткрыть карточку: /lead <code>&lt;id&gt;</code>")
	d.reply(chatID, strings.Join(lines, "\n"))
}

func (d *Dispatcher) cmdStatus(ctx context.Context, chatID int64, args string) {
	token, raw := splitArg(args)
	if raw == "" {
		d.reply(chatID, "Использование: /status &lt;id&gt; &lt;статус&gt;")
		return
	}
	status, err := records.LeadStatuses.Parse(raw)
	if err != nil {
		d.reply(chatID, "Неизвестный статус. Пример: /status abcd1234 contacted")
		return
	}
	lead, ok := d.findLead(ctx, token)
	if !ok {
		d.reply(chatID, "Заявка не найдена.")
		return
	}
	updated, err := d.records.SetStatus(ctx, records.KindLead, lead.File(), status.String())
	if err != nil || !updated {
		d.reply(chatID, "Не удалось обновить статус.")
		return
	}
	d.reply(chatID, "Статус обновлён: "+records.LeadStatuses.Label(status.String()))
}

// updateField handles the /note, /tags and /next family.
func (d *Dispatcher) updateField(ctx context.Context, chatID int64, args, usage string, apply func(value string) (records.Patch, string), done, failed string) {
	token, value := splitArg(args)
	if value == "" {
		d.reply(chatID, usage)
		return
	}
	lead, ok := d.findLead(ctx, token)
	if !ok {
		d.reply(chatID, "Заявка не найдена.")
		return
	}
	patch, rejection := apply(value)
	if rejection != "" {
		d.reply(chatID, rejection)
		return
	}
	updated, err := d.records.UpdateLead(ctx, lead.File(), patch)
	if err != nil || !updated {
		d.reply(chatID, failed)
		return
	}
	d.reply(chatID, done)
}

func (d *Dispatcher) cmdNote(ctx context.Context, chatID int64, args string) {
	d.updateField(ctx, chatID, args, "Использование: /note &lt;id&gt; &lt;текст&gt;",
		func(v string) (records.Patch, string) {
			return records.Patch{records.FieldNote: v}, ""
		},
		"Заметка обновлена.", "Не удалось обновить заметку.")
}

func (d *Dispatcher) cmdTags(ctx context.Context, chatID int64, args string) {
	d.updateField(ctx, chatID, args, "Использование: /tags &lt;id&gt; &lt;теги через запятую&gt;",
		func(v string) (records.Patch, string) {
			return records.Patch{records.FieldTags: ParseTags(v)}, ""
		},
		"Теги обновлены.", "Не удалось обновить теги.")
}

func (d *Dispatcher) cmdNext(ctx context.Context, chatID int64, args string) {
	d.updateField(ctx, chatID, args, "Использование: /next &lt;id&gt; &lt;YYYY-MM-DD&gt;",
		func(v string) (records.Patch, string) {
			if utf8.RuneCountInString(v) != 10 {
				return nil, "Некорректная дата. Пример: 2026-02-05"
			}
			return records.Patch{records.FieldNextContact: v}, ""
		},
		"Дата следующего контакта обновлена.", "Не удалось обновить дату.")
}

func (d *Dispatcher) cmdStats(ctx context.Context, chatID int64) {
	leads, err := d.records.List(ctx, records.KindLead)
	if err != nil {
		d.logger.Bot().Error("Failed to load leads", "error", err.Error())
		return
	}
	now := d.clock.Now()
	counts := make(map[string]int)
	for _, lead := range leads {
		counts[records.LeadStatuses.Derive(lead, now)]++
	}
	lines := []string{"📊 <b>Статусы заявок</b>", fmt.Sprintf("Всего: <b>%d</b>", len(leads)), ""}
	for _, key := range records.LeadStatuses.Keys() {
		lines = append(lines, fmt.Sprintf("%s %s: <b>%d</b>", emojiFor(key), records.LeadStatuses.Label(key), counts[key]))
	}
	d.reply(chatID, strings.Join(lines, "\n"))
}

func (d *Dispatcher) handleStatusCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	marker := d.perfTracker.StartOperation("bot_callback", "status")
	defer marker.Complete()

	parts := strings.Split(cb.Data, ":")
	if len(parts) != 3 {
		d.answer(cb.ID, "Ошибка данных.", true)
		return
	}
	file, key := parts[1], parts[2]
	if key != records.StatusAuto && !records.LeadStatuses.Contains(key) {
		d.answer(cb.ID, "Неизвестный статус.", true)
		return
	}
	updated, err := d.records.SetStatus(ctx, records.KindLead, file, key)
	if err != nil && !errors.Is(err, records.ErrInvalidID) {
		d.logger.Bot().Error("Failed to update lead status", "id", file, "error", err.Error())
	}
	if err != nil || !updated {
		marker.SetSuccess(false)
		d.answer(cb.ID, "Заявка не найдена.", true)
		return
	}

	if cb.Message != nil && cb.Message.Chat != nil {
		if lead, ok, err := d.records.Load(ctx, records.KindLead, file); err == nil && ok {
			lead[records.FieldFile] = file
			status := records.LeadStatuses.Derive(lead, d.clock.Now())
			edit := tgbotapi.NewEditMessageTextAndMarkup(cb.Message.Chat.ID, cb.Message.MessageID,
				LeadCard(lead, d.clock.Now()), StatusKeyboard(file, status, AdminURL(d.baseURL, lead)))
			edit.ParseMode = tgbotapi.ModeHTML
			edit.DisableWebPagePreview = true
			if err := d.messenger.Send(edit); err != nil {
				d.logger.Bot().Debug("Failed to refresh lead card", "id", file, "error", err.Error())
			}
		}
	}
	d.answer(cb.ID, "Статус обновлён: "+records.LeadStatuses.Label(key), false)
}

// findLead resolves an operator handle: a full filename, a "lead_" stem, or
// a fragment matching exactly one filename.
func (d *Dispatcher) findLead(ctx context.Context, token string) (records.Document, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, false
	}
	load := func(id string) (records.Document, bool) {
		if !records.KindLead.ValidID(id) {
			return nil, false
		}
		doc, ok, err := d.records.Load(ctx, records.KindLead, id)
		if err != nil || !ok {
			return nil, false
		}
		doc[records.FieldFile] = id
		return doc, true
	}
	switch {
	case strings.HasSuffix(token, ".json"):
		return load(token)
	case strings.HasPrefix(token, records.KindLead.Prefix()):
		if doc, ok := load(token + ".json"); ok {
			return doc, true
		}
		return load(token)
	}
	ids, err := d.records.IDs(ctx, records.KindLead)
	if err != nil {
		d.logger.Bot().Error("Failed to list leads", "error", err.Error())
		return nil, false
	}
	var match string
	for _, id := range ids {
		if strings.Contains(strings.TrimSuffix(id, ".json"), token) {
			if match != "" {
				return nil, false
			}
			match = id
		}
	}
	if match == "" {
		return nil, false
	}
	return load(match)
}

func (d *Dispatcher) sendCard(chatID int64, lead records.Document) {
	status := records.LeadStatuses.Derive(lead, d.clock.Now())
	msg := tgbotapi.NewMessage(chatID, LeadCard(lead, d.clock.Now()))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	msg.ReplyMarkup = StatusKeyboard(lead.File(), status, AdminURL(d.baseURL, lead))
	if err := d.messenger.Send(msg); err != nil {
		d.logger.Bot().Error("Failed to send lead card", "chatId", chatID, "error", err.Error())
	}
}

func (d *Dispatcher) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if err := d.messenger.Send(msg); err != nil {
		d.logger.Bot().Error("Failed to send reply", "chatId", chatID, "error", err.Error())
	}
}

func (d *Dispatcher) answer(callbackID, text string, alert bool) {
	cfg := tgbotapi.NewCallback(callbackID, text)
	if alert {
		cfg = tgbotapi.NewCallbackWithAlert(callbackID, text)
	}
	if err := d.messenger.Request(cfg); err != nil {
		d.logger.Bot().Warn("Failed to answer callback", "error", err.Error())
	}
}
