package records

import (
	"errors"
	"strings"
	"time"
)

// ErrUnknownStatus is returned when a status outside the vocabulary is requested.
var ErrUnknownStatus = errors.New("unknown status")

// Status keys.
const (
	StatusNew           = "new"
	StatusContacted     = "contacted"
	StatusQualified     = "qualified"
	StatusCallScheduled = "call_scheduled"
	StatusPaid          = "paid"
	StatusLost          = "lost"
	StatusInProgress    = "in_progress"
	StatusClosed        = "closed"
	StatusArchived      = "archived"

	StatusSigned   = "signed"
	StatusReview   = "review"
	StatusCanceled = "canceled"

	StatusAuto = "auto"
)

// Status is either a manual override or automatic derivation from age.
type Status interface {
	isStatus()
	String() string
}

// Manual is a status set explicitly by an operator.
type Manual struct{ Value string }

// Auto defers to the age rule.
type Auto struct{}

func (Manual) isStatus()        {}
func (m Manual) String() string { return m.Value }
func (Auto) isStatus()          {}
func (Auto) String() string     { return StatusAuto }

// Vocabulary is an ordered set of manual statuses with display labels.
type Vocabulary struct {
	keys   []string
	labels map[string]string
}

// LeadStatuses is the lead vocabulary in display order.
var LeadStatuses = Vocabulary{
	keys: []string{
		StatusNew, StatusContacted, StatusQualified, StatusCallScheduled, StatusPaid,
		StatusLost, StatusInProgress, StatusClosed, StatusArchived,
	},
	labels: map[string]string{
		StatusNew:           "Новая",
		StatusContacted:     "Связались",
		StatusQualified:     "Квалифицирован",
		StatusCallScheduled: "Созвон",
		StatusPaid:          "Оплачен",
		StatusLost:          "Потерян",
		StatusInProgress:    "В работе",
		StatusClosed:        "Закрыта",
		StatusArchived:      "Архив",
	},
}

// AgreementStatuses is the agreement vocabulary in display order.
var AgreementStatuses = Vocabulary{
	keys: []string{StatusSigned, StatusPaid, StatusReview, StatusCanceled},
	labels: map[string]string{
		StatusSigned:   "Подписан",
		StatusPaid:     "Оплачен",
		StatusReview:   "На проверке",
		StatusCanceled: "Отменён",
	},
}

// AutoLabel is shown for the automatic pseudo-status.
const AutoLabel = "Авто"

// Keys returns the statuses in display order.
func (v Vocabulary) Keys() []string {
	out := make([]string, len(v.keys))
	copy(out, v.keys)
	return out
}

// Contains reports whether key is a manual status of this vocabulary.
func (v Vocabulary) Contains(key string) bool {
	_, ok := v.labels[key]
	return ok
}

// Label returns the display label. Age-derived keys fall back to the lead labels.
func (v Vocabulary) Label(key string) string {
	if label, ok := v.labels[key]; ok {
		return label
	}
	if label, ok := LeadStatuses.labels[key]; ok {
		return label
	}
	if key == StatusAuto {
		return AutoLabel
	}
	return key
}

// Parse turns operator input into a Status. "auto", "clear", "reset" and ""
// select Auto.
func (v Vocabulary) Parse(raw string) (Status, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	switch key {
	case "", StatusAuto, "clear", "reset":
		return Auto{}, nil
	}
	if v.Contains(key) {
		return Manual{Value: key}, nil
	}
	return nil, ErrUnknownStatus
}

// Stored returns the status recorded on a document. Unrecognized values read as Auto.
func (v Vocabulary) Stored(doc Document) Status {
	manual := strings.TrimSpace(doc.String(FieldStatus))
	if v.Contains(manual) {
		return Manual{Value: manual}
	}
	return Auto{}
}

// Derive computes the effective status at now.
func (v Vocabulary) Derive(doc Document, now time.Time) string {
	if m, ok := v.Stored(doc).(Manual); ok {
		return m.Value
	}
	return AgeStatus(doc, now)
}

// AgeStatus applies the age rule: up to a day "new", up to a week "in_progress",
// older or undated "archived".
func AgeStatus(doc Document, now time.Time) string {
	ts, ok := doc.Timestamp()
	if !ok {
		return StatusArchived
	}
	age := now.Sub(time.Unix(ts, 0))
	switch {
	case age <= 24*time.Hour:
		return StatusNew
	case age <= 7*24*time.Hour:
		return StatusInProgress
	default:
		return StatusArchived
	}
}

// StatusPatch converts a status change into a patch. Leads stamp the change time
// so response time can be measured; Auto clears both fields.
func StatusPatch(kind Kind, status Status, now time.Time) Patch {
	switch s := status.(type) {
	case Manual:
		patch := Patch{FieldStatus: s.Value}
		if kind == KindLead {
			patch[FieldStatusUpdatedAt] = now.Unix()
		}
		return patch
	default:
		patch := Patch{FieldStatus: nil}
		if kind == KindLead {
			patch[FieldStatusUpdatedAt] = nil
		}
		return patch
	}
}
