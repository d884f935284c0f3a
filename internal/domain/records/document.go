// Package records defines the lead and agreement documents, their identifiers and
// the soft status model shared by the admin panel and the bot.
package records

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Field names shared by both kinds.
const (
	FieldFile            = "_file"
	FieldTimestamp       = "timestamp"
	FieldStatus          = "status"
	FieldStatusUpdatedAt = "status_updated_at"
	FieldCourse          = "course"
	FieldUser            = "user"

	FieldName        = "name"
	FieldContact     = "contact"
	FieldPage        = "page"
	FieldTags        = "tags"
	FieldNote        = "note"
	FieldNextContact = "next_contact"

	FieldFullName          = "full_name"
	FieldPhone             = "phone"
	FieldEmail             = "email"
	FieldTelegram          = "telegram"
	FieldAmount            = "amount"
	FieldContractToken     = "contract_token"
	FieldContractStatus    = "contract_status"
	FieldContractChannel   = "contract_channel"
	FieldContractSentAt    = "contract_sent_at"
	FieldContractSignedAt  = "contract_signed_at"
	FieldContractEmailOver = "contract_email_override"
)

// Document is a stored record. Values keep whatever shape the JSON decoder
// produced; numbers are json.Number when read through DecodeDocument.
type Document map[string]any

// Patch is a set of field changes. A nil or empty-string value removes the key.
type Patch map[string]any

// DecodeDocument parses a JSON object, keeping numbers exact.
func DecodeDocument(data []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("document is not an object")
	}
	return doc, nil
}

// File returns the injected filename, empty for documents not read from a store.
func (d Document) File() string {
	return d.String(FieldFile)
}

// String returns the field as text. Missing and null values give "".
func (d Document) String(key string) string {
	return stringify(d[key])
}

// Int64 returns the field as an integer when it holds a number or numeric text.
func (d Document) Int64(key string) (int64, bool) {
	return toInt64(d[key])
}

// Timestamp returns the creation time in epoch seconds. Zero counts as absent.
func (d Document) Timestamp() (int64, bool) {
	ts, ok := d.Int64(FieldTimestamp)
	if !ok || ts == 0 {
		return 0, false
	}
	return ts, true
}

// Clone returns a shallow copy.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Apply merges a patch in place.
func (d Document) Apply(patch Patch) {
	for key, value := range patch {
		if isEmptyValue(value) {
			delete(d, key)
			continue
		}
		d[key] = value
	}
}

// WithoutFile returns a copy without the injected filename, ready to persist.
func (d Document) WithoutFile() Document {
	out := d.Clone()
	delete(out, FieldFile)
	return out
}

func isEmptyValue(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	}
	return false
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}

func toInt64(v any) (int64, bool) {
	switch val := v.(type) {
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return n, true
		}
		if f, err := val.Float64(); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return int64(f), true
		}
	case float64:
		if !math.IsNaN(val) && !math.IsInf(val, 0) {
			return int64(val), true
		}
	case int:
		return int64(val), true
	case int64:
		return val, true
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64); err == nil {
			return n, true
		}
	}
	return 0, false
}
