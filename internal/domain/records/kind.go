package records

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Kind selects the record collection.
type Kind string

const (
	KindLead      Kind = "lead"
	KindAgreement Kind = "agreement"
)

// Kinds lists every collection in storage order.
var Kinds = []Kind{KindLead, KindAgreement}

// Valid reports whether k names a known collection.
func (k Kind) Valid() bool {
	return k == KindLead || k == KindAgreement
}

// Dir is the storage directory name of this kind.
func (k Kind) Dir() string {
	return string(k) + "s"
}

// Prefix is the filename prefix of records of this kind.
func (k Kind) Prefix() string {
	return string(k) + "_"
}

// NewID builds the identifier `<kind>_<epoch>_<suffix>.json`.
func (k Kind) NewID(epoch int64, suffix string) string {
	return fmt.Sprintf("%s_%d_%s.json", k, epoch, suffix)
}

// ValidID reports whether id is a bare filename of this kind. Form-posted ids
// pass through here before touching storage.
func (k Kind) ValidID(id string) bool {
	if id == "" || id != filepath.Base(id) || strings.ContainsAny(id, `/\`) {
		return false
	}
	return strings.HasPrefix(id, k.Prefix()) && strings.HasSuffix(id, ".json") && len(id) > len(k.Prefix())+len(".json")
}

// SearchFields are the fields matched by free-text search.
func (k Kind) SearchFields() []string {
	if k == KindAgreement {
		return []string{FieldFullName, FieldPhone, FieldEmail, FieldTelegram, FieldCourse}
	}
	return []string{FieldName, FieldContact, FieldCourse, FieldPage}
}

// Vocabulary returns the manual statuses accepted for this kind.
func (k Kind) Vocabulary() Vocabulary {
	if k == KindAgreement {
		return AgreementStatuses
	}
	return LeadStatuses
}

// NameField is the field used by the "name" sort key.
func (k Kind) NameField() string {
	if k == KindAgreement {
		return FieldFullName
	}
	return FieldName
}

// ShortID is the random suffix of an identifier, used as a human handle in the bot.
func ShortID(id string) string {
	if id == "" {
		return ""
	}
	stem := strings.TrimSuffix(filepath.Base(id), filepath.Ext(id))
	parts := strings.Split(stem, "_")
	if len(parts) >= 3 {
		return parts[len(parts)-1]
	}
	if len(stem) > 8 {
		return stem[len(stem)-8:]
	}
	return stem
}
