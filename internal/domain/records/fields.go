package records

import (
	"regexp"
	"strings"
)

var (
	tagSeparator = regexp.MustCompile(`[,\n]+`)
	dateInput    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// NormalizeTags splits on commas and newlines, trims, drops blanks and joins with ", ".
func NormalizeTags(v any) string {
	var raw string
	switch val := v.(type) {
	case nil:
		return ""
	case []string:
		raw = strings.Join(val, ",")
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, stringify(item))
		}
		raw = strings.Join(parts, ",")
	default:
		raw = stringify(val)
	}
	var tags []string
	for _, part := range tagSeparator.Split(raw, -1) {
		if part = strings.TrimSpace(part); part != "" {
			tags = append(tags, part)
		}
	}
	return strings.Join(tags, ", ")
}

// IsDateInput reports whether s has the YYYY-MM-DD shape.
func IsDateInput(s string) bool {
	return dateInput.MatchString(s)
}

// MetaPatch builds the patch for lead tags, note and next contact date. Empty
// values and malformed dates remove the field.
func MetaPatch(tags, note, nextContact string) Patch {
	patch := Patch{
		FieldTags: NormalizeTags(tags),
		FieldNote: strings.TrimSpace(note),
	}
	nextContact = strings.TrimSpace(nextContact)
	if IsDateInput(nextContact) {
		patch[FieldNextContact] = nextContact
	} else {
		patch[FieldNextContact] = nil
	}
	return patch
}

// AmountPatch sets the parsed amount or removes it when the input is not a number.
func AmountPatch(raw string) Patch {
	if amount, ok := ParseAmount(raw); ok {
		return Patch{FieldAmount: amount}
	}
	return Patch{FieldAmount: nil}
}
