package user

import (
	"regexp"
	"strconv"
	"strings"
)

// DefaultAdminID is the identity that must always be on the whitelist.
const DefaultAdminID int64 = 1547353132

// DefaultWhitelist seeds a fresh whitelist file.
var DefaultWhitelist = []int64{980343575, 1065558838, DefaultAdminID}

var idSeparator = regexp.MustCompile(`[,\n ]+`)

// Whitelist is the ordered list of Telegram ids allowed to use the bot. Every
// entry except the last may open the admin panel.
type Whitelist []int64

// ParseIDs extracts integer ids from free text, dropping anything non-numeric.
func ParseIDs(blob string) []int64 {
	var ids []int64
	for _, part := range idSeparator.Split(strings.TrimSpace(blob), -1) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// Normalize guarantees admin is present and not last. A missing admin goes in
// second-to-last when there are at least two entries; an admin sitting last
// swaps with its neighbour. An empty list falls back to DefaultWhitelist. The
// second result reports whether the list changed.
func Normalize(ids []int64, admin int64) (Whitelist, bool) {
	if len(ids) == 0 {
		out := make(Whitelist, len(DefaultWhitelist))
		copy(out, DefaultWhitelist)
		return Normalize(out, admin)
	}
	out := make(Whitelist, len(ids))
	copy(out, ids)
	if !out.Contains(admin) {
		if len(out) >= 2 {
			last := out[len(out)-1]
			out = append(out[:len(out)-1], admin, last)
		} else {
			out = append(out, admin)
		}
		return out, true
	}
	if n := len(out); n >= 2 && out[n-1] == admin {
		out[n-1], out[n-2] = out[n-2], out[n-1]
		return out, true
	}
	return out, false
}

// Contains reports whether id is on the list.
func (w Whitelist) Contains(id int64) bool {
	for _, v := range w {
		if v == id {
			return true
		}
	}
	return false
}

// Admins returns every entry except the last, or the whole list when it has at
// most one entry.
func (w Whitelist) Admins() []int64 {
	if len(w) <= 1 {
		return append([]int64(nil), w...)
	}
	return append([]int64(nil), w[:len(w)-1]...)
}

// IsAdmin reports whether id is in the admin set.
func (w Whitelist) IsAdmin(id int64) bool {
	for _, v := range w.Admins() {
		if v == id {
			return true
		}
	}
	return false
}

// Without returns a copy with every occurrence of id removed.
func (w Whitelist) Without(id int64) Whitelist {
	out := make(Whitelist, 0, len(w))
	for _, v := range w {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// Strings renders the ids for display.
func (w Whitelist) Strings() []string {
	out := make([]string, len(w))
	for i, v := range w {
		out[i] = strconv.FormatInt(v, 10)
	}
	return out
}
