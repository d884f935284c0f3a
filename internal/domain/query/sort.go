package query

import (
	"sort"
	"strings"
	"time"

	"github.com/politifan/school-peaky-minds/internal/domain/records"
)

// Sort keys.
const (
	SortDate   = "date"
	SortName   = "name"
	SortCourse = "course"
	SortStatus = "status"
)

var statusRank = map[string]int{
	records.StatusNew:           0,
	records.StatusContacted:     1,
	records.StatusQualified:     2,
	records.StatusCallScheduled: 3,
	records.StatusPaid:          4,
	records.StatusLost:          5,
	records.StatusInProgress:    2,
	records.StatusClosed:        6,
	records.StatusArchived:      7,
}

const unknownStatusRank = 3

type lessFunc func(a, b records.Document) bool

// Sort orders docs in place by key. Unknown keys, and "status" on agreements,
// fall back to date. order "asc" sorts ascending, anything else descending.
func Sort(docs []records.Document, kind records.Kind, key, order string, now time.Time) {
	less := sortKey(kind, key, now)
	if order == "asc" {
		sort.SliceStable(docs, func(i, j int) bool { return less(docs[i], docs[j]) })
		return
	}
	sort.SliceStable(docs, func(i, j int) bool { return less(docs[j], docs[i]) })
}

func sortKey(kind records.Kind, key string, now time.Time) lessFunc {
	switch key {
	case SortName:
		field := kind.NameField()
		return func(a, b records.Document) bool {
			return strings.ToLower(a.String(field)) < strings.ToLower(b.String(field))
		}
	case SortCourse:
		return func(a, b records.Document) bool {
			return strings.ToLower(a.String(records.FieldCourse)) < strings.ToLower(b.String(records.FieldCourse))
		}
	case SortStatus:
		if kind == records.KindLead {
			return func(a, b records.Document) bool {
				ra, rb := rank(a, now), rank(b, now)
				if ra != rb {
					return ra < rb
				}
				return timestamp(a) < timestamp(b)
			}
		}
	}
	return func(a, b records.Document) bool { return timestamp(a) < timestamp(b) }
}

func rank(doc records.Document, now time.Time) int {
	if r, ok := statusRank[records.LeadStatuses.Derive(doc, now)]; ok {
		return r
	}
	return unknownStatusRank
}

func timestamp(doc records.Document) int64 {
	ts, _ := doc.Int64(records.FieldTimestamp)
	return ts
}
