package records

import (
	"context"
	"errors"
	"sort"
)

var (
	// ErrInvalidID is returned for identifiers that are not bare filenames of the kind.
	ErrInvalidID = errors.New("invalid record id")
	// ErrNotFound is returned when a record lookup by token or handle has no match.
	ErrNotFound = errors.New("record not found")
)

// Repository persists lead and agreement documents.
//
// Missing or unreadable documents are not errors: Update and Mutate report
// false, Load reports ok=false, LoadAll skips them.
type Repository interface {
	Create(ctx context.Context, kind Kind, doc Document) (string, error)
	Update(ctx context.Context, kind Kind, id string, patch Patch) (bool, error)
	// Mutate runs fn on the current document and persists it when fn returns true.
	// Calls on the same record do not interleave.
	Mutate(ctx context.Context, kind Kind, id string, fn func(Document) bool) (bool, error)
	Load(ctx context.Context, kind Kind, id string) (Document, bool, error)
	LoadAll(ctx context.Context, kind Kind) ([]Document, error)
	IDs(ctx context.Context, kind Kind) ([]string, error)
}

// SortNewestFirst orders documents by filename, then stably by timestamp
// descending, so equal timestamps keep filename order.
func SortNewestFirst(docs []Document) {
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].File() < docs[j].File()
	})
	sort.SliceStable(docs, func(i, j int) bool {
		ti, _ := docs[i].Int64(FieldTimestamp)
		tj, _ := docs[j].Int64(FieldTimestamp)
		return ti > tj
	})
}
