package query

import (
	"strconv"
	"strings"
)

// DefaultPageSize applies when limit cannot be parsed.
const DefaultPageSize = 20

// PageSize is the number of items per page; 0 disables pagination.
type PageSize int

// ParseLimit reads the limit parameter: "all" and "0" disable paging, numbers
// clamp to at least 1, a missing or unparseable value gives DefaultPageSize.
func ParseLimit(raw string) PageSize {
	raw = strings.TrimSpace(raw)
	switch strings.ToLower(raw) {
	case "":
		return DefaultPageSize
	case "all", "0":
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return DefaultPageSize
	}
	if n < 1 {
		n = 1
	}
	return PageSize(n)
}

// ParsePage reads a 1-based page number, defaulting to 1.
func ParsePage(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// Page is one slice of a paginated list.
type Page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	TotalPages int `json:"totalPages"`
}

// Paginate cuts items into pages of size. page is clamped into [1, TotalPages].
func Paginate[T any](items []T, page int, size PageSize) Page[T] {
	if size <= 0 {
		return Page[T]{Items: items, Page: 1, TotalPages: 1}
	}
	per := int(size)
	total := (len(items) + per - 1) / per
	if total < 1 {
		total = 1
	}
	if page < 1 {
		page = 1
	}
	if page > total {
		page = total
	}
	start := (page - 1) * per
	end := start + per
	if start > len(items) {
		start = len(items)
	}
	if end > len(items) {
		end = len(items)
	}
	return Page[T]{Items: items[start:end], Page: page, TotalPages: total}
}

// Ellipsis marks a gap in a page window.
const Ellipsis = 0

// PageWindow lists page numbers around current with span neighbours on each
// side, always including the first and last page and Ellipsis for gaps.
func PageWindow(current, total, span int) []int {
	if total <= 1 {
		return []int{1}
	}
	start := max(1, current-span)
	end := min(total, current+span)
	var pages []int
	if start > 1 {
		pages = append(pages, 1)
		if start > 2 {
			pages = append(pages, Ellipsis)
		}
	}
	for p := start; p <= end; p++ {
		pages = append(pages, p)
	}
	if end < total {
		if end < total-1 {
			pages = append(pages, Ellipsis)
		}
		pages = append(pages, total)
	}
	return pages
}
