package query

import (
	"sort"
	"strings"
	"time"

	"github.com/politifan/school-peaky-minds/internal/domain/records"
	"github.com/politifan/school-peaky-minds/internal/domain/reporting"
)

// Views of the admin panel.
const (
	ViewOverview   = "overview"
	ViewLeads      = "leads"
	ViewAgreements = "agreements"
	ViewUsers      = "users"
	ViewWhitelist  = "whitelist"
)

var views = map[string]bool{
	ViewOverview: true, ViewLeads: true, ViewAgreements: true, ViewUsers: true, ViewWhitelist: true,
}

// Params are the admin list query parameters after lenient parsing.
type Params struct {
	View           string
	Course         string
	From           Date
	To             Date
	Q              string
	Status         string
	Source         string
	Sort           string
	Order          string
	Limit          PageSize
	LeadsPage      int
	AgreementsPage int
}

// ParseParams reads Params through get, typically gin's c.Query. Malformed
// values fall back to defaults.
func ParseParams(get func(string) string) Params {
	p := Params{
		View:           get("view"),
		Course:         get("course"),
		From:           ParseDate(get("date_from")),
		To:             ParseDate(get("date_to")),
		Q:              strings.TrimSpace(get("q")),
		Status:         get("status"),
		Source:         get("source"),
		Sort:           get("sort"),
		Order:          get("order"),
		Limit:          ParseLimit(get("limit")),
		LeadsPage:      ParsePage(get("leads_page")),
		AgreementsPage: ParsePage(get("agreements_page")),
	}
	if !views[p.View] {
		p.View = ViewOverview
	}
	if p.Sort == "" {
		p.Sort = SortDate
	}
	if p.Order == "" {
		p.Order = "desc"
	}
	if p.Status != "" && !records.LeadStatuses.Contains(p.Status) {
		p.Status = ""
	}
	return p
}

// Item is a listed record with its derived presentation fields.
type Item struct {
	Record      records.Document `json:"record"`
	Status      string           `json:"status"`
	StatusLabel string           `json:"status_label"`
	Manual      string           `json:"manual_status,omitempty"`
	Source      string           `json:"source,omitempty"`
}

// Listing is one kind's list view.
type Listing struct {
	Kind         records.Kind      `json:"kind"`
	Items        []Item            `json:"items"`
	Count        int               `json:"count"`
	BaseCount    int               `json:"base_count"`
	Page         int               `json:"page"`
	TotalPages   int               `json:"total_pages"`
	Window       []int             `json:"window"`
	StatusCounts []reporting.Count `json:"status_counts,omitempty"`
	SourceCounts []reporting.Count `json:"source_counts,omitempty"`
	Pipeline     []reporting.Step  `json:"pipeline,omitempty"`
}

// Run filters, searches, sorts and paginates docs. For leads it also annotates
// traffic sources, counts statuses and sources before the status and source
// filters, and builds the pipeline of what remains.
func Run(kind records.Kind, docs []records.Document, p Params, now time.Time) Listing {
	loc := now.Location()
	vocab := kind.Vocabulary()

	filtered := Filter(docs, p.Course, p.From, p.To, loc)
	filtered = Search(filtered, p.Q, kind.SearchFields())

	items := make([]Item, 0, len(filtered))
	for _, doc := range filtered {
		status := vocab.Derive(doc, now)
		item := Item{
			Record:      doc,
			Status:      status,
			StatusLabel: vocab.Label(status),
			Manual:      strings.TrimSpace(doc.String(records.FieldStatus)),
		}
		if kind == records.KindLead {
			item.Source = reporting.Source(doc.String(records.FieldPage))
		}
		items = append(items, item)
	}

	out := Listing{Kind: kind, BaseCount: len(items)}
	page := p.AgreementsPage
	if kind == records.KindLead {
		page = p.LeadsPage
		statuses := make(map[string]int, len(items))
		sources := reporting.NewCounter()
		for _, item := range items {
			statuses[item.Status]++
			sources.Add(item.Source)
		}
		for _, key := range records.LeadStatuses.Keys() {
			out.StatusCounts = append(out.StatusCounts, reporting.Count{Key: key, Count: statuses[key]})
		}
		out.SourceCounts = sources.Top(0)

		items = keep(items, func(it Item) bool {
			return (p.Status == "" || it.Status == p.Status) && (p.Source == "" || it.Source == p.Source)
		})

		remaining := make([]records.Document, len(items))
		for i, it := range items {
			remaining[i] = it.Record
		}
		out.Pipeline = reporting.Pipeline(remaining, now)
	}

	less := sortKey(kind, p.Sort, now)
	if p.Order == "asc" {
		sort.SliceStable(items, func(i, j int) bool { return less(items[i].Record, items[j].Record) })
	} else {
		sort.SliceStable(items, func(i, j int) bool { return less(items[j].Record, items[i].Record) })
	}

	out.Count = len(items)
	pg := Paginate(items, page, p.Limit)
	out.Items, out.Page, out.TotalPages = pg.Items, pg.Page, pg.TotalPages
	out.Window = PageWindow(pg.Page, pg.TotalPages, 2)
	return out
}

func keep(items []Item, pred func(Item) bool) []Item {
	out := items[:0:0]
	for _, it := range items {
		if pred(it) {
			out = append(out, it)
		}
	}
	return out
}
