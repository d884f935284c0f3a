package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"

	"github.com/politifan/school-peaky-minds/internal/domain/analytics"
	"github.com/politifan/school-peaky-minds/internal/domain/query"
	"github.com/politifan/school-peaky-minds/internal/domain/records"
	"github.com/politifan/school-peaky-minds/internal/domain/reporting"
	"github.com/politifan/school-peaky-minds/internal/domain/user"
	"github.com/politifan/school-peaky-minds/internal/infrastructure/observability/logging"
	"github.com/politifan/school-peaky-minds/internal/infrastructure/observability/performance"
	"github.com/politifan/school-peaky-minds/pkg/clock"
)

// UserRow is one account in the users view.
type UserRow struct {
	ID       string `json:"id"`
	Provider string `json:"provider"`
	Email    string `json:"email"`
	Name     string `json:"name"`
}

// StatusOption is a selectable status with its label.
type StatusOption struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// WhitelistView is the whitelist with its admin subset.
type WhitelistView struct {
	IDs    []int64 `json:"ids"`
	Admins []int64 `json:"admins"`
}

// Overview is the admin panel payload.
type Overview struct {
	View              string              `json:"view"`
	Dashboard         reporting.Dashboard `json:"dashboard"`
	Leads             query.Listing       `json:"leads"`
	Agreements        query.Listing       `json:"agreements"`
	Users             []UserRow           `json:"users"`
	Whitelist         WhitelistView       `json:"whitelist"`
	LeadStatuses      []StatusOption      `json:"lead_statuses"`
	AgreementStatuses []StatusOption      `json:"agreement_statuses"`
}

// AdminService assembles the admin panel and its CSV exports.
type AdminService struct {
	repo        records.Repository
	metrics     analytics.Repository
	users       user.Repository
	whitelist   user.WhitelistRepository
	clock       clock.Clock
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewAdminService creates a new admin service
func NewAdminService(
	repo records.Repository,
	metrics analytics.Repository,
	users user.Repository,
	whitelist user.WhitelistRepository,
	clk clock.Clock,
	logger *logging.ChanneledLogger,
	perfTracker *performance.Tracker,
) *AdminService {
	return &AdminService{
		repo:        repo,
		metrics:     metrics,
		users:       users,
		whitelist:   whitelist,
		clock:       clk,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

func statusOptions(v records.Vocabulary) []StatusOption {
	keys := v.Keys()
	out := make([]StatusOption, 0, len(keys)+1)
	for _, k := range keys {
		out = append(out, StatusOption{Key: k, Label: v.Label(k)})
	}
	return append(out, StatusOption{Key: records.StatusAuto, Label: records.AutoLabel})
}

// Overview loads everything and computes the dashboard and both listings.
func (s *AdminService) Overview(ctx context.Context, p query.Params) (*Overview, error) {
	marker := s.perfTracker.StartOperation("admin_overview", p.View)
	defer marker.Complete()

	leads, err := s.repo.LoadAll(ctx, records.KindLead)
	if err != nil {
		marker.SetError(err)
		return nil, fmt.Errorf("failed to load leads: %w", err)
	}
	agreements, err := s.repo.LoadAll(ctx, records.KindAgreement)
	if err != nil {
		marker.SetError(err)
		return nil, fmt.Errorf("failed to load agreements: %w", err)
	}
	metrics, err := s.metrics.Load(ctx)
	if err != nil {
		marker.SetError(err)
		return nil, fmt.Errorf("failed to load metrics: %w", err)
	}
	users, err := s.userRows(ctx)
	if err != nil {
		marker.SetError(err)
		return nil, err
	}
	list, err := s.whitelist.Load(ctx)
	if err != nil {
		marker.SetError(err)
		return nil, err
	}

	now := s.clock.Now()
	records.SortNewestFirst(leads)
	records.SortNewestFirst(agreements)
	out := &Overview{
		View: p.View,
		Dashboard: reporting.Build(reporting.Input{
			Leads:      leads,
			Agreements: agreements,
			Metrics:    metrics,
			Users:      len(users),
			Now:        now,
		}),
		Leads:             query.Run(records.KindLead, leads, p, now),
		Agreements:        query.Run(records.KindAgreement, agreements, p, now),
		Users:             users,
		Whitelist:         WhitelistView{IDs: list, Admins: list.Admins()},
		LeadStatuses:      statusOptions(records.LeadStatuses),
		AgreementStatuses: statusOptions(records.AgreementStatuses),
	}
	marker.AddMetadata("leads", len(leads))
	marker.AddMetadata("agreements", len(agreements))
	return out, nil
}

func (s *AdminService) userRows(ctx context.Context) ([]UserRow, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	rows := make([]UserRow, 0, len(users))
	for _, u := range users {
		row := UserRow{ID: u.ID, Provider: u.Provider, Email: u.Email, Name: u.DisplayName()}
		if row.Provider == "" {
			row.Provider = "—"
		}
		if row.Email == "" {
			row.Email = "—"
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Provider != rows[j].Provider {
			return rows[i].Provider < rows[j].Provider
		}
		return rows[i].Name < rows[j].Name
	})
	return rows, nil
}

// Export header rows.
var (
	LeadCSVHeader      = []string{"timestamp", "name", "contact", "course", "page", "status"}
	AgreementCSVHeader = []string{"timestamp", "course", "full_name", "phone", "email", "telegram", "amount", "status"}
	UserCSVHeader      = []string{"id", "email", "name", "provider"}
)

// ExportRecords writes kind as CSV using the list filters of p without paging.
func (s *AdminService) ExportRecords(ctx context.Context, kind records.Kind, p query.Params, w io.Writer) error {
	marker := s.perfTracker.StartOperation("export_csv", string(kind))
	defer marker.Complete()

	docs, err := s.repo.LoadAll(ctx, kind)
	if err != nil {
		marker.SetError(err)
		return err
	}
	records.SortNewestFirst(docs)
	if kind == records.KindAgreement {
		p.Status, p.Source = "", ""
	}
	p.Limit = 0
	listing := query.Run(kind, docs, p, s.clock.Now())

	cw := csv.NewWriter(w)
	header, fields := LeadCSVHeader, []string{
		records.FieldTimestamp, records.FieldName, records.FieldContact, records.FieldCourse, records.FieldPage,
	}
	if kind == records.KindAgreement {
		header, fields = AgreementCSVHeader, []string{
			records.FieldTimestamp, records.FieldCourse, records.FieldFullName, records.FieldPhone,
			records.FieldEmail, records.FieldTelegram, records.FieldAmount,
		}
	}
	if err := cw.Write(header); err != nil {
		marker.SetError(err)
		return err
	}
	for _, item := range listing.Items {
		row := make([]string, 0, len(header))
		for _, f := range fields {
			row = append(row, item.Record.String(f))
		}
		row = append(row, item.StatusLabel)
		if err := cw.Write(row); err != nil {
			marker.SetError(err)
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		marker.SetError(err)
		return err
	}
	marker.AddMetadata("rows", len(listing.Items))
	return nil
}

// ExportUsers writes every account as CSV in id order.
func (s *AdminService) ExportUsers(ctx context.Context, w io.Writer) error {
	marker := s.perfTracker.StartOperation("export_csv", "user")
	defer marker.Complete()

	users, err := s.users.List(ctx)
	if err != nil {
		marker.SetError(err)
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(UserCSVHeader); err != nil {
		return err
	}
	for _, u := range users {
		if err := cw.Write([]string{u.ID, u.Email, u.Name, u.Provider}); err != nil {
			marker.SetError(err)
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
