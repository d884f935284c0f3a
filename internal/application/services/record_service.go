// Package services provides application-level orchestration services that
// coordinate repositories, notifications and the live feed.
package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/politifan/school-peaky-minds/internal/domain/analytics"
	"github.com/politifan/school-peaky-minds/internal/domain/records"
	"github.com/politifan/school-peaky-minds/internal/infrastructure/messaging"
	"github.com/politifan/school-peaky-minds/internal/infrastructure/observability/logging"
	"github.com/politifan/school-peaky-minds/internal/infrastructure/observability/performance"
	"github.com/politifan/school-peaky-minds/internal/infrastructure/security"
	"github.com/politifan/school-peaky-minds/pkg/clock"
	"github.com/politifan/school-peaky-minds/pkg/config"
)

// ContractStatusPending is the contract state of a fresh agreement.
const ContractStatusPending = "pending"

// Notifier announces newly created records to operators.
type Notifier interface {
	LeadCreated(ctx context.Context, doc records.Document) error
	AgreementCreated(ctx context.Context, doc records.Document) error
}

// LeadForm is a contact-form submission.
type LeadForm struct {
	Name    string
	Contact string
	Course  string
	Page    string
	User    *records.UserSnapshot
}

// AgreementForm is an enrollment submission.
type AgreementForm struct {
	Course    string
	FullName  string
	Phone     string
	Email     string
	Telegram  string
	Agreement string
	Consent   string
	User      *records.UserSnapshot
}

// RecordService creates and mutates leads and agreements.
type RecordService struct {
	repo        records.Repository
	metrics     analytics.Repository
	notifier    Notifier
	feed        messaging.Publisher
	clock       clock.Clock
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker

	notifyTimeout time.Duration
	pending       sync.WaitGroup
}

// NewRecordService wires the record service. notifier and feed may be nil.
func NewRecordService(
	repo records.Repository,
	metrics analytics.Repository,
	notifier Notifier,
	feed messaging.Publisher,
	clk clock.Clock,
	logger *logging.ChanneledLogger,
	perfTracker *performance.Tracker,
) *RecordService {
	return &RecordService{
		repo:          repo,
		metrics:       metrics,
		notifier:      notifier,
		feed:          feed,
		clock:         clk,
		logger:        logger,
		perfTracker:   perfTracker,
		notifyTimeout: config.NotifyTimeout,
	}
}

// SubmitLead stores a contact-form lead and announces it. The returned document
// carries its identifier under records.FieldFile.
func (s *RecordService) SubmitLead(ctx context.Context, form LeadForm) (records.Document, error) {
	marker := s.perfTracker.StartOperation("submit_lead", string(records.KindLead))
	defer marker.Complete()

	lead := records.Lead{
		Timestamp: s.clock.Now().Unix(),
		Name:      strings.TrimSpace(form.Name),
		Contact:   strings.TrimSpace(form.Contact),
		Course:    strings.TrimSpace(form.Course),
		Page:      strings.TrimSpace(form.Page),
		User:      form.User,
	}
	doc, err := lead.Document()
	if err != nil {
		marker.SetError(err)
		return nil, fmt.Errorf("failed to build lead: %w", err)
	}
	id, err := s.repo.Create(ctx, records.KindLead, doc)
	if err != nil {
		marker.SetError(err)
		return nil, fmt.Errorf("failed to store lead: %w", err)
	}
	doc[records.FieldFile] = id
	marker.AddMetadata("id", id)

	s.bumpFunnel(ctx, analytics.StageApply)
	s.announce(messaging.Event{Type: string(records.KindLead), ID: id, Course: lead.Course, Timestamp: lead.Timestamp})
	if s.notifier != nil {
		snapshot := doc.Clone()
		s.dispatch("lead", id, func(ctx context.Context) error {
			return s.notifier.LeadCreated(ctx, snapshot)
		})
	}
	return doc, nil
}

// SubmitAgreement stores an enrollment with a fresh contract token.
func (s *RecordService) SubmitAgreement(ctx context.Context, form AgreementForm) (records.Document, error) {
	marker := s.perfTracker.StartOperation("submit_agreement", string(records.KindAgreement))
	defer marker.Complete()

	token, err := security.GenerateSecureToken(32)
	if err != nil {
		marker.SetError(err)
		return nil, err
	}
	agreement := records.Agreement{
		Timestamp:      s.clock.Now().Unix(),
		User:           form.User,
		Course:         strings.TrimSpace(form.Course),
		FullName:       strings.TrimSpace(form.FullName),
		Phone:          strings.TrimSpace(form.Phone),
		Email:          strings.TrimSpace(form.Email),
		Telegram:       strings.TrimSpace(form.Telegram),
		Agreement:      strings.TrimSpace(form.Agreement),
		Consent:        strings.TrimSpace(form.Consent),
		ContractToken:  token,
		ContractStatus: ContractStatusPending,
	}
	doc, err := agreement.Document()
	if err != nil {
		marker.SetError(err)
		return nil, fmt.Errorf("failed to build agreement: %w", err)
	}
	id, err := s.repo.Create(ctx, records.KindAgreement, doc)
	if err != nil {
		marker.SetError(err)
		return nil, fmt.Errorf("failed to store agreement: %w", err)
	}
	doc[records.FieldFile] = id
	marker.AddMetadata("id", id)

	s.bumpFunnel(ctx, analytics.StageEnroll)
	s.announce(messaging.Event{Type: string(records.KindAgreement), ID: id, Course: agreement.Course, Timestamp: agreement.Timestamp})
	if s.notifier != nil {
		snapshot := doc.Clone()
		s.dispatch("agreement", id, func(ctx context.Context) error {
			return s.notifier.AgreementCreated(ctx, snapshot)
		})
	}
	return doc, nil
}

// SetStatus applies an operator status to a record. "auto", "clear", "reset"
// and "" return the record to its age-derived status. The result reports
// whether the record exists.
func (s *RecordService) SetStatus(ctx context.Context, kind records.Kind, id, raw string) (bool, error) {
	marker := s.perfTracker.StartOperation("set_status", string(kind))
	defer marker.Complete()

	status, err := kind.Vocabulary().Parse(raw)
	if err != nil {
		marker.SetError(err)
		return false, err
	}
	ok, err := s.repo.Update(ctx, kind, id, records.StatusPatch(kind, status, s.clock.Now()))
	if err != nil {
		marker.SetError(err)
		return false, err
	}
	marker.SetSuccess(ok)
	s.logger.Records().Info("Status updated", "kind", kind, "id", id, "status", status.String(), "found", ok)
	return ok, nil
}

// SetLeadMeta replaces the tags, note and next contact date of a lead.
func (s *RecordService) SetLeadMeta(ctx context.Context, id, tags, note, nextContact string) (bool, error) {
	marker := s.perfTracker.StartOperation("set_lead_meta", string(records.KindLead))
	defer marker.Complete()

	ok, err := s.repo.Update(ctx, records.KindLead, id, records.MetaPatch(tags, note, nextContact))
	if err != nil {
		marker.SetError(err)
		return false, err
	}
	marker.SetSuccess(ok)
	return ok, nil
}

// UpdateLead applies a single-field patch to a lead, as issued by the bot.
func (s *RecordService) UpdateLead(ctx context.Context, id string, patch records.Patch) (bool, error) {
	marker := s.perfTracker.StartOperation("update_lead", string(records.KindLead))
	defer marker.Complete()

	ok, err := s.repo.Update(ctx, records.KindLead, id, patch)
	if err != nil {
		marker.SetError(err)
		return false, err
	}
	marker.SetSuccess(ok)
	return ok, nil
}

// SetAgreementAmount stores the paid amount, or clears it for unparseable input.
func (s *RecordService) SetAgreementAmount(ctx context.Context, id, raw string) (bool, error) {
	marker := s.perfTracker.StartOperation("set_agreement_amount", string(records.KindAgreement))
	defer marker.Complete()

	ok, err := s.repo.Update(ctx, records.KindAgreement, id, records.AmountPatch(raw))
	if err != nil {
		marker.SetError(err)
		return false, err
	}
	marker.SetSuccess(ok)
	return ok, nil
}

// Load returns one record.
func (s *RecordService) Load(ctx context.Context, kind records.Kind, id string) (records.Document, bool, error) {
	return s.repo.Load(ctx, kind, id)
}

// List returns every record of kind, newest first.
func (s *RecordService) List(ctx context.Context, kind records.Kind) ([]records.Document, error) {
	docs, err := s.repo.LoadAll(ctx, kind)
	if err != nil {
		return nil, err
	}
	records.SortNewestFirst(docs)
	return docs, nil
}

// IDs lists the identifiers of kind.
func (s *RecordService) IDs(ctx context.Context, kind records.Kind) ([]string, error) {
	return s.repo.IDs(ctx, kind)
}

// Wait blocks until every in-flight notification has finished.
func (s *RecordService) Wait() {
	s.pending.Wait()
}

func (s *RecordService) bumpFunnel(ctx context.Context, stage string) {
	if s.metrics == nil {
		return
	}
	err := s.metrics.Update(ctx, func(m *analytics.Metrics) { m.Bump(stage) })
	if err != nil {
		s.logger.Analytics().Warn("Failed to bump funnel", "stage", stage, "error", err.Error())
	}
}

func (s *RecordService) announce(event messaging.Event) {
	if s.feed != nil {
		s.feed.Publish(event)
	}
}

// dispatch runs fn detached from the request with its own deadline.
func (s *RecordService) dispatch(kind, id string, fn func(ctx context.Context) error) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.notifyTimeout)
		defer cancel()
		log := s.logger.WithOperation(logging.ChannelBot, "notify_"+kind)
		if err := fn(ctx); err != nil {
			log.Warn("Notification failed", "id", id, "error", err.Error())
			return
		}
		log.Debug("Notification dispatched", "id", id)
	}()
}
