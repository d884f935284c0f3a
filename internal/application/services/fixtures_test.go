package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/politifan/school-peaky-minds/internal/domain/records"
	"github.com/politifan/school-peaky-minds/internal/domain/user"
	"github.com/politifan/school-peaky-minds/internal/infrastructure/email/templates"
	"github.com/politifan/school-peaky-minds/internal/infrastructure/messaging"
	"github.com/politifan/school-peaky-minds/internal/infrastructure/observability/logging"
	"github.com/politifan/school-peaky-minds/internal/infrastructure/observability/performance"
	analyticsstore "github.com/politifan/school-peaky-minds/internal/infrastructure/persistence/analytics"
	recordstore "github.com/politifan/school-peaky-minds/internal/infrastructure/persistence/records"
	userstore "github.com/politifan/school-peaky-minds/internal/infrastructure/persistence/user"
	"github.com/politifan/school-peaky-minds/pkg/clock"
)

const testAdmin int64 = 1547353132

type recordingNotifier struct {
	mu         sync.Mutex
	leads      []records.Document
	agreements []records.Document
	err        error
}

func (n *recordingNotifier) LeadCreated(_ context.Context, doc records.Document) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.leads = append(n.leads, doc)
	return n.err
}

func (n *recordingNotifier) AgreementCreated(_ context.Context, doc records.Document) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.agreements = append(n.agreements, doc)
	return n.err
}

type recordingFeed struct {
	mu     sync.Mutex
	events []messaging.Event
}

func (f *recordingFeed) Publish(e messaging.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
}

type sentMail struct {
	to       string
	code     string
	contract templates.ContractProps
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *recordingMailer) SendLoginCode(to, code string, _ int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{to: to, code: code})
	return m.err
}

func (m *recordingMailer) SendContract(to string, props templates.ContractProps) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{to: to, contract: props})
	return m.err
}

func (m *recordingMailer) last() sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent[len(m.sent)-1]
}

type telegramMessage struct {
	chatID int64
	text   string
}

type recordingSender struct {
	mu   sync.Mutex
	sent []telegramMessage
}

func (s *recordingSender) SendText(_ context.Context, chatID int64, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, telegramMessage{chatID: chatID, text: text})
	return nil
}

type fixture struct {
	clock     *clock.Stub
	logger    *logging.ChanneledLogger
	perf      *performance.Tracker
	records   records.Repository
	metrics   *analyticsstore.FileMetricsRepository
	users     *userstore.FileUserRepository
	codes     *userstore.FileCodeRepository
	whitelist *userstore.FileWhitelistRepository
	notifier  *recordingNotifier
	feed      *recordingFeed
	mailer    *recordingMailer
	sender    *recordingSender
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	clk := clock.Fixed()
	logger := logging.NewDiscardLogger()
	wl, err := userstore.NewFileWhitelistRepository(filepath.Join(dir, "whitelist.json"), testAdmin, logger)
	require.NoError(t, err)
	return &fixture{
		clock:     clk,
		logger:    logger,
		perf:      performance.NewTracker(performance.DefaultTrackerConfig()),
		records:   recordstore.NewFileRepository(dir, clk, logger),
		metrics:   analyticsstore.NewFileMetricsRepository(filepath.Join(dir, "metrics.json"), logger),
		users:     userstore.NewFileUserRepository(filepath.Join(dir, "users.json"), logger),
		codes:     userstore.NewFileCodeRepository(filepath.Join(dir, "codes.json"), logger),
		whitelist: wl,
		notifier:  &recordingNotifier{},
		feed:      &recordingFeed{},
		mailer:    &recordingMailer{},
		sender:    &recordingSender{},
	}
}

func (f *fixture) recordService() *RecordService {
	return NewRecordService(f.records, f.metrics, f.notifier, f.feed, f.clock, f.logger, f.perf)
}

func (f *fixture) accessService() *AccessService {
	return NewAccessService(f.whitelist, f.logger, f.perf)
}

func (f *fixture) authService() *AuthService {
	return NewAuthService(f.users, f.codes, f.accessService(), f.mailer, AuthSettings{
		SessionSecret:    "test-secret",
		SessionTTL:       24 * time.Hour,
		CodeTTL:          10 * time.Minute,
		TelegramBotToken: "123:bot-token",
	}, f.clock, f.logger, f.perf)
}

func (f *fixture) contractService() *ContractService {
	return NewContractService(f.records, f.mailer, f.sender, "https://peakyminds.school/", f.clock, f.logger, f.perf)
}

func (f *fixture) adminService() *AdminService {
	return NewAdminService(f.records, f.metrics, f.users, f.whitelist, f.clock, f.logger, f.perf)
}

var _ user.WhitelistRepository = (*userstore.FileWhitelistRepository)(nil)
