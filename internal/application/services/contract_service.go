package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"

	"github.com/politifan/school-peaky-minds/internal/domain/records"
	"github.com/politifan/school-peaky-minds/internal/domain/user"
	"github.com/politifan/school-peaky-minds/internal/infrastructure/email"
	"github.com/politifan/school-peaky-minds/internal/infrastructure/email/templates"
	"github.com/politifan/school-peaky-minds/internal/infrastructure/observability/logging"
	"github.com/politifan/school-peaky-minds/internal/infrastructure/observability/performance"
	"github.com/politifan/school-peaky-minds/pkg/clock"
)

// Contract errors.
var (
	ErrContractNotFound = errors.New("contract not found")
	ErrUnknownChannel   = errors.New("unknown contract channel")
	ErrNoRecipient      = errors.New("no email recipient for contract")
	ErrTelegramUnlinked = errors.New("telegram is not linked to this agreement")
)

// Contract states and delivery channels.
const (
	ContractStatusSent   = "sent"
	ContractStatusSigned = "signed"

	ChannelEmail    = "email"
	ChannelTelegram = "telegram"
)

var contractStatusLabels = map[string]string{
	ContractStatusPending: "Ожидает отправки",
	ContractStatusSent:    "Отправлен",
	ContractStatusSigned:  "Подписан",
}

// ContractKeyPoints are listed in every contract message.
var ContractKeyPoints = []string{
	"Обучение проходит онлайн по расписанию группы",
	"Доступ к материалам сохраняется после окончания курса",
	"Возврат оплаты возможен до начала второго занятия",
}

// ContractDocuments are linked from every contract message.
var ContractDocuments = []templates.Document{
	{Title: "Договор оферты", URL: "/docs/offer.pdf"},
	{Title: "Политика конфиденциальности", URL: "/docs/privacy.pdf"},
}

// TextSender delivers a plain message to a Telegram chat.
type TextSender interface {
	SendText(ctx context.Context, chatID int64, text string) error
}

// ContractChannel is one way of delivering the contract.
type ContractChannel struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Detail   string `json:"detail"`
	Disabled bool   `json:"disabled"`
}

// ContractView is the public contract page model.
type ContractView struct {
	Course         string               `json:"course"`
	FullName       string               `json:"full_name"`
	URL            string               `json:"url"`
	Status         string               `json:"status"`
	StatusLabel    string               `json:"status_label"`
	Channel        string               `json:"channel,omitempty"`
	SentAt         int64                `json:"sent_at,omitempty"`
	SignedAt       int64                `json:"signed_at,omitempty"`
	Channels       []ContractChannel    `json:"channels"`
	DefaultChannel string               `json:"default_channel"`
	ManualEmail    string               `json:"manual_email,omitempty"`
	KeyPoints      []string             `json:"key_points"`
	Documents      []templates.Document `json:"documents"`
}

// ContractService shows, delivers and signs agreement contracts addressed by token.
type ContractService struct {
	repo        records.Repository
	mailer      email.Service
	telegram    TextSender
	baseURL     string
	clock       clock.Clock
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewContractService creates a contract service. baseURL prefixes contract and
// document links when set.
func NewContractService(
	repo records.Repository,
	mailer email.Service,
	telegram TextSender,
	baseURL string,
	clk clock.Clock,
	logger *logging.ChanneledLogger,
	perfTracker *performance.Tracker,
) *ContractService {
	return &ContractService{
		repo:        repo,
		mailer:      mailer,
		telegram:    telegram,
		baseURL:     strings.TrimRight(baseURL, "/"),
		clock:       clk,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

// ContractStatus reads the contract state of an agreement.
func ContractStatus(doc records.Document) string {
	switch doc.String(records.FieldContractStatus) {
	case ContractStatusSigned:
		return ContractStatusSigned
	case ContractStatusSent:
		return ContractStatusSent
	default:
		return ContractStatusPending
	}
}

func snapshotUser(doc records.Document) user.User {
	raw, _ := doc[records.FieldUser].(map[string]any)
	str := func(k string) string {
		if v, ok := raw[k].(string); ok {
			return v
		}
		return ""
	}
	return user.User{
		ID:       str("id"),
		Provider: str("provider"),
		Email:    str("email"),
		Name:     str("name"),
		Username: str("username"),
	}
}

// telegramChatID prefers the signed-in Telegram account, then a numeric
// telegram field on the agreement.
func telegramChatID(doc records.Document) (int64, bool) {
	if id, ok := snapshotUser(doc).TelegramID(); ok {
		return id, true
	}
	id, err := strconv.ParseInt(strings.TrimSpace(doc.String(records.FieldTelegram)), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// contactEmail resolves the recipient: manual input, stored override,
// agreement email, then the account email.
func contactEmail(doc records.Document, manual string) string {
	candidates := []string{
		manual,
		doc.String(records.FieldContractEmailOver),
		doc.String(records.FieldEmail),
		snapshotUser(doc).Email,
	}
	for _, c := range candidates {
		if c = strings.TrimSpace(c); c != "" {
			return c
		}
	}
	return ""
}

func (s *ContractService) absURL(path string) string {
	if path == "" || strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return s.baseURL + path
}

// URL is the public link of the contract with token.
func (s *ContractService) URL(token string) string {
	return s.absURL("/contract/" + token)
}

func (s *ContractService) find(ctx context.Context, token string) (records.Document, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrContractNotFound
	}
	docs, err := s.repo.LoadAll(ctx, records.KindAgreement)
	if err != nil {
		return nil, err
	}
	for _, doc := range docs {
		if doc.String(records.FieldContractToken) == token {
			return doc, nil
		}
	}
	return nil, ErrContractNotFound
}

func (s *ContractService) channels(doc records.Document) []ContractChannel {
	mailDetail := contactEmail(doc, "")
	if mailDetail == "" {
		mailDetail = "не указан"
	}
	tgDetail := doc.String(records.FieldTelegram)
	chatID, linked := telegramChatID(doc)
	if tgDetail == "" && linked {
		tgDetail = fmt.Sprintf("ID %d", chatID)
	}
	if tgDetail == "" {
		tgDetail = "не указан"
	}
	return []ContractChannel{
		{Key: ChannelEmail, Label: "Email", Detail: mailDetail},
		{Key: ChannelTelegram, Label: "Telegram", Detail: tgDetail, Disabled: !linked},
	}
}

// defaultChannel is telegram for Telegram accounts with a linked chat, else email.
func defaultChannel(doc records.Document, channels []ContractChannel) string {
	preferred := ChannelEmail
	if snapshotUser(doc).Provider == user.ProviderTelegram {
		preferred = ChannelTelegram
	}
	for _, ch := range channels {
		if ch.Key == preferred && !ch.Disabled {
			return preferred
		}
	}
	return ChannelEmail
}

// View returns the contract page model for token.
func (s *ContractService) View(ctx context.Context, token string) (*ContractView, error) {
	marker := s.perfTracker.StartOperation("contract_view", "contract")
	defer marker.Complete()

	doc, err := s.find(ctx, token)
	if err != nil {
		marker.SetError(err)
		return nil, err
	}
	status := ContractStatus(doc)
	channels := s.channels(doc)
	view := &ContractView{
		Course:         doc.String(records.FieldCourse),
		FullName:       doc.String(records.FieldFullName),
		URL:            s.URL(token),
		Status:         status,
		StatusLabel:    contractStatusLabels[status],
		Channel:        doc.String(records.FieldContractChannel),
		Channels:       channels,
		DefaultChannel: defaultChannel(doc, channels),
		ManualEmail:    doc.String(records.FieldContractEmailOver),
		KeyPoints:      ContractKeyPoints,
		Documents:      s.documents(),
	}
	view.SentAt, _ = doc.Int64(records.FieldContractSentAt)
	view.SignedAt, _ = doc.Int64(records.FieldContractSignedAt)
	return view, nil
}

func (s *ContractService) documents() []templates.Document {
	out := make([]templates.Document, len(ContractDocuments))
	for i, d := range ContractDocuments {
		out[i] = templates.Document{Title: d.Title, URL: s.absURL(d.URL)}
	}
	return out
}

func (s *ContractService) props(doc records.Document, token string) templates.ContractProps {
	course := doc.String(records.FieldCourse)
	if course == "" {
		course = "курс"
	}
	name := doc.String(records.FieldFullName)
	if name == "" {
		name = snapshotUser(doc).Name
	}
	if name == "" {
		name = "участник"
	}
	return templates.ContractProps{
		Course:      course,
		FullName:    name,
		ContractURL: s.URL(token),
		KeyPoints:   ContractKeyPoints,
		Documents:   s.documents(),
	}
}

// Send delivers the contract over channel and marks it sent. An empty channel
// picks the default for the agreement.
func (s *ContractService) Send(ctx context.Context, token, channel, manualEmail string) (string, error) {
	marker := s.perfTracker.StartOperation("contract_send", "contract")
	defer marker.Complete()

	doc, err := s.find(ctx, token)
	if err != nil {
		marker.SetError(err)
		return "", err
	}
	channel = strings.TrimSpace(channel)
	if channel == "" {
		channel = defaultChannel(doc, s.channels(doc))
	}
	manualEmail = strings.TrimSpace(manualEmail)
	props := s.props(doc, token)

	patch := records.Patch{}
	switch channel {
	case ChannelEmail:
		recipient := contactEmail(doc, manualEmail)
		if recipient == "" {
			marker.SetError(ErrNoRecipient)
			return "", ErrNoRecipient
		}
		if _, err := mail.ParseAddress(recipient); err != nil {
			marker.SetError(ErrInvalidEmail)
			return "", ErrInvalidEmail
		}
		if err := s.mailer.SendContract(recipient, props); err != nil {
			marker.SetError(err)
			return "", fmt.Errorf("failed to mail contract: %w", err)
		}
		if manualEmail != "" {
			patch[records.FieldContractEmailOver] = manualEmail
		}
	case ChannelTelegram:
		chatID, ok := telegramChatID(doc)
		if !ok || s.telegram == nil {
			marker.SetError(ErrTelegramUnlinked)
			return "", ErrTelegramUnlinked
		}
		if err := s.telegram.SendText(ctx, chatID, templates.ContractText(props)); err != nil {
			marker.SetError(err)
			return "", fmt.Errorf("failed to send contract to telegram: %w", err)
		}
	default:
		marker.SetError(ErrUnknownChannel)
		return "", ErrUnknownChannel
	}

	now := s.clock.Now().Unix()
	_, err = s.repo.Mutate(ctx, records.KindAgreement, doc.File(), func(current records.Document) bool {
		if current.String(records.FieldContractStatus) != ContractStatusSigned {
			patch[records.FieldContractStatus] = ContractStatusSent
		}
		patch[records.FieldContractChannel] = channel
		patch[records.FieldContractSentAt] = now
		current.Apply(patch)
		return true
	})
	if err != nil {
		marker.SetError(err)
		return "", err
	}
	s.logger.Records().Info("Contract sent", "id", doc.File(), "channel", channel)
	return channel, nil
}

// Sign marks the contract signed.
func (s *ContractService) Sign(ctx context.Context, token string) error {
	marker := s.perfTracker.StartOperation("contract_sign", "contract")
	defer marker.Complete()

	doc, err := s.find(ctx, token)
	if err != nil {
		marker.SetError(err)
		return err
	}
	ok, err := s.repo.Update(ctx, records.KindAgreement, doc.File(), records.Patch{
		records.FieldContractStatus:   ContractStatusSigned,
		records.FieldContractSignedAt: s.clock.Now().Unix(),
	})
	if err != nil {
		marker.SetError(err)
		return err
	}
	if !ok {
		marker.SetError(ErrContractNotFound)
		return ErrContractNotFound
	}
	s.logger.Records().Info("Contract signed", "id", doc.File())
	return nil
}
