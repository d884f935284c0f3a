// Package email sends transactional mail through Resend.
package email

import (
	"fmt"

	"github.com/resendlabs/resend-go"

	"github.com/politifan/school-peaky-minds/internal/infrastructure/email/templates"
	"github.com/politifan/school-peaky-minds/internal/infrastructure/observability/logging"
	"github.com/politifan/school-peaky-minds/pkg/config"
)

// Service sends the messages the site needs. Implementations must be safe for
// concurrent use.
type Service interface {
	SendLoginCode(toEmail, code string, ttlMinutes int) error
	SendContract(toEmail string, props templates.ContractProps) error
}

// ResendClient is the Resend-backed Service.
type ResendClient struct {
	client    *resend.Client
	fromEmail string
	fromName  string
}

// NewService returns a Resend client when an API key is configured, otherwise
// a LogService that only writes messages to the auth channel.
func NewService(logger *logging.ChanneledLogger) Service {
	if config.ResendAPIKey == "" {
		logger.Auth().Warn("RESEND_API_KEY not set, outgoing mail will only be logged")
		return &LogService{logger: logger}
	}
	return &ResendClient{
		client:    resend.NewClient(config.ResendAPIKey),
		fromEmail: config.MailFrom,
		fromName:  config.MailFromName,
	}
}

// SendLoginCode mails a one-time login code.
func (c *ResendClient) SendLoginCode(toEmail, code string, ttlMinutes int) error {
	html := templates.GetEmailLayout(templates.EmailLayoutProps{
		Title:     "Код для входа",
		Preheader: "Ваш код для входа на сайт",
		Content:   templates.GetLoginCodeContent(templates.LoginCodeProps{Code: code, TTLMinutes: ttlMinutes}),
	})
	if err := c.send(toEmail, "Код для входа", html, fmt.Sprintf("Ваш код: %s", code)); err != nil {
		return fmt.Errorf("failed to send login code via Resend: %w", err)
	}
	return nil
}

// SendContract mails the contract link and its key points.
func (c *ResendClient) SendContract(toEmail string, props templates.ContractProps) error {
	html := templates.GetEmailLayout(templates.EmailLayoutProps{
		Title:     "Ваш договор обучения",
		Preheader: "Договор по курсу " + props.Course,
		Content:   templates.GetContractContent(props),
	})
	if err := c.send(toEmail, "Ваш договор обучения", html, templates.ContractText(props)); err != nil {
		return fmt.Errorf("failed to send contract via Resend: %w", err)
	}
	return nil
}

func (c *ResendClient) send(to, subject, html, text string) error {
	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", c.fromName, c.fromEmail),
		To:      []string{to},
		Subject: subject,
		Html:    html,
		Text:    text,
	}
	_, err := c.client.Emails.Send(params)
	return err
}

// LogService writes messages to the auth channel instead of sending them.
type LogService struct {
	logger *logging.ChanneledLogger
}

// NewLogService builds a LogService.
func NewLogService(logger *logging.ChanneledLogger) *LogService {
	return &LogService{logger: logger}
}

func (s *LogService) SendLoginCode(toEmail, code string, ttlMinutes int) error {
	s.logger.Auth().Info("Login code (mail not configured)", "email", toEmail, "code", code, "ttlMinutes", ttlMinutes)
	return nil
}

func (s *LogService) SendContract(toEmail string, props templates.ContractProps) error {
	s.logger.Auth().Info("Contract mail (mail not configured)", "email", toEmail, "course", props.Course, "url", props.ContractURL)
	return nil
}
