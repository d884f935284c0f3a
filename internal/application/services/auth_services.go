package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/politifan/school-peaky-minds/internal/domain/user"
	"github.com/politifan/school-peaky-minds/internal/infrastructure/email"
	"github.com/politifan/school-peaky-minds/internal/infrastructure/observability/logging"
	"github.com/politifan/school-peaky-minds/internal/infrastructure/observability/performance"
	"github.com/politifan/school-peaky-minds/internal/infrastructure/security"
	"github.com/politifan/school-peaky-minds/pkg/clock"
)

// Login code errors.
var (
	ErrInvalidEmail = errors.New("invalid email address")
	ErrCodeExpired  = errors.New("login code expired")
	ErrCodeMismatch = errors.New("login code does not match")
)

// LoginCodeDigits is the length of an email login code.
const LoginCodeDigits = 6

// AuthSettings are the secrets and lifetimes used by AuthService.
type AuthSettings struct {
	SessionSecret    string
	SessionTTL       time.Duration
	CodeTTL          time.Duration
	TelegramBotToken string
}

// LoginResult is a signed-in account with its session token.
type LoginResult struct {
	User  user.User
	Token string
}

// AuthService handles email codes, Telegram widget logins and session tokens.
type AuthService struct {
	users       user.Repository
	codes       user.CodeRepository
	access      *AccessService
	mailer      email.Service
	settings    AuthSettings
	clock       clock.Clock
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewAuthService creates a new authentication service
func NewAuthService(
	users user.Repository,
	codes user.CodeRepository,
	access *AccessService,
	mailer email.Service,
	settings AuthSettings,
	clk clock.Clock,
	logger *logging.ChanneledLogger,
	perfTracker *performance.Tracker,
) *AuthService {
	return &AuthService{
		users:       users,
		codes:       codes,
		access:      access,
		mailer:      mailer,
		settings:    settings,
		clock:       clk,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

func normalizeEmail(raw string) (string, error) {
	addr := strings.ToLower(strings.TrimSpace(raw))
	if addr == "" {
		return "", ErrInvalidEmail
	}
	parsed, err := mail.ParseAddress(addr)
	if err != nil || parsed.Address != addr {
		return "", ErrInvalidEmail
	}
	return addr, nil
}

// RequestCode issues a login code for address and mails it.
func (a *AuthService) RequestCode(ctx context.Context, address string) error {
	marker := a.perfTracker.StartOperation("request_login_code", "auth")
	defer marker.Complete()

	addr, err := normalizeEmail(address)
	if err != nil {
		marker.SetError(err)
		return err
	}
	code, err := security.GenerateNumericCode(LoginCodeDigits)
	if err != nil {
		marker.SetError(err)
		return err
	}
	hash, err := security.HashCode(code)
	if err != nil {
		marker.SetError(err)
		return err
	}
	expires := a.clock.Now().Add(a.settings.CodeTTL).Unix()
	if err := a.codes.Put(ctx, addr, user.LoginCode{Hash: hash, ExpiresAt: expires}); err != nil {
		marker.SetError(err)
		return fmt.Errorf("failed to store login code: %w", err)
	}
	if err := a.mailer.SendLoginCode(addr, code, int(a.settings.CodeTTL/time.Minute)); err != nil {
		marker.SetError(err)
		a.logger.LogAuthOperation("request_code", user.Key(user.ProviderEmail, addr), false, map[string]any{"error": err.Error()})
		return fmt.Errorf("failed to send login code: %w", err)
	}
	a.logger.LogAuthOperation("request_code", user.Key(user.ProviderEmail, addr), true, nil)
	return nil
}

// VerifyCode consumes a valid code and signs the account in. A wrong code
// leaves the pending code in place.
func (a *AuthService) VerifyCode(ctx context.Context, address, code string) (*LoginResult, error) {
	marker := a.perfTracker.StartOperation("verify_login_code", "auth")
	defer marker.Complete()

	addr, err := normalizeEmail(address)
	if err != nil {
		marker.SetError(err)
		return nil, err
	}
	pending, ok, err := a.codes.Take(ctx, addr)
	if err != nil {
		marker.SetError(err)
		return nil, err
	}
	if !ok {
		marker.SetError(ErrCodeMismatch)
		return nil, ErrCodeMismatch
	}
	if pending.Expired(a.clock.Now()) {
		marker.SetError(ErrCodeExpired)
		a.logger.LogAuthOperation("verify_code", user.Key(user.ProviderEmail, addr), false, map[string]any{"reason": "expired"})
		return nil, ErrCodeExpired
	}
	matched, err := security.CompareCode(pending.Hash, strings.TrimSpace(code))
	if err != nil || !matched {
		if putErr := a.codes.Put(ctx, addr, pending); putErr != nil {
			a.logger.Auth().Warn("Failed to restore login code", "error", putErr.Error())
		}
		marker.SetError(ErrCodeMismatch)
		a.logger.LogAuthOperation("verify_code", user.Key(user.ProviderEmail, addr), false, map[string]any{"reason": "mismatch"})
		return nil, ErrCodeMismatch
	}

	account, err := a.users.Upsert(ctx, user.User{
		ID:        user.Key(user.ProviderEmail, addr),
		Email:     addr,
		Name:      addr,
		Provider:  user.ProviderEmail,
		CreatedAt: a.clock.Now().Unix(),
	})
	if err != nil {
		marker.SetError(err)
		return nil, err
	}
	return a.login(account)
}

// TelegramLogin verifies a login widget payload and signs the account in.
func (a *AuthService) TelegramLogin(ctx context.Context, fields map[string]string) (*LoginResult, error) {
	marker := a.perfTracker.StartOperation("telegram_login", "auth")
	defer marker.Complete()

	if err := security.VerifyTelegramLogin(fields, a.settings.TelegramBotToken, a.clock.Now()); err != nil {
		marker.SetError(err)
		a.logger.LogAuthOperation("telegram_login", fields["id"], false, map[string]any{"error": err.Error()})
		return nil, err
	}
	id := strings.TrimSpace(fields["id"])
	if _, err := strconv.ParseInt(id, 10, 64); err != nil {
		marker.SetError(security.ErrInvalidSignature)
		return nil, security.ErrInvalidSignature
	}
	name := fields["first_name"]
	if name == "" {
		name = fields["username"]
	}
	if name == "" {
		name = "Telegram"
	}
	account, err := a.users.Upsert(ctx, user.User{
		ID:        user.Key(user.ProviderTelegram, id),
		Name:      name,
		Provider:  user.ProviderTelegram,
		Username:  fields["username"],
		CreatedAt: a.clock.Now().Unix(),
	})
	if err != nil {
		marker.SetError(err)
		return nil, err
	}
	return a.login(account)
}

func (a *AuthService) login(account user.User) (*LoginResult, error) {
	token, err := security.IssueSession(security.Session{
		UserID:   account.ID,
		Provider: account.Provider,
		Name:     account.Name,
		Email:    account.Email,
		Username: account.Username,
	}, a.settings.SessionSecret, a.clock.Now(), a.settings.SessionTTL)
	if err != nil {
		return nil, err
	}
	a.logger.LogAuthOperation("login", account.ID, true, map[string]any{"provider": account.Provider})
	return &LoginResult{User: account, Token: token}, nil
}

// Session resolves a session token.
func (a *AuthService) Session(token string) (security.Session, error) {
	return security.ParseSession(token, a.settings.SessionSecret, a.clock.Now())
}

// Account returns the stored user behind a session, falling back to the
// identity carried in the token when the account is gone.
func (a *AuthService) Account(ctx context.Context, s security.Session) user.User {
	if stored, ok, err := a.users.FindByID(ctx, s.UserID); err == nil && ok {
		return stored
	}
	return user.User{ID: s.UserID, Provider: s.Provider, Name: s.Name, Email: s.Email, Username: s.Username}
}

// IsAdmin reports whether a session belongs to a Telegram account in the admin set.
func (a *AuthService) IsAdmin(ctx context.Context, s security.Session) bool {
	if s.Provider != user.ProviderTelegram {
		return false
	}
	id, ok := user.User{ID: s.UserID, Provider: s.Provider}.TelegramID()
	if !ok {
		return false
	}
	return a.access.IsAdmin(ctx, id)
}
