// Package user defines site accounts, login codes and the Telegram whitelist.
package user

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/politifan/school-peaky-minds/internal/domain/records"
)

// Login providers.
const (
	ProviderEmail    = "email"
	ProviderTelegram = "telegram"
)

// User is a site account keyed "<provider>:<id>".
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email,omitempty"`
	Name      string `json:"name,omitempty"`
	Provider  string `json:"provider"`
	Username  string `json:"username,omitempty"`
	CreatedAt int64  `json:"created_at"`
}

// Key builds the account key for a provider-local id.
func Key(provider, id string) string {
	return fmt.Sprintf("%s:%s", provider, id)
}

// TelegramID returns the numeric Telegram id of a telegram account.
func (u User) TelegramID() (int64, bool) {
	if u.Provider != ProviderTelegram {
		return 0, false
	}
	raw, ok := strings.CutPrefix(u.ID, ProviderTelegram+":")
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// DisplayName falls back from name to email to id.
func (u User) DisplayName() string {
	switch {
	case u.Name != "":
		return u.Name
	case u.Email != "":
		return u.Email
	default:
		return u.ID
	}
}

// Snapshot is the identity embedded in records created by this user.
func (u User) Snapshot() *records.UserSnapshot {
	return &records.UserSnapshot{
		ID:       u.ID,
		Provider: u.Provider,
		Email:    u.Email,
		Name:     u.Name,
		Username: u.Username,
	}
}

// LoginCode is a pending email login challenge.
type LoginCode struct {
	Hash      string `json:"hash"`
	ExpiresAt int64  `json:"expires_at"`
}

// Expired reports whether the code can no longer be used at now.
func (c LoginCode) Expired(now time.Time) bool {
	return now.Unix() > c.ExpiresAt
}

// Repository stores accounts.
type Repository interface {
	Upsert(ctx context.Context, u User) (User, error)
	FindByID(ctx context.Context, id string) (User, bool, error)
	List(ctx context.Context) ([]User, error)
}

// CodeRepository stores login codes by email.
type CodeRepository interface {
	Put(ctx context.Context, email string, code LoginCode) error
	// Take returns and removes the code for email.
	Take(ctx context.Context, email string) (LoginCode, bool, error)
}

// WhitelistRepository stores the whitelist singleton.
type WhitelistRepository interface {
	Load(ctx context.Context) (Whitelist, error)
	Save(ctx context.Context, ids []int64) (Whitelist, error)
}
