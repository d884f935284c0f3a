package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Telegram login widget errors.
var (
	ErrInvalidSignature = errors.New("invalid telegram signature")
	ErrStaleLogin       = errors.New("telegram login is too old")
)

// TelegramLoginMaxAge bounds how old a widget payload's auth_date may be.
const TelegramLoginMaxAge = 24 * time.Hour

// VerifyTelegramLogin checks a login widget payload. The key is SHA-256 of the
// bot token; the message is the sorted "k=v" pairs except hash joined by "\n".
func VerifyTelegramLogin(fields map[string]string, botToken string, now time.Time) error {
	received := fields["hash"]
	if botToken == "" || received == "" {
		return ErrInvalidSignature
	}
	if !hmac.Equal([]byte(SignTelegramLogin(fields, botToken)), []byte(received)) {
		return ErrInvalidSignature
	}
	if raw, ok := fields["auth_date"]; ok {
		authDate, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || now.Sub(time.Unix(authDate, 0)) > TelegramLoginMaxAge {
			return ErrStaleLogin
		}
	}
	return nil
}

// SignTelegramLogin computes the hex hash Telegram would attach to fields.
func SignTelegramLogin(fields map[string]string, botToken string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k != "hash" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + "=" + fields[k]
	}
	secret := sha256.Sum256([]byte(botToken))
	mac := hmac.New(sha256.New, secret[:])
	mac.Write([]byte(strings.Join(pairs, "\n")))
	return hex.EncodeToString(mac.Sum(nil))
}
