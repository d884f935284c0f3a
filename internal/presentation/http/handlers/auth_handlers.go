package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/politifan/school-peaky-minds/internal/application/services"
	"github.com/politifan/school-peaky-minds/internal/infrastructure/observability/logging"
	"github.com/politifan/school-peaky-minds/internal/infrastructure/observability/performance"
	"github.com/politifan/school-peaky-minds/internal/infrastructure/security"
	"github.com/politifan/school-peaky-minds/internal/presentation/http/middleware"
)

// CookieSettings describes the session cookie.
type CookieSettings struct {
	Name   string
	Secure bool
	TTL    time.Duration
}

// AuthHandlers contains all authentication-related HTTP handlers
type AuthHandlers struct {
	authService *services.AuthService
	cookie      CookieSettings
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewAuthHandlers creates auth handlers with injected dependencies
func NewAuthHandlers(authService *services.AuthService, cookie CookieSettings, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		cookie:      cookie,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

func (h *AuthHandlers) setSession(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, token, int(h.cookie.TTL.Seconds()), "/", "", h.cookie.Secure, true)
}

// PostEmailRequest handles POST /auth/email/request - mails a login code
func (h *AuthHandlers) PostEmailRequest(c *gin.Context) {
	start := time.Now()
	marker := h.perfTracker.StartOperation("post_email_request", "auth")
	defer marker.Complete()
	h.logger.Auth().Debug("Received login code request", "method", c.Request.Method, "path", c.Request.URL.Path)

	err := h.authService.RequestCode(c.Request.Context(), c.PostForm("email"))
	switch {
	case errors.Is(err, services.ErrInvalidEmail):
		marker.SetSuccess(false)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Введите корректный email"})
		return
	case err != nil:
		h.logger.Auth().Error("Login code delivery failed", "error", err.Error(), "duration", time.Since(start))
		marker.SetError(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось отправить код"})
		return
	}

	h.logger.Auth().Info("Login code issued", "duration", time.Since(start))
	marker.SetSuccess(true)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// PostEmailVerify handles POST /auth/email/verify - exchanges a code for a session
func (h *AuthHandlers) PostEmailVerify(c *gin.Context) {
	start := time.Now()
	marker := h.perfTracker.StartOperation("post_email_verify", "auth")
	defer marker.Complete()
	h.logger.Auth().Debug("Received login code verification", "method", c.Request.Method, "path", c.Request.URL.Path)

	result, err := h.authService.VerifyCode(c.Request.Context(), c.PostForm("email"), c.PostForm("code"))
	switch {
	case errors.Is(err, services.ErrInvalidEmail):
		marker.SetSuccess(false)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Введите корректный email"})
		return
	case errors.Is(err, services.ErrCodeExpired):
		marker.SetSuccess(false)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Код истёк, запросите новый"})
		return
	case errors.Is(err, services.ErrCodeMismatch):
		marker.SetSuccess(false)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Неверный код"})
		return
	case err != nil:
		h.logger.Auth().Error("Login code verification failed", "error", err.Error(), "duration", time.Since(start))
		marker.SetError(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	h.setSession(c, result.Token)
	h.logger.Auth().Info("Email login succeeded", "userId", result.User.ID, "duration", time.Since(start))
	marker.SetSuccess(true)
	c.JSON(http.StatusOK, gin.H{"success": true, "user": result.User})
}

// GetTelegram handles GET /auth/telegram - the Telegram login widget callback
func (h *AuthHandlers) GetTelegram(c *gin.Context) {
	start := time.Now()
	marker := h.perfTracker.StartOperation("get_telegram_login", "auth")
	defer marker.Complete()
	h.logger.Auth().Debug("Received telegram login", "method", c.Request.Method, "path", c.Request.URL.Path)

	fields := make(map[string]string)
	for key, values := range c.Request.URL.Query() {
		if len(values) > 0 {
			fields[key] = values[0]
		}
	}
	if fields["hash"] == "" {
		marker.SetSuccess(false)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Нажмите и подтвердите вход через Telegram"})
		return
	}

	result, err := h.authService.TelegramLogin(c.Request.Context(), fields)
	switch {
	case errors.Is(err, security.ErrInvalidSignature), errors.Is(err, security.ErrStaleLogin):
		marker.SetSuccess(false)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Ошибка авторизации Telegram"})
		return
	case err != nil:
		h.logger.Auth().Error("Telegram login failed", "error", err.Error(), "duration", time.Since(start))
		marker.SetError(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	h.setSession(c, result.Token)
	h.logger.Auth().Info("Telegram login succeeded", "userId", result.User.ID, "duration", time.Since(start))
	marker.SetSuccess(true)
	c.Redirect(http.StatusFound, "/")
}

// PostLogout handles POST /auth/logout
func (h *AuthHandlers) PostLogout(c *gin.Context) {
	if s, ok := middleware.GetSession(c); ok {
		h.logger.LogAuthOperation("logout", s.UserID, true, nil)
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, "", -1, "/", "", h.cookie.Secure, true)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetMe handles GET /auth/me - the current account, or null
func (h *AuthHandlers) GetMe(c *gin.Context) {
	s, ok := middleware.GetSession(c)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"user": nil, "admin": false})
		return
	}
	ctx := c.Request.Context()
	c.JSON(http.StatusOK, gin.H{
		"user":  h.authService.Account(ctx, s),
		"admin": h.authService.IsAdmin(ctx, s),
	})
}
