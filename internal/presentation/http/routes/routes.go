// Package routes provides HTTP route configuration for the presentation layer.
package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/politifan/school-peaky-minds/internal/application/container"
	"github.com/politifan/school-peaky-minds/internal/presentation/http/handlers"
	"github.com/politifan/school-peaky-minds/internal/presentation/http/middleware"
)

// SetupRoutes configures all HTTP routes and middleware with dependency injection.
func SetupRoutes(c *container.Container) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(c.Logger))
	r.Use(middleware.CORSMiddleware(c.Settings.CORSOrigins))
	r.Use(middleware.SessionMiddleware(c.AuthService, c.Settings.SessionCookie))
	r.Use(middleware.VisitMiddleware(c.AnalyticsService, c.Settings.VisitCookie, c.Settings.CookieSecure))

	formHandlers := handlers.NewFormHandlers(c.RecordService, c.AuthService, c.ContractService, c.Logger, c.PerfTracker)
	authHandlers := handlers.NewAuthHandlers(c.AuthService, handlers.CookieSettings{
		Name:   c.Settings.SessionCookie,
		Secure: c.Settings.CookieSecure,
		TTL:    c.Settings.SessionTTL,
	}, c.Logger, c.PerfTracker)
	contractHandlers := handlers.NewContractHandlers(c.ContractService, c.Logger, c.PerfTracker)
	adminHandlers := handlers.NewAdminHandlers(c.AdminService, c.RecordService, c.AccessService, c.Logger, c.PerfTracker)
	systemHandlers := handlers.NewSystemHandlers(c.Hub, c.Logger, c.PerfTracker)

	r.GET("/healthz", systemHandlers.GetHealth)

	r.POST("/apply", formHandlers.PostApply)
	r.POST("/enroll", formHandlers.PostEnroll)

	auth := r.Group("/auth")
	{
		auth.POST("/email/request", authHandlers.PostEmailRequest)
		auth.POST("/email/verify", authHandlers.PostEmailVerify)
		auth.GET("/telegram", authHandlers.GetTelegram)
		auth.POST("/logout", authHandlers.PostLogout)
		auth.GET("/me", authHandlers.GetMe)
	}

	contract := r.Group("/contract/:token")
	{
		contract.GET("", contractHandlers.GetContract)
		contract.POST("/send", contractHandlers.PostSend)
		contract.POST("/sign", contractHandlers.PostSign)
	}

	admin := r.Group("/admin")
	admin.Use(middleware.RequireAdmin(c.AuthService, c.Logger))
	{
		admin.GET("/api/overview", adminHandlers.GetOverview)
		admin.GET("/api/perf", systemHandlers.GetPerf)
		admin.GET("/api/logging", systemHandlers.GetLogLevels)
		admin.POST("/api/logging", systemHandlers.PostLogLevel)
		admin.GET("/ws", systemHandlers.GetFeed)

		admin.POST("/leads/status", adminHandlers.PostLeadStatus)
		admin.POST("/leads/meta", adminHandlers.PostLeadMeta)
		admin.POST("/agreements/status", adminHandlers.PostAgreementStatus)
		admin.POST("/agreements/amount", adminHandlers.PostAgreementAmount)
		admin.POST("/whitelist", adminHandlers.PostWhitelist)
		admin.POST("/whitelist/remove", adminHandlers.PostWhitelistRemove)

		admin.GET("/export/leads.csv", adminHandlers.GetLeadsCSV)
		admin.GET("/export/agreements.csv", adminHandlers.GetAgreementsCSV)
		admin.GET("/export/users.csv", adminHandlers.GetUsersCSV)
	}

	return r
}
