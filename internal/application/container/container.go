// Package container wires repositories, services and transports into one
// application graph.
package container

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/politifan/school-peaky-minds/internal/application/services"
	"github.com/politifan/school-peaky-minds/internal/domain/records"
	schema "github.com/politifan/school-peaky-minds/internal/infrastructure/database"
	"github.com/politifan/school-peaky-minds/internal/infrastructure/email"
	"github.com/politifan/school-peaky-minds/internal/infrastructure/messaging"
	"github.com/politifan/school-peaky-minds/internal/infrastructure/observability/logging"
	"github.com/politifan/school-peaky-minds/internal/infrastructure/observability/performance"
	analyticsstore "github.com/politifan/school-peaky-minds/internal/infrastructure/persistence/analytics"
	"github.com/politifan/school-peaky-minds/internal/infrastructure/persistence/database"
	recordstore "github.com/politifan/school-peaky-minds/internal/infrastructure/persistence/records"
	userstore "github.com/politifan/school-peaky-minds/internal/infrastructure/persistence/user"
	"github.com/politifan/school-peaky-minds/internal/infrastructure/telegram"
	"github.com/politifan/school-peaky-minds/internal/presentation/bot"
	"github.com/politifan/school-peaky-minds/pkg/clock"
	"github.com/politifan/school-peaky-minds/pkg/config"
)

// Record store backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendLibSQL = "libsql"
)

// Settings is the part of the configuration the graph depends on.
type Settings struct {
	DataDir         string
	StoreBackend    string
	SQLitePath      string
	LibSQLURL       string
	LibSQLAuthToken string

	BaseURL       string
	CORSOrigins   []string
	SessionSecret string
	SessionTTL    time.Duration
	SessionCookie string
	VisitCookie   string
	CookieSecure  bool
	CodeTTL       time.Duration

	TelegramBotToken string
	AdminTelegramID  int64
	FeedPingInterval time.Duration
}

// SettingsFromConfig snapshots the package-level configuration.
func SettingsFromConfig() Settings {
	return Settings{
		DataDir:          config.DataDir,
		StoreBackend:     config.StoreBackend,
		SQLitePath:       config.SQLitePath,
		LibSQLURL:        config.LibSQLURL,
		LibSQLAuthToken:  config.LibSQLAuthToken,
		BaseURL:          config.AppBaseURL,
		CORSOrigins:      config.CORSOrigins,
		SessionSecret:    config.SessionSecret,
		SessionTTL:       config.SessionTTL,
		SessionCookie:    config.SessionCookieName,
		VisitCookie:      config.VisitCookieName,
		CookieSecure:     config.CookieSecure,
		CodeTTL:          config.LoginCodeTTL,
		TelegramBotToken: config.TelegramBotToken,
		AdminTelegramID:  config.AdminTelegramID,
		FeedPingInterval: config.FeedPingInterval,
	}
}

// Container holds all singleton services and infrastructure dependencies
type Container struct {
	Settings    Settings
	Logger      *logging.ChanneledLogger
	PerfTracker *performance.Tracker
	Clock       clock.Clock

	Records   records.Repository
	Whitelist *userstore.FileWhitelistRepository
	Hub       *messaging.Hub
	// Telegram and Dispatcher are nil when no bot token is configured.
	Telegram   *telegram.Client
	Dispatcher *bot.Dispatcher

	RecordService    *services.RecordService
	AccessService    *services.AccessService
	AuthService      *services.AuthService
	ContractService  *services.ContractService
	AdminService     *services.AdminService
	AnalyticsService *services.AnalyticsService

	db *database.DB
}

// NewContainer builds the application graph. mailer may be nil, in which case
// the Resend client (or its logging stand-in) is used.
func NewContainer(ctx context.Context, settings Settings, mailer email.Service, clk clock.Clock, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) (*Container, error) {
	c := &Container{
		Settings:    settings,
		Logger:      logger,
		PerfTracker: perfTracker,
		Clock:       clk,
	}
	path := func(name string) string { return filepath.Join(settings.DataDir, name) }

	repo, err := c.openRecords(ctx)
	if err != nil {
		return nil, err
	}
	c.Records = repo

	whitelist, err := userstore.NewFileWhitelistRepository(path("whitelist.json"), settings.AdminTelegramID, logger)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to open whitelist: %w", err)
	}
	c.Whitelist = whitelist
	users := userstore.NewFileUserRepository(path("users.json"), logger)
	codes := userstore.NewFileCodeRepository(path("login_codes.json"), logger)
	metrics := analyticsstore.NewFileMetricsRepository(path("metrics.json"), logger)
	if mailer == nil {
		mailer = email.NewService(logger)
	}

	c.Hub = messaging.NewHub(settings.FeedPingInterval, logger)
	c.AccessService = services.NewAccessService(whitelist, logger, perfTracker)

	var notifier services.Notifier
	var sender services.TextSender
	if settings.TelegramBotToken != "" {
		c.Telegram = telegram.NewClient(settings.TelegramBotToken, logger)
		notifier = bot.NewNotifier(c.AccessService, c.Telegram, settings.BaseURL, clk, logger)
		sender = c.Telegram
	} else {
		logger.Startup().Warn("TELEGRAM_BOT_TOKEN not set, bot and notifications disabled")
	}

	c.RecordService = services.NewRecordService(repo, metrics, notifier, c.Hub, clk, logger, perfTracker)
	c.AnalyticsService = services.NewAnalyticsService(metrics, clk, logger, perfTracker)
	c.AuthService = services.NewAuthService(users, codes, c.AccessService, mailer, services.AuthSettings{
		SessionSecret:    settings.SessionSecret,
		SessionTTL:       settings.SessionTTL,
		CodeTTL:          settings.CodeTTL,
		TelegramBotToken: settings.TelegramBotToken,
	}, clk, logger, perfTracker)
	c.ContractService = services.NewContractService(repo, mailer, sender, settings.BaseURL, clk, logger, perfTracker)
	c.AdminService = services.NewAdminService(repo, metrics, users, whitelist, clk, logger, perfTracker)

	if c.Telegram != nil {
		c.Dispatcher = bot.NewDispatcher(c.RecordService, c.AccessService, c.Telegram, settings.BaseURL, clk, logger, perfTracker)
	}
	return c, nil
}

func (c *Container) openRecords(ctx context.Context) (records.Repository, error) {
	var opts database.Options
	switch c.Settings.StoreBackend {
	case "", BackendFile:
		c.Logger.Startup().Info("Using file record store", "dir", c.Settings.DataDir)
		return recordstore.NewFileRepository(c.Settings.DataDir, c.Clock, c.Logger), nil
	case BackendSQLite:
		opts = database.Options{Driver: database.DriverSQLite, Path: c.Settings.SQLitePath}
	case BackendLibSQL:
		opts = database.Options{Driver: database.DriverLibSQL, URL: c.Settings.LibSQLURL, AuthToken: c.Settings.LibSQLAuthToken}
	default:
		return nil, fmt.Errorf("unknown store backend %q", c.Settings.StoreBackend)
	}

	db, err := database.NewConnectionWithLogger(ctx, opts, c.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", c.Settings.StoreBackend, err)
	}
	if err := schema.NewTableCreator().CreateSchema(ctx, db.DB); err != nil {
		db.Close()
		return nil, err
	}
	c.db = db
	c.Logger.Startup().Info("Using SQL record store", "driver", opts.Driver)
	return recordstore.NewSQLRepository(db, c.Clock, c.Logger), nil
}

// Close waits for pending notifications and releases the database.
func (c *Container) Close() error {
	if c.RecordService != nil {
		c.RecordService.Wait()
	}
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}
