package bootstrap

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	appAuth "github.com/yigit/univote/internal/app/auth"
	appControllers "github.com/yigit/univote/internal/app/controllers"
	appMigrations "github.com/yigit/univote/internal/app/migrations"
	appRepos "github.com/yigit/univote/internal/app/repositories"
	"github.com/yigit/univote/internal/app/repositories/sqlite"
	appRoutes "github.com/yigit/univote/internal/app/routes"
	appServices "github.com/yigit/univote/internal/app/services"
	"github.com/yigit/univote/internal/config"
	"github.com/yigit/univote/internal/db"
	appMiddleware "github.com/yigit/univote/internal/middleware"
	pkgAuth "github.com/yigit/univote/internal/pkg/auth"
	"github.com/yigit/univote/internal/pkg/email"
	"github.com/yigit/univote/internal/pkg/filestorage"
	"github.com/yigit/univote/internal/pkg/logger"
	"github.com/yigit/univote/internal/pkg/validation"
	"github.com/yigit/univote/internal/pkg/websocket"
	"github.com/yigit/univote/internal/seed"
)

// DefaultConfigPath is read when no --config flag is given
var DefaultConfigPath = filepath.Join("configs", "config.yaml")

// ResultsMessageType is the websocket message type pushed after a results change
const ResultsMessageType = "results_changed"

// Dependencies holds all the application dependencies
type Dependencies struct {
	Config         *config.Config
	Store          *Store
	Services       *appServices.Services
	JWTService     *pkgAuth.JWTService
	Enforcer       *appAuth.Enforcer
	Hub            *websocket.Hub
	FileStorage    *filestorage.LocalStorage
	AuthMiddleware *appMiddleware.AuthMiddleware
	Handlers       appRoutes.Handlers
	Logger         zerolog.Logger
}

// Store is an opened, migrated repository backend
type Store struct {
	Driver  string
	Repos   *appRepos.Repositories
	Applied []string
	close   func()
}

// Close releases the backend's connections
func (s *Store) Close() {
	if s.close != nil {
		s.close()
	}
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger(configPath string) (*config.Config, zerolog.Logger, error) {
	if configPath == "" {
		configPath = DefaultConfigPath
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Str("path", configPath).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logger.Configure(logger.FromSettings(cfg.Logging.Level, cfg.Logging.Format))

	lgr := log.Logger
	lgr.Info().
		Str("logLevel", cfg.Logging.Level).
		Str("logFormat", cfg.Logging.Format).
		Str("driver", cfg.Database.Driver).
		Msg("Logger configured")
	return cfg, lgr, nil
}

// OpenStore connects to the configured database and applies pending migrations.
func OpenStore(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (*Store, error) {
	switch cfg.Database.Driver {
	case config.DriverSQLite:
		lgr.Info().Str("path", cfg.Database.SQLitePath).Msg("Opening SQLite database...")
		s, err := sqlite.Open(ctx, cfg.Database.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		return &Store{Driver: config.DriverSQLite, Repos: s.Repositories, close: s.Close}, nil

	case config.DriverPostgres:
		lgr.Info().Msg("Establishing database connection...")
		database, err := db.NewPostgresDB(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		lgr.Info().Msg("Database connection successfully established.")

		applied, err := appMigrations.NewMigrator(database.Pool).Up(ctx)
		if err != nil {
			database.Close()
			return nil, fmt.Errorf("database migrations failed: %w", err)
		}
		lgr.Info().Int("applied", len(applied)).Msg("Database migrations successfully applied.")

		return &Store{
			Driver:  config.DriverPostgres,
			Repos:   appRepos.NewRepositories(database.Pool),
			Applied: applied,
			close:   database.Close,
		}, nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
}

// hubNotifier forwards results events to the websocket clients
type hubNotifier struct {
	hub *websocket.Hub
}

func (n hubNotifier) ResultsChanged(event appServices.ResultsEvent) {
	n.hub.Publish(ResultsMessageType, event)
}

// BuildServices wires the service layer. The CLI maintenance commands use it
// without the HTTP stack; notifier may be nil.
func BuildServices(cfg *config.Config, store *Store, storage filestorage.FileStorage, notifier appServices.ResultsNotifier) (*appServices.Services, *pkgAuth.JWTService, error) {
	jwtConfig, err := pkgAuth.NewJWTConfig(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiration, cfg.JWT.RefreshTokenExpiration, cfg.JWT.Issuer)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid JWT configuration: %w", err)
	}
	jwtService := pkgAuth.NewJWTService(jwtConfig)

	svc := appServices.NewServices(store.Repos, appServices.Options{
		Election: appServices.ElectionOptions{
			Location:        cfg.Location(),
			SessionOverride: cfg.Election.SessionOverride,
		},
		ResetPhrase: cfg.Election.ResetPhrase,
		JWT:         jwtService,
		Storage:     storage,
		Notifier:    notifier,
		Reviews:     newMailer(cfg),
	})
	return svc, jwtService, nil
}

func newMailer(cfg *config.Config) *email.Mailer {
	return email.NewMailer(email.SMTPConfig{
		Host:      cfg.SMTP.Host,
		Port:      cfg.SMTP.Port,
		Username:  cfg.SMTP.Username,
		Password:  cfg.SMTP.Password,
		FromName:  cfg.SMTP.FromName,
		FromEmail: cfg.SMTP.FromEmail,
		UseTLS:    cfg.SMTP.UseTLS,
	}, logger.Component("mail"))
}

// BuildDependencies initializes services, controllers and the results hub over an opened store.
func BuildDependencies(ctx context.Context, cfg *config.Config, store *Store, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Config: cfg, Store: store, Logger: lgr}

	var err error
	deps.FileStorage, err = filestorage.NewLocalStorage(cfg.Server.StoragePath, cfg.Server.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize file storage: %w", err)
	}

	deps.Hub = websocket.NewHub(logger.Component("live"))

	deps.Services, deps.JWTService, err = BuildServices(cfg, store, deps.FileStorage, hubNotifier{hub: deps.Hub})
	if err != nil {
		return nil, err
	}

	deps.Enforcer, err = appAuth.NewEnforcer()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize authorization: %w", err)
	}
	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.JWTService, deps.Enforcer)

	if err := seed.CreateDefaultData(ctx, cfg, store.Repos, deps.Services.Admins, lgr); err != nil {
		lgr.Error().Err(err).Msg("Failed to create default data, proceeding anyway...")
	}

	results := deps.Services.Results
	snapshot := func(ctx context.Context) (interface{}, error) {
		return results.Results(ctx, "")
	}

	deps.Handlers = appRoutes.Handlers{
		Auth:       appControllers.NewAuthController(deps.Services.Auth, deps.Services.Voters, logger.Component("auth")),
		Ballots:    appControllers.NewBallotController(deps.Services.Ballots, logger.Component("ballots")),
		Results:    appControllers.NewResultsController(deps.Services.Results, deps.Services.Election),
		Candidates: appControllers.NewCandidateController(deps.Services.Candidates, logger.Component("candidates")),
		Voters:     appControllers.NewVoterController(deps.Services.Voters),
		Admin:      appControllers.NewAdminController(deps.Services, logger.Component("admin")),
		Live:       websocket.NewHandler(deps.Hub, snapshot, logger.Component("live")),
	}

	return deps, nil
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	if err := validation.Register(); err != nil {
		lgr.Error().Err(err).Msg("Failed to register validation rules")
	}

	router := gin.New()
	router.Use(appMiddleware.RequestLogger(logger.Component("http")), appMiddleware.Recovery(lgr))
	router.MaxMultipartMemory = filestorage.MaxPhotoBytes + 1<<20

	appRoutes.SetupRouter(router, deps.Handlers, deps.AuthMiddleware)

	uploadsPath := "/uploads"
	if u, err := url.Parse(cfg.Server.BaseURL); err == nil && u.Path != "" {
		uploadsPath = u.Path
	}
	router.Static(uploadsPath, deps.FileStorage.BasePath())
	lgr.Info().Str("path", deps.FileStorage.BasePath()).Str("url", uploadsPath).Msg("Static file serving configured for uploads directory")

	return router
}
