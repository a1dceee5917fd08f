package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"jobassist/internal/applications"
	"jobassist/internal/backend"
	"jobassist/internal/documents"
	"jobassist/internal/services/health"
	"jobassist/internal/session"
	"jobassist/internal/shared/config"
	"jobassist/internal/shared/server"
	"jobassist/internal/shared/storage/db"
	"jobassist/internal/shared/storage/object"
	localstore "jobassist/internal/shared/storage/object/local"
	s3store "jobassist/internal/shared/storage/object/s3"
	"jobassist/internal/shared/telemetry"
)

// App holds shared dependencies.
type App struct {
	Config   config.Config
	Router   *gin.Engine
	DB       *sql.DB
	Store    object.ObjectStore
	Backend  *backend.Client
	State    session.StateStore
	Sessions *session.Manager
	Exports  documents.ExportsRepo
	Health   *health.Service

	ApplicationsService *applications.Service
	DocumentsService    *documents.Service

	ApplicationsHandler *applications.Handler
	SessionHandler      *session.Handler
	DocumentsHandler    *documents.Handler
}

// Build prepares shared dependencies and the router.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	app, err := BuildCore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Store = store
	if app.DB != nil {
		app.Exports = &documents.SQLiteRepo{DB: app.DB}
	} else {
		app.Exports = documents.NewMemoryRepo()
	}

	app.ApplicationsService = &applications.Service{Backend: app.Backend, Sessions: app.Sessions}
	app.DocumentsService = &documents.Service{Sessions: app.Sessions, Store: app.Store, Repo: app.Exports}
	app.ApplicationsHandler = applications.NewHandler(app.ApplicationsService)
	app.SessionHandler = session.NewHandler(app.Sessions, app.Backend, cfg.StartPath)
	app.DocumentsHandler = documents.NewHandler(app.DocumentsService, app.Sessions, cfg.StartPath)

	app.Health = health.NewService()
	if app.DB != nil {
		app.Health.Register("session_db", app.DB)
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config: cfg,
		Health: app.Health,
		Handlers: []server.RouteRegistrar{
			app.ApplicationsHandler,
			app.SessionHandler,
			app.DocumentsHandler,
		},
	})
	return app, nil
}

// BuildCore prepares the backend client, client state and session manager
// without the HTTP surface. The CLI uses it directly.
func BuildCore(ctx context.Context, cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}

	client, err := backend.New(backend.Options{
		BaseURL:    cfg.BackendBaseURL,
		UpdatePath: cfg.BackendUpdatePath,
		Timeout:    cfg.BackendTimeout,
		Breaker: backend.BreakerSettings{
			Enabled:      cfg.BreakerEnabled,
			MinRequests:  cfg.BreakerMinCalls,
			FailureRatio: cfg.BreakerFailRatio,
			OpenFor:      cfg.BreakerOpenFor,
		},
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var state session.StateStore
	if sqlDB != nil {
		state = &session.SQLiteStore{DB: sqlDB}
	} else {
		state = session.NewMemoryStore()
	}

	return &App{
		Config:   cfg,
		DB:       sqlDB,
		Backend:  client,
		State:    state,
		Sessions: session.NewManager(client, state),
	}, nil
}

// Close releases the session and the database.
func (a *App) Close() {
	if a.Sessions != nil {
		a.Sessions.Close()
	}
	if a.DB != nil {
		_ = a.DB.Close()
	}
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	path := strings.TrimSpace(cfg.SessionDBPath)
	if path == "" {
		telemetry.Warn("bootstrap.session_db_disabled", map[string]any{"reason": "SESSION_DB_PATH empty"})
		return nil, nil
	}

	sqlDB, err := db.Connect(ctx, path, db.OptionsFromEnv(db.DefaultOptions()))
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.session_db_unavailable", map[string]any{"path": path, "error": err})
			return nil, nil
		}
		return nil, err
	}
	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local", "test":
		return true
	default:
		return false
	}
}
