package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"google.golang.org/api/option"

	driveauth "interntrack-backend/internal/auth"
	"interntrack-backend/internal/documents"
	"interntrack-backend/internal/extract"
	"interntrack-backend/internal/records"
	"interntrack-backend/internal/shared/config"
	"interntrack-backend/internal/shared/lock"
	"interntrack-backend/internal/shared/server"
	"interntrack-backend/internal/shared/storage/blob"
	drivestore "interntrack-backend/internal/shared/storage/blob/drive"
	gcsstore "interntrack-backend/internal/shared/storage/blob/gcs"
	localstore "interntrack-backend/internal/shared/storage/blob/local"
	s3store "interntrack-backend/internal/shared/storage/blob/s3"
	"interntrack-backend/internal/shared/storage/db"
	"interntrack-backend/internal/shared/telemetry"
	"interntrack-backend/internal/students"
)

const (
	redisLockPrefix = "interntrack:lock:"
	redisLockTTL    = 30 * time.Second
)

// App holds shared dependencies and the wired router.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Redis  *goredis.Client

	Blob      blob.Store
	Records   records.Store
	Extractor extract.Extractor
	Keywords  documents.KeywordTable
	DriveAuth *driveauth.DriveAuth

	StudentsService *students.Service
	RecordsService  *records.Service
	Pipeline        *documents.Pipeline

	DocumentsHandler *documents.Handler
	RecordsHandler   *records.Handler
	StudentsHandler  *students.Handler
}

// Build prepares every dependency and the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.BlobStoreType) == "" {
		cfg.BlobStoreType = "local"
	}
	if strings.TrimSpace(cfg.RecordStoreType) == "" {
		cfg.RecordStoreType = "xlsx"
	}
	ctx := context.Background()

	app := &App{Config: cfg}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.DB = sqlDB

	app.DriveAuth = driveauth.NewDriveAuth(
		cfg.GoogleClientID,
		cfg.GoogleClientSecret,
		cfg.GoogleRedirectURL,
		driveauth.NewTokenStore(cfg.DriveTokenFile, cfg.DriveRefreshToken),
		nil,
	)

	if app.Blob, err = buildBlobStore(ctx, cfg, app.DriveAuth); err != nil {
		return nil, err
	}
	app.DriveAuth.SetFolders(app.Blob)

	if app.Redis, err = buildRedis(ctx, cfg); err != nil {
		return nil, err
	}
	if app.Records, err = buildRecordStore(cfg, app.DB, app.Redis); err != nil {
		return nil, err
	}
	if app.Extractor, err = buildExtractor(ctx, cfg); err != nil {
		return nil, err
	}
	if app.Keywords, err = documents.LoadKeywordTable(cfg.KeywordsFile); err != nil {
		return nil, err
	}

	buildServices(app)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:       app.Config,
		Documents:    app.DocumentsHandler,
		Records:      app.RecordsHandler,
		Students:     app.StudentsHandler,
		Drive:        app.DriveAuth,
		HealthChecks: app.healthChecks(),
	})

	return app, nil
}

func (a *App) healthChecks() map[string]server.HealthCheck {
	checks := map[string]server.HealthCheck{}
	if a.DB != nil {
		checks["database"] = func(ctx context.Context) error { return db.Ping(ctx, a.DB) }
	}
	if a.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return a.Redis.Ping(ctx).Err() }
	}
	return checks
}

// Close releases connections held by the app.
func (a *App) Close() {
	if a.DB != nil {
		_ = a.DB.Close()
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if c, ok := a.Extractor.(io.Closer); ok {
		_ = c.Close()
	}
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	needed := cfg.RecordStoreType == "postgres"
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if needed && !config.IsDevLike(cfg.Env) {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
		telemetry.Info("bootstrap.db_skipped", map[string]any{"reason": "DATABASE_URL empty"})
		return nil, nil
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if config.IsDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.db_unavailable", map[string]any{"error": err.Error()})
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

func buildBlobStore(ctx context.Context, cfg config.Config, drive *driveauth.DriveAuth) (blob.Store, error) {
	switch cfg.BlobStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("BLOB_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	case "gcs":
		if strings.TrimSpace(cfg.GCSBucket) == "" {
			return nil, fmt.Errorf("BLOB_STORE=gcs requires GCS_BUCKET")
		}
		return gcsstore.New(ctx, cfg.GCSBucket, cfg.GCSCredentialsFile)
	case "drive":
		if strings.TrimSpace(cfg.DriveCredentialsFile) != "" {
			return drivestore.New(ctx, cfg.DriveRootFolder, option.WithCredentialsFile(cfg.DriveCredentialsFile))
		}
		if !drive.Configured() {
			return nil, fmt.Errorf("BLOB_STORE=drive requires DRIVE_CREDENTIALS_FILE or GOOGLE_OAUTH_CLIENT_ID/SECRET/REDIRECT_URI")
		}
		return drivestore.New(ctx, cfg.DriveRootFolder, option.WithTokenSource(drive.TokenSource(ctx)))
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildRedis(ctx context.Context, cfg config.Config) (*goredis.Client, error) {
	if strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil, nil
	}
	client, err := lock.Connect(ctx, cfg.RedisAddr)
	if err != nil {
		if config.IsDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.redis_unavailable", map[string]any{"error": err.Error()})
			return nil, nil
		}
		return nil, err
	}
	return client, nil
}

func buildRecordStore(cfg config.Config, sqlDB *sql.DB, redis *goredis.Client) (records.Store, error) {
	switch cfg.RecordStoreType {
	case "postgres":
		if sqlDB == nil {
			telemetry.Warn("bootstrap.records_memory", map[string]any{"reason": "no database"})
			return records.NewMemoryStore(), nil
		}
		return &records.PGStore{DB: sqlDB}, nil
	case "memory":
		return records.NewMemoryStore(), nil
	default:
		var locker lock.Locker = lock.NewLocal()
		if redis != nil {
			locker = lock.NewRedis(redis, redisLockPrefix, redisLockTTL)
		}
		return records.NewXLSXStore(cfg.RecordsXLSXPath, cfg.RecordsSheet, locker), nil
	}
}

func buildExtractor(ctx context.Context, cfg config.Config) (extract.Extractor, error) {
	switch cfg.Extractor {
	case "command":
		return extract.NewCommand(cfg.ExtractCommand, nil)
	case "documentai":
		return extract.NewDocumentAI(ctx, cfg.DocumentAIProject, cfg.DocumentAILocation, cfg.DocumentAIProcessor)
	case "chain":
		steps := []extract.Extractor{extract.NewNative()}
		if strings.TrimSpace(cfg.ExtractCommand) != "" {
			cmd, err := extract.NewCommand(cfg.ExtractCommand, nil)
			if err != nil {
				return nil, err
			}
			steps = append(steps, cmd)
		}
		if strings.TrimSpace(cfg.DocumentAIProcessor) != "" {
			docAI, err := extract.NewDocumentAI(ctx, cfg.DocumentAIProject, cfg.DocumentAILocation, cfg.DocumentAIProcessor)
			if err != nil {
				return nil, err
			}
			steps = append(steps, docAI)
		}
		if strings.TrimSpace(cfg.OCRCommand) != "" {
			cmd, err := extract.NewCommand(cfg.OCRCommand, nil)
			if err != nil {
				return nil, err
			}
			steps = append(steps, cmd)
		}
		return extract.NewFallback(steps...), nil
	default:
		return extract.NewNative(), nil
	}
}

func buildServices(app *App) {
	var studentRepo students.Repo
	if app.DB != nil {
		studentRepo = &students.PGRepo{DB: app.DB}
	} else {
		studentRepo = students.NewMemoryRepo()
	}

	tempDir := app.Config.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}

	app.StudentsService = students.NewService(studentRepo, app.Blob)
	app.RecordsService = records.NewService(app.Records, documents.Columns()...)
	app.Pipeline = documents.NewPipeline(
		documents.NewUploader(app.Blob, app.StudentsService),
		documents.NewVerifier(app.Blob, app.Extractor, app.Keywords, tempDir),
		documents.NewReconciler(app.Records),
	)

	app.DocumentsHandler = documents.NewHandler(app.Pipeline, app.Keywords, tempDir)
	app.RecordsHandler = records.NewHandler(app.RecordsService)
	app.StudentsHandler = students.NewHandler(app.StudentsService)
}
