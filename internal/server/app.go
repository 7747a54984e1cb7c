// Package server initializes and runs the document-processing backend: it
// wires the database, object storage, key and secret services, and the model
// client into the job and chat services, and runs the background worker with
// graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/m00n5h075/serenya-sub003/internal/logging"
	"github.com/m00n5h075/serenya-sub003/internal/server/ai"
	"github.com/m00n5h075/serenya-sub003/internal/server/auth"
	"github.com/m00n5h075/serenya-sub003/internal/server/awsx"
	"github.com/m00n5h075/serenya-sub003/internal/server/config"
	"github.com/m00n5h075/serenya-sub003/internal/server/fieldcrypt"
	"github.com/m00n5h075/serenya-sub003/internal/server/keys"
	"github.com/m00n5h075/serenya-sub003/internal/server/repositories/repomanager"
	"github.com/m00n5h075/serenya-sub003/internal/server/secrets"
	"github.com/m00n5h075/serenya-sub003/internal/server/services"
	"github.com/m00n5h075/serenya-sub003/internal/server/storage"
)

// Secret entry keys expected in the configured secret.
const (
	secretKeyTokenSigning = "token_signing_key"
	secretKeyHashSecret   = "hash_secret"

	auditSaltPurpose = "audit-user-hash"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB

	signingKey []byte

	jobService  *services.JobService
	chatService *services.ChatService
	worker      *Worker
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	slogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(slogger)

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	repos := repomanager.NewPostgresRepositoryManager()
	if err := repos.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migrations: %w", err)
	}

	awsCfg, err := awsx.LoadConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	store := storage.NewS3Store(awsx.NewS3Client(awsCfg, cfg), cfg.S3Bucket)
	cipher := fieldcrypt.NewCipher(keys.NewProvider(awsx.NewKMSClient(awsCfg)))
	secretStore := secrets.NewStore(awsx.NewSecretsClient(awsCfg))

	appSecrets, err := secretStore.GetSecret(ctx, cfg.SecretsName)
	if err != nil {
		return nil, fmt.Errorf("load secrets: %w", err)
	}
	signingKey := []byte(appSecrets[secretKeyTokenSigning])
	if len(signingKey) == 0 {
		return nil, fmt.Errorf("secret %s is missing %s", cfg.SecretsName, secretKeyTokenSigning)
	}
	hashSecret := []byte(appSecrets[secretKeyHashSecret])
	if len(hashSecret) == 0 {
		return nil, fmt.Errorf("secret %s is missing %s", cfg.SecretsName, secretKeyHashSecret)
	}
	userSalt, err := fieldcrypt.DeriveIndexSalt(hashSecret, auditSaltPurpose)
	if err != nil {
		return nil, fmt.Errorf("derive salt: %w", err)
	}

	llm := ai.NewClient(awsx.NewBedrockClient(awsCfg), cfg.BedrockModelID)

	jobService := services.NewJobService(db, repos, store, cipher, llm, logger, cfg, userSalt)
	chatService := services.NewChatService(db, repos, store, cipher, llm, logger, userSalt)

	return &App{
		config:      cfg,
		logger:      logger,
		db:          db,
		signingKey:  signingKey,
		jobService:  jobService,
		chatService: chatService,
		worker:      NewWorker(jobService, logger, cfg.WorkerPollInterval, cfg.WorkerBatchSize),
	}, nil
}

// Jobs exposes the document-job operations to the transport layer.
func (app *App) Jobs() *services.JobService {
	return app.jobService
}

// Chat exposes the chat operations to the transport layer.
func (app *App) Chat() *services.ChatService {
	return app.chatService
}

// IssueToken signs an identity token for userID.
func (app *App) IssueToken(userID string) (string, error) {
	return auth.GenerateToken(userID, app.signingKey, app.config.AccessTokenValidityDuration)
}

// Authenticate resolves a presented token to its user id.
func (app *App) Authenticate(token string) (string, error) {
	return auth.GetUserIDFromToken(token, app.signingKey)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run starts the background worker and blocks until the context is canceled
// or a termination signal arrives.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting app")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.worker.Run(ctx)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close failed", "error", err.Error())
	}
	app.logger.Info(ctx, "app stopped")
}
