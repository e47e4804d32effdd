package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloo-solutions/lexidx/internal/api/handlers"
	"github.com/cloo-solutions/lexidx/internal/config"
	"github.com/cloo-solutions/lexidx/internal/database"
	"github.com/cloo-solutions/lexidx/internal/domain"
	"github.com/cloo-solutions/lexidx/internal/jobs"
	"github.com/cloo-solutions/lexidx/internal/openai"
	"github.com/cloo-solutions/lexidx/internal/pagination"
	"github.com/cloo-solutions/lexidx/internal/repository"
	"github.com/cloo-solutions/lexidx/internal/server"
	"github.com/cloo-solutions/lexidx/internal/service"
	"github.com/cloo-solutions/lexidx/internal/storage"
	"github.com/cloo-solutions/lexidx/internal/telemetry"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the lexidx API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              dsn,
			Environment:      environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := database.NewPoolFromURL(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	// Run migrations unless --no-migrate flag is set
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	docRepo := repository.NewDocumentRepository(pool)
	chunkRepo := repository.NewChunkRepository(pool)
	jobRepo := repository.NewProcessingJobRepository(pool)
	searchLogRepo := repository.NewSearchLogRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	encoder := service.NewFeatureEncoder(cfg.EmbeddingDimension)
	extractor := service.NewExtractor(nil)
	chunker := service.NewChunker(service.DefaultChunkerConfig())

	searchCfg := service.DefaultSearchConfig()
	searchCfg.CacheTTL = time.Duration(cfg.CacheTTLMinutes) * time.Minute
	engine := service.NewSearchEngine(chunkRepo, encoder, searchLogRepo, searchCfg)

	var documentHandler *handlers.DocumentHandler
	var processingWorker *jobs.Worker
	if cfg.HasS3() {
		s3Config := storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		}
		s3Client, err := storage.NewS3Client(ctx, s3Config)
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)

		ingestCfg := service.IngestConfig{
			Workers:            cfg.IngestWorkers,
			EmbedRatePerSecond: cfg.EmbedRatePerSecond,
			MaxUploadBytes:     service.DefaultIngestConfig().MaxUploadBytes,
		}
		ingestSvc := service.NewIngestService(docRepo, chunkRepo, jobRepo, txRunner, s3Client, extractor, chunker, encoder, ingestCfg)
		documentHandler = handlers.NewDocumentHandler(ingestSvc)

		processor := jobs.NewProcessingWorker(jobRepo, ingestSvc)
		processingWorker = jobs.NewWorker(processor, 10*time.Second)
		go processingWorker.Start(ctx)
		log.Println("processing worker started")
	} else {
		documentHandler = handlers.NewDocumentHandler(&NoOpDocumentService{})
	}

	searchHandler := handlers.NewSearchHandler(engine, searchLogRepo)

	var askHandler *handlers.AskHandler
	if cfg.HasOpenAI() {
		ragCfg := service.DefaultRAGConfig()
		ragCfg.ContextCharBudget = cfg.ContextCharBudget
		ragSvc := service.NewRAGService(engine, openai.NewClient(cfg.OpenAIAPIKey), ragCfg)
		askHandler = handlers.NewAskHandler(ragSvc)
	} else {
		askHandler = handlers.NewAskHandler(&NoOpAnswerService{})
	}

	routerCfg := server.RouterConfig{
		DocumentHandler: documentHandler,
		SearchHandler:   searchHandler,
		AskHandler:      askHandler,
	}

	router := server.NewRouter(routerCfg)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	if processingWorker != nil {
		processingWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

func runMigrations(databaseURL string) error {
	// Create a sql.DB connection for golang-migrate
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	// Create postgres driver instance
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	// Create migrate instance with file source
	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	// Run migrations
	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	// Get migration version and status
	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}

type NoOpDocumentService struct{}

func (s *NoOpDocumentService) Upload(ctx context.Context, req service.UploadRequest) (*domain.Document, error) {
	return nil, fmt.Errorf("document service not configured: S3_ENDPOINT required")
}

func (s *NoOpDocumentService) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	return nil, fmt.Errorf("document service not configured: S3_ENDPOINT required")
}

func (s *NoOpDocumentService) GetDocumentChunks(ctx context.Context, id string) ([]*domain.Chunk, error) {
	return nil, fmt.Errorf("document service not configured: S3_ENDPOINT required")
}

func (s *NoOpDocumentService) ListDocuments(ctx context.Context, status domain.DocumentStatus, cursor string, limit int) (*pagination.PageResult[*domain.Document], error) {
	return nil, fmt.Errorf("document service not configured: S3_ENDPOINT required")
}

func (s *NoOpDocumentService) DeleteDocument(ctx context.Context, id string) error {
	return fmt.Errorf("document service not configured: S3_ENDPOINT required")
}

type NoOpAnswerService struct{}

func (s *NoOpAnswerService) Ask(ctx context.Context, req service.AskRequest) (*service.Answer, error) {
	return nil, fmt.Errorf("answer service not configured: OPENAI_API_KEY required")
}
