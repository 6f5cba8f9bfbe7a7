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

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/regulaworks/corpagent/internal/analyze"
	"github.com/regulaworks/corpagent/internal/annotate"
	"github.com/regulaworks/corpagent/internal/api/handlers"
	"github.com/regulaworks/corpagent/internal/config"
	"github.com/regulaworks/corpagent/internal/database"
	"github.com/regulaworks/corpagent/internal/jobs"
	"github.com/regulaworks/corpagent/internal/knowledge"
	"github.com/regulaworks/corpagent/internal/openai"
	"github.com/regulaworks/corpagent/internal/repository"
	"github.com/regulaworks/corpagent/internal/rules"
	"github.com/regulaworks/corpagent/internal/server"
	"github.com/regulaworks/corpagent/internal/storage"
	"github.com/regulaworks/corpagent/internal/telemetry"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the analysis API server",
		Long:  "Start the corpagent API server on the specified port",
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

	compliance, err := config.LoadCompliance(cfg.ComplianceConfig)
	if err != nil {
		return fmt.Errorf("failed to load compliance config: %w", err)
	}

	if cfg.SentryDSN != "" {
		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if cfg.Environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      cfg.Environment,
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

	var store knowledge.Store
	if cfg.HasDatabase() {
		pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()
		log.Println("connected to database")

		noMigrate, _ := cmd.Flags().GetBool("no-migrate")
		if !noMigrate {
			if err := runMigrations(cfg.DatabaseURL); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
		}

		store = repository.NewKnowledgeStore(pool)
	}

	// The embedder interface must stay nil when there is no client, so the
	// index degrades retrieval instead of calling through a nil pointer.
	var aiClient *openai.Client
	var embedder knowledge.Embedder
	if cfg.HasOpenAI() {
		aiClient = openai.NewClientWithConfig(openai.Config{
			APIKey:        cfg.OpenAIAPIKey,
			Timeout:       time.Duration(compliance.External.TimeoutSeconds) * time.Second,
			MaxRetries:    compliance.External.MaxRetries,
			MaxInFlight:   compliance.External.MaxInFlight,
			RatePerSecond: int(compliance.External.RatePerSecond),
		})
		embedder = aiClient
	} else {
		log.Println("OPENAI_API_KEY not set: retrieval checks will report unverified")
	}

	index := knowledge.NewIndex(embedder)
	manager := knowledge.NewManager(cfg.KnowledgeDir, index, store)

	if store != nil {
		if err := manager.Restore(ctx); err != nil {
			log.Printf("knowledge restore failed (continuing with empty index): %v", err)
		}
	}

	serveCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()

	var reindexWorker *jobs.Worker
	if aiClient != nil {
		processor, err := jobs.NewReindexWorker(cfg.KnowledgeDir, manager)
		if err != nil {
			log.Printf("knowledge watcher unavailable (reindex via API only): %v", err)
		} else {
			go processor.Watch(serveCtx)
			reindexWorker = jobs.NewWorker(processor, 10*time.Second)
			go reindexWorker.Start(serveCtx)
			log.Println("reindex worker started")
		}
	}

	engineOpts := []rules.Option{}
	if aiClient != nil {
		engineOpts = append(engineOpts, rules.WithSuggestionWriter(aiClient))
	}
	engine, err := rules.NewEngine(compliance, index, engineOpts...)
	if err != nil {
		return fmt.Errorf("failed to build rule engine: %w", err)
	}

	pipeline := analyze.New(compliance, engine)

	var runner handlers.AnalysisRunner = pipeline
	if cfg.HasS3() {
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
		runner = &archivingRunner{
			pipeline:  pipeline,
			artifacts: storage.NewArtifactStore(s3Client),
		}
	}

	routerCfg := server.RouterConfig{
		APIToken:         cfg.APIToken,
		AnalysisHandler:  handlers.NewAnalysisHandler(runner),
		KnowledgeHandler: handlers.NewKnowledgeHandler(manager),
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

	stopWorkers()
	if reindexWorker != nil {
		reindexWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

// archivingRunner runs the pipeline and persists batch artifacts. A storage
// failure is logged, not returned; the client already has the full result.
type archivingRunner struct {
	pipeline  *analyze.Pipeline
	artifacts *storage.ArtifactStore
}

func (r *archivingRunner) Run(ctx context.Context, inputs []analyze.InputDocument) (*analyze.Result, error) {
	result, err := r.pipeline.Run(ctx, inputs)
	if err != nil {
		return nil, err
	}

	annotated := make(map[string]string, len(result.Documents))
	for _, d := range result.Documents {
		annotated[d.Document.Filename] = d.Annotated
	}
	summary := annotate.RenderSummary(result.Report)

	if _, err := r.artifacts.SaveBatch(ctx, result.BatchID, result.Report, summary, annotated); err != nil {
		log.Printf("batch %s: failed to store artifacts: %v", result.BatchID, err)
	}

	return result, nil
}

func runMigrations(databaseURL string) error {
	// Create a sql.DB connection for golang-migrate
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

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
