package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/cloo-solutions/knowbase/internal/api/handlers"
	"github.com/cloo-solutions/knowbase/internal/chunker"
	"github.com/cloo-solutions/knowbase/internal/config"
	"github.com/cloo-solutions/knowbase/internal/database"
	"github.com/cloo-solutions/knowbase/internal/openai"
	"github.com/cloo-solutions/knowbase/internal/repository"
	"github.com/cloo-solutions/knowbase/internal/server"
	"github.com/cloo-solutions/knowbase/internal/service"
	"github.com/cloo-solutions/knowbase/internal/telemetry"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	openaisdk "github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the knowbase API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cmd.Flags().Bool("no-bootstrap", false, "Skip built-in content pack initialization on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.SentryDSN != "" {
		environment := cfg.SentryEnvironment
		if environment == "" {
			environment = "development"
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      environment,
			TracesSampleRate: cfg.SentryTracesSampleRate,
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

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
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

	deps, err := buildServices(cfg, pool)
	if err != nil {
		return err
	}

	packs, err := discoverPacks(cfg)
	if err != nil {
		return fmt.Errorf("failed to discover content packs: %w", err)
	}

	noBootstrap, _ := cmd.Flags().GetBool("no-bootstrap")
	if !noBootstrap {
		for _, pack := range packs {
			if err := deps.initializer.EnsureInitialized(ctx, pack); err != nil {
				return fmt.Errorf("failed to initialize domain %q: %w", pack.Domain, err)
			}
		}
	}

	routerCfg := server.RouterConfig{
		KnowledgeHandler: handlers.NewKnowledgeHandler(deps.knowledge),
		StatusHandler:    handlers.NewStatusHandler(deps.status, packs),
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

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

// serviceDeps bundles the wired service layer shared by serve, export and
// reinit.
type serviceDeps struct {
	knowledge   *service.KnowledgeService
	initializer *service.Initializer
	status      *repository.StatusRepository
}

func buildServices(cfg *config.Config, pool *pgxpool.Pool) (*serviceDeps, error) {
	if !cfg.HasOpenAI() {
		return nil, fmt.Errorf("KNOWBASE_OPENAI_API_KEY (or OPENAI_API_KEY) is required")
	}

	embedder := openai.NewClientWithConfig(openai.Config{
		APIKey:         cfg.OpenAIAPIKey,
		EmbeddingModel: openaisdk.EmbeddingModel(cfg.EmbeddingModel),
	})

	splitter := chunker.New(chunker.Config{
		ChunkSize:    cfg.ChunkSize,
		ChunkOverlap: cfg.ChunkOverlap,
	})

	collectionRepo := repository.NewCollectionRepository(pool)
	chunkRepo := repository.NewChunkRepository(pool)
	statusRepo := repository.NewStatusRepository(pool)

	knowledgeSvc := service.NewKnowledgeService(collectionRepo, chunkRepo, embedder, splitter, service.Options{
		TopK:                cfg.TopK,
		SimilarityThreshold: cfg.SimilarityThreshold,
	})

	initializer := service.NewInitializer(knowledgeSvc, statusRepo, collectionRepo, chunkRepo, nil)

	return &serviceDeps{
		knowledge:   knowledgeSvc,
		initializer: initializer,
		status:      statusRepo,
	}, nil
}

// discoverPacks treats every subdirectory of CONTENT_DIR as one domain's
// content pack, all sharing CONTENT_VERSION. No CONTENT_DIR means no packs.
func discoverPacks(cfg *config.Config) ([]service.ContentPack, error) {
	if cfg.ContentDir == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(cfg.ContentDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read content dir %q: %w", cfg.ContentDir, err)
	}

	var packs []service.ContentPack
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		packs = append(packs, service.ContentPack{
			Domain:  entry.Name(),
			Version: cfg.ContentVersion,
			Dir:     filepath.Join(cfg.ContentDir, entry.Name()),
		})
	}

	sort.Slice(packs, func(i, j int) bool { return packs[i].Domain < packs[j].Domain })
	return packs, nil
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
