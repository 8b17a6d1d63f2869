package commands

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/TimUdinusYes/backend/internal/cache"
	"github.com/TimUdinusYes/backend/internal/client"
	"github.com/TimUdinusYes/backend/internal/config"
	"github.com/TimUdinusYes/backend/internal/database"
	"github.com/TimUdinusYes/backend/internal/logger"
	"github.com/TimUdinusYes/backend/internal/metrics"
	"github.com/TimUdinusYes/backend/internal/middleware"
	"github.com/TimUdinusYes/backend/internal/migration"
	"github.com/TimUdinusYes/backend/internal/model"
	"github.com/TimUdinusYes/backend/internal/repository"
	"github.com/TimUdinusYes/backend/internal/service"
	"github.com/TimUdinusYes/backend/internal/websocket"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

const (
	shutdownTimeout  = 15 * time.Second
	estimateCacheTTL = time.Hour
	cacheSweepEvery  = 5 * time.Minute
)

func (c *CLI) newServeCmd() *cobra.Command {
	var autoMigrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), autoMigrate)
		},
	}
	cmd.Flags().BoolVar(&autoMigrate, "migrate", true, "Apply pending migrations before serving")
	return cmd
}

// bootstrap loads configuration, starts logging and opens the database.
func bootstrap(ctx context.Context) (*config.Config, *sql.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("erro ao carregar configurações: %w", err)
	}

	logger.Init(cfg.LogLevel, cfg.LogJSON)
	metrics.Init()

	db, err := database.Connect(ctx, database.Config{URL: cfg.DatabaseURL, MaxOpenConns: cfg.DBMaxOpenConns})
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}

func serve(ctx context.Context, autoMigrate bool) error {
	cfg, db, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer database.Close(db)

	log := logger.Global()
	log.Info().
		Str("version", Version).
		Str("port", cfg.Port).
		Str("log_level", cfg.LogLevel).
		Bool("log_json", cfg.LogJSON).
		Bool("calendar", cfg.CalendarEnabled()).
		Msg("Learning path API iniciando")

	if autoMigrate {
		if err := migration.NewMigrator(db).Run(ctx); err != nil {
			return fmt.Errorf("erro ao executar migrações: %w", err)
		}
	}

	gin.SetMode(cfg.GinMode)

	app, err := wire(cfg, db)
	if err != nil {
		return err
	}
	defer app.close()

	go app.hub.Run(ctx)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Servidor iniciando")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("erro ao iniciar servidor: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("Encerrando servidor")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("erro ao encerrar servidor: %w", err)
	}
	log.Info().Msg("Servidor encerrado")
	return nil
}

// application holds everything the router needs.
type application struct {
	cfg      *config.Config
	db       *sql.DB
	hub      *websocket.Hub
	resolver client.UserResolver
	sessions *cache.TTLCache[client.AuthUser]

	topics       *service.TopicService
	workflows    *service.WorkflowService
	validation   *service.PathValidationService
	quiz         *service.QuizService
	calendarAuth *service.CalendarAuthService // nil when OAuth is not configured

	closers []func()
}

func (a *application) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// wire builds repositories, clients and services.
func wire(cfg *config.Config, db *sql.DB) (*application, error) {
	app := &application{
		cfg:      cfg,
		db:       db,
		hub:      websocket.NewHub(strings.Split(cfg.FrontendURL, ",")...),
		resolver: client.NewAuthClient(cfg.SupabaseURL, cfg.SupabaseServiceKey),
	}

	app.sessions = cache.New[client.AuthUser](middleware.SessionCacheTTL, 10000)
	validationCache := cache.New[model.ValidationVerdict](cfg.ValidationCacheTTL, cfg.ValidationCacheMaxEntries,
		cache.WithSweepInterval(cacheSweepEvery))
	estimateCache := cache.New[model.WorkflowSchedule](estimateCacheTTL, 1000, cache.WithSweepInterval(cacheSweepEvery))
	app.closers = append(app.closers, app.sessions.Stop, validationCache.Stop, estimateCache.Stop)

	// Repositories
	topicRepo := repository.NewTopicRepository(db)
	nodeRepo := repository.NewNodeRepository(db)
	workflowRepo := repository.NewWorkflowRepository(db)
	validationRepo := repository.NewValidationRepository(db)
	quizRepo := repository.NewQuizRepository(db)
	profileRepo := repository.NewProfileRepository(db)

	// Clients
	llm := client.NewLLMClient(client.LLMConfig{
		APIKey:  cfg.LLMAPIKey,
		BaseURL: cfg.LLMBaseURL,
		Model:   cfg.LLMModel,
	})

	// Calendar tokens are only available when OAuth is configured; an
	// inline access token still works without it.
	var tokens service.TokenProvider
	if cfg.CalendarEnabled() {
		vault, err := service.NewTokenVault(cfg.TokenEncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("erro ao inicializar cofre de tokens: %w", err)
		}
		app.calendarAuth = service.NewCalendarAuthService(service.CalendarAuthConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURI:  cfg.GoogleRedirectURI,
		}, repository.NewCredentialRepository(db), vault)
		app.closers = append(app.closers, app.calendarAuth.Close)
		tokens = app.calendarAuth
	}

	app.topics = service.NewTopicService(topicRepo, nodeRepo, service.NewDuplicateChecker(llm))
	app.validation = service.NewPathValidationService(validationRepo, validationCache, service.NewPathValidator(llm), workflowRepo)
	app.workflows = service.NewWorkflowService(
		workflowRepo,
		nodeRepo,
		service.NewTimeEstimator(llm, estimateCache),
		service.NewCalendarExporter(client.NewCalendarClient()),
		tokens,
		app.hub,
	)
	app.quiz = service.NewQuizService(quizRepo, profileRepo, llm)

	return app, nil
}
