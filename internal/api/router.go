package api

import (
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jiaranai/learninglab/internal/api/handlers"
	mw "github.com/jiaranai/learninglab/internal/api/middleware"
	"github.com/jiaranai/learninglab/internal/buildconfig"
	"github.com/jiaranai/learninglab/internal/config"
	"github.com/jiaranai/learninglab/internal/domain"
	"github.com/jiaranai/learninglab/internal/embedding"
	"github.com/jiaranai/learninglab/internal/llm"
	"github.com/jiaranai/learninglab/internal/render"
	"github.com/jiaranai/learninglab/internal/service"
	"github.com/jiaranai/learninglab/internal/store"
	"go.uber.org/zap"
)

// App holds the router and background services for lifecycle management.
type App struct {
	Router       *chi.Mux
	Classroom    *service.ClassroomService
	Animation    *service.AnimationService
	startTime    time.Time
	requestCount atomic.Int64
	errorCount   atomic.Int64
}

func NewApp(db *pgxpool.Pool, logger *zap.Logger) *App {
	// Stores
	beliefStore := store.NewBeliefStore()
	conceptStore := store.NewConceptStore(db)
	attemptStore := store.NewAttemptStore(db)
	taskStore := store.NewRenderTaskStore(db)
	sessionStore := newSessionStore(logger)

	// External clients via provider factory. A misconfigured provider
	// degrades to the mock client instead of wiring a nil interface.
	llmClient, err := llm.NewClient(config.LLMProvider(), config.LLMAPIKey())
	if err != nil {
		logger.Warn("LLM client initialization failed, falling back to mock",
			zap.String("provider", config.LLMProvider()), zap.Error(err))
		llmClient = llm.NewMockClient()
	} else {
		logger.Info("LLM client initialized", zap.String("provider", config.LLMProvider()))
	}

	embeddingClient, err := embedding.NewClient(config.EmbeddingProvider(), config.EmbeddingAPIKey())
	if err != nil {
		logger.Warn("Embedding client initialization failed, falling back to mock",
			zap.String("provider", config.EmbeddingProvider()), zap.Error(err))
		embeddingClient = embedding.NewMockClient()
	} else {
		logger.Info("Embedding client initialized", zap.String("provider", config.EmbeddingProvider()))
	}

	renderer := render.NewCLIRenderer(config.RenderBin(), config.ScenesDir(), config.MediaDir(), logger)

	// Services
	conceptSvc := service.NewConceptService(conceptStore, embeddingClient, logger)
	diagnosticSvc := service.NewDiagnosticService(beliefStore, conceptSvc, attemptStore, llmClient, logger)
	classroomSvc := service.NewClassroomService(sessionStore, llmClient, diagnosticSvc, logger)
	classroomSvc.SetTTL(config.SessionTTL())
	animationSvc := service.NewAnimationService(taskStore, llmClient, renderer, config.ScenesDir(), logger)

	// Handlers
	diagnosticHandler := handlers.NewDiagnosticHandler(diagnosticSvc, conceptSvc)
	classroomHandler := handlers.NewClassroomHandler(classroomSvc)
	animationHandler := handlers.NewAnimationHandler(animationSvc)

	r := chi.NewRouter()

	app := &App{
		Router:    r,
		Classroom: classroomSvc,
		Animation: animationSvc,
		startTime: time.Now(),
	}

	// Metrics collector for middleware
	metricsCollector := mw.NewMetricsCollector(&app.requestCount, &app.errorCount)

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metricsCollector.Middleware)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst()))

	r.Get("/health", healthHandler(db))
	r.Get("/metrics", app.metricsHandler())

	// Assessment loop
	r.Post("/upload-content", diagnosticHandler.UploadContent)
	r.Post("/generate-diagnostic", diagnosticHandler.GenerateDiagnostic)
	r.Post("/diagnostic-response", diagnosticHandler.RecordResponse)
	r.Get("/next-question/{userID}", diagnosticHandler.NextQuestion)
	r.Get("/next-question-batch/{userID}", diagnosticHandler.NextBatch)
	r.Get("/user-profile/{userID}", diagnosticHandler.UserProfile)
	r.Get("/concepts", diagnosticHandler.ListConcepts)

	// Classroom
	r.Route("/classroom", func(r chi.Router) {
		r.Post("/start", classroomHandler.Start)
		r.Post("/turn/{sessionID}", classroomHandler.NextTurn)
		r.Post("/lecture", classroomHandler.ContinueLecture)
		r.Post("/phase/{sessionID}", classroomHandler.SetPhase)
		r.Get("/session/{sessionID}", classroomHandler.GetSession)
	})

	// Animations
	r.Route("/animations", func(r chi.Router) {
		r.Post("/generate", animationHandler.Generate)
		r.Get("/status/{taskID}", animationHandler.Status)
		r.Post("/cancel/{taskID}", animationHandler.Cancel)
		r.Get("/scenes", animationHandler.ListScenes)
		r.Get("/render/{scene}", animationHandler.RenderScene)
	})

	// Rendered videos are served straight from the manim media tree.
	videosDir := filepath.Join(config.MediaDir(), "videos")
	fileServer := http.StripPrefix("/animations/video/", http.FileServer(http.Dir(videosDir)))
	r.Get("/animations/video/*", fileServer.ServeHTTP)

	return app
}

// newSessionStore picks the configured session backend, falling back to the
// in-memory store when Redis is unreachable.
func newSessionStore(logger *zap.Logger) domain.SessionStore {
	if config.SessionBackend() != "redis" {
		return store.NewMemorySessionStore()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	redisStore, err := store.NewRedisSessionStore(ctx, config.RedisURL(), config.SessionTTL())
	if err != nil {
		logger.Warn("Redis session store unavailable, using in-memory sessions", zap.Error(err))
		return store.NewMemorySessionStore()
	}

	logger.Info("Redis session store initialized")
	return redisStore
}

func healthHandler(db *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

func (app *App) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)

		response := map[string]any{
			"uptime_seconds": uptime.Seconds(),
			"uptime_human":   uptime.Round(time.Second).String(),
			"request_count":  app.requestCount.Load(),
			"error_count":    app.errorCount.Load(),
			"goroutines":     runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
				"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
				"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
				"num_gc":         memStats.NumGC,
			},
			"go_version": runtime.Version(),
			"build":      buildconfig.VersionInfo(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

// Ensure stores and clients satisfy interfaces at compile time.
var (
	_ domain.ConceptStore    = (*store.ConceptStore)(nil)
	_ domain.AttemptStore    = (*store.AttemptStore)(nil)
	_ domain.RenderTaskStore = (*store.RenderTaskStore)(nil)
	_ domain.SessionStore    = (*store.MemorySessionStore)(nil)
	_ domain.SessionStore    = (*store.RedisSessionStore)(nil)
	_ domain.EmbeddingClient = (*embedding.OpenAIClient)(nil)
	_ domain.EmbeddingClient = (*embedding.MockClient)(nil)
	_ domain.LLMClient       = (*llm.Client)(nil)
	_ domain.LLMClient       = (*llm.MockClient)(nil)
	_ domain.Renderer        = (*render.CLIRenderer)(nil)
	_ domain.Renderer        = (*render.MockRenderer)(nil)
)
