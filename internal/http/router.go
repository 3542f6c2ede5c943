// Package httpapi wires the Gin transport to the court services: the
// middleware stack, dependency injection and the versioned routes.
//
// Middleware order:
//  1. otelgin: trace everything
//  2. RequestID and Identity: correlation id and acting user
//  3. Logger, then Recovery
//  4. body limit, gzip, metrics
//  5. rate limiter (per user, else per IP)
//  6. CORS and security headers
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-court-backend/internal/agent"
	"github.com/tbourn/go-court-backend/internal/config"
	"github.com/tbourn/go-court-backend/internal/domain"
	"github.com/tbourn/go-court-backend/internal/http/handlers"
	"github.com/tbourn/go-court-backend/internal/http/middleware"
	"github.com/tbourn/go-court-backend/internal/messenger"
	"github.com/tbourn/go-court-backend/internal/repo"
	"github.com/tbourn/go-court-backend/internal/services"
)

// courtRepoShim adapts the repo free functions to services.CourtRepo.
type courtRepoShim struct{}

func (courtRepoShim) CreateCourt(ctx context.Context, db *gorm.DB, c *domain.Court) error {
	return repo.CreateCourt(ctx, db, c)
}

func (courtRepoShim) GetCourt(ctx context.Context, db *gorm.DB, id int64) (*domain.Court, error) {
	return repo.GetCourt(ctx, db, id)
}

func (courtRepoShim) CourtAt(ctx context.Context, db *gorm.DB, guildID, channelID int64) (bool, error) {
	return repo.CourtAt(ctx, db, guildID, channelID)
}

func (courtRepoShim) ListCourts(ctx context.Context, db *gorm.DB) ([]domain.Court, error) {
	return repo.ListCourts(ctx, db)
}

func (courtRepoShim) DeleteCourt(ctx context.Context, db *gorm.DB, id int64) error {
	return repo.DeleteCourt(ctx, db, id)
}

// Deps are the outbound collaborators chosen by the binary.
type Deps struct {
	Agent      agent.Agent
	Summarizer agent.Summarizer
	Messenger  messenger.Messenger
	// JudgeID is the author id recorded on the judge's log entries.
	JudgeID int64
}

// Court is the wired service graph.
type Court struct {
	Courts       *services.CourtService
	Cases        *services.CaseService
	Orchestrator *services.Orchestrator
}

// NewCourt builds the service graph over db. CaseService and Orchestrator
// share one set of per-case locks.
func NewCourt(db *gorm.DB, deps Deps, cc config.CourtConfig, agentTimeout time.Duration) *Court {
	locks := services.NewCaseLocks()
	machine := services.NewStateMachine(db)
	logs := &services.LogManager{DB: db}
	headers := &services.HeaderReconciler{DB: db, Messenger: deps.Messenger, MaxRunes: cc.HeaderMaxRunes}
	sums := &services.SummaryScheduler{
		DB:         db,
		Logs:       logs,
		Summarizer: deps.Summarizer,
		Threshold:  cc.SummaryThreshold,
		Window:     cc.SummaryWindow,
		Timeout:    agentTimeout,
	}
	disp := &services.Dispatcher{DB: db, Machine: machine, Headers: headers, Messenger: deps.Messenger}

	return &Court{
		Courts: services.NewCourtService(db, courtRepoShim{}),
		Cases: &services.CaseService{
			DB:         db,
			Machine:    machine,
			Dispatcher: disp,
			Headers:    headers,
			Logs:       logs,
			Summaries:  sums,
			Messenger:  deps.Messenger,
			Locks:      locks,
		},
		Orchestrator: &services.Orchestrator{
			DB:           db,
			Locks:        locks,
			Logs:         logs,
			Context:      &services.ContextBuilder{Headers: headers, Logs: logs, Window: cc.DialogueWindow},
			Agent:        deps.Agent,
			Dispatcher:   disp,
			Summaries:    sums,
			Headers:      headers,
			Messenger:    deps.Messenger,
			SystemPrompt: agent.JudgePrompt,
			Timeout:      agentTimeout,
			JudgeID:      deps.JudgeID,
		},
	}
}

// RegisterRoutes installs the middleware stack and mounts the API under
// cfg.APIBasePath. /health and /metrics stay at the root.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, deps Deps, cfg config.Config) *Court {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID(), middleware.Identity())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(limitBody(1 << 20))
	r.Use(gzip.Gzip(gzip.DefaultCompression))
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	r.Use(cors.New(corsConfig(cfg.CORS.AllowedOrigins)))
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS: cfg.Security.EnableHSTS,
		HSTSMaxAge: cfg.Security.HSTSMaxAge,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			handlers.Fail(c, http.StatusServiceUnavailable, handlers.ErrCodeInternal, "the court records are unreachable")
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	court := NewCourt(db, deps, cfg.Court, cfg.Agent.Timeout)
	h := handlers.New(court.Courts, court.Cases, court.Orchestrator)

	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		api.POST("/courts", h.StartCourt)
		api.GET("/courts", h.ListCourts)
		api.DELETE("/courts/:id", h.StopCourt)

		api.POST("/cases", h.FileCase)
		api.GET("/cases", h.ListCases)
		api.GET("/cases/:id", h.GetCase)
		api.PATCH("/cases/:id", h.EditCase)
		api.POST("/cases/:id/close", h.CloseCase)
		api.POST("/cases/:id/reopen", h.ReopenCase)
		api.POST("/cases/:id/summarize", h.SummarizeCase)

		api.POST("/cases/:id/turns", h.PostTurn)
		api.GET("/cases/:id/logs", h.ListLogs)

		api.POST("/cases/:id/evidence", h.AttachEvidence)
		api.PUT("/evidence/:id/summary", h.SetEvidenceSummary)

		api.GET("/tools", h.ListTools)
	}
	return court
}

// corsConfig allows every origin when none are configured.
func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.UserIDHeader, "X-Request-ID"},
		ExposeHeaders: []string{"X-Request-ID", "ETag", "Retry-After"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

// limitBody caps request bodies at maxBytes.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
