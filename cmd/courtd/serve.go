package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-court-backend/internal/agent"
	"github.com/tbourn/go-court-backend/internal/config"
	httpapi "github.com/tbourn/go-court-backend/internal/http"
	"github.com/tbourn/go-court-backend/internal/messenger"
	"github.com/tbourn/go-court-backend/internal/observability"
	"github.com/tbourn/go-court-backend/internal/repo"
	"github.com/tbourn/go-court-backend/internal/sysutil"
)

type serveOptions struct {
	offline bool
	dryRun  bool
	judgeID int64
	apiKey  string
}

func newServeCmd() *cobra.Command {
	var opts serveOptions
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Runs the court API until SIGINT or SIGTERM.

--offline runs without a model: every turn is answered with the outage
message and summaries fall back to the placeholder.
--dry-run keeps outbound chat messages in memory instead of calling the
webhook bridge.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, opts)
		},
	}
	f := cmd.Flags()
	f.BoolVar(&opts.offline, "offline", false, "run without a judge model")
	f.BoolVar(&opts.dryRun, "dry-run", false, "record outbound messages in memory")
	f.Int64Var(&opts.judgeID, "judge-id", 0, "platform user id recorded on the judge's log entries")
	f.StringVar(&opts.apiKey, "api-key", "", "model API key (overrides GOOGLE_API_KEY)")
	return cmd
}

// buildDeps picks the agent and messenger for this run.
func buildDeps(ctx context.Context, cfg config.Config, opts serveOptions) (httpapi.Deps, error) {
	deps := httpapi.Deps{JudgeID: opts.judgeID}

	switch {
	case opts.dryRun || cfg.Webhook.URL == "":
		if !opts.dryRun {
			log.Warn().Msg("WEBHOOK_URL not set; outbound messages are kept in memory")
		}
		deps.Messenger = messenger.NewRecorder(1)
	default:
		deps.Messenger = messenger.NewWebhook(cfg.Webhook.URL, cfg.Webhook.Timeout)
	}

	key := sysutil.FirstNonEmpty(opts.apiKey, cfg.Agent.APIKey)
	if opts.offline || key == "" {
		if !opts.offline {
			log.Warn().Msg("no model API key; the judge answers every turn with the outage message")
		}
		deps.Agent, deps.Summarizer = agent.Unavailable{}, agent.Unavailable{}
		return deps, nil
	}
	g, err := agent.NewGemini(ctx, agent.GeminiConfig{APIKey: key, Model: cfg.Agent.Model, RPS: cfg.Agent.RPS})
	if err != nil {
		return deps, err
	}
	deps.Agent, deps.Summarizer = g, g
	return deps, nil
}

func serve(parent context.Context, cfg config.Config, opts serveOptions) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.OpenSQLite(cfg.DBPath, repo.Options{Tracing: cfg.OTEL.Enabled, LogLevel: gormLevel(cfg.LogLevel)})
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	if err := repo.AutoMigrate(db); err != nil {
		return err
	}

	deps, err := buildDeps(ctx, cfg, opts)
	if err != nil {
		return err
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, db, deps, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Str("base", cfg.APIBasePath).Bool("offline", opts.offline).Msg("court in session")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		// In-flight turns may be waiting on the model, so allow a full round.
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Agent.Timeout+5*time.Second)
		defer cancel()
		log.Info().Msg("court adjourned; draining requests")
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}

func gormLevel(level string) logger.LogLevel {
	switch level {
	case "debug":
		return logger.Info
	case "warn":
		return logger.Warn
	case "error", "fatal", "panic":
		return logger.Error
	default:
		return logger.Silent
	}
}
