package main

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"jobstream/internal/email"
	"jobstream/internal/platform/config"
	"jobstream/internal/platform/database"
	"jobstream/internal/platform/httpserver"
	"jobstream/internal/platform/kafka"
	"jobstream/internal/platform/kafka/producer"
	"jobstream/internal/platform/logger"
	"jobstream/internal/platform/redis"
	"jobstream/internal/registration/events"
	"jobstream/internal/registration/metrics"
	"jobstream/internal/registration/models"
	"jobstream/internal/registration/queue"
	"jobstream/internal/registration/service"
	"jobstream/internal/registration/store"
	"jobstream/internal/registration/token"
	"jobstream/internal/registration/tracer"
	"jobstream/internal/registration/workers/cleanup"
	"jobstream/internal/risk"
	"jobstream/internal/storage"
	httptransport "jobstream/internal/transport/http"
	"jobstream/internal/vault"
)

// main wires dependencies and keeps the process lifecycle small. Business
// logic lives in the internal service packages.
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "jobstream:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("initializing registration service",
		"addr", cfg.Addr,
		"dev_mode", cfg.DevMode,
	)

	readyChecks := map[string]httptransport.HealthCheck{}

	// System of record: postgres when configured, in-memory otherwise.
	dbCfg := database.DefaultConfig()
	dbCfg.URL = cfg.DatabaseURL
	pool, err := database.New(dbCfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	var st store.Store
	if pool != nil {
		defer pool.Close()
		st = store.NewPostgres(pool.DB())
		readyChecks["database"] = pool.Health
	} else {
		if !cfg.DevMode {
			log.Warn("DATABASE_URL not set, registrations will not survive restarts")
		}
		st = store.NewInMemoryStore()
	}

	// Queue positions: Redis counter when available, process-local otherwise.
	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	var assigner service.PositionAssigner
	if redisClient != nil {
		defer redisClient.Close()
		pending, err := st.CountByStatus(ctx, models.StatusPendingReview)
		if err != nil {
			return fmt.Errorf("count pending registrations: %w", err)
		}
		ra := queue.NewRedisAssigner(redisClient.Client)
		if err := ra.Seed(ctx, pending); err != nil {
			return fmt.Errorf("seed queue counter: %w", err)
		}
		assigner = ra
		readyChecks["redis"] = redisClient.Health
	} else {
		ca := queue.NewCounterAssigner()
		if err := ca.Seed(ctx, st); err != nil {
			return fmt.Errorf("seed queue counter: %w", err)
		}
		assigner = ca
	}

	// Lifecycle events: Kafka when brokers are configured.
	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.KafkaBrokers != "" {
		prod, err := producer.New(producer.Config{
			Brokers:         cfg.KafkaBrokers,
			Retries:         5,
			DeliveryTimeout: 10 * time.Second,
		}, log)
		if err != nil {
			return fmt.Errorf("create kafka producer: %w", err)
		}
		defer prod.Close()
		publisher = events.NewKafkaPublisher(prod, events.WithLogger(log))
		readyChecks["kafka"] = kafka.NewHealthChecker(cfg.KafkaBrokers).Check
	}

	// Bank-detail encryption.
	var enc service.Encrypter
	switch {
	case cfg.VaultKey != "":
		key, err := base64.StdEncoding.DecodeString(cfg.VaultKey)
		if err != nil {
			return fmt.Errorf("decode VAULT_KEY: %w", err)
		}
		v, err := vault.NewChaChaVault(key)
		if err != nil {
			return fmt.Errorf("init vault: %w", err)
		}
		enc = v
	case cfg.DevMode:
		log.Warn("VAULT_KEY not set, bank details stored unencrypted")
		enc = vault.Noop{}
	default:
		return errors.New("VAULT_KEY is required outside dev mode")
	}

	blobs := storage.NewInMemoryStorage()
	workflowMetrics := metrics.New()

	// Signed document downloads.
	var download http.Handler
	engineOpts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(workflowMetrics),
		service.WithEventPublisher(publisher),
		service.WithTracer(tracer.NewOTel()),
	}
	if cfg.DocumentURLSecret != "" {
		base := cfg.DocumentBaseURL
		if base == "" {
			base = "http://localhost" + cfg.Addr + "/documents"
		}
		signer := storage.NewURLSigner([]byte(cfg.DocumentURLSecret), base)
		download = httptransport.NewDownloadHandler(signer, blobs)
		engineOpts = append(engineOpts, service.WithURLSigner(signer))
	}
	if cfg.RiskServiceURL != "" {
		engineOpts = append(engineOpts, service.WithRiskScorer(risk.NewClient(cfg.RiskServiceURL)))
	}

	engine, err := service.New(
		st,
		token.New(),
		blobs,
		email.NewLogSender(log),
		enc,
		assigner,
		service.Config{
			TokenTTL:        cfg.TokenTTL,
			RegistrationTTL: cfg.RegistrationTTL,
			MaxUploadBytes:  cfg.MaxUploadBytes,
			DeniedDomains:   cfg.DeniedDomains,
		},
		engineOpts...,
	)
	if err != nil {
		return fmt.Errorf("build workflow engine: %w", err)
	}

	sweeper := cleanup.New(st,
		cleanup.WithLogger(log),
		cleanup.WithInterval(cfg.SweepInterval),
		cleanup.WithMetrics(workflowMetrics),
		cleanup.WithEventPublisher(publisher),
	)

	router := httptransport.NewRouter(httptransport.NewHandler(engine, log), log, httptransport.RouterConfig{
		Download:    download,
		ReadyChecks: readyChecks,
	})
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := sweeper.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}
