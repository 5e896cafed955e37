package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"

	"compliance-monitor/internal/compliance"
	compliancehandler "compliance-monitor/internal/compliance/handler"
	compliancemetrics "compliance-monitor/internal/compliance/metrics"
	"compliance-monitor/internal/events"
	"compliance-monitor/internal/patterns"
	"compliance-monitor/internal/platform/config"
	"compliance-monitor/internal/platform/httpserver"
	"compliance-monitor/internal/platform/logger"
	platformmetrics "compliance-monitor/internal/platform/metrics"
	platformredis "compliance-monitor/internal/platform/redis"
	"compliance-monitor/internal/storage"
	"compliance-monitor/internal/transaction"
	transactionhandler "compliance-monitor/internal/transaction/handler"
	httptransport "compliance-monitor/internal/transport/http"
	"compliance-monitor/pkg/platform/tx"
)

// main wires dependencies and owns the server lifecycle. Business logic lives
// in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	ctx := context.Background()

	// Persistence: PostgreSQL when configured, in-memory otherwise.
	var (
		transactionStore storage.TransactionStore
		violationStore   storage.ViolationStore
		patternStore     storage.PatternStore
		runner           tx.Runner = tx.NoopRunner{}
	)
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Error("open database", "error", err)
			os.Exit(1)
		}
		if err := db.PingContext(ctx); err != nil {
			log.Error("ping database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		transactionStore = storage.NewPostgresTransactionStore(db)
		violationStore = storage.NewPostgresViolationStore(db)
		patternStore = storage.NewPostgresPatternStore(db)
		runner = tx.NewSQLRunner(db)
		log.Info("using postgresql persistence")
	} else {
		transactionStore = storage.NewInMemoryTransactionStore()
		violationStore = storage.NewInMemoryViolationStore()
		patternStore = storage.NewInMemoryPatternStore()
		log.Info("using in-memory persistence")
	}

	redisClient, err := platformredis.New(ctx, cfg.RedisURL)
	if err != nil {
		log.Error("connect redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	var publisher events.Publisher = events.NopPublisher{}
	kafkaPublisher, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, log)
	if err != nil {
		log.Error("connect kafka", "error", err)
		os.Exit(1)
	}
	if kafkaPublisher != nil {
		publisher = kafkaPublisher
		defer kafkaPublisher.Close()
	}

	complianceMetrics := compliancemetrics.New()
	httpMetrics := platformmetrics.NewHTTP()

	registry := compliance.NewRegistry(
		compliance.NewLimitRule(decimal.NewFromFloat(cfg.Rules.TransactionLimit)),
		compliance.NewVelocityRule(cfg.Rules.VelocityMaxCount, decimal.NewFromFloat(cfg.Rules.VelocityMaxAmount)),
		compliance.NewGeographicRule(cfg.Rules.HighRiskCountries),
	)
	contextBuilder := compliance.NewContextBuilder(transactionStore)
	evaluator := compliance.NewEvaluator(registry, contextBuilder,
		transactionStore, violationStore, runner, publisher, log, complianceMetrics)
	lifecycle := compliance.NewLifecycle(violationStore, publisher, log, complianceMetrics)
	dashboardCache := compliance.NewDashboardCache(redisClient, log)
	dashboard := compliance.NewDashboard(violationStore, dashboardCache)
	detector := patterns.NewDetector(transactionStore, patternStore, runner, publisher, log, complianceMetrics)
	transactionService := transaction.NewService(transactionStore, evaluator, log)

	router := httptransport.NewRouter(
		transactionhandler.New(transactionService, detector, log),
		compliancehandler.New(lifecycle, dashboard, log),
		httpMetrics,
		log,
	)

	srv := httpserver.New(cfg.Addr, router)
	log.Info("starting compliance monitor", "addr", cfg.Addr, "rules", registry.Len())

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
