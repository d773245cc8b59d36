package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"cobal/internal/audit"
	auditkafka "cobal/internal/audit/kafka"
	auditmemory "cobal/internal/audit/store/memory"
	auditpg "cobal/internal/audit/store/postgres"
	"cobal/internal/catalog"
	cataloghandler "cobal/internal/catalog/handler"
	"cobal/internal/delivery"
	deliveryhandler "cobal/internal/delivery/handler"
	"cobal/internal/delivery/metrics"
	deliverycache "cobal/internal/delivery/store/cache"
	deliverymemory "cobal/internal/delivery/store/memory"
	deliverypg "cobal/internal/delivery/store/postgres"
	jwttoken "cobal/internal/jwt_token"
	"cobal/internal/platform/config"
	"cobal/internal/platform/httpserver"
	"cobal/internal/platform/logger"
	platformredis "cobal/internal/platform/redis"
	"cobal/internal/recipient"
	recipienthandler "cobal/internal/recipient/handler"
	recipientmemory "cobal/internal/recipient/store/memory"
	recipientpg "cobal/internal/recipient/store/postgres"
	"cobal/internal/report"
	reporthandler "cobal/internal/report/handler"
	transport "cobal/internal/transport/http"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "cobal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New()
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cat, err := catalog.LoadFile(cfg.CatalogPath)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	log.Info("catalog loaded", "items", cat.Len(), "path", cfg.CatalogPath)

	checks := map[string]transport.HealthChecker{}

	// Storage: PostgreSQL when configured, in-memory otherwise.
	var (
		recipientStore recipient.Store
		deliveryStore  delivery.Store
		auditStore     audit.Store
	)
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()
		if err := applySchemas(ctx, pool); err != nil {
			return err
		}
		checks["postgres"] = poolChecker{pool: pool}

		auditDB, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("open audit connection: %w", err)
		}
		defer auditDB.Close()
		if _, err := auditDB.ExecContext(ctx, auditpg.Schema); err != nil {
			return fmt.Errorf("apply audit schema: %w", err)
		}

		recipientStore = recipientpg.New(pool)
		deliveryStore = deliverypg.New(pool)
		auditStore = auditpg.New(auditDB)
	} else {
		log.Warn("no database configured, using in-memory stores")
		memRecipients := recipientmemory.New()
		recipientStore = memRecipients
		deliveryStore = deliverymemory.New(memRecipients)
		auditStore = auditmemory.NewInMemoryStore()
	}

	deliveryMetrics := metrics.New()

	// Optional Redis read-through cache for history lookups.
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		checks["redis"] = redisClient
		deliveryStore = deliverycache.New(deliveryStore, redisClient.Client, cfg.Redis.HistoryTTL,
			deliverycache.WithMetrics(deliveryMetrics))
		log.Info("history cache enabled", "ttl", cfg.Redis.HistoryTTL)
	}

	// Optional Kafka sink in front of the audit store.
	if len(cfg.Kafka.Brokers) > 0 {
		sink, err := auditkafka.New(cfg.Kafka.Brokers, cfg.Kafka.Topic, auditStore)
		if err != nil {
			return fmt.Errorf("connect kafka: %w", err)
		}
		defer sink.Close()
		auditStore = sink
		log.Info("audit kafka sink enabled", "topic", cfg.Kafka.Topic)
	}

	auditPublisher := audit.NewPublisher(auditStore, audit.WithAsyncBuffer(cfg.AuditBuffer))
	defer auditPublisher.Close()

	recipientSvc, err := recipient.New(recipientStore,
		recipient.WithLogger(log),
		recipient.WithAuditPublisher(auditPublisher),
	)
	if err != nil {
		return err
	}
	deliverySvc, err := delivery.NewService(cat, deliveryStore,
		delivery.WithLogger(log),
		delivery.WithAuditPublisher(auditPublisher),
		delivery.WithMetrics(deliveryMetrics),
	)
	if err != nil {
		return err
	}
	reportSvc, err := report.New(deliverySvc)
	if err != nil {
		return err
	}

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)

	router := transport.NewRouter(transport.Config{
		Logger: log,
		JWT:    jwtService,
		Public: []transport.Registrar{
			cataloghandler.New(cat, log),
		},
		Protected: []transport.Registrar{
			recipienthandler.New(recipientSvc, log),
			deliveryhandler.New(deliverySvc, recipientSvc, log),
			reporthandler.New(reportSvc, log),
		},
		Checks: checks,
	})

	server := httpserver.New(cfg.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return group.Wait()
}

// applySchemas creates the delivery and recipient tables when missing.
func applySchemas(ctx context.Context, pool *pgxpool.Pool) error {
	for _, schema := range []string{recipientpg.Schema, deliverypg.Schema} {
		if _, err := pool.Exec(ctx, schema); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// poolChecker adapts a pgx pool to the health endpoint.
type poolChecker struct {
	pool *pgxpool.Pool
}

func (c poolChecker) Health(ctx context.Context) error {
	return c.pool.Ping(ctx)
}
