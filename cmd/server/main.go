package main

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"

	"github.com/rl1809/bizdesk/internal/adapter/auth"
	"github.com/rl1809/bizdesk/internal/adapter/handler"
	"github.com/rl1809/bizdesk/internal/adapter/payment"
	"github.com/rl1809/bizdesk/internal/adapter/storage"
	"github.com/rl1809/bizdesk/internal/config"
	"github.com/rl1809/bizdesk/internal/core/gate"
	"github.com/rl1809/bizdesk/internal/core/service"
	"github.com/rl1809/bizdesk/internal/core/store"
	"github.com/rl1809/bizdesk/internal/journal"
	"github.com/rl1809/bizdesk/internal/obs"
	"github.com/rl1809/bizdesk/internal/port"
	"github.com/rl1809/bizdesk/internal/seed"
)

// cacheStore is what the Redis and in-memory adapters both provide.
type cacheStore interface {
	port.CacheRepository
	port.KeyValueStore
}

func main() {
	obs.InitLogger("info")
	cfg, err := config.Load()
	if err != nil {
		fatal("failed to load config", err)
	}
	obs.InitLogger(cfg.LogLevel)
	metrics := obs.NewMetrics()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Redis, or keep idempotency keys and sessions in process
	var (
		cache cacheStore
		rdb   *redis.Client
	)
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			PoolSize: 100,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			fatal("failed to connect redis", err)
		}
		obs.Logger.Info("connected to redis", "addr", cfg.RedisAddr)
		cache = storage.NewRedisAdapter(rdb)
	} else {
		obs.Logger.Warn("REDIS_ADDR not set, using in-memory cache")
		cache = storage.NewMemoryAdapter()
	}

	// Initialize MySQL and restore the last journaled state
	var (
		db        *sql.DB
		mysqlRepo *storage.MySQLAdapter
		restored  bool
	)
	initial := store.NewState()
	if cfg.MySQLDSN != "" {
		db, err = sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			fatal("failed to connect mysql", err)
		}
		db.SetMaxOpenConns(50)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)
		if err := db.PingContext(ctx); err != nil {
			fatal("failed to ping mysql", err)
		}
		obs.Logger.Info("connected to mysql")

		mysqlRepo = storage.NewMySQLAdapter(db)
		if err := mysqlRepo.EnsureSchema(ctx); err != nil {
			fatal("failed to create schema", err)
		}
		initial, restored, err = mysqlRepo.LoadState(ctx)
		if err != nil {
			fatal("failed to load state", err)
		}
		if restored {
			obs.Logger.Info("state restored from mysql",
				"items", len(initial.Inventory),
				"sales", len(initial.Sales),
				"tier", initial.UserTier,
			)
		}
	}
	if !restored && cfg.SeedFile != "" {
		initial, err = seed.LoadFile(cfg.SeedFile, time.Now())
		if err != nil {
			fatal("failed to load seed", err)
		}
		obs.Logger.Info("state seeded", "file", cfg.SeedFile, "items", len(initial.Inventory))
	}

	st := store.New(initial)

	// Start the journal writer
	var jr *journal.Journal
	if mysqlRepo != nil {
		jr = journal.New(mysqlRepo, metrics, journal.WithHighWatermark(cfg.QueueSize))
		if !restored {
			jr.Enqueue(journal.SnapshotActions(st.Snapshot()))
		}
		defer jr.Attach(st)()
		jr.Start(ctx)
	}

	// Initialize services
	secret := cfg.JWTSecret
	if secret == "" {
		secret = uuid.NewString()
		obs.Logger.Warn("JWT_SECRET not set, tokens will not survive a restart")
	}
	tokens, err := auth.NewTokenManager(secret, cfg.JWTTTL)
	if err != nil {
		fatal("failed to create token manager", err)
	}

	g := gate.New(st, gate.WithPaywallHook(func(f gate.Feature) {
		metrics.PaywallHit(string(f))
		obs.Logger.Info("paywall_hit", "feature", string(f))
	}))
	gateway := payment.NewSandbox(payment.WithSuccessRate(cfg.PaymentSuccessRate))
	svc := handler.Services{
		Inventory: service.NewInventoryService(st),
		Contacts:  service.NewContactService(st),
		Reminders: service.NewReminderService(st),
		Sales:     service.NewSaleService(st, cache, metrics),
		Billing: service.NewBillingService(st, gateway, cache, metrics, service.BillingConfig{
			Price:    cfg.ProPrice,
			Currency: cfg.Currency,
			LockTTL:  cfg.PaymentLockTTL,
		}),
		Insights: service.NewInsightService(st, g, cfg.LowStockThreshold),
		Auth:     service.NewAuthService(cache, tokens),
		Gate:     g,
	}

	user, err := svc.Auth.Bootstrap(ctx)
	if errors.Is(err, service.ErrCorruptUsers) {
		obs.Logger.Warn("moved corrupt users record aside", "key", service.QuarantineUsersKey)
	}
	if errors.Is(err, service.ErrCorruptSession) {
		obs.Logger.Warn("discarded corrupt session, starting logged out")
	}
	if err != nil && !errors.Is(err, service.ErrCorruptUsers) && !errors.Is(err, service.ErrCorruptSession) {
		fatal("failed to restore session", err)
	}
	if user != nil {
		obs.Logger.Info("session restored", "user_id", user.ID)
	}

	feed := handler.NewFeed()
	defer feed.Attach(st)()

	// Initialize gRPC server
	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(handler.UnaryAuthInterceptor(tokens)))
	handler.RegisterSalesServiceServer(grpcServer, handler.NewGRPCHandler(svc.Sales, g, st))

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		fatal("failed to listen", err)
	}
	go func() {
		obs.Logger.Info("gRPC server listening", "addr", cfg.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			obs.Logger.Error("gRPC server error", "error", err)
		}
	}()

	// Initialize HTTP server
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler.NewHTTPHandler(svc, tokens, metrics, feed, handler.WithAdmins(cfg.AdminEmails...)).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		obs.Logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			obs.Logger.Error("HTTP server error", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	obs.Logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		obs.Logger.Error("HTTP shutdown error", "error", err)
	}
	feed.Close()
	obs.Logger.Info("HTTP server stopped")

	grpcServer.GracefulStop()
	obs.Logger.Info("gRPC server stopped")

	if jr != nil {
		jr.CloseIntake()
		if !jr.DrainUntil(shutdownCtx) {
			obs.Logger.Warn("journal not drained before timeout", "backlog", jr.BacklogSize())
		}
		enq, proc, failed := jr.Stats()
		obs.Logger.Info("journal stopped", "enqueued", enq, "processed", proc, "failed", failed)
	}
	cancel()

	if rdb != nil {
		rdb.Close()
	}
	if db != nil {
		db.Close()
	}
	obs.Logger.Info("connections closed")
}

func fatal(msg string, err error) {
	obs.Logger.Error(msg, "error", err)
	os.Exit(1)
}
