package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/billbatista/tripledger/config"
	"github.com/billbatista/tripledger/eventlogger"
	"github.com/billbatista/tripledger/handler"
	"github.com/billbatista/tripledger/ledger"
	"github.com/billbatista/tripledger/lock"
	"github.com/billbatista/tripledger/member"
	chimiddleware "github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		printErrorAndExit("loading config", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("postgres", cfg.PostgreSQL.DSN())
	if err != nil {
		printErrorAndExit("database connection", err)
	}
	defer db.Close()
	err = db.PingContext(ctx)
	if err != nil {
		printErrorAndExit("pinging database", err)
	}
	if err := ledger.Migrate(ctx, db); err != nil {
		printErrorAndExit("migrating ledger", err)
	}
	if err := eventlogger.Migrate(ctx, db); err != nil {
		printErrorAndExit("migrating events", err)
	}

	evtlogger := eventlogger.NewSqlEventLogger(db)
	worker := eventlogger.NewWorker(evtlogger, cfg.Events.BufferSize)
	worker.Start()
	defer worker.Shutdown()

	var locker lock.Locker = lock.NewLocal()
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			printErrorAndExit("pinging redis", err)
		}
		locker = lock.NewRedis(rdb, lock.Options{
			Expiry:     cfg.Lock.Expiry,
			Tries:      cfg.Lock.Tries,
			RetryDelay: cfg.Lock.RetryDelay,
		})
		slog.Info("using redis trip lock", "addr", cfg.Redis.Addr)
	}

	members := member.NewRepository(db)
	coordinator := ledger.NewCoordinator(
		ledger.NewRepository(db),
		ledger.WithLocker(locker),
		ledger.WithTolerance(cfg.Ledger.Tolerance),
		ledger.WithWriteTimeout(cfg.Ledger.WriteTimeout),
		ledger.WithMembers(members),
		ledger.WithEvents(worker),
		ledger.WithLogger(slog.Default()),
	)

	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.Logger)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			slog.Error("health check failed", "error", err)
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	})

	handler.New(coordinator, members, evtlogger, cfg.Ledger.Currency).Routes(router)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown", "error", err)
		}
	}()

	slog.Info("server starting", "port", cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
	}
}

func printErrorAndExit(msg string, e error) {
	slog.Error(msg, "error", e)
	os.Exit(1)
}
