package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/rs/cors"

	"github.com/gigmarket/backend/internal/config"
	"github.com/gigmarket/backend/internal/notify"
	"github.com/gigmarket/backend/internal/repository"
	"github.com/gigmarket/backend/internal/repository/memory"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Realtime fan-out is optional; without Redis the inbox is still written.
	var realtime notify.RealtimePublisher
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			slog.Warn("Redis unreachable, realtime notifications disabled", "addr", cfg.RedisAddr, "error", err)
		} else {
			realtime = notify.NewRedisPublisher(rdb)
		}
	}

	var (
		st    storage
		sinks notify.MultiSink
		start func(context.Context) error
	)

	switch cfg.StorageDriver {
	case config.StoragePostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("Unable to create database pool", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		if err := pool.Ping(ctx); err != nil {
			slog.Error("Cannot reach PostgreSQL", "error", err)
			os.Exit(1)
		}
		slog.Info("Connected to PostgreSQL database successfully!")

		if err := repository.RunMigrations(ctx, pool); err != nil {
			slog.Error("Schema migrations failed", "error", err)
			os.Exit(1)
		}

		migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
		if err != nil {
			slog.Error("Failed to create River migrator", "error", err)
			os.Exit(1)
		}
		if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
			slog.Error("River migrate up failed", "error", err)
			os.Exit(1)
		}
		slog.Info("River migrations applied")

		st = storage{
			pool:          pool,
			users:         repository.NewUserRepo(pool),
			tasks:         repository.NewTaskRepo(pool),
			disputes:      repository.NewDisputeRepo(pool),
			transactions:  repository.NewTransactionRepo(pool),
			notifications: repository.NewNotificationRepo(pool),
		}

		// Insert func is set after the River client is created (breaks init cycle)
		var insertMu sync.Mutex
		var insertFn notify.InsertFunc
		insert := func(ctx context.Context, args notify.DeliverArgs) error {
			insertMu.Lock()
			fn := insertFn
			insertMu.Unlock()
			if fn == nil {
				return errors.New("river insert not wired")
			}
			return fn(ctx, args)
		}

		deliverer := &notify.Deliverer{Store: st.notifications, Realtime: realtime}
		workers := river.NewWorkers()
		river.AddWorker(workers, notify.NewDeliverWorker(deliverer, cfg.NotifyTimeout))

		riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
			Queues: map[string]river.QueueConfig{
				river.QueueDefault: {MaxWorkers: cfg.NotifyWorkers},
			},
			Workers: workers,
		})
		if err != nil {
			slog.Error("Failed to create River client", "error", err)
			os.Exit(1)
		}

		insertMu.Lock()
		insertFn = func(ctx context.Context, args notify.DeliverArgs) error {
			_, err := riverClient.Insert(ctx, args, nil)
			return err
		}
		insertMu.Unlock()

		sinks = append(sinks, notify.NewRiverSink(insert))
		start = riverClient.Start

	case config.StorageMemory:
		store := memory.New()
		st = storage{
			pool:          store,
			users:         store.Users(),
			tasks:         store.Tasks(),
			disputes:      store.Disputes(),
			transactions:  store.Transactions(),
			notifications: store.Notifications(),
		}
		sinks = append(sinks, &notify.Deliverer{Store: st.notifications, Realtime: realtime})
		slog.Warn("Using in-memory storage; data is lost on restart")
	}

	if len(cfg.KafkaBrokers) > 0 {
		kafkaSink, err := notify.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			slog.Error("Failed to create Kafka sink", "error", err)
			os.Exit(1)
		}
		defer kafkaSink.Close()
		sinks = append(sinks, kafkaSink)
	}

	api, err := newAPI(cfg, st, sinks, logger)
	if err != nil {
		slog.Error("Failed to build API", "error", err)
		os.Exit(1)
	}

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
	}).Handler(api)

	// Start River client (delivers notifications)
	if start != nil {
		go func() {
			if err := start(ctx); err != nil && ctx.Err() == nil {
				slog.Error("River client stopped", "error", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           corsHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("Starting HTTP server", "addr", srv.Addr, "storage", cfg.StorageDriver, "env", cfg.Env)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("HTTP server failed", "error", err)
		os.Exit(1)
	}
}
