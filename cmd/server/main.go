package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/gridmarket/spot-engine/internal/clearing"
	"github.com/gridmarket/spot-engine/internal/config"
	"github.com/gridmarket/spot-engine/internal/events"
	"github.com/gridmarket/spot-engine/internal/market"
	"github.com/gridmarket/spot-engine/internal/metrics"
	"github.com/gridmarket/spot-engine/internal/model"
	"github.com/gridmarket/spot-engine/internal/scenario"
	"github.com/gridmarket/spot-engine/internal/store"
	"github.com/gridmarket/spot-engine/internal/validate"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Initialize store ---
	var st store.Store
	var cleanup []func()

	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, pool.Close)
		pg := store.NewPostgresStore(pool)
		if err := pg.Migrate(ctx); err != nil {
			slog.Error("database migration failed", "err", err)
			os.Exit(1)
		}
		st = pg
		slog.Info("connected to PostgreSQL")

		// Wrap with Redis read-through cache if configured.
		if cfg.RedisURL != "" {
			opt, err := redis.ParseURL(cfg.RedisURL)
			if err != nil {
				slog.Error("invalid REDIS_URL", "err", err)
				os.Exit(1)
			}
			rdb := redis.NewClient(opt)
			cleanup = append(cleanup, func() { rdb.Close() })
			st = store.NewCachedStore(st, rdb, cfg.CacheTTL)
			slog.Info("Redis cache enabled", "ttl", cfg.CacheTTL.String())
		}
	} else {
		slog.Warn("DATABASE_URL not set, using in-memory store (data will not persist)")
		st = store.NewMemoryStore()
	}

	defer func() {
		for i := len(cleanup) - 1; i >= 0; i-- {
			cleanup[i]()
		}
	}()

	if cfg.SeedDefaultScenario {
		if err := seedDefault(ctx, st); err != nil {
			slog.Error("seeding default scenario failed", "err", err)
			os.Exit(1)
		}
	}

	// --- Clearing core ---
	engine, err := clearing.NewEngine(cfg.Epsilon)
	if err != nil {
		slog.Error("invalid clearing epsilon", "err", err)
		os.Exit(1)
	}
	limits := validate.NewLimits(cfg.MaxParticipants, cfg.MaxCapacity, cfg.PriceCap, cfg.MaxSideCapacity)

	// --- Event sinks ---
	wsHub := market.NewWSHub()
	go wsHub.Run(ctx)

	var publisher events.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		cleanup = append(cleanup, func() {
			if err := kp.Close(); err != nil {
				slog.Warn("kafka writer close failed", "err", err)
			}
		})
		publisher = kp
		slog.Info("Kafka publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	// --- Market service ---
	marketSvc := market.NewService(st, limits, engine, wsHub, publisher)

	// --- HTTP router ---
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metrics.Middleware)

	// CORS middleware for frontend cross-origin requests.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"spot-engine"}`))
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket stream of clearing updates; no request timeout.
		r.Get("/ws", wsHub.HandleWS)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))

			// Stateless evaluation of a posted participant list.
			r.Post("/clearing", marketSvc.Evaluate)

			// Scenario management.
			r.Get("/scenarios", marketSvc.ListScenarios)
			r.Post("/scenarios", marketSvc.CreateScenario)

			r.Route("/scenarios/{scenarioID}", func(r chi.Router) {
				r.Get("/", marketSvc.GetScenario)
				r.Post("/reset", marketSvc.ResetScenario)

				r.Post("/participants", marketSvc.AddParticipant)
				r.Delete("/participants", marketSvc.ClearParticipants)
				r.Put("/participants/{participantID}", marketSvc.UpdateParticipant)
				r.Delete("/participants/{participantID}", marketSvc.RemoveParticipant)

				// Derived views, recomputed on every request.
				r.Get("/clearing", marketSvc.GetClearing)
				r.Get("/curves", marketSvc.GetCurves)
				r.Get("/settlement", marketSvc.GetSettlement)
			})
		})
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("spot-engine listening", "port", cfg.Port, "epsilon", engine.Epsilon().String())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down spot-engine...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	fmt.Println("spot-engine stopped")
}

// seedDefault stores the reference scenario when the store is empty.
func seedDefault(ctx context.Context, st store.Store) error {
	existing, err := st.ListScenarios(ctx)
	if err != nil {
		return err
	}
	metrics.ActiveScenarios.Set(float64(len(existing)))
	if len(existing) > 0 {
		return nil
	}

	now := time.Now().UTC()
	sc := &model.Scenario{
		ID:           uuid.New().String(),
		Name:         scenario.DefaultName,
		Participants: scenario.Defaults(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := st.CreateScenario(ctx, sc); err != nil {
		return fmt.Errorf("seed scenario: %w", err)
	}
	metrics.ActiveScenarios.Inc()
	slog.Info("default scenario seeded", "scenario", sc.ID, "participants", len(sc.Participants))
	return nil
}
