package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/notehaus/meeting-assistant/internal/events"
	"github.com/notehaus/meeting-assistant/internal/indexer"
	"github.com/notehaus/meeting-assistant/internal/indexer/index"
	"github.com/notehaus/meeting-assistant/internal/meeting"
	meetinghandler "github.com/notehaus/meeting-assistant/internal/meeting/handler"
	"github.com/notehaus/meeting-assistant/internal/meeting/store"
	"github.com/notehaus/meeting-assistant/internal/searcher"
	"github.com/notehaus/meeting-assistant/internal/searcher/cache"
	searchhandler "github.com/notehaus/meeting-assistant/internal/searcher/handler"
	"github.com/notehaus/meeting-assistant/pkg/config"
	"github.com/notehaus/meeting-assistant/pkg/health"
	"github.com/notehaus/meeting-assistant/pkg/kafka"
	"github.com/notehaus/meeting-assistant/pkg/logger"
	"github.com/notehaus/meeting-assistant/pkg/metrics"
	"github.com/notehaus/meeting-assistant/pkg/middleware"
	"github.com/notehaus/meeting-assistant/pkg/postgres"
	pkgredis "github.com/notehaus/meeting-assistant/pkg/redis"
	"github.com/notehaus/meeting-assistant/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting meeting assistant", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var db *postgres.Client
	err = resilience.Retry(ctx, "postgres connect", resilience.RetryConfig{MaxAttempts: 5}, func() error {
		var connErr error
		db, connErr = postgres.New(cfg.Postgres)
		return connErr
	})
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	st := store.New(db)
	if err := st.Migrate(ctx); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("database ready", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)

	m := metrics.New()
	var metricsShutdown func(context.Context) error
	if cfg.Metrics.Enabled {
		metricsShutdown = metrics.StartServer(cfg.Metrics.Port)
		slog.Info("metrics server started", "port", cfg.Metrics.Port)
	}

	// The index is derived state: rebuild it from the database before
	// accepting any traffic so searches never see a partial index.
	ix := index.NewInvertedIndex()
	maintainer := indexer.NewMaintainer(ix, m)
	var meetings []meeting.Meeting
	err = resilience.Retry(ctx, "load meetings", resilience.RetryConfig{MaxAttempts: 3}, func() error {
		var listErr error
		meetings, listErr = st.ListAll(ctx)
		return listErr
	})
	if err != nil {
		slog.Error("failed to load meetings for index build", "error", err)
		os.Exit(1)
	}
	docs := make([]index.Document, 0, len(meetings))
	for _, mt := range meetings {
		docs = append(docs, index.Document{
			MeetingID:  mt.ID,
			Text:       mt.RawNotes,
			OccurredAt: mt.OccurredAt,
		})
	}
	if err := maintainer.Rebuild(docs); err != nil {
		slog.Error("failed to build index", "error", err)
		os.Exit(1)
	}
	slog.Info("index built",
		"meetings", ix.MeetingCount(),
		"terms", ix.TermCount(),
	)

	var queryCache *cache.QueryCache
	redisClient, err := pkgredis.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, search caching disabled", "error", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
		queryCache = cache.New(redisClient, cfg.Redis)
		slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	}

	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.UsageEvents)
	collector := events.NewCollector(producer, 10000)
	collector.Start(ctx)
	defer collector.Close()
	slog.Info("usage event collector started", "topic", cfg.Kafka.Topics.UsageEvents)

	aggregator := events.NewAggregator()
	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.UsageEvents, events.HandleEvent(aggregator))
	aggregator.SetConsumer(consumer)
	go func() {
		if err := aggregator.Start(ctx); err != nil {
			slog.Error("usage aggregator error", "error", err)
		}
	}()
	slog.Info("usage aggregator started")

	checker := health.NewChecker()
	checker.Register("postgres", func(ctx context.Context) health.ComponentHealth {
		if err := db.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})
	checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
		if redisClient == nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "not configured"}
		}
		if err := redisClient.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})
	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%d meetings, %d terms", ix.MeetingCount(), ix.TermCount()),
		}
	})

	engine := searcher.NewEngine(ix)
	searchH := searchhandler.New(engine, queryCache, st, collector, m, cfg.Search.DefaultLimit, cfg.Search.MaxResults)
	meetingH := meetinghandler.New(st, maintainer, queryCache, collector)
	statsH := events.NewHandler(aggregator)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/meetings", meetingH.Create)
	mux.HandleFunc("GET /api/v1/meetings", meetingH.List)
	mux.HandleFunc("GET /api/v1/meetings/{id}", meetingH.Get)
	mux.HandleFunc("PATCH /api/v1/meetings/{id}", meetingH.Update)
	mux.HandleFunc("DELETE /api/v1/meetings/{id}", meetingH.Delete)
	mux.HandleFunc("POST /api/v1/meetings/{id}/action-items", meetingH.CreateActionItem)
	mux.HandleFunc("GET /api/v1/meetings/{id}/action-items", meetingH.ListMeetingActionItems)
	mux.HandleFunc("GET /api/v1/action-items", meetingH.ListActionItems)
	mux.HandleFunc("PATCH /api/v1/action-items/{id}", meetingH.UpdateActionItemStatus)
	mux.HandleFunc("GET /api/v1/search", searchH.Search)
	mux.HandleFunc("GET /api/v1/context", searchH.Context)
	mux.HandleFunc("GET /api/v1/cache/stats", searchH.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", searchH.CacheInvalidate)
	mux.HandleFunc("GET /api/v1/stats", statsH.Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Metrics(m)(chain)
	chain = middleware.CORS(middleware.DefaultCORSConfig())(chain)
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		maintainer.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
		if metricsShutdown != nil {
			if err := metricsShutdown(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown error", "error", err)
			}
		}
	}()

	slog.Info("meeting assistant listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("meeting assistant stopped")
}
