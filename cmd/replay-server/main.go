package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/park285/cheese-replay/internal/api"
	"github.com/park285/cheese-replay/internal/chessrules"
	appcfg "github.com/park285/cheese-replay/internal/config"
	"github.com/park285/cheese-replay/internal/cuebus"
	"github.com/park285/cheese-replay/internal/msgcat"
	"github.com/park285/cheese-replay/internal/obslog"
	"github.com/park285/cheese-replay/internal/recordstore"
	"github.com/park285/cheese-replay/internal/render"
	"github.com/park285/cheese-replay/internal/wsstream"
	"go.uber.org/zap"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	cat, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		logger.Fatal("message_catalog_init_failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := cuebus.NewHub(0, obslog.Named("cuebus"))

	// With Redis every instance publishes there and relays back into its own hub.
	var sink cuebus.Sink = hub
	if cfg.RedisURL != "" {
		rdb, err := cuebus.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal("redis_init_failed", zap.Error(err))
		}
		defer rdb.Close()
		bus := cuebus.NewRedisBus(rdb, 0, obslog.Named("cuebus"))
		defer bus.Close()
		sink = bus
		go func() {
			if err := bus.Relay(ctx, hub); err != nil {
				logger.Error("cuebus_relay_stopped", zap.Error(err))
			}
		}()
	}

	records := recordstore.NewMemoryRepository()
	if cfg.DatabaseURL != "" {
		pg, err := recordstore.NewPostgresRepository(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("record_store_init_failed", zap.Error(err))
		}
		defer pg.Close()
		sctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err = pg.EnsureSchema(sctx)
		cancel()
		if err != nil {
			logger.Fatal("record_store_schema_failed", zap.Error(err))
		}
		records = pg
	}

	registry, err := api.NewRegistry(api.RegistryOptions{
		TTL:         cfg.SessionTTL(),
		MaxSessions: cfg.MaxSessions,
		Factory:     api.NewSessionFactory(chessrules.NewEngine(), sink, cfg.PositionCache, obslog.Named("replay")),
		Logger:      obslog.Named("registry"),
		OnEvict:     hub.CloseSession,
	})
	if err != nil {
		logger.Fatal("registry_init_failed", zap.Error(err))
	}
	go registry.Run(ctx, cfg.SweepInterval)

	srv, err := api.NewServer(api.ServerOptions{
		Registry:       registry,
		Records:        records,
		Boards:         render.NewBoardRenderer(cfg.RenderSquareSize),
		Catalog:        cat,
		Logger:         obslog.Named("http"),
		RecentLimitMax: cfg.RecentLimitMax,
	})
	if err != nil {
		logger.Fatal("http_init_failed", zap.Error(err))
	}

	mux := http.NewServeMux()
	mux.Handle("/ws/sessions/", wsstream.NewHandler(hub,
		wsstream.WithLogger(obslog.Named("ws")),
		wsstream.WithSessionLookup(func(id string) bool {
			_, err := registry.Get(id)
			return err == nil
		}),
	))
	wsServer := &http.Server{Addr: cfg.WSAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 2)
	go func() { errCh <- srv.ListenAndServe(cfg.HTTPAddr) }()
	go func() {
		logger.Info("ws_listen", zap.String("addr", cfg.WSAddr))
		if err := wsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	logger.Info("replay_server_started",
		zap.String("http_addr", cfg.HTTPAddr),
		zap.String("ws_addr", cfg.WSAddr),
		zap.Bool("redis", cfg.RedisURL != ""),
		zap.Bool("postgres", cfg.DatabaseURL != ""),
	)

	select {
	case <-ctx.Done():
		logger.Info("replay_server_stopping")
	case err := <-errCh:
		logger.Error("listener_failed", zap.Error(err))
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http_shutdown_failed", zap.Error(err))
	}
	if err := wsServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("ws_shutdown_failed", zap.Error(err))
	}
}
