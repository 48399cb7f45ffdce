// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/cardbbang/internal/config"
	"github.com/jason-s-yu/cardbbang/internal/database"
	"github.com/jason-s-yu/cardbbang/internal/deck"
	"github.com/jason-s-yu/cardbbang/internal/events"
	"github.com/jason-s-yu/cardbbang/internal/game"
	"github.com/jason-s-yu/cardbbang/internal/handlers"
	"github.com/jason-s-yu/cardbbang/internal/lobby"
	"github.com/jason-s-yu/cardbbang/internal/store"
	"github.com/jason-s-yu/cardbbang/internal/store/memory"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config: %v", err)
	}
	logger.SetLevel(cfg.Level())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("store: %v", err)
	}
	defer closeStore()

	bus, err := openBus(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("event bus: %v", err)
	}
	defer bus.Close()

	pub := &events.Publisher{Bus: bus, Logger: logger}
	coord := game.NewCoordinator(st, pub, logger, deck.NewSource())
	coord.RoundRetention = cfg.RoundRetention
	referee := game.NewReferee(coord, cfg.FinishDelay, logger)
	defer referee.Stop()

	srv := &handlers.Server{
		Rooms:   lobby.NewManager(st, pub, logger, deck.NewSource()),
		Games:   coord,
		Referee: referee,
		Bus:     bus,
		Logger:  logger,
	}

	server := &http.Server{
		Handler:     srv.Routes(),
		ReadTimeout: 10 * time.Second,
	}

	l, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		logger.Fatalf("failed to listen: %v", err)
	}
	logger.Infof("listening on %s", l.Addr())

	errc := make(chan error, 1)
	go func() {
		errc <- server.Serve(l)
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("failed to serve: %v", err)
		}
	case <-ctx.Done():
		logger.Info("terminating")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("shutdown: %v", err)
	}
}

// openStore picks Postgres when DATABASE_URL is set and the in-memory store otherwise.
func openStore(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (store.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set, keeping state in memory")
		return memory.New(), func() {}, nil
	}
	pool, err := database.ConnectDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Migrate {
		if err := database.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		logger.Info("schema migrated")
	}
	return database.NewStore(pool), pool.Close, nil
}

// openBus picks the Redis bus when REDIS_ADDR is set and the in-process bus otherwise.
func openBus(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (events.Bus, error) {
	if cfg.RedisAddr == "" {
		return events.NewLocalBus(logger), nil
	}
	rdb, err := events.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		return nil, err
	}
	return events.NewRedisBus(rdb, cfg.RedisChannelPrefix, logger), nil
}
