package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/olyamironova/game-exchange/internal/adapter/cache"
	"github.com/olyamironova/game-exchange/internal/adapter/in_memory"
	"github.com/olyamironova/game-exchange/internal/adapter/kafka"
	"github.com/olyamironova/game-exchange/internal/adapter/pg"
	"github.com/olyamironova/game-exchange/internal/adapter/sqlite"
	grpcapi "github.com/olyamironova/game-exchange/internal/api/grpc"
	httpapi "github.com/olyamironova/game-exchange/internal/api/http"
	"github.com/olyamironova/game-exchange/internal/config"
	"github.com/olyamironova/game-exchange/internal/core"
	"github.com/olyamironova/game-exchange/internal/logging"
	"github.com/olyamironova/game-exchange/internal/middleware"
	"github.com/olyamironova/game-exchange/internal/port"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load(os.Getenv("EXCHANGE_ENV_FILE"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("create logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("exchange stopped", zap.Error(err))
	}
	logger.Info("exchange stopped")
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	repo, err := openRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer repo.Close(context.WithoutCancel(ctx))
	logger.Info("storage ready", zap.String("storage", cfg.Storage))

	broker := in_memory.NewBroker(0)
	pubs := []port.EventPublisher{broker}
	var obCache port.Cache = in_memory.NewCache()

	if cfg.RedisAddr != "" {
		client := cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		obCache = cache.NewRedisCache(client, cfg.CachePrefix, cfg.CacheTTL)
		pubs = append(pubs, cache.NewRedisPublisher(client, cfg.EventsChannel))
		logger.Info("redis enabled", zap.String("addr", cfg.RedisAddr))
	}
	if len(cfg.KafkaBrokers) > 0 {
		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer producer.Close()
		pubs = append(pubs, producer)
		logger.Info("kafka enabled", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
	}

	eng := core.NewEngine(repo, obCache,
		core.WithLimits(cfg),
		core.WithLogger(logger),
		core.WithPublishers(pubs...),
	)

	httpSrv := httpapi.NewHTTPServer(eng, middleware.NewRateLimiter(cfg.RateLimit), cfg.DefaultAsset, logger)
	grpcSrv := grpcapi.NewGRPCServer(eng, broker, logger)
	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.GRPCAddr, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return httpSrv.Run(gctx, cfg.HTTPAddr) })
	g.Go(func() error { return grpcSrv.Serve(gctx, lis) })
	return g.Wait()
}

func openRepository(ctx context.Context, cfg config.Config) (port.Repository, error) {
	switch cfg.Storage {
	case config.StoragePostgres:
		repo, err := pg.NewPgRepo(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		if err := repo.EnsureSchema(ctx); err != nil {
			repo.Close(ctx)
			return nil, err
		}
		return repo, nil
	case config.StorageSQLite:
		store, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return in_memory.NewMemoryRepo(), nil
	}
}
