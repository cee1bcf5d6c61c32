package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/webflow"
	"github.com/aretw0/webflow/internal/config"
	"github.com/aretw0/webflow/pkg/adapters/file"
	"github.com/aretw0/webflow/pkg/adapters/memory"
	"github.com/aretw0/webflow/pkg/adapters/redis"
	"github.com/aretw0/webflow/pkg/adapters/sqlite"
	"github.com/aretw0/webflow/pkg/execution"
	"github.com/aretw0/webflow/pkg/observability"
	"github.com/aretw0/webflow/pkg/persistence/middleware"
	"github.com/aretw0/webflow/pkg/ports"
	"github.com/aretw0/webflow/pkg/registry"
	"github.com/aretw0/webflow/pkg/repository"
	"github.com/aretw0/webflow/pkg/txsync"
)

// lockPrefix namespaces execution locks in redis.
const lockPrefix = "webflow:"

// Stack is everything an entry point needs, built from one Config.
type Stack struct {
	Engine  *webflow.Engine
	Flows   *registry.Flows
	Store   ports.SnapshotStore
	Metrics *observability.Metrics
	Logger  *slog.Logger

	closers []func() error
}

// Close releases the store connections.
func (s *Stack) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// OpenStore opens the store selected by cfg, wrapped with the encryption and
// cache middlewares when they are configured. Stores shared between processes
// come with a distributed locker.
func OpenStore(cfg *config.Config) (ports.SnapshotStore, ports.DistributedLocker, func() error, error) {
	var (
		store  ports.SnapshotStore
		locker ports.DistributedLocker
		closer = func() error { return nil }
	)
	switch cfg.Store {
	case config.StoreMemory:
		store = memory.NewStore()
	case config.StoreFile:
		store = file.New(cfg.FileDir)
	case config.StoreSQLite:
		s, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		store, closer = s, s.Close
	case config.StoreRedis:
		var opts []redis.Option
		if cfg.RedisPrefix != "" {
			opts = append(opts, redis.WithPrefix(cfg.RedisPrefix))
		}
		if cfg.RedisTTL > 0 {
			opts = append(opts, redis.WithTTL(cfg.RedisTTL))
		}
		s := redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, opts...)
		store, closer = s, s.Close
		locker = redis.NewLocker(s.Client(), lockPrefix)
	default:
		return nil, nil, nil, fmt.Errorf("unknown store %q", cfg.Store)
	}

	key, err := cfg.Key()
	if err != nil {
		_ = closer()
		return nil, nil, nil, err
	}
	var mws []middleware.Middleware
	if cfg.CacheTTL > 0 {
		mws = append(mws, middleware.NewCacheMiddleware(cfg.CacheTTL))
	}
	if key != nil {
		mws = append(mws, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key}))
	}
	return middleware.Chain(store, mws...), locker, closer, nil
}

// NewStack wires an engine over flows following cfg.
func NewStack(cfg *config.Config, flows *registry.Flows) (*Stack, error) {
	logger := createLogger(cfg.Level(), cfg.LogFormat)

	store, locker, closer, err := OpenStore(cfg)
	if err != nil {
		return nil, err
	}
	codec, err := execution.CodecByName(cfg.Codec)
	if err != nil {
		_ = closer()
		return nil, err
	}

	metrics := observability.NewMetrics()
	listeners := []*execution.Listener{metrics.Listener()}
	if cfg.Level() <= slog.LevelDebug {
		listeners = append(listeners, observability.AuditListener(logger))
	}

	opts := []webflow.Option{
		webflow.WithRepository(repository.New(store, repository.WithCodec(codec))),
		webflow.WithListeners(listeners...),
		webflow.WithTransactionSynchronizer(txsync.New()),
		webflow.WithLogger(logger),
		webflow.WithStrictStateCheck(cfg.Strict),
		webflow.WithLockTTL(cfg.LockTTL),
	}
	if locker != nil {
		opts = append(opts, webflow.WithLocker(locker))
	}

	engine, err := webflow.New(flows, opts...)
	if err != nil {
		_ = closer()
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}

	return &Stack{
		Engine:  engine,
		Flows:   flows,
		Store:   store,
		Metrics: metrics,
		Logger:  logger,
		closers: []func() error{closer},
	}, nil
}
