package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gdrocha-io/togglr-backend/internal/api"
	"github.com/gdrocha-io/togglr-backend/internal/audit"
	"github.com/gdrocha-io/togglr-backend/internal/cache"
	"github.com/gdrocha-io/togglr-backend/internal/config"
	"github.com/gdrocha-io/togglr-backend/internal/metrics"
	"github.com/gdrocha-io/togglr-backend/internal/model"
	"github.com/gdrocha-io/togglr-backend/internal/repository"
	"github.com/gdrocha-io/togglr-backend/internal/service"
	"github.com/gdrocha-io/togglr-backend/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func run(parent context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Infrastructure
	rdb, err := initRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer rdb.Close()

	db, err := initDB(cfg.Database)
	if err != nil {
		return err
	}
	if cfg.Database.AutoMigrate {
		if err := autoMigrate(db); err != nil {
			return err
		}
	}

	observer := metrics.NewPrometheusObserver()
	instance := uuid.New().String()

	store, closeStore, err := initCache(ctx, cfg, rdb, observer, instance)
	if err != nil {
		return err
	}
	defer closeStore()

	// Repositories
	featureRepo := repository.NewFeatureRepository(db)
	namespaceRepo := repository.NewNamespaceRepository(db)
	environmentRepo := repository.NewEnvironmentRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	// Services
	var (
		features     service.FeatureProvider     = service.NewFeatureService(db, featureRepo, namespaceRepo, environmentRepo, store)
		namespaces   service.NamespaceProvider   = service.NewNamespaceService(namespaceRepo, featureRepo, store)
		environments service.EnvironmentProvider = service.NewEnvironmentService(environmentRepo, featureRepo, store)
	)
	auditLog := audit.NewLog(auditRepo, observer)
	if cfg.Audit.Enabled {
		features = audit.NewFeatureInterceptor(features, featureRepo, store, auditLog)
		namespaces = audit.NewNamespaceInterceptor(namespaces, namespaceRepo, auditLog)
		environments = audit.NewEnvironmentInterceptor(environments, environmentRepo, auditLog)
	} else {
		logger.Warn("audit trail disabled")
	}
	authSvc := service.NewAuthService(rdb, cfg.Auth)

	// HTTP
	r := api.RegisterRoutes(api.Handlers{
		Feature:     api.NewFeatureHandler(features),
		Namespace:   api.NewNamespaceHandler(namespaces),
		Environment: api.NewEnvironmentHandler(environments),
		Audit:       api.NewAuditHandler(auditLog),
		Metrics:     api.NewMetricsHandler(service.NewMetricsService(featureRepo, namespaceRepo, environmentRepo, store)),
		Auth:        api.NewAuthHandler(authSvc),
		Health: api.NewHealthHandler(map[string]api.HealthCheck{
			"database": auditRepo.PingContext,
			"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		}),
	}, api.RouterOptions{
		Tokens:            authSvc,
		Redis:             rdb,
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		AllowedOrigins:    cfg.Server.AllowedOrigins,
		DevMode:           cfg.Auth.DevMode,
	})

	srv := &http.Server{
		Addr:    cfg.Server.Port,
		Handler: r,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("addr", cfg.Server.Port),
			zap.String("env", cfg.Server.Environment),
			zap.String("instance", instance),
			zap.String("cache", cfg.Cache.Type),
			zap.Bool("audit", cfg.Audit.Enabled))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server listen failed: %w", err)
		}
	case <-ctx.Done():
	}
	logger.Info("shutting down server...")

	// Create a deadline to wait for current requests to complete
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server exited properly")
	return nil
}

func migrate(cfg config.DatabaseConfig) error {
	db, err := initDB(cfg)
	if err != nil {
		return err
	}
	if err := autoMigrate(db); err != nil {
		return err
	}
	logger.Info("database schema up to date", zap.String("driver", cfg.Driver))
	return nil
}

// -- Infrastructure Initializers --

func initRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return rdb, nil
}

func initEtcd(cfg config.EtcdConfig) (*clientv3.Client, error) {
	client, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: cfg.DialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to etcd: %w", err)
	}
	return client, nil
}

func initDB(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	return db, nil
}

func autoMigrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&model.Namespace{},
		&model.Environment{},
		&model.Feature{},
		&model.AuditLog{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// initCache builds the configured lookup cache. With etcd endpoints set the
// cache is wrapped so invalidations reach the other instances.
func initCache(ctx context.Context, cfg *config.Config, rdb redis.UniversalClient, observer *metrics.PrometheusObserver, instance string) (cache.Store, func(), error) {
	var (
		store   cache.Store
		closers []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	switch cfg.Cache.Type {
	case "redis":
		store = cache.NewRedis(rdb, cache.DefaultRedisPrefix, cfg.Cache.TTL, observer)
	case "memory", "":
		mem := cache.NewMemory(cfg.Cache.Capacity, cfg.Cache.TTL, observer)
		closers = append(closers, mem.Close)
		store = mem
	default:
		return nil, nil, fmt.Errorf("unsupported cache type %q", cfg.Cache.Type)
	}

	if len(cfg.Etcd.Endpoints) == 0 {
		return store, closeAll, nil
	}

	etcdCli, err := initEtcd(cfg.Etcd)
	if err != nil {
		closeAll()
		return nil, nil, err
	}
	closers = append(closers, func() { _ = etcdCli.Close() })

	coordinator := cache.NewCoordinator(store, repository.NewInvalidationRepository(etcdCli, cfg.Etcd.Prefix), instance)
	go func() {
		logger.Info("starting cache invalidation watcher", zap.String("instance", instance))
		coordinator.Run(ctx)
	}()
	return coordinator, closeAll, nil
}
