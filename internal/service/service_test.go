package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/gdrocha-io/togglr-backend/internal/cache"
	"github.com/gdrocha-io/togglr-backend/internal/model"
	"github.com/gdrocha-io/togglr-backend/internal/repository"
	"github.com/gdrocha-io/togglr-backend/pkg/logger"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func init() {
	logger.InitLogger("test")
}

// spyStore records invalidations on top of a real memory store.
type spyStore struct {
	*cache.Memory
	mu            sync.Mutex
	invalidations [][]string
}

func (s *spyStore) InvalidateRegion(ctx context.Context, regions ...string) {
	s.mu.Lock()
	s.invalidations = append(s.invalidations, regions)
	s.mu.Unlock()
	s.Memory.InvalidateRegion(ctx, regions...)
}

func (s *spyStore) invalidationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.invalidations)
}

type fixture struct {
	db           *gorm.DB
	store        *spyStore
	features     *repository.FeatureRepository
	namespaces   *repository.NamespaceRepository
	environments *repository.EnvironmentRepository
	featureSvc   *FeatureService
	namespaceSvc *NamespaceService
	envSvc       *EnvironmentService
	metricsSvc   *MetricsService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&model.Namespace{}, &model.Environment{}, &model.Feature{}, &model.AuditLog{}))

	mem := cache.NewMemory(100, time.Hour, nil)
	t.Cleanup(mem.Close)

	f := &fixture{
		db:           db,
		store:        &spyStore{Memory: mem},
		features:     repository.NewFeatureRepository(db),
		namespaces:   repository.NewNamespaceRepository(db),
		environments: repository.NewEnvironmentRepository(db),
	}
	f.featureSvc = NewFeatureService(db, f.features, f.namespaces, f.environments, f.store)
	f.namespaceSvc = NewNamespaceService(f.namespaces, f.features, f.store)
	f.envSvc = NewEnvironmentService(f.environments, f.features, f.store)
	f.metricsSvc = NewMetricsService(f.features, f.namespaces, f.environments, f.store)
	return f
}

func (f *fixture) createFeature(t *testing.T, name, ns, env string, enabled bool) *model.Feature {
	t.Helper()
	feature, err := f.featureSvc.CreateFeature(context.Background(), CreateFeatureInput{
		Name:        name,
		Namespace:   ns,
		Environment: env,
		Enabled:     enabled,
	})
	require.NoError(t, err)
	return feature
}
