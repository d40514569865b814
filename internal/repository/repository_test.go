package repository

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/gdrocha-io/togglr-backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&model.Namespace{}, &model.Environment{}, &model.Feature{}, &model.AuditLog{}))
	return db
}

func seedScope(t *testing.T, db *gorm.DB, ns, env string) (*model.Namespace, *model.Environment) {
	t.Helper()
	ctx := context.Background()
	namespace := &model.Namespace{Name: ns}
	require.NoError(t, NewNamespaceRepository(db).Save(ctx, namespace))
	environment := &model.Environment{Name: env}
	require.NoError(t, NewEnvironmentRepository(db).Save(ctx, environment))
	return namespace, environment
}

func TestFeatureRepository_SaveAndFind(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	ns, env := seedScope(t, db, "shop", "prod")
	repo := NewFeatureRepository(db)

	feature := &model.Feature{
		Name:          "checkout",
		NamespaceID:   ns.ID,
		EnvironmentID: env.ID,
		Enabled:       true,
		Metadata:      datatypes.JSON(`{"owner":"payments"}`),
	}
	require.NoError(t, repo.Save(ctx, feature))
	require.NotZero(t, feature.ID)

	got, err := repo.FindByID(ctx, feature.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "checkout", got.Name)
	assert.Equal(t, "shop", got.Namespace.Name)
	assert.Equal(t, "prod", got.Environment.Name)
	assert.JSONEq(t, `{"owner":"payments"}`, string(got.Metadata))

	byKey, err := repo.FindByNaturalKey(ctx, "checkout", ns.ID, env.ID)
	require.NoError(t, err)
	require.NotNil(t, byKey)
	assert.Equal(t, feature.ID, byKey.ID)

	missing, err := repo.FindByID(ctx, 9999)
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestFeatureRepository_DuplicateNaturalKey(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	ns, env := seedScope(t, db, "shop", "prod")
	repo := NewFeatureRepository(db)

	require.NoError(t, repo.Save(ctx, &model.Feature{Name: "checkout", NamespaceID: ns.ID, EnvironmentID: env.ID}))
	err := repo.Save(ctx, &model.Feature{Name: "checkout", NamespaceID: ns.ID, EnvironmentID: env.ID})
	assert.ErrorIs(t, err, ErrConstraintViolation)
}

func TestFeatureRepository_ScopeAndCounts(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	ns, env := seedScope(t, db, "shop", "prod")
	repo := NewFeatureRepository(db)

	for i, enabled := range []bool{true, false, true} {
		require.NoError(t, repo.Save(ctx, &model.Feature{
			Name:          fmt.Sprintf("flag-%d", i),
			NamespaceID:   ns.ID,
			EnvironmentID: env.ID,
			Enabled:       enabled,
		}))
	}

	all, err := repo.ListByScope(ctx, ns.ID, env.ID, false)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	enabled, err := repo.ListByScope(ctx, ns.ID, env.ID, true)
	require.NoError(t, err)
	assert.Len(t, enabled, 2)

	total, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)

	active, err := repo.CountEnabled(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, active)

	counts, err := repo.CountByNamespace(ctx, ns.ID)
	require.NoError(t, err)
	assert.Equal(t, model.FeatureCounts{Total: 3, Active: 2, Inactive: 1}, counts)

	counts, err = repo.CountByEnvironment(ctx, env.ID)
	require.NoError(t, err)
	assert.Equal(t, model.FeatureCounts{Total: 3, Active: 2, Inactive: 1}, counts)
}

func TestNamespaceRepository_DuplicateName(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewNamespaceRepository(db)

	require.NoError(t, repo.Save(ctx, &model.Namespace{Name: "shop"}))
	err := repo.Save(ctx, &model.Namespace{Name: "shop"})
	assert.ErrorIs(t, err, ErrConstraintViolation)

	got, err := repo.FindByName(ctx, "shop")
	require.NoError(t, err)
	require.NotNil(t, got)

	none, err := repo.FindByName(ctx, "nope")
	assert.NoError(t, err)
	assert.Nil(t, none)
}

func TestEnvironmentRepository_ListAndDelete(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewEnvironmentRepository(db)

	require.NoError(t, repo.Save(ctx, &model.Environment{Name: "prod"}))
	require.NoError(t, repo.Save(ctx, &model.Environment{Name: "dev"}))

	envs, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, envs, 2)
	assert.Equal(t, "dev", envs[0].Name)

	require.NoError(t, repo.DeleteByID(ctx, envs[0].ID))
	total, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}

func TestAuditRepository_QueryFiltersAndOrder(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewAuditRepository(db)

	cache := model.SourceCache
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	entries := []model.AuditLog{
		{Actor: "alice", ActorKind: model.ActorUser, Action: model.ActionCreate, EntityKind: model.EntityFeature, EntityID: 1, CreatedAt: base},
		{Actor: "alice", ActorKind: model.ActorUser, Action: model.ActionUpdate, EntityKind: model.EntityFeature, EntityID: 1, CreatedAt: base.Add(time.Minute)},
		{Actor: "sdk", ActorKind: model.ActorClient, Action: model.ActionAccess, EntityKind: model.EntityFeature, EntityID: 1, DataSource: &cache, CreatedAt: base.Add(2 * time.Minute)},
		{Actor: "system", ActorKind: model.ActorSystem, Action: model.ActionCreate, EntityKind: model.EntityNamespace, EntityID: 1, CreatedAt: base.Add(3 * time.Minute)},
	}
	for i := range entries {
		require.NoError(t, repo.Create(ctx, &entries[i]))
	}

	all, total, err := repo.Query(ctx, AuditFilter{}, PageRequest{})
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	require.Len(t, all, 4)
	assert.Equal(t, model.EntityNamespace, all[0].EntityKind)

	id := uint64(1)
	feature, total, err := repo.Query(ctx, AuditFilter{EntityKind: model.EntityFeature, EntityID: &id}, PageRequest{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Equal(t, model.ActionAccess, feature[0].Action)
	assert.Equal(t, model.ActionCreate, feature[2].Action)

	writes, total, err := repo.Query(ctx, AuditFilter{
		EntityKind: model.EntityFeature,
		Actions:    []model.AuditAction{model.ActionCreate, model.ActionUpdate},
		Actor:      "alice",
	}, PageRequest{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, writes, 2)

	cached, total, err := repo.Query(ctx, AuditFilter{DataSource: model.SourceCache, ActorKind: model.ActorClient}, PageRequest{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "sdk", cached[0].Actor)

	paged, total, err := repo.Query(ctx, AuditFilter{}, PageRequest{Page: 1, Size: 3})
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	require.Len(t, paged, 1)
	assert.Equal(t, model.ActionCreate, paged[0].Action)
	assert.Equal(t, model.EntityFeature, paged[0].EntityKind)

	beyond, total, err := repo.Query(ctx, AuditFilter{}, PageRequest{Page: math.MaxInt, Size: 3})
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	assert.Empty(t, beyond)

	none, total, err := repo.Query(ctx, AuditFilter{Actor: "nobody"}, PageRequest{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, none)

	assert.NoError(t, repo.PingContext(ctx))
}

func TestPageRequest_Normalize(t *testing.T) {
	assert.Equal(t, PageRequest{Page: 0, Size: DefaultPageSize}, PageRequest{Page: -1}.Normalize())
	assert.Equal(t, PageRequest{Page: 2, Size: MaxPageSize}, PageRequest{Page: 2, Size: 5000}.Normalize())
	assert.Equal(t, 40, PageRequest{Page: 2, Size: 20}.Offset())

	huge := PageRequest{Page: math.MaxInt, Size: MaxPageSize}.Normalize()
	assert.Equal(t, MaxPage, huge.Page)
	assert.Positive(t, huge.Offset())
}
