package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"shop-api/internal/core/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestSettings_DSN(t *testing.T) {
	s := Settings{Host: "db", Port: 5432, User: "shop", Password: "secret", Name: "shop"}
	assert.Equal(t, "host=db port=5432 user=shop password=secret dbname=shop sslmode=disable", s.DSN())

	s.SSLMode = "require"
	assert.Contains(t, s.DSN(), "sslmode=require")
}

func TestSettings_URL(t *testing.T) {
	s := Settings{Host: "db", Port: 5433, User: "shop", Password: "p@ss", Name: "shop"}
	assert.Equal(t, "postgres://shop:p%40ss@db:5433/shop?sslmode=disable", s.URL())
}

func TestMigrate_UnknownDirection(t *testing.T) {
	_, err := Migrate("postgres://localhost/none", Direction("sideways"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown migration direction")
}

func TestMigrationFiles_Embedded(t *testing.T) {
	entries, err := migrationFiles.ReadDir("migrations")
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func observeLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	logger.Set(zap.New(core))
	t.Cleanup(func() { logger.Set(nil) })
	return logs
}

func TestGormLogger_Trace(t *testing.T) {
	sql := func() (string, int64) { return "SELECT 1", 1 }

	t.Run("Error", func(t *testing.T) {
		logs := observeLogs(t)
		NewGormLogger(time.Second).Trace(context.Background(), time.Now(), sql, errors.New("deadlock"))
		assert.Equal(t, 1, logs.FilterMessage("Query failed").Len())
	})

	t.Run("RecordNotFoundIsNotAnError", func(t *testing.T) {
		logs := observeLogs(t)
		NewGormLogger(time.Second).Trace(context.Background(), time.Now(), sql, gorm.ErrRecordNotFound)
		assert.Equal(t, 0, logs.Len())
	})

	t.Run("Slow", func(t *testing.T) {
		logs := observeLogs(t)
		NewGormLogger(time.Millisecond).Trace(context.Background(), time.Now().Add(-time.Second), sql, nil)
		entries := logs.FilterMessage("Slow query").All()
		require.Len(t, entries, 1)
		assert.Equal(t, "SELECT 1", entries[0].ContextMap()["sql"])
	})

	t.Run("Silent", func(t *testing.T) {
		logs := observeLogs(t)
		l := NewGormLogger(time.Millisecond).LogMode(gormlogger.Silent)
		l.Trace(context.Background(), time.Now().Add(-time.Second), sql, errors.New("boom"))
		assert.Equal(t, 0, logs.Len())
	})

	t.Run("InfoLevelLogsEveryQuery", func(t *testing.T) {
		logs := observeLogs(t)
		l := NewGormLogger(time.Second).LogMode(gormlogger.Info)
		l.Trace(context.Background(), time.Now(), sql, nil)
		assert.Equal(t, 1, logs.FilterMessage("Query").Len())
	})
}

func TestNewGormLogger_DefaultThreshold(t *testing.T) {
	assert.Equal(t, DefaultSlowQuery, NewGormLogger(0).slowQuery)
}
