package tester

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/emrgen/coa/internal/blob"
	"github.com/emrgen/coa/internal/cache"
	"github.com/emrgen/coa/internal/compress"
	"github.com/emrgen/coa/internal/model"
	"github.com/emrgen/coa/internal/store"
	redis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	_ = os.Setenv("ENV", "test")
	logrus.SetLevel(logrus.WarnLevel)
}

// TestDB opens a migrated sqlite database private to t.
func TestDB(t testing.TB) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "coa.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	if err := model.Migrate(db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	return db
}

// Store returns a GormStore over a fresh test database.
func Store(t testing.TB) *store.GormStore {
	return store.NewGormStore(TestDB(t))
}

// Blobs returns an empty in-memory blob store.
func Blobs() *blob.Memory {
	return blob.NewMemory()
}

// Redis starts a miniredis server for the duration of t.
func Redis(t testing.TB, prefix string) (*cache.Redis, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), Protocol: 2})
	t.Cleanup(func() { _ = client.Close() })

	return cache.NewRedisFromClient(client, prefix, compress.NewNop()), mr
}
