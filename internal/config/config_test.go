package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "BUCKET", "COA_BACKEND", "CMS_CACHE_TTL", "AUDIT_SCHEDULE"} {
		t.Setenv(key, "")
	}

	cfg := LoadConfig()
	assert.Equal(t, "4020", cfg.Port)
	assert.Equal(t, "coa-files", cfg.Bucket)
	assert.Equal(t, 5*time.Minute, cfg.CMSCacheTTL)
	assert.Equal(t, "@every 1h", cfg.AuditSchedule)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("COA_BACKEND", "kv")
	t.Setenv("CMS_CACHE_TTL", "30s")
	t.Setenv("PUBLIC_BASE_URL", "https://lab.example.com/")
	t.Setenv("S3_PATH_STYLE", "true")
	t.Setenv("LOG_LEVEL", "warn")

	cfg := LoadConfig()
	assert.Equal(t, "kv", cfg.COABackend)
	assert.Equal(t, 30*time.Second, cfg.CMSCacheTTL)
	assert.Equal(t, "https://lab.example.com", cfg.PublicBaseURL)
	assert.True(t, cfg.S3PathStyle)
}

func TestDialector(t *testing.T) {
	_, ok := Dialector(&Config{DBDriver: "postgres", DatabaseURL: "postgres://localhost/coa"}).(*postgres.Dialector)
	assert.True(t, ok)

	_, ok = Dialector(&Config{DBDriver: "sqlite", DatabaseURL: ":memory:"}).(*sqlite.Dialector)
	assert.True(t, ok)
}
