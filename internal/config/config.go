// Package config reads the service configuration from the environment
// (and a .env file when present).
package config

import (
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Config struct {
	Port     string
	LogLevel string

	DBDriver    string
	DatabaseURL string

	BlobDriver    string
	BlobRoot      string
	Bucket        string
	S3Region      string
	S3Endpoint    string
	S3AccessKey   string
	S3SecretKey   string
	S3PathStyle   bool
	PublicBaseURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
	Compression   string

	COABackend  string
	COAPrefix   string
	CMSCacheTTL time.Duration

	AdminToken string

	EmailAPIKey  string
	EmailAPIBase string
	EmailFrom    string
	AdminEmail   string
	CompanyName  string

	QueueDriver  string
	KafkaBrokers string
	KafkaTopic   string
	KafkaGroupID string

	AuditSchedule string
	ViewerURL     string
	SiteConfig    string
}

func init() {
	viper.SetDefault("PORT", "4020")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("DB_DRIVER", "sqlite")
	viper.SetDefault("DATABASE_URL", "coa.db")
	viper.SetDefault("BLOB_DRIVER", "fs")
	viper.SetDefault("BLOB_ROOT", "./.data/objects")
	viper.SetDefault("BUCKET", "coa-files")
	viper.SetDefault("S3_REGION", "us-east-1")
	viper.SetDefault("PUBLIC_BASE_URL", "http://localhost:4020")
	viper.SetDefault("REDIS_PREFIX", "coa:")
	viper.SetDefault("COMPRESSION", "gzip")
	viper.SetDefault("COA_BACKEND", "store")
	viper.SetDefault("COA_PREFIX", "ZT")
	viper.SetDefault("CMS_CACHE_TTL", "5m")
	viper.SetDefault("EMAIL_API_BASE", "https://api.resend.com")
	viper.SetDefault("EMAIL_FROM", "Lab <noreply@example.com>")
	viper.SetDefault("COMPANY_NAME", "Zeta Testing Labs")
	viper.SetDefault("QUEUE_DRIVER", "memory")
	viper.SetDefault("KAFKA_TOPIC", "coa.events")
	viper.SetDefault("KAFKA_GROUP_ID", "coa-notifications")
	viper.SetDefault("AUDIT_SCHEDULE", "@every 1h")
	viper.SetDefault("VIEWER_URL", "https://docs.google.com/viewer")

	viper.AutomaticEnv()
}

// LoadConfig reads the configuration and applies the log level.
func LoadConfig() *Config {
	cfg := &Config{
		Port:     viper.GetString("PORT"),
		LogLevel: viper.GetString("LOG_LEVEL"),

		DBDriver:    viper.GetString("DB_DRIVER"),
		DatabaseURL: viper.GetString("DATABASE_URL"),

		BlobDriver:    viper.GetString("BLOB_DRIVER"),
		BlobRoot:      viper.GetString("BLOB_ROOT"),
		Bucket:        viper.GetString("BUCKET"),
		S3Region:      viper.GetString("S3_REGION"),
		S3Endpoint:    viper.GetString("S3_ENDPOINT"),
		S3AccessKey:   viper.GetString("S3_ACCESS_KEY_ID"),
		S3SecretKey:   viper.GetString("S3_SECRET_ACCESS_KEY"),
		S3PathStyle:   viper.GetBool("S3_PATH_STYLE"),
		PublicBaseURL: strings.TrimRight(viper.GetString("PUBLIC_BASE_URL"), "/"),

		RedisAddr:     viper.GetString("REDIS_ADDR"),
		RedisPassword: viper.GetString("REDIS_PASSWORD"),
		RedisDB:       viper.GetInt("REDIS_DB"),
		RedisPrefix:   viper.GetString("REDIS_PREFIX"),
		Compression:   viper.GetString("COMPRESSION"),

		COABackend:  viper.GetString("COA_BACKEND"),
		COAPrefix:   viper.GetString("COA_PREFIX"),
		CMSCacheTTL: viper.GetDuration("CMS_CACHE_TTL"),

		AdminToken: viper.GetString("ADMIN_TOKEN"),

		EmailAPIKey:  viper.GetString("EMAIL_API_KEY"),
		EmailAPIBase: viper.GetString("EMAIL_API_BASE"),
		EmailFrom:    viper.GetString("EMAIL_FROM"),
		AdminEmail:   viper.GetString("ADMIN_EMAIL"),
		CompanyName:  viper.GetString("COMPANY_NAME"),

		QueueDriver:  viper.GetString("QUEUE_DRIVER"),
		KafkaBrokers: viper.GetString("KAFKA_BROKERS"),
		KafkaTopic:   viper.GetString("KAFKA_TOPIC"),
		KafkaGroupID: viper.GetString("KAFKA_GROUP_ID"),

		AuditSchedule: viper.GetString("AUDIT_SCHEDULE"),
		ViewerURL:     viper.GetString("VIEWER_URL"),
		SiteConfig:    viper.GetString("SITE_CONFIG"),
	}

	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	} else {
		logrus.Warnf("unknown log level %q, keeping %s", cfg.LogLevel, logrus.GetLevel())
	}

	return cfg
}

// Dialector picks the gorm driver for cfg.DBDriver.
func Dialector(cfg *Config) gorm.Dialector {
	switch cfg.DBDriver {
	case "postgres", "postgresql":
		return postgres.Open(cfg.DatabaseURL)
	default:
		return sqlite.Open(cfg.DatabaseURL)
	}
}

// GetDb opens the configured database. It exits the process when the
// database cannot be reached.
func GetDb(cfg *Config) *gorm.DB {
	level := logger.Warn
	if logrus.IsLevelEnabled(logrus.DebugLevel) {
		level = logger.Info
	}

	db, err := gorm.Open(Dialector(cfg), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(level),
	})
	if err != nil {
		logrus.Fatalf("error connecting to %s database: %v", cfg.DBDriver, err)
	}

	logrus.Infof("connected to %s database", cfg.DBDriver)
	return db
}
