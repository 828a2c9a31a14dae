package main

import (
	"os"

	"github.com/emrgen/coa/internal/config"
	"github.com/emrgen/coa/internal/server"
	"github.com/sirupsen/logrus"
)

// local development: sqlite, files on disk, in memory queue
func main() {
	defaults := map[string]string{
		"DB_DRIVER":    "sqlite",
		"DATABASE_URL": ".tmp/coa.db",
		"BLOB_DRIVER":  "fs",
		"BLOB_ROOT":    ".tmp/blobs",
		"QUEUE_DRIVER": "memory",
		"LOG_LEVEL":    "debug",
		"ADMIN_TOKEN":  "dev",
	}
	for key, value := range defaults {
		if os.Getenv(key) == "" {
			_ = os.Setenv(key, value)
		}
	}

	if err := os.MkdirAll(".tmp/blobs", 0o755); err != nil {
		logrus.Fatal(err)
	}

	err := server.Start(config.LoadConfig())
	if err != nil {
		logrus.Error(err)
	}
}
