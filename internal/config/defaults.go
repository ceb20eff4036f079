package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/LeJamon/goEscrowd/internal/storage/relationaldb"
)

// setDefaults sets all default values. Every key a section understands is
// listed here so environment overrides reach it.
func setDefaults(v *viper.Viper) {
	// 1. Server defaults
	v.SetDefault("server.listen", "127.0.0.1:5005")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.request_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.rate_limit", 50.0)
	v.SetDefault("server.rate_burst", 100)
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.send_queue_limit", 500)
	v.SetDefault("server.metrics", true)

	// 2. Storage defaults
	v.SetDefault("storage.backend", "pebble")
	v.SetDefault("storage.path", "/var/lib/escrowd/db")
	v.SetDefault("storage.compression", "lz4")
	v.SetDefault("storage.cache_size", 16384)

	// 3. Index defaults (disabled; sqlite when turned on)
	db := relationaldb.NewConfig()
	v.SetDefault("index.enabled", false)
	v.SetDefault("index.queue_size", 1024)
	v.SetDefault("index.driver", db.Driver)
	v.SetDefault("index.connection_string", "")
	v.SetDefault("index.host", db.Host)
	v.SetDefault("index.port", db.Port)
	v.SetDefault("index.database", "/var/lib/escrowd/index.db")
	v.SetDefault("index.username", db.Username)
	v.SetDefault("index.password", "")
	v.SetDefault("index.ssl_mode", db.SSLMode)
	// SQLite allows a single writer; raise both for postgres
	v.SetDefault("index.max_open_conns", 1)
	v.SetDefault("index.max_idle_conns", 1)
	v.SetDefault("index.conn_max_lifetime", db.ConnMaxLifetime)
	v.SetDefault("index.conn_max_idle_time", db.ConnMaxIdleTime)
	v.SetDefault("index.default_timeout", db.DefaultTimeout)
	v.SetDefault("index.max_retries", db.MaxRetries)
	v.SetDefault("index.retry_delay", db.RetryDelay)
	v.SetDefault("index.retry_max_delay", db.RetryMaxDelay)
	v.SetDefault("index.enable_wal_mode", db.EnableWALMode)

	// 4. Ledger defaults
	v.SetDefault("ledger.reserve_base", 200)
	v.SetDefault("ledger.reserve_increment", 50)
	v.SetDefault("ledger.skip_signature_verification", false)

	// 5. Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", true)
}
