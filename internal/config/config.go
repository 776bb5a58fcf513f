// internal/config/config.go
package config

import (
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Jobs     JobsConfig
	Cache    CacheConfig
	Import   ImportConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// JobsConfig tunes the batch runs.
type JobsConfig struct {
	WorkerCount       int
	CriticalDays      int
	WarningDays       int
	PlannedDays       int
	DefaultCoverDays  int
	SnoozeDefaultDays int
}

type CacheConfig struct {
	Enabled           bool
	RedisURL          string
	RedisHost         string
	RedisPort         string
	RedisPassword     string
	RedisDB           int
	SummaryTTLSeconds int
}

// ImportConfig configures the sales history importer, including the optional
// S3-compatible bucket exports are pulled from.
type ImportConfig struct {
	InboxDir        string
	StorageEndpoint string
	StorageAccess   string
	StorageSecret   string
	StorageBucket   string
	StorageRegion   string
	StorageUseSSL   bool
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		viper.SetDefault("SERVER_PORT", "8080")
		viper.SetDefault("SERVER_MODE", "debug")
		viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
		viper.SetDefault("DB_HOST", "localhost")
		viper.SetDefault("DB_PORT", "5432")
		viper.SetDefault("DB_USER", "postgres")
		viper.SetDefault("DB_PASSWORD", "postgres")
		viper.SetDefault("DB_NAME", "replenish")
		viper.SetDefault("DB_SSLMODE", "disable")
		viper.SetDefault("JOBS_WORKER_COUNT", 4)
		viper.SetDefault("JOBS_CRITICAL_DAYS", 3)
		viper.SetDefault("JOBS_WARNING_DAYS", 7)
		viper.SetDefault("JOBS_PLANNED_DAYS", 14)
		viper.SetDefault("JOBS_DEFAULT_COVER_DAYS", 14)
		viper.SetDefault("JOBS_SNOOZE_DEFAULT_DAYS", 7)
		viper.SetDefault("CACHE_ENABLED", false)
		viper.SetDefault("REDIS_URL", "")
		viper.SetDefault("REDIS_HOST", "127.0.0.1")
		viper.SetDefault("REDIS_PORT", "6379")
		viper.SetDefault("REDIS_PASSWORD", "")
		viper.SetDefault("REDIS_DB", 0)
		viper.SetDefault("CACHE_SUMMARY_TTL_SECONDS", 60)
		viper.SetDefault("IMPORT_INBOX_DIR", "./data/imports")
		viper.SetDefault("IMPORT_STORAGE_ENDPOINT", "")
		viper.SetDefault("IMPORT_STORAGE_BUCKET", "")
		viper.SetDefault("IMPORT_STORAGE_REGION", "")
		viper.SetDefault("IMPORT_STORAGE_USE_SSL", true)

		viper.AutomaticEnv()

		instance = &Config{
			Server: ServerConfig{
				Port:           viper.GetString("SERVER_PORT"),
				Mode:           viper.GetString("SERVER_MODE"),
				ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
				WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
				AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
			},
			Database: DatabaseConfig{
				Host:     viper.GetString("DB_HOST"),
				Port:     viper.GetString("DB_PORT"),
				User:     viper.GetString("DB_USER"),
				Password: viper.GetString("DB_PASSWORD"),
				DBName:   viper.GetString("DB_NAME"),
				SSLMode:  viper.GetString("DB_SSLMODE"),
			},
			Jobs: JobsConfig{
				WorkerCount:       viper.GetInt("JOBS_WORKER_COUNT"),
				CriticalDays:      viper.GetInt("JOBS_CRITICAL_DAYS"),
				WarningDays:       viper.GetInt("JOBS_WARNING_DAYS"),
				PlannedDays:       viper.GetInt("JOBS_PLANNED_DAYS"),
				DefaultCoverDays:  viper.GetInt("JOBS_DEFAULT_COVER_DAYS"),
				SnoozeDefaultDays: viper.GetInt("JOBS_SNOOZE_DEFAULT_DAYS"),
			},
			Cache: CacheConfig{
				Enabled:           viper.GetBool("CACHE_ENABLED"),
				RedisURL:          viper.GetString("REDIS_URL"),
				RedisHost:         viper.GetString("REDIS_HOST"),
				RedisPort:         viper.GetString("REDIS_PORT"),
				RedisPassword:     viper.GetString("REDIS_PASSWORD"),
				RedisDB:           viper.GetInt("REDIS_DB"),
				SummaryTTLSeconds: viper.GetInt("CACHE_SUMMARY_TTL_SECONDS"),
			},
			Import: ImportConfig{
				InboxDir:        viper.GetString("IMPORT_INBOX_DIR"),
				StorageEndpoint: viper.GetString("IMPORT_STORAGE_ENDPOINT"),
				StorageAccess:   viper.GetString("IMPORT_STORAGE_ACCESS_KEY"),
				StorageSecret:   viper.GetString("IMPORT_STORAGE_SECRET_KEY"),
				StorageBucket:   viper.GetString("IMPORT_STORAGE_BUCKET"),
				StorageRegion:   viper.GetString("IMPORT_STORAGE_REGION"),
				StorageUseSSL:   viper.GetBool("IMPORT_STORAGE_USE_SSL"),
			},
		}
	})

	return instance
}
