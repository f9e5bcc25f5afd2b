package config

import (
	"log"
	"os"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Log      LogConfig
	KV       KVConfig
	Database DatabaseConfig
	App      AppConfig
	Cache    CacheConfig
	Storage  StorageConfig
	Engine   EngineConfig
	Drive    DriveConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type LogConfig struct {
	Level string
}

// KV backends for the canonical store.
const (
	KVMemory   = "memory"
	KVRedis    = "redis"
	KVPostgres = "postgres"
)

type KVConfig struct {
	Backend        string
	MemoryCapacity int
}

type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type AppConfig struct {
	UploadDir string
}

type CacheConfig struct {
	Enabled              bool
	RedisURL             string
	RedisHost            string
	RedisPort            string
	RedisPassword        string
	RedisDB              int
	ProjectionTTLSeconds int
}

type StorageConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

type EngineConfig struct {
	AlertThreshold float64
	ForwardHorizon int
	DebounceMS     int
	IngestWorkers  int
}

// Debounce is the filter-change debounce window.
func (e EngineConfig) Debounce() time.Duration {
	return time.Duration(e.DebounceMS) * time.Millisecond
}

type DriveConfig struct {
	CredentialsJSON string
	FolderID        string
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		setDefaults()

		// Read from environment variables
		viper.AutomaticEnv()

		instance = build()

		// Ensure upload directory exists
		ensureDir(instance.App.UploadDir)
	})

	return instance
}

func setDefaults() {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_MODE", "debug")
	viper.SetDefault("SERVER_READ_TIMEOUT", 30)
	viper.SetDefault("SERVER_WRITE_TIMEOUT", 60)
	viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("KV_BACKEND", KVMemory)
	viper.SetDefault("KV_MEMORY_CAPACITY_BYTES", 0)
	viper.SetDefault("DB_DRIVER", "pgx")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_PASSWORD", "postgres")
	viper.SetDefault("DB_NAME", "stockfloat")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("APP_UPLOAD_DIR", "./data/uploads")
	viper.SetDefault("CACHE_ENABLED", false)
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("REDIS_HOST", "127.0.0.1")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("CACHE_PROJECTION_TTL_SECONDS", 60)
	viper.SetDefault("STORAGE_ENABLED", false)
	viper.SetDefault("STORAGE_BUCKET", "stockfloat-uploads")
	viper.SetDefault("STORAGE_REGION", "us-east-1")
	viper.SetDefault("STORAGE_USE_SSL", true)
	viper.SetDefault("ENGINE_ALERT_THRESHOLD", 500.0)
	viper.SetDefault("ENGINE_FORWARD_HORIZON", 6)
	viper.SetDefault("ENGINE_DEBOUNCE_MS", 150)
	viper.SetDefault("ENGINE_INGEST_WORKERS", 4)
	viper.SetDefault("GOOGLE_DRIVE_CREDENTIALS_JSON", "")
	viper.SetDefault("GOOGLE_DRIVE_FOLDER_ID", "")
}

func build() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           viper.GetString("SERVER_PORT"),
			Mode:           viper.GetString("SERVER_MODE"),
			ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
		},
		Log: LogConfig{
			Level: viper.GetString("LOG_LEVEL"),
		},
		KV: KVConfig{
			Backend:        viper.GetString("KV_BACKEND"),
			MemoryCapacity: viper.GetInt("KV_MEMORY_CAPACITY_BYTES"),
		},
		Database: DatabaseConfig{
			Driver:   viper.GetString("DB_DRIVER"),
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			DBName:   viper.GetString("DB_NAME"),
			SSLMode:  viper.GetString("DB_SSLMODE"),
		},
		App: AppConfig{
			UploadDir: viper.GetString("APP_UPLOAD_DIR"),
		},
		Cache: CacheConfig{
			Enabled:              viper.GetBool("CACHE_ENABLED"),
			RedisURL:             viper.GetString("REDIS_URL"),
			RedisHost:            viper.GetString("REDIS_HOST"),
			RedisPort:            viper.GetString("REDIS_PORT"),
			RedisPassword:        viper.GetString("REDIS_PASSWORD"),
			RedisDB:              viper.GetInt("REDIS_DB"),
			ProjectionTTLSeconds: viper.GetInt("CACHE_PROJECTION_TTL_SECONDS"),
		},
		Storage: StorageConfig{
			Enabled:   viper.GetBool("STORAGE_ENABLED"),
			Endpoint:  viper.GetString("STORAGE_ENDPOINT"),
			AccessKey: viper.GetString("STORAGE_ACCESS_KEY"),
			SecretKey: viper.GetString("STORAGE_SECRET_KEY"),
			Bucket:    viper.GetString("STORAGE_BUCKET"),
			Region:    viper.GetString("STORAGE_REGION"),
			UseSSL:    viper.GetBool("STORAGE_USE_SSL"),
		},
		Engine: EngineConfig{
			AlertThreshold: viper.GetFloat64("ENGINE_ALERT_THRESHOLD"),
			ForwardHorizon: viper.GetInt("ENGINE_FORWARD_HORIZON"),
			DebounceMS:     viper.GetInt("ENGINE_DEBOUNCE_MS"),
			IngestWorkers:  viper.GetInt("ENGINE_INGEST_WORKERS"),
		},
		Drive: DriveConfig{
			CredentialsJSON: viper.GetString("GOOGLE_DRIVE_CREDENTIALS_JSON"),
			FolderID:        viper.GetString("GOOGLE_DRIVE_FOLDER_ID"),
		},
	}
}

func ensureDir(dir string) {
	if dir == "" {
		return
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create directory %s: %v", dir, err)
		}
	}
}
