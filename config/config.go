package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// ConflictPolicy decides what happens when an export target file already exists.
type ConflictPolicy string

const (
	// ConflictOverwrite leaves collision handling to the splitter backend,
	// which overwrites the target.
	ConflictOverwrite ConflictPolicy = "overwrite"
	// ConflictFail rejects the export when the target path already exists.
	ConflictFail ConflictPolicy = "fail"
)

// Config stores the application configuration.
type Config struct {
	ListenAddr string

	// Splitter backend.
	SplitterBaseURL string
	SplitterTimeout time.Duration

	// Local project store.
	DataDir string
	DBPath  string

	// Export defaults. NameTemplate supports {TITLE}, {ARTIST}, {ALBUM}
	// and {YEAR} placeholders.
	DefaultFileType string
	NameTemplate    string
	ConflictPolicy  ConflictPolicy

	// DetachedSplit lets an in-flight split request finish even when the
	// view that issued it has been torn down. When false the request is
	// cancelled together with the caller's context.
	DetachedSplit bool

	// Optional watch folder for automatic imports. Empty disables it.
	WatchDir     string
	InboxProject string

	// Redis, used as a segment preview byte cache.
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// MinIO export archive. Empty endpoint disables archiving.
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	MinioRegion    string

	LogLevel string
	LogPath  string
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvBool gets an environment variable as bool or returns a default value.
func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv will not override variables already set in the environment.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on existing environment variables and defaults.")
	}

	dataDir := getEnv("DATA_DIR", "data")

	policy := ConflictPolicy(getEnv("EXPORT_CONFLICT_POLICY", string(ConflictOverwrite)))
	if policy != ConflictOverwrite && policy != ConflictFail {
		log.Printf("Unknown EXPORT_CONFLICT_POLICY %q, falling back to overwrite.", policy)
		policy = ConflictOverwrite
	}

	return &Config{
		ListenAddr: getEnv("LISTEN_ADDR", ":8080"),

		SplitterBaseURL: getEnv("SPLITTER_BASE_URL", "http://127.0.0.1:5000/api"),
		SplitterTimeout: time.Duration(getEnvInt("SPLITTER_TIMEOUT_SECONDS", 300)) * time.Second,

		DataDir: dataDir,
		DBPath:  getEnv("DB_PATH", filepath.Join(dataDir, "wavesplit.sqlite3")),

		DefaultFileType: getEnv("OUTPUT_FILE_TYPE", "mp3"),
		NameTemplate:    getEnv("OUTPUT_FILE_NAME_TEMPLATE", "{TITLE}"),
		ConflictPolicy:  policy,

		DetachedSplit: getEnvBool("SPLIT_DETACHED", true),

		WatchDir:     getEnv("WATCH_DIR", ""),
		InboxProject: getEnv("INBOX_PROJECT_NAME", "Inbox"),

		RedisHost:     getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", ""),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getEnv("MINIO_BUCKET", "wavesplit"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),
		MinioRegion:    getEnv("MINIO_REGION", ""),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogPath:  getEnv("LOG_PATH", ""),
	}
}
