package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config stores the importer configuration. Everything is resolved once at
// process start; components receive the values they need and never re-derive
// credentials themselves.
type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Redis配置（可选，用于去重缓存，连接失败时自动降级为纯数据库查询）
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// MinIO对象存储配置
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioRegion    string
	MinioUseSSL    bool
	// MinioPublicBaseURL is the prefix for public object URLs, e.g.
	// "https://media.freefm.app/freefm". Defaults to endpoint+bucket.
	MinioPublicBaseURL string

	// JamendoClientID is the per-source API credential. When empty the
	// Jamendo source short-circuits with a single logged error.
	JamendoClientID string

	// Operational flags: DRY_RUN / LIMIT / START_AFTER.
	DryRun     bool
	Limit      int
	StartAfter string

	// 导入调优参数：针对第三方接口限流经验性调整，均可通过环境变量覆盖
	JamendoRunCap    int           // 单次运行Jamendo最多处理条目数
	ArchiveRunCap    int           // 单次运行Internet Archive最多处理条目数
	RequestDelay     time.Duration // 相邻外部请求之间的固定间隔
	MediaConcurrency int           // 媒体迁移并发上限
	AudioTimeout     time.Duration // 音频下载超时
	ArtworkTimeout   time.Duration // 封面下载超时

	LogLevel string
	LogFile  string
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

// getEnvBool treats "1", "true", "yes" (any case) as true.
func getEnvBool(key string, fallback bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	switch value {
	case "1", "true", "TRUE", "True", "yes", "YES":
		return true
	case "0", "false", "FALSE", "False", "no", "NO":
		return false
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() will not override variables already set in the environment.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading .env, relying on existing environment variables and defaults.")
	}

	return &Config{
		DBHost:     getEnv("DB_HOST", "127.0.0.1"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: os.Getenv("DB_PASSWORD"), // no hardcoded default for passwords
		DBName:     getEnv("DB_NAME", "freefm"),

		RedisHost:     getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		MinioEndpoint:      getEnv("MINIO_ENDPOINT", "127.0.0.1:9000"),
		MinioAccessKey:     os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey:     os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:        getEnv("MINIO_BUCKET", "freefm"),
		MinioRegion:        getEnv("MINIO_REGION", "us-east-1"),
		MinioUseSSL:        getEnvBool("MINIO_USE_SSL", false),
		MinioPublicBaseURL: getEnv("MINIO_PUBLIC_BASE_URL", ""),

		JamendoClientID: os.Getenv("JAMENDO_CLIENT_ID"),

		DryRun:     getEnvBool("DRY_RUN", false),
		Limit:      getEnvInt("LIMIT", 0),
		StartAfter: getEnv("START_AFTER", ""),

		JamendoRunCap:    getEnvInt("JAMENDO_RUN_CAP", 60),
		ArchiveRunCap:    getEnvInt("ARCHIVE_RUN_CAP", 40),
		RequestDelay:     time.Duration(getEnvInt("REQUEST_DELAY_MS", 400)) * time.Millisecond,
		MediaConcurrency: getEnvInt("MEDIA_CONCURRENCY", 3),
		AudioTimeout:     time.Duration(getEnvInt("AUDIO_TIMEOUT_SEC", 60)) * time.Second,
		ArtworkTimeout:   time.Duration(getEnvInt("ARTWORK_TIMEOUT_SEC", 15)) * time.Second,

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),
	}
}
