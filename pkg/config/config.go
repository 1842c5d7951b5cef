package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

// Config 应用配置结构
type Config struct {
	// 环境配置
	Environment string
	Port        string
	GRPCPort    string

	// 数据库配置
	UseLocalDB    bool
	LocalDataDir  string
	PostgresDSN   string
	MongoURI      string
	MongoDatabase string

	// 缓存与消息
	RedisURL     string
	CacheTTL     time.Duration
	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroupID string

	// S3 对象存储
	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	S3Bucket           string
	S3Endpoint         string
	MaxUploadBytes     int64

	// JWT配置
	JWTSecret string

	// OAuth配置
	GoogleClientID     string
	GoogleClientSecret string
	OAuthRedirectURI   string

	// 内部服务调用 (bcrypt hash of the shared key)
	ServiceAPIKeyHash string

	RateLimitPerMinute int

	// CORS配置
	AllowedOrigins []string

	// 调试配置
	Debug bool
}

// fileConfig 是 OMS_CONFIG_FILE 指向的 YAML 文件; 环境变量优先
type fileConfig struct {
	Environment    string   `yaml:"environment"`
	Port           string   `yaml:"port"`
	GRPCPort       string   `yaml:"grpc_port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	Debug          *bool    `yaml:"debug"`
	Database       struct {
		UseLocal      *bool  `yaml:"use_local"`
		LocalDataDir  string `yaml:"local_data_dir"`
		PostgresDSN   string `yaml:"postgres_dsn"`
		MongoURI      string `yaml:"mongo_uri"`
		MongoDatabase string `yaml:"mongo_database"`
	} `yaml:"database"`
	Cache struct {
		RedisURL string `yaml:"redis_url"`
		TTL      string `yaml:"ttl"`
	} `yaml:"cache"`
	Kafka struct {
		Brokers []string `yaml:"brokers"`
		Topic   string   `yaml:"topic"`
		GroupID string   `yaml:"group_id"`
	} `yaml:"kafka"`
	Storage struct {
		Region         string `yaml:"region"`
		Bucket         string `yaml:"bucket"`
		Endpoint       string `yaml:"endpoint"`
		MaxUploadBytes int64  `yaml:"max_upload_bytes"`
	} `yaml:"storage"`
	OAuth struct {
		GoogleClientID string `yaml:"google_client_id"`
		RedirectURI    string `yaml:"redirect_uri"`
	} `yaml:"oauth"`
	RateLimitPerMinute int `yaml:"rate_limit_per_minute"`
}

// LoadConfig 加载配置: .env 文件 -> YAML 默认值 -> 环境变量覆盖
func LoadConfig() *Config {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}
	envFile := ".env.local"
	if env == "production" {
		envFile = ".env.production"
	}
	// godotenv.Load 不覆盖已存在的变量; 文件缺失时静默忽略
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load env file", "module", "config", "file", envFile, "error", err)
	}

	var file fileConfig
	if path := strings.TrimSpace(os.Getenv("OMS_CONFIG_FILE")); path != "" {
		loaded, err := loadFile(path)
		if err != nil {
			slog.Warn("ignoring config file", "module", "config", "file", path, "error", err)
		} else {
			file = *loaded
		}
	}
	return build(file)
}

func loadFile(path string) (*fileConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &fc, nil
}

func build(file fileConfig) *Config {
	c := &Config{
		Environment:   getEnv("ENVIRONMENT", file.Environment, "development"),
		Port:          getEnv("PORT", file.Port, "3000"),
		GRPCPort:      getEnv("GRPC_PORT", file.GRPCPort, "9090"),
		UseLocalDB:    getEnvBool("USE_LOCAL_DB", file.Database.UseLocal, true),
		LocalDataDir:  getEnv("LOCAL_DATA_DIR", file.Database.LocalDataDir, "./data"),
		PostgresDSN:   getEnv("POSTGRES_DSN", file.Database.PostgresDSN, ""),
		MongoURI:      getEnv("MONGO_URI", file.Database.MongoURI, ""),
		MongoDatabase: getEnv("MONGO_DATABASE", file.Database.MongoDatabase, "oms"),
		RedisURL:      getEnv("REDIS_URL", file.Cache.RedisURL, ""),
		CacheTTL:      getEnvDuration("CACHE_TTL", file.Cache.TTL, 5*time.Minute),
		KafkaBrokers:  getEnvList("KAFKA_BROKERS", file.Kafka.Brokers, nil),
		KafkaTopic:    getEnv("KAFKA_TOPIC", file.Kafka.Topic, "oms.domain-events"),
		KafkaGroupID:  getEnv("KAFKA_GROUP_ID", file.Kafka.GroupID, "oms-notifications"),

		AWSRegion:          getEnv("NEXT_PUBLIC_AWS_REGION", file.Storage.Region, ""),
		AWSAccessKeyID:     getEnv("NEXT_PUBLIC_AWS_ACCESS_KEY_ID", "", ""),
		AWSSecretAccessKey: getEnv("NEXT_PUBLIC_AWS_SECRET_ACCESS_KEY", "", ""),
		S3Bucket:           getEnv("NEXT_PUBLIC_S3_BUCKET_NAME", file.Storage.Bucket, ""),
		S3Endpoint:         getEnv("S3_ENDPOINT", file.Storage.Endpoint, ""),
		MaxUploadBytes:     getEnvInt64("MAX_UPLOAD_BYTES", file.Storage.MaxUploadBytes, 10<<20),

		JWTSecret:          getEnv("JWT_SECRET", "", defaultJWTSecret),
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", file.OAuth.GoogleClientID, ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", "", ""),
		OAuthRedirectURI:   getEnv("OAUTH_REDIRECT_URI", file.OAuth.RedirectURI, ""),
		ServiceAPIKeyHash:  getEnv("SERVICE_API_KEY_HASH", "", ""),
		RateLimitPerMinute: int(getEnvInt64("RATE_LIMIT_PER_MINUTE", int64(file.RateLimitPerMinute), 120)),
		AllowedOrigins:     getEnvList("ALLOWED_ORIGINS", file.AllowedOrigins, []string{"*"}),
		Debug:              getEnvBool("DEBUG", file.Debug, false),
	}

	// 配置了外部数据库时不再使用本地文件库
	if c.MongoURI != "" || c.PostgresDSN != "" {
		c.UseLocalDB = false
	}
	if c.IsProduction() {
		c.Debug = false
	}
	return c
}

// Cached config (initialized once per cold start)
var (
	cachedConfig *Config
	configOnce   sync.Once
)

// GetCached returns the process-wide cached Config.
// On serverless (Vercel), it initializes once per cold start and
// reuses it across warm invocations.
func GetCached() *Config {
	configOnce.Do(func() {
		cachedConfig = LoadConfig()
	})
	return cachedConfig
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if c.JWTSecret == "" || c.JWTSecret == defaultJWTSecret {
		if c.IsProduction() {
			return fmt.Errorf("JWT_SECRET must be set in production")
		}
		slog.Warn("using default JWT secret", "module", "config")
	}
	if c.IsProduction() && c.MongoURI == "" && c.PostgresDSN == "" {
		return fmt.Errorf("production requires MONGO_URI or POSTGRES_DSN")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	if c.RateLimitPerMinute < 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must not be negative")
	}
	return nil
}

// IsProduction 检查是否为生产环境
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// IsDevelopment 检查是否为开发环境
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// UseKafka reports whether domain events go through Kafka instead of inline dispatch.
func (c *Config) UseKafka() bool {
	return len(c.KafkaBrokers) > 0
}

// 辅助函数

// getEnv 环境变量 > 文件值 > 默认值; 去除首尾空白
func getEnv(key, fileValue, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	if fileValue != "" {
		return fileValue
	}
	return defaultValue
}

func getEnvBool(key string, fileValue *bool, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	if fileValue != nil {
		return *fileValue
	}
	return defaultValue
}

func getEnvInt64(key string, fileValue, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return parsed
		}
	}
	if fileValue != 0 {
		return fileValue
	}
	return defaultValue
}

func getEnvDuration(key, fileValue string, defaultValue time.Duration) time.Duration {
	for _, raw := range []string{os.Getenv(key), fileValue} {
		if raw == "" {
			continue
		}
		if d, err := time.ParseDuration(strings.TrimSpace(raw)); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList 逗号分隔列表
func getEnvList(key string, fileValue, defaultValue []string) []string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		var out []string
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	if len(fileValue) > 0 {
		return fileValue
	}
	return defaultValue
}
