package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var configKeys = []string{
	"ENVIRONMENT", "PORT", "GRPC_PORT", "USE_LOCAL_DB", "LOCAL_DATA_DIR", "POSTGRES_DSN", "MONGO_URI",
	"MONGO_DATABASE", "REDIS_URL", "CACHE_TTL", "KAFKA_BROKERS", "KAFKA_TOPIC", "KAFKA_GROUP_ID",
	"NEXT_PUBLIC_AWS_REGION", "NEXT_PUBLIC_S3_BUCKET_NAME", "S3_ENDPOINT", "MAX_UPLOAD_BYTES",
	"JWT_SECRET", "RATE_LIMIT_PER_MINUTE", "ALLOWED_ORIGINS", "DEBUG", "OMS_CONFIG_FILE",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
	}
}

func TestBuildDefaults(t *testing.T) {
	clearEnv(t)

	c := build(fileConfig{})
	if c.Environment != "development" || c.Port != "3000" || c.GRPCPort != "9090" {
		t.Fatalf("unexpected defaults: %+v", c)
	}
	if !c.UseLocalDB || c.MongoDatabase != "oms" || c.CacheTTL != 5*time.Minute {
		t.Fatalf("unexpected storage defaults: %+v", c)
	}
	if c.MaxUploadBytes != 10<<20 || c.RateLimitPerMinute != 120 || c.UseKafka() {
		t.Fatalf("unexpected limits: %+v", c)
	}
	if len(c.AllowedOrigins) != 1 || c.AllowedOrigins[0] != "*" {
		t.Fatalf("unexpected origins: %v", c.AllowedOrigins)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("development defaults should validate: %v", err)
	}
}

func TestFileThenEnvOverrides(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "oms.yaml")
	yamlDoc := `
environment: staging
port: "8080"
database:
  mongo_uri: mongodb://db:27017
  mongo_database: oms_staging
cache:
  ttl: 90s
kafka:
  brokers: [k1:9092, k2:9092]
storage:
  region: eu-west-1
  bucket: oms-uploads
rate_limit_per_minute: 30
`
	if err := os.WriteFile(path, []byte(yamlDoc), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	fc, err := loadFile(path)
	if err != nil {
		t.Fatalf("load file: %v", err)
	}

	t.Setenv("PORT", "9000")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092 ,")
	c := build(*fc)

	if c.Environment != "staging" || c.Port != "9000" {
		t.Fatalf("env should override file: env=%s port=%s", c.Environment, c.Port)
	}
	if c.MongoURI != "mongodb://db:27017" || c.MongoDatabase != "oms_staging" || c.UseLocalDB {
		t.Fatalf("external database should disable local db: %+v", c)
	}
	if c.CacheTTL != 90*time.Second || c.RateLimitPerMinute != 30 {
		t.Fatalf("file values not applied: ttl=%s rate=%d", c.CacheTTL, c.RateLimitPerMinute)
	}
	if len(c.KafkaBrokers) != 2 || c.KafkaBrokers[1] != "b:9092" || !c.UseKafka() {
		t.Fatalf("unexpected brokers: %v", c.KafkaBrokers)
	}
	if c.AWSRegion != "eu-west-1" || c.S3Bucket != "oms-uploads" {
		t.Fatalf("storage settings not applied: %+v", c)
	}
}

func TestValidateProduction(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENVIRONMENT", "production")

	c := build(fileConfig{})
	if err := c.Validate(); err == nil {
		t.Fatalf("production with default secret should fail")
	}

	t.Setenv("JWT_SECRET", "a-real-secret")
	c = build(fileConfig{})
	if err := c.Validate(); err == nil {
		t.Fatalf("production without an external database should fail")
	}

	t.Setenv("POSTGRES_DSN", "postgres://oms@db/oms")
	c = build(fileConfig{})
	if err := c.Validate(); err != nil {
		t.Fatalf("complete production config should validate: %v", err)
	}
	if c.Debug {
		t.Fatalf("debug is forced off in production")
	}
}
