package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
}

type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	MaxRetries  int
	DialTimeout int
	Timeout     int
	Prefix      string
}

type S3Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UseSSL          bool
	Region          string
	Prefix          string
	URLTTL          time.Duration
}

type CycleConfig struct {
	Enabled  bool
	Schedule string
	LockTTL  time.Duration
	Keep     int
}

type AppConfig struct {
	Port        string
	Timezone    string
	CORSOrigins []string

	Postgres PostgresConfig
	Redis    RedisConfig
	S3       S3Config

	StorageDriver     string
	ExportDir         string
	FilesPublicPrefix string
	ExternalURL       string

	NotifyQueue   string
	NotifyTimeout time.Duration

	Cycle CycleConfig
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func mustAtoi(s string) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int value %q: %v", s, err)
	}
	return i
}

func mustBool(s string) bool {
	b, err := strconv.ParseBool(s)
	if err != nil {
		log.Fatalf("invalid bool value %q: %v", s, err)
	}
	return b
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func mustDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		log.Fatalf("invalid duration value %q: %v", s, err)
	}
	return d
}

func Load() AppConfig {
	return AppConfig{
		Port:        getenv("APP_PORT", "8020"),
		Timezone:    getenv("APP_TIMEZONE", "Europe/Amsterdam"),
		CORSOrigins: splitList(getenv("CORS_ORIGINS", "http://localhost:5173,http://localhost:8080")),
		Postgres: PostgresConfig{
			Host:     getenv("PG_HOST", "127.0.0.1"),
			Port:     mustAtoi(getenv("PG_PORT", "5432")),
			User:     getenv("PG_USER", "root"),
			Password: getenv("PG_PASSWORD", "hello-world"),
			DBName:   getenv("PG_DB", "debtster"),
			SSLMode:  getenv("PG_SSLMODE", "disable"),
			MaxConns: mustAtoi(getenv("PG_MAX_CONNS", "10")),
		},
		Redis: RedisConfig{
			Addr:        getenv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:    getenv("REDIS_PASSWORD", "hello-world"),
			DB:          mustAtoi(getenv("REDIS_DB", "0")),
			MaxRetries:  mustAtoi(getenv("REDIS_MAX_RETRIES", "5")),
			DialTimeout: mustAtoi(getenv("REDIS_DIAL_TIMEOUT", "10")),
			Timeout:     mustAtoi(getenv("REDIS_TIMEOUT", "5")),
			Prefix:      getenv("REDIS_PREFIX", "debtster_collection_"),
		},
		S3: S3Config{
			Endpoint:        getenv("S3_ENDPOINT", "localhost:9000"),
			AccessKeyID:     getenv("S3_ACCESS_KEY", "minio"),
			SecretAccessKey: getenv("S3_SECRET_KEY", "minio123"),
			Bucket:          getenv("S3_BUCKET", "statements"),
			Region:          getenv("S3_REGION", "us-east-1"),
			UseSSL:          mustBool(getenv("S3_USE_SSL", "false")),
			Prefix:          getenv("S3_PREFIX", "interest/"),
			URLTTL:          mustDuration(getenv("S3_URL_TTL", "1h")),
		},
		StorageDriver:     getenv("STORAGE_DRIVER", "local"),
		ExportDir:         getenv("EXPORT_DIR", "./statements"),
		FilesPublicPrefix: getenv("FILES_PUBLIC_PREFIX", "/files"),
		ExternalURL:       getenv("EXTERNAL_URL", ""),
		NotifyQueue:       getenv("NOTIFY_QUEUE", "collection:notifications"),
		NotifyTimeout:     mustDuration(getenv("NOTIFY_TIMEOUT", "15s")),
		Cycle: CycleConfig{
			Enabled:  mustBool(getenv("CYCLE_ENABLED", "true")),
			Schedule: getenv("CYCLE_SCHEDULE", "@every 1h"),
			LockTTL:  mustDuration(getenv("CYCLE_LOCK_TTL", "30m")),
			Keep:     mustAtoi(getenv("CYCLE_HISTORY_KEEP", "50")),
		},
	}
}
