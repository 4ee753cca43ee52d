package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	ServerPort int            `yaml:"server_port"`
	Database   DatabaseConfig `yaml:"database"`
	Auth       AuthConfig     `yaml:"auth"`
	Redis      RedisConfig    `yaml:"redis"`

	// StorageBackend selects product image storage: "minio", "gcs" or empty.
	StorageBackend string      `yaml:"storage_backend"`
	Minio          MinioConfig `yaml:"minio"`
	GCS            GCSConfig   `yaml:"gcs"`

	// MQBackend selects the order event broker: "rabbitmq", "pubsub" or empty.
	MQBackend string         `yaml:"mq_backend"`
	RabbitMQ  RabbitMQConfig `yaml:"rabbitmq"`
	PubSub    PubSubConfig   `yaml:"pubsub"`

	LogSQL bool `yaml:"log_sql"`
}

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
	UseSSL   bool   `yaml:"use_ssl"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

type MinioConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
	PublicURL string `yaml:"public_url"`
}

type GCSConfig struct {
	Bucket          string `yaml:"bucket"`
	ProjectID       string `yaml:"project_id"`
	CredentialsFile string `yaml:"credentials_file"`
}

type RabbitMQConfig struct {
	URL             string `yaml:"url"`
	PrefetchCount   int    `yaml:"prefetch"`
	QueueDurable    bool   `yaml:"queue_durable"`
	QueueAutoDelete bool   `yaml:"queue_auto_delete"`
}

type PubSubConfig struct {
	ProjectID          string `yaml:"project_id"`
	CredentialsFile    string `yaml:"credentials_file"`
	SubscriptionSuffix string `yaml:"subscription_suffix"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		ServerPort: 8080,
		Database: DatabaseConfig{
			Driver:   "postgres",
			Host:     "localhost",
			Port:     5432,
			User:     "shop",
			Password: "password",
			DBName:   "shop_db",
		},
		Auth:     AuthConfig{TokenTTL: 24 * time.Hour},
		Redis:    RedisConfig{CacheTTL: 5 * time.Minute},
		RabbitMQ: RabbitMQConfig{QueueDurable: true},
		PubSub:   PubSubConfig{SubscriptionSuffix: "-sub"},
	}
}

// LoadConfig builds the configuration from defaults, the optional YAML file
// named by CONFIG_FILE, and the environment, in increasing precedence.
func LoadConfig() (Config, error) {
	if os.Getenv("ENV") == "dev" {
		_ = godotenv.Load()
	}

	cfg := Default()
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	var errs []string
	cfg.ServerPort = getEnvInt("SERVER_PORT", cfg.ServerPort, &errs)

	cfg.Database.Driver = strings.ToLower(getEnv("DB_DRIVER", cfg.Database.Driver))
	cfg.Database.Host = getEnv("DB_HOST", cfg.Database.Host)
	cfg.Database.Port = getEnvInt("DB_PORT", cfg.Database.Port, &errs)
	cfg.Database.User = getEnv("DB_USER", cfg.Database.User)
	cfg.Database.Password = getEnv("DB_PASSWORD", cfg.Database.Password)
	cfg.Database.DBName = getEnv("DB_NAME", cfg.Database.DBName)
	cfg.Database.UseSSL = getEnvBool("DB_USE_SSL", cfg.Database.UseSSL, &errs)

	cfg.Auth.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", cfg.Auth.JWTSecret))
	cfg.Auth.TokenTTL = getEnvDuration("JWT_TTL", cfg.Auth.TokenTTL, &errs)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvInt("REDIS_DB", cfg.Redis.DB, &errs)
	cfg.Redis.CacheTTL = getEnvDuration("CACHE_TTL", cfg.Redis.CacheTTL, &errs)

	cfg.StorageBackend = strings.ToLower(getEnv("STORAGE_BACKEND", cfg.StorageBackend))
	cfg.Minio.Endpoint = getEnv("MINIO_ENDPOINT", cfg.Minio.Endpoint)
	cfg.Minio.AccessKey = getEnv("MINIO_ACCESS_KEY", cfg.Minio.AccessKey)
	cfg.Minio.SecretKey = getEnv("MINIO_SECRET_KEY", cfg.Minio.SecretKey)
	cfg.Minio.Bucket = getEnv("MINIO_BUCKET", cfg.Minio.Bucket)
	cfg.Minio.UseSSL = getEnvBool("MINIO_USE_SSL", cfg.Minio.UseSSL, &errs)
	cfg.Minio.PublicURL = getEnv("MINIO_PUBLIC_URL", cfg.Minio.PublicURL)
	cfg.GCS.Bucket = getEnv("GCS_BUCKET", cfg.GCS.Bucket)
	cfg.GCS.ProjectID = getEnv("GCS_PROJECT_ID", cfg.GCS.ProjectID)
	cfg.GCS.CredentialsFile = getEnv("GCS_CREDENTIALS_FILE", cfg.GCS.CredentialsFile)

	cfg.MQBackend = strings.ToLower(getEnv("MQ_BACKEND", cfg.MQBackend))
	cfg.RabbitMQ.URL = getEnv("RABBITMQ_URL", cfg.RabbitMQ.URL)
	cfg.RabbitMQ.PrefetchCount = getEnvInt("RABBITMQ_PREFETCH", cfg.RabbitMQ.PrefetchCount, &errs)
	cfg.PubSub.ProjectID = getEnv("PUBSUB_PROJECT_ID", cfg.PubSub.ProjectID)
	cfg.PubSub.CredentialsFile = getEnv("PUBSUB_CREDENTIALS_FILE", cfg.PubSub.CredentialsFile)
	cfg.PubSub.SubscriptionSuffix = getEnv("PUBSUB_SUBSCRIPTION_SUFFIX", cfg.PubSub.SubscriptionSuffix)

	cfg.LogSQL = getEnvBool("LOG_SQL", cfg.LogSQL, &errs)

	switch cfg.Database.Driver {
	case "postgres", "mysql":
	default:
		errs = append(errs, fmt.Sprintf("unsupported DB_DRIVER %q", cfg.Database.Driver))
	}
	switch cfg.StorageBackend {
	case "", "minio", "gcs":
	default:
		errs = append(errs, fmt.Sprintf("unsupported STORAGE_BACKEND %q", cfg.StorageBackend))
	}
	switch cfg.MQBackend {
	case "", "rabbitmq", "pubsub":
	default:
		errs = append(errs, fmt.Sprintf("unsupported MQ_BACKEND %q", cfg.MQBackend))
	}

	if len(errs) > 0 {
		return Config{}, fmt.Errorf("configuration errors:\n- %s", strings.Join(errs, "\n- "))
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int, errs *[]string) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(valueStr) == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(strings.TrimSpace(valueStr))
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("invalid value for %s: expected integer, got %q", key, valueStr))
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool, errs *[]string) bool {
	valueStr, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(valueStr) == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(strings.TrimSpace(valueStr))
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("invalid value for %s: expected boolean, got %q", key, valueStr))
		return defaultValue
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration, errs *[]string) time.Duration {
	valueStr, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(valueStr) == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(strings.TrimSpace(valueStr))
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("invalid value for %s: expected duration, got %q", key, valueStr))
		return defaultValue
	}
	return value
}
