package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server         ServerConfig         `mapstructure:"server"`
	Database       DatabaseConfig       `mapstructure:"database"`
	Redis          RedisConfig          `mapstructure:"redis"`
	Kafka          KafkaConfig          `mapstructure:"kafka"`
	Auth           AuthConfig           `mapstructure:"auth"`
	Logging        LoggingConfig        `mapstructure:"logging"`
	Recommendation RecommendationConfig `mapstructure:"recommendation"`
	Encoder        EncoderConfig        `mapstructure:"encoder"`
	Monitoring     MonitoringConfig     `mapstructure:"monitoring"`
	Security       SecurityConfig       `mapstructure:"security"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	URL            string        `mapstructure:"url"`
	MaxConnections int           `mapstructure:"max_connections"`
	MaxIdleTime    time.Duration `mapstructure:"max_idle_time"`
	MaxLifetime    time.Duration `mapstructure:"max_lifetime"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

type RedisConfig struct {
	Hot  RedisInstanceConfig `mapstructure:"hot"`
	Warm RedisInstanceConfig `mapstructure:"warm"`
}

type RedisInstanceConfig struct {
	URL        string        `mapstructure:"url"`
	MaxRetries int           `mapstructure:"max_retries"`
	PoolSize   int           `mapstructure:"pool_size"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topics  struct {
		InteractionEvents string `mapstructure:"interaction_events"`
		JobEvents         string `mapstructure:"job_events"`
	} `mapstructure:"topics"`
	ConsumerGroup string `mapstructure:"consumer_group"`
}

type AuthConfig struct {
	JWTSecret string          `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration   `mapstructure:"token_ttl"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type RateLimitConfig struct {
	Default int           `mapstructure:"default"`
	Window  time.Duration `mapstructure:"window"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// RecommendationConfig drives fusion, fallbacks and model lifecycle.
type RecommendationConfig struct {
	Weights         WeightsConfig `mapstructure:"weights"`
	SourceTimeout   time.Duration `mapstructure:"source_timeout"`
	OverfetchFactor int           `mapstructure:"overfetch_factor"`
	NeighborCount   int           `mapstructure:"neighbor_count"`
	MinInteractions int           `mapstructure:"min_interactions"`
	RecencyWindow   int           `mapstructure:"recency_window_days"`
	Caching         CachingConfig `mapstructure:"caching"`
	ModelTTL        time.Duration `mapstructure:"model_ttl"`
}

type WeightsConfig struct {
	Content       float64 `mapstructure:"content"`
	Semantic      float64 `mapstructure:"semantic"`
	Collaborative float64 `mapstructure:"collaborative"`
}

type CachingConfig struct {
	EmbeddingsTTL      time.Duration `mapstructure:"embeddings_ttl"`
	RecommendationsTTL time.Duration `mapstructure:"recommendations_ttl"`
	ProfileTTL         time.Duration `mapstructure:"profile_ttl"`
	PopularTTL         time.Duration `mapstructure:"popular_ttl"`
}

type EncoderConfig struct {
	ModelName  string `mapstructure:"model_name"`
	Version    string `mapstructure:"version"`
	Dimensions int    `mapstructure:"dimensions"`
	BatchSize  int    `mapstructure:"batch_size"`
	Workers    int    `mapstructure:"workers"`
}

type MonitoringConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	MetricsPath string `mapstructure:"metrics_path"`
}

type SecurityConfig struct {
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

func Load() (*Config, error) {
	viper.SetConfigName("app")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		// Config file is optional, continue with env vars and defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "development")

	viper.SetDefault("database.max_connections", 25)
	viper.SetDefault("database.max_idle_time", "15m")
	viper.SetDefault("database.max_lifetime", "1h")
	viper.SetDefault("database.connect_timeout", "10s")

	viper.SetDefault("redis.hot.max_retries", 3)
	viper.SetDefault("redis.hot.pool_size", 10)
	viper.SetDefault("redis.hot.timeout", "5s")
	viper.SetDefault("redis.warm.max_retries", 3)
	viper.SetDefault("redis.warm.pool_size", 5)
	viper.SetDefault("redis.warm.timeout", "10s")

	viper.SetDefault("kafka.brokers", []string{"localhost:9092"})
	viper.SetDefault("kafka.topics.interaction_events", "interaction-events")
	viper.SetDefault("kafka.topics.job_events", "job-events")
	viper.SetDefault("kafka.consumer_group", "jobrec-workers")

	viper.SetDefault("auth.token_ttl", "24h")
	viper.SetDefault("auth.rate_limit.default", 1000)
	viper.SetDefault("auth.rate_limit.window", "1h")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")

	viper.SetDefault("recommendation.weights.content", 0.4)
	viper.SetDefault("recommendation.weights.semantic", 0.4)
	viper.SetDefault("recommendation.weights.collaborative", 0.2)
	viper.SetDefault("recommendation.source_timeout", "1500ms")
	viper.SetDefault("recommendation.overfetch_factor", 3)
	viper.SetDefault("recommendation.neighbor_count", 20)
	viper.SetDefault("recommendation.min_interactions", 3)
	viper.SetDefault("recommendation.recency_window_days", 30)
	viper.SetDefault("recommendation.model_ttl", "1h")

	viper.SetDefault("recommendation.caching.embeddings_ttl", "24h")
	viper.SetDefault("recommendation.caching.recommendations_ttl", "15m")
	viper.SetDefault("recommendation.caching.profile_ttl", "10m")
	viper.SetDefault("recommendation.caching.popular_ttl", "30m")

	viper.SetDefault("encoder.model_name", "paraphrase-multilingual-MiniLM-L12-v2")
	viper.SetDefault("encoder.version", "1")
	viper.SetDefault("encoder.dimensions", 384)
	viper.SetDefault("encoder.batch_size", 32)
	viper.SetDefault("encoder.workers", 4)

	viper.SetDefault("monitoring.enabled", true)
	viper.SetDefault("monitoring.metrics_path", "/metrics")

	viper.SetDefault("security.cors.allowed_origins", []string{"*"})
	viper.SetDefault("security.cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	viper.SetDefault("security.cors.allowed_headers", []string{"*"})
}
