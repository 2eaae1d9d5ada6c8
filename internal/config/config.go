package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port             string
	AllowedOrigins   []string
	AllowCredentials bool
	Environment      string

	JWTSecret   string
	JWTDuration time.Duration

	RedisHost     string
	RedisPort     string
	RedisPassword string

	KafkaBrokers []string
	NotifyTopic  string

	// Per-event rate budgets (events per minute).
	SendBudget    int
	TypingBudget  int
	JoinBudget    int
	DefaultBudget int

	TypingTimeout time.Duration
	SweepInterval time.Duration
}

func LoadConfig() *Config {
	// Get allowed origins from environment variable
	allowedOrigins := []string{"*"} // Default to allow all origins
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		allowedOrigins = strings.Split(origins, ",")
		for i, origin := range allowedOrigins {
			allowedOrigins[i] = strings.TrimSpace(origin)
		}
	}

	kafkaBrokers := []string{"localhost:9092"} // Default
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		kafkaBrokers = strings.Split(brokers, ",")
		for i, broker := range kafkaBrokers {
			kafkaBrokers[i] = strings.TrimSpace(broker)
		}
	}

	return &Config{
		Port:             getEnv("PORT", "8082"),
		AllowedOrigins:   allowedOrigins,
		AllowCredentials: getEnv("ALLOW_CREDENTIALS", "false") == "true",
		Environment:      getEnv("ENVIRONMENT", "development"),

		JWTSecret:   getEnv("JWT_SECRET", "development-secret"),
		JWTDuration: getEnvDuration("JWT_DURATION", 24*time.Hour),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		KafkaBrokers: kafkaBrokers,
		NotifyTopic:  getEnv("NOTIFY_TOPIC", "offline-notifications"),

		SendBudget:    getEnvInt("RATE_SEND_PER_MIN", 30),
		TypingBudget:  getEnvInt("RATE_TYPING_PER_MIN", 60),
		JoinBudget:    getEnvInt("RATE_JOIN_PER_MIN", 10),
		DefaultBudget: getEnvInt("RATE_DEFAULT_PER_MIN", 120),

		TypingTimeout: getEnvDuration("TYPING_TIMEOUT", 30*time.Second),
		SweepInterval: getEnvDuration("TYPING_SWEEP_INTERVAL", 30*time.Second),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// GetCORSOrigins returns CORS origins as a comma-separated string
func (c *Config) GetCORSOrigins() string {
	if c.Environment == "production" && len(c.AllowedOrigins) > 0 && c.AllowedOrigins[0] != "*" {
		return strings.Join(c.AllowedOrigins, ",")
	}
	return "*"
}

// IsDevelopment returns true if environment is development
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if environment is production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
