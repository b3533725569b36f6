package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     int
	LogLevel string
	Env      string

	// Watcher (client) settings
	StatusPort   int    // watcher health/status/metrics server
	BackendURL   string // REST origin, e.g. http://localhost:8080
	RealtimeURL  string // WS endpoint, e.g. ws://localhost:8080/ws/notifications
	Token        string // bearer credential for the session
	UserID       string
	PingInterval time.Duration

	// Devserver auth
	JWTSecret string
	DevEmail  string // destination for email fan-out in development

	// Redis backlog
	RedisHost     string
	RedisPort     int
	RedisPassword string
	RedisDB       int

	// History database (optional; in-memory fallback when DBHost empty)
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// AWS side channels (optional)
	AWSRegion    string
	SESFromEmail string
	SNSTopicARN  string
	SQSQueueURL  string
}

// Load reads configuration from environment variables with sensible
// defaults. A .env file in the working directory is applied first when
// present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:     8080,
		LogLevel: "info",
		Env:      "development",

		StatusPort:   8090,
		BackendURL:   "http://localhost:8080",
		RealtimeURL:  "ws://localhost:8080/ws/notifications",
		PingInterval: 30 * time.Second,

		JWTSecret: "dev-secret",

		RedisHost: "localhost",
		RedisPort: 6379,

		DBPort:    5432,
		DBUser:    "fprax",
		DBName:    "fprax_notify",
		DBSSLMode: "disable",

		AWSRegion:    "us-east-1",
		SESFromEmail: "noreply@fprax.local",
	}

	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT: %w", err)
		}
		cfg.Port = p
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}

	if env := os.Getenv("ENV"); env != "" {
		cfg.Env = env
	}

	if port := os.Getenv("STATUS_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid STATUS_PORT: %w", err)
		}
		cfg.StatusPort = p
	}

	if u := os.Getenv("BACKEND_URL"); u != "" {
		cfg.BackendURL = u
	}

	if u := os.Getenv("REALTIME_URL"); u != "" {
		cfg.RealtimeURL = u
	}

	if tok := os.Getenv("FPRAX_TOKEN"); tok != "" {
		cfg.Token = tok
	}

	if id := os.Getenv("FPRAX_USER_ID"); id != "" {
		cfg.UserID = id
	}

	if interval := os.Getenv("PING_INTERVAL"); interval != "" {
		d, err := time.ParseDuration(interval)
		if err != nil {
			return nil, fmt.Errorf("invalid PING_INTERVAL: %w", err)
		}
		cfg.PingInterval = d
	}

	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.JWTSecret = secret
	}

	if email := os.Getenv("DEV_EMAIL"); email != "" {
		cfg.DevEmail = email
	}

	// Redis config
	if host := os.Getenv("REDIS_HOST"); host != "" {
		cfg.RedisHost = host
	}

	if port := os.Getenv("REDIS_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_PORT: %w", err)
		}
		cfg.RedisPort = p
	}

	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.RedisPassword = password
	}

	if db := os.Getenv("REDIS_DB"); db != "" {
		d, err := strconv.Atoi(db)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
		}
		cfg.RedisDB = d
	}

	// Database config
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.DBHost = host
	}

	if port := os.Getenv("DB_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid DB_PORT: %w", err)
		}
		cfg.DBPort = p
	}

	if user := os.Getenv("DB_USER"); user != "" {
		cfg.DBUser = user
	}

	if password := os.Getenv("DB_PASSWORD"); password != "" {
		cfg.DBPassword = password
	}

	if dbname := os.Getenv("DB_NAME"); dbname != "" {
		cfg.DBName = dbname
	}

	if sslmode := os.Getenv("DB_SSLMODE"); sslmode != "" {
		cfg.DBSSLMode = sslmode
	}

	// AWS config
	if region := os.Getenv("AWS_REGION"); region != "" {
		cfg.AWSRegion = region
	}

	if from := os.Getenv("SES_FROM_EMAIL"); from != "" {
		cfg.SESFromEmail = from
	}

	if arn := os.Getenv("SNS_TOPIC_ARN"); arn != "" {
		cfg.SNSTopicARN = arn
	}

	if url := os.Getenv("SQS_QUEUE_URL"); url != "" {
		cfg.SQSQueueURL = url
	}

	return cfg, nil
}
