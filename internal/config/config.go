package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string

	Server    ServerConfig
	RateLimit RateLimitConfig
	OTP       OTPConfig
	SMS       SMSConfig
	Scylla    ScyllaConfig
	Kafka     KafkaConfig
	Token     TokenConfig
	Hashing   HashingConfig
	Bucketing BucketingConfig
	Logging   LoggingConfig
	CORS      CORSConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// RateLimitConfig bounds admission for every client identity uniformly.
// The window is read in milliseconds to stay compatible with the portal's
// existing deployment environment.
type RateLimitConfig struct {
	Window        time.Duration
	MaxRequests   int
	SweepInterval time.Duration
}

type OTPConfig struct {
	TTL           time.Duration
	MaxAttempts   int
	CodeLength    int
	SweepInterval time.Duration
}

type SMSConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
	APIBaseURL string
}

type ScyllaConfig struct {
	Nodes    []string
	Keyspace string
	Username string
	Password string
}

type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
}

type TokenConfig struct {
	Mode         string // "legacy" or "jwt"
	JWTSecret    string
	JWTTTL       time.Duration
	AcceptLegacy bool
}

type HashingConfig struct {
	Argon2MemoryCost       int
	Argon2TimeCost         int
	Argon2Parallelism      int
	PepperRotationInterval time.Duration
}

type BucketingConfig struct {
	UserBuckets  int
	EventBuckets int
}

type LoggingConfig struct {
	Level  string
	Format string
}

type CORSConfig struct {
	AllowedOrigins []string
}

var (
	global *Config
	once   sync.Once
)

// LoadConfig reads the process configuration from the environment, loading
// a .env file first when one is present.
func LoadConfig() *Config {
	once.Do(func() {
		if err := godotenv.Load(); err != nil {
			log.Println("config: no .env file found, relying on system env vars")
		}

		global = &Config{
			Environment: getEnv("ENVIRONMENT", "development"),
			Server: ServerConfig{
				Host:         getEnv("SERVER_HOST", "0.0.0.0"),
				Port:         getEnvInt("SERVER_PORT", 8001),
				ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
				WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
				IdleTimeout:  getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			},
			RateLimit: RateLimitConfig{
				Window:        time.Duration(getEnvInt("RATE_LIMIT_WINDOW_MS", 900000)) * time.Millisecond,
				MaxRequests:   getEnvInt("RATE_LIMIT_MAX_REQUESTS", 100),
				SweepInterval: getEnvDuration("RATE_LIMIT_SWEEP_INTERVAL", time.Minute),
			},
			OTP: OTPConfig{
				TTL:           getEnvDuration("OTP_TTL", 5*time.Minute),
				MaxAttempts:   getEnvInt("OTP_MAX_ATTEMPTS", 3),
				CodeLength:    getEnvInt("OTP_CODE_LENGTH", 6),
				SweepInterval: getEnvDuration("OTP_SWEEP_INTERVAL", time.Minute),
			},
			SMS: SMSConfig{
				AccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
				AuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),
				FromNumber: getEnv("TWILIO_PHONE_NUMBER", ""),
				APIBaseURL: getEnv("TWILIO_API_BASE_URL", "https://api.twilio.com"),
			},
			Scylla: ScyllaConfig{
				Nodes:    getEnvSlice("SCYLLA_NODES", []string{"127.0.0.1:9042"}),
				Keyspace: getEnv("SCYLLA_KEYSPACE", "akshaya"),
				Username: getEnv("SCYLLA_USERNAME", ""),
				Password: getEnv("SCYLLA_PASSWORD", ""),
			},
			Kafka: KafkaConfig{
				Enabled: getEnvBool("KAFKA_ENABLED", false),
				Brokers: getEnvSlice("KAFKA_BROKERS", []string{"127.0.0.1:9092"}),
				Topic:   getEnv("KAFKA_AUTH_EVENTS_TOPIC", "auth-events"),
			},
			Token: TokenConfig{
				Mode:         getEnv("TOKEN_MODE", "legacy"),
				JWTSecret:    getEnv("TOKEN_JWT_SECRET", ""),
				JWTTTL:       getEnvDuration("TOKEN_JWT_TTL", 24*time.Hour),
				AcceptLegacy: getEnvBool("TOKEN_ACCEPT_LEGACY", true),
			},
			Hashing: HashingConfig{
				Argon2MemoryCost:       getEnvInt("ARGON2_MEMORY_COST", 64*1024),
				Argon2TimeCost:         getEnvInt("ARGON2_TIME_COST", 1),
				Argon2Parallelism:      getEnvInt("ARGON2_PARALLELISM", 4),
				PepperRotationInterval: getEnvDuration("PEPPER_ROTATION_INTERVAL", 24*time.Hour),
			},
			Bucketing: BucketingConfig{
				UserBuckets:  getEnvInt("USER_BUCKETS", 64),
				EventBuckets: getEnvInt("EVENT_BUCKETS", 16),
			},
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "json"),
			},
			CORS: CORSConfig{
				AllowedOrigins: getEnvSlice("CORS_ORIGIN", []string{"*"}),
			},
		}
	})

	return global
}

// Get returns the process configuration, loading it on first use.
func Get() *Config {
	if global == nil {
		return LoadConfig()
	}
	return global
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return !c.IsProduction()
}

func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("config: invalid integer for %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("config: invalid boolean for %s=%q, using %t", key, v, fallback)
		return fallback
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("config: invalid duration for %s=%q, using %s", key, v, fallback)
		return fallback
	}
	return d
}

func getEnvSlice(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
