package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Server  ServerConfig
	App     AppConfig
	Storage StorageConfig
	CodeGen CodeGenConfig
	Cleanup CleanupConfig
	Redis   RedisConfig
	CORS    CORSConfig
}

type ServerConfig struct {
	Port            string
	ShutdownTimeout time.Duration
}

type AppConfig struct {
	Environment string
	LogLevel    string
	Version     string
	ServiceName string
}

type StorageConfig struct {
	Root           string
	MaxUploadBytes int64
}

// HistoryDir is where project records live.
func (s StorageConfig) HistoryDir() string {
	return strings.TrimRight(s.Root, "/") + "/history"
}

type CodeGenConfig struct {
	Provider      string
	AWSRegion     string
	ModelID       string
	MaxTokens     int
	OpenAIBaseURL string
	OpenAIAPIKey  string
	OpenAIModel   string
	Timeout       time.Duration
	RateLimit     float64
	RateBurst     int
	FetchTimeout  time.Duration
}

type CleanupConfig struct {
	Enabled  bool
	Schedule string
	Grace    time.Duration
}

type RedisConfig struct {
	Addr          string
	Password      string
	DB            int
	GenerationTTL time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

const (
	ProviderBedrock = "bedrock"
	ProviderOpenAI  = "openai"
)

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("No .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		App: AppConfig{
			Environment: getEnv("APP_ENV", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
			ServiceName: getEnv("SERVICE_NAME", "ui2code-backend"),
		},
		Storage: StorageConfig{
			Root:           getEnv("STORAGE_ROOT", "./data"),
			MaxUploadBytes: getEnvAsInt64("MAX_UPLOAD_BYTES", 5<<20),
		},
		CodeGen: CodeGenConfig{
			Provider:      strings.ToLower(getEnv("CODEGEN_PROVIDER", ProviderBedrock)),
			AWSRegion:     getEnv("AWS_REGION", "us-east-1"),
			ModelID:       getEnv("BEDROCK_MODEL_ID", "anthropic.claude-3-sonnet-20240229-v1:0"),
			MaxTokens:     getEnvAsInt("CODEGEN_MAX_TOKENS", 4000),
			OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
			OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
			OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o"),
			Timeout:       getEnvAsDuration("GENERATION_TIMEOUT", 120*time.Second),
			RateLimit:     getEnvAsFloat("CODEGEN_RATE_LIMIT", 2),
			RateBurst:     getEnvAsInt("CODEGEN_RATE_BURST", 4),
			FetchTimeout:  getEnvAsDuration("IMAGE_FETCH_TIMEOUT", 15*time.Second),
		},
		Cleanup: CleanupConfig{
			Enabled:  getEnvAsBool("CLEANUP_ENABLED", true),
			Schedule: getEnv("CLEANUP_SCHEDULE", "0 */10 * * * *"),
			Grace:    getEnvAsDuration("CLEANUP_GRACE", 15*time.Minute),
		},
		Redis: RedisConfig{
			Addr:          getEnv("REDIS_ADDR", ""),
			Password:      getEnv("REDIS_PASSWORD", ""),
			DB:            getEnvAsInt("REDIS_DB", 0),
			GenerationTTL: getEnvAsDuration("GENERATION_TTL", 24*time.Hour),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if c.Storage.Root == "" {
		return fmt.Errorf("STORAGE_ROOT is required")
	}
	if c.Storage.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	if c.CodeGen.Timeout <= 0 {
		return fmt.Errorf("GENERATION_TIMEOUT must be positive")
	}

	switch c.CodeGen.Provider {
	case ProviderBedrock:
		if c.CodeGen.AWSRegion == "" || c.CodeGen.ModelID == "" {
			return fmt.Errorf("AWS_REGION and BEDROCK_MODEL_ID are required for the bedrock provider")
		}
	case ProviderOpenAI:
		if c.CodeGen.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for the openai provider")
		}
	default:
		return fmt.Errorf("unknown CODEGEN_PROVIDER %q", c.CodeGen.Provider)
	}

	if c.Cleanup.Enabled && c.Cleanup.Grace <= 0 {
		return fmt.Errorf("CLEANUP_GRACE must be positive")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Warn().Str("key", key).Int("default", defaultValue).Msg("Invalid integer, using default")
		return defaultValue
	}

	return value
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		log.Warn().Str("key", key).Int64("default", defaultValue).Msg("Invalid integer, using default")
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Warn().Str("key", key).Float64("default", defaultValue).Msg("Invalid number, using default")
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Warn().Str("key", key).Bool("default", defaultValue).Msg("Invalid boolean, using default")
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Warn().Str("key", key).Dur("default", defaultValue).Msg("Invalid duration, using default")
		return defaultValue
	}

	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var out []string
	for _, v := range strings.Split(valueStr, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
