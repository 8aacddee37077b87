package bootstrap

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/GoSim-25-26J-441/ui2code-backend/config"
	"github.com/GoSim-25-26J-441/ui2code-backend/internal/codegen"
	"github.com/GoSim-25-26J-441/ui2code-backend/internal/projects/tracker"
)

// NewCodeGenClient builds the configured generator behind the rate limiter.
func NewCodeGenClient(ctx context.Context, cfg config.CodeGenConfig, log zerolog.Logger) (codegen.Client, error) {
	var client codegen.Client
	switch cfg.Provider {
	case config.ProviderBedrock:
		c, err := codegen.NewBedrockClient(ctx, cfg.AWSRegion, cfg.ModelID, cfg.MaxTokens, log)
		if err != nil {
			return nil, err
		}
		client = c
	case config.ProviderOpenAI:
		client = codegen.NewOpenAIClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.MaxTokens, log)
	default:
		return nil, fmt.Errorf("unknown codegen provider %q", cfg.Provider)
	}

	log.Info().Str("provider", cfg.Provider).Float64("rate_limit", cfg.RateLimit).Msg("code generator configured")
	return codegen.NewRateLimited(client, cfg.RateLimit, cfg.RateBurst), nil
}

// NewTracker returns the Redis tracker when Redis is configured and reachable,
// and the in-process tracker otherwise. The returned client is nil for the
// in-process tracker.
func NewTracker(ctx context.Context, cfg config.RedisConfig, log zerolog.Logger) (tracker.Tracker, *redis.Client) {
	if cfg.Addr == "" {
		log.Info().Msg("REDIS_ADDR not set, tracking generations in memory")
		return tracker.NewMemory(cfg.GenerationTTL), nil
	}

	client, err := OpenRedis(ctx, RedisOptions{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	if err != nil {
		log.Warn().Err(err).Str("addr", cfg.Addr).Msg("redis unavailable, tracking generations in memory")
		return tracker.NewMemory(cfg.GenerationTTL), nil
	}

	log.Info().Str("addr", cfg.Addr).Msg("tracking generations in redis")
	return tracker.NewRedis(client, cfg.GenerationTTL, log), client
}
