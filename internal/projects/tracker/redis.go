package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/GoSim-25-26J-441/ui2code-backend/internal/projects/domain"
)

const (
	generationKeyPrefix    = "ui2code:generation:"        // ui2code:generation:{id}
	generationEventsPrefix = "ui2code:generation-events:" // pub/sub channel per generation
)

// Redis stores generations as JSON with a TTL and publishes every transition
// on a per-generation channel.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	log    zerolog.Logger
}

func NewRedis(client *redis.Client, ttl time.Duration, log zerolog.Logger) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{
		client: client,
		ttl:    ttl,
		log:    log.With().Str("component", "generation_tracker").Logger(),
	}
}

// Record writes g and publishes it in one transaction.
func (r *Redis) Record(ctx context.Context, g *domain.Generation) error {
	data, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("failed to marshal generation: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, generationKey(g.ID), data, r.ttl)
	pipe.Publish(ctx, EventChannel(g.ID), data)
	if _, err := pipe.Exec(ctx); err != nil {
		r.log.Warn().Err(err).Str("generation_id", g.ID).Str("state", string(g.State)).Msg("failed to record generation")
		return fmt.Errorf("failed to record generation: %w", err)
	}
	return nil
}

// Create writes g only when no generation with the same id exists, then
// publishes it.
func (r *Redis) Create(ctx context.Context, g *domain.Generation) error {
	data, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("failed to marshal generation: %w", err)
	}

	ok, err := r.client.SetNX(ctx, generationKey(g.ID), data, r.ttl).Result()
	if err != nil {
		r.log.Warn().Err(err).Str("generation_id", g.ID).Msg("failed to create generation")
		return fmt.Errorf("failed to create generation: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrIDTaken, g.ID)
	}
	if err := r.client.Publish(ctx, EventChannel(g.ID), data).Err(); err != nil {
		r.log.Warn().Err(err).Str("generation_id", g.ID).Msg("failed to publish generation")
	}
	return nil
}

// Get returns the generation with id.
func (r *Redis) Get(ctx context.Context, id string) (*domain.Generation, error) {
	data, err := r.client.Get(ctx, generationKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: generation %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get generation: %w", err)
	}

	var g domain.Generation
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("failed to unmarshal generation: %w", err)
	}
	return &g, nil
}

// Subscribe listens on the event channel of id. The subscription is
// confirmed before Subscribe returns, so no transition recorded afterwards is
// missed.
func (r *Redis) Subscribe(ctx context.Context, id string) (<-chan struct{}, error) {
	sub := r.client.Subscribe(ctx, EventChannel(id))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("failed to subscribe to generation events: %w", err)
	}

	out := make(chan struct{}, 1)
	msgs := sub.Channel()
	go func() {
		defer close(out)
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()
	return out, nil
}

// Ping checks the Redis connection.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// EventChannel is the pub/sub channel carrying transitions of id.
func EventChannel(id string) string {
	return generationEventsPrefix + id
}

func generationKey(id string) string {
	return generationKeyPrefix + id
}
