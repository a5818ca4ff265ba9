package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultRedisKeyPrefix = "vocero:appointment:"

// RedisConfig holds Redis ledger settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// KeyPrefix namespaces ledger keys so several deployments can share
	// one Redis. Empty means defaultRedisKeyPrefix.
	KeyPrefix string
	// TTL, when positive, expires records. Zero keeps them forever.
	TTL time.Duration
}

// Redis stores appointment records as JSON values keyed by record id.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Addr, err)
	}
	return &Redis{client: client, prefix: cfg.prefixOrDefault(), ttl: cfg.TTL}, nil
}

func (cfg RedisConfig) prefixOrDefault() string {
	if cfg.KeyPrefix == "" {
		return defaultRedisKeyPrefix
	}
	return cfg.KeyPrefix
}

func (r *Redis) key(id string) string { return r.prefix + id }

func (r *Redis) Name() string { return "redis" }

func (r *Redis) Record(ctx context.Context, rec AppointmentRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Status == "" {
		rec.Status = StatusBooked
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	raw, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("marshalling record: %w", err)
	}
	if err := r.client.Set(ctx, r.key(rec.ID), raw, r.ttl).Err(); err != nil {
		return "", fmt.Errorf("storing record %s: %w", rec.ID, err)
	}
	return rec.ID, nil
}

func (r *Redis) UpdateStatus(ctx context.Context, id, status string) error {
	key := r.key(id)
	raw, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return ErrRecordNotFound
	}
	if err != nil {
		return fmt.Errorf("loading record %s: %w", id, err)
	}

	var rec AppointmentRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return fmt.Errorf("unmarshalling record %s: %w", id, err)
	}
	rec.Status = status

	updated, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshalling record: %w", err)
	}
	if err := r.client.Set(ctx, key, updated, redis.KeepTTL).Err(); err != nil {
		return fmt.Errorf("storing record %s: %w", id, err)
	}
	return nil
}

func (r *Redis) Close() error { return r.client.Close() }
