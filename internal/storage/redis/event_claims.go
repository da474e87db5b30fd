package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const claimPrefix = "payment-event:"

func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// EventClaims remembers processed payment events so redeliveries can be dropped early.
type EventClaims struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewEventClaims(rdb *redis.Client, ttl time.Duration) *EventClaims {
	return &EventClaims{rdb: rdb, ttl: ttl}
}

// Claim returns true when the caller is the first to see eventID within the TTL.
func (c *EventClaims) Claim(ctx context.Context, eventID string) (bool, error) {
	ok, err := c.rdb.SetNX(ctx, claimPrefix+eventID, time.Now().UTC().Format(time.RFC3339), c.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim event %s: %w", eventID, err)
	}
	return ok, nil
}

// Release forgets a claim so a failed event can be retried by the next delivery.
func (c *EventClaims) Release(ctx context.Context, eventID string) error {
	return c.rdb.Del(ctx, claimPrefix+eventID).Err()
}

func (c *EventClaims) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
