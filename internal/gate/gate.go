// Package gate is the outermost check on booking creation: a per-customer
// sliding-window rate limit and client-key idempotency records, both on
// Redis. It runs before pricing or any gateway work.
package gate

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jonboulle/clockwork"

	"github.com/mari-gunting/booking-core/internal/httperr"
)

// Result is the creation outcome replayed to retried requests carrying the
// same idempotency key.
type Result struct {
	BookingID     string `json:"booking_id"`
	BookingNumber string `json:"booking_number"`
	TotalPriceSen int64  `json:"total_price_sen"`
}

type Gate struct {
	rdb    *redis.Client
	clock  clockwork.Clock
	limit  int
	window time.Duration
	ttl    time.Duration
}

func New(rdb *redis.Client, clock clockwork.Clock, limit int, window, recordTTL time.Duration) *Gate {
	return &Gate{
		rdb:    rdb,
		clock:  clock,
		limit:  limit,
		window: window,
		ttl:    recordTTL,
	}
}

// Allow counts this attempt against the customer's sliding window and
// fails fast once the limit is hit.
func (g *Gate) Allow(ctx context.Context, customerID string) error {
	key := "rl:create:" + customerID
	now := g.clock.Now()
	cutoff := now.Add(-g.window)

	pipe := g.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(cutoff.UnixNano(), 10))
	count := pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, &redis.Z{
		Score:  float64(now.UnixNano()),
		Member: fmt.Sprintf("%d", now.UnixNano()),
	})
	pipe.Expire(ctx, key, g.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}

	if int(count.Val()) >= g.limit {
		return httperr.ErrRateLimited("too_many_booking_attempts")
	}
	return nil
}

// Cached returns the stored creation result for (customer, key), or nil
// when the key has not been seen inside the record TTL.
func (g *Gate) Cached(ctx context.Context, customerID, idemKey string) (*Result, error) {
	if idemKey == "" {
		return nil, nil
	}
	raw, err := g.rdb.Get(ctx, recordKey(customerID, idemKey)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var res Result
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Store records the outcome for replay. SetNX keeps the first writer's
// result under concurrent retries.
func (g *Gate) Store(ctx context.Context, customerID, idemKey string, res Result) error {
	if idemKey == "" {
		return nil
	}
	raw, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return g.rdb.SetNX(ctx, recordKey(customerID, idemKey), raw, g.ttl).Err()
}

func recordKey(customerID, idemKey string) string {
	return "idem:create:" + customerID + ":" + idemKey
}
