package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"fairplay-backend/internal/models"
)

// Cache holds the ephemeral shared state: idempotency records, rate-limit
// windows and the recent-round history ring. Nothing here is the source of
// truth for money.
type Cache struct {
	client *redis.Client
}

func NewCache(addr, password string, db int) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if _, err := client.Ping(context.Background()).Result(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &Cache{client: client}, nil
}

func (c *Cache) Close() error {
	return c.client.Close()
}

const (
	idempotencyPending  = "pending"
	idempotencyComplete = "complete"
)

// IdempotencyRecord is write-once per key: the first writer caches its
// response, every later writer for the same key observes it unchanged.
type IdempotencyRecord struct {
	AccountID int64           `json:"account_id"`
	Status    string          `json:"status"`
	Response  json.RawMessage `json:"response,omitempty"`
}

func (r *IdempotencyRecord) Complete() bool {
	return r.Status == idempotencyComplete
}

// ReserveIdempotencyKey attempts to claim the key with SETNX. Exactly one
// racing caller wins the reservation and executes side effects; losers get
// the existing record back.
func (c *Cache) ReserveIdempotencyKey(ctx context.Context, key string, accountID int64, ttl time.Duration) (*IdempotencyRecord, bool, error) {
	rkey := fmt.Sprintf(keyIdempotency, key)

	pending, err := json.Marshal(IdempotencyRecord{AccountID: accountID, Status: idempotencyPending})
	if err != nil {
		return nil, false, err
	}

	set, err := c.client.SetNX(ctx, rkey, pending, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("reserve idempotency key: %w", err)
	}
	if set {
		return nil, true, nil
	}

	rec, err := c.getIdempotencyRecord(ctx, rkey)
	if err != nil {
		return nil, false, err
	}
	return rec, false, nil
}

// CompleteIdempotencyKey stores the response under an already-reserved key.
func (c *Cache) CompleteIdempotencyKey(ctx context.Context, key string, accountID int64, response []byte, ttl time.Duration) error {
	rkey := fmt.Sprintf(keyIdempotency, key)

	data, err := json.Marshal(IdempotencyRecord{
		AccountID: accountID,
		Status:    idempotencyComplete,
		Response:  response,
	})
	if err != nil {
		return err
	}
	return c.client.Set(ctx, rkey, data, ttl).Err()
}

// ReleaseIdempotencyKey drops a reservation whose side effects rolled back,
// so a retry can run fresh.
func (c *Cache) ReleaseIdempotencyKey(ctx context.Context, key string) error {
	return c.client.Del(ctx, fmt.Sprintf(keyIdempotency, key)).Err()
}

// WaitForIdempotencyKey polls a pending record until the first writer caches
// its response or the timeout elapses. Bounded: it never blocks indefinitely.
func (c *Cache) WaitForIdempotencyKey(ctx context.Context, key string, timeout time.Duration) (*IdempotencyRecord, error) {
	rkey := fmt.Sprintf(keyIdempotency, key)
	deadline := time.Now().Add(timeout)

	for {
		rec, err := c.getIdempotencyRecord(ctx, rkey)
		if err != nil {
			return nil, err
		}
		if rec == nil || rec.Complete() {
			return rec, nil
		}
		if time.Now().After(deadline) {
			return rec, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func (c *Cache) getIdempotencyRecord(ctx context.Context, rkey string) (*IdempotencyRecord, error) {
	data, err := c.client.Get(ctx, rkey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get idempotency record: %w", err)
	}

	var rec IdempotencyRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("unmarshal idempotency record: %w", err)
	}
	return &rec, nil
}

// CheckRateLimit counts actions in a fixed window keyed per (account,
// action). The first hit arms the window expiry.
func (c *Cache) CheckRateLimit(ctx context.Context, accountID int64, action string, limit int, window time.Duration) (bool, error) {
	key := fmt.Sprintf(keyRateLimit, accountID, action)

	count, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("check rate limit: %w", err)
	}

	if count == 1 {
		c.client.Expire(ctx, key, window)
	}

	return count <= int64(limit), nil
}

// PushRoundHistory prepends one settled round to the bounded history ring.
func (c *Cache) PushRoundHistory(ctx context.Context, entry models.RoundHistoryEntry, size int) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	pipe := c.client.TxPipeline()
	pipe.LPush(ctx, keyRoundHistory, data)
	pipe.LTrim(ctx, keyRoundHistory, 0, int64(size-1))
	_, err = pipe.Exec(ctx)
	return err
}

func (c *Cache) RecentRoundHistory(ctx context.Context, n int) ([]models.RoundHistoryEntry, error) {
	items, err := c.client.LRange(ctx, keyRoundHistory, 0, int64(n-1)).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]models.RoundHistoryEntry, 0, len(items))
	for _, item := range items {
		var e models.RoundHistoryEntry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}
