package rediscache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/wordwise/backend/core"
	"github.com/wordwise/backend/core/progress"
)

const keyPrefix = "wordwise:progress:"

// ProgressCache stores progress snapshots as JSON under wordwise:progress:<user id>.
type ProgressCache struct {
	client *redis.Client
	ttl    time.Duration
}

// Open connects to the Redis server configured in conf and pings it.
func Open(ctx context.Context, conf *core.Config) (*redis.Client, error) {
	opts, err := redis.ParseURL(conf.Redis.URL)
	if err != nil {
		return nil, errors.Wrap(err, "parsing redis url")
	}
	client := redis.NewClient(opts)
	if err = client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return client, nil
}

func NewProgressCache(client *redis.Client, ttl time.Duration) *ProgressCache {
	return &ProgressCache{client: client, ttl: ttl}
}

func (c *ProgressCache) Get(ctx context.Context, userID string) (progress.Progress, bool, error) {
	data, err := c.client.Get(ctx, keyPrefix+userID).Bytes()
	if err != nil {
		if err == redis.Nil {
			return progress.Progress{}, false, nil
		}
		return progress.Progress{}, false, errors.Wrap(err, "getting cached progress")
	}

	var p progress.Progress
	if err = json.Unmarshal(data, &p); err != nil {
		return progress.Progress{}, false, errors.Wrap(err, "decoding cached progress")
	}
	return p, true, nil
}

// newer reports whether a is a later state of the same progress than b.
// Counters only grow, so the game count decides; LastUpdated breaks ties.
func newer(a, b progress.Progress) bool {
	if ga, gb := a.TotalGames(), b.TotalGames(); ga != gb {
		return ga > gb
	}
	return a.LastUpdated.After(b.LastUpdated)
}

// Set keeps the most recent snapshot: an older state never overwrites a newer one.
func (c *ProgressCache) Set(ctx context.Context, p progress.Progress) error {
	data, err := json.Marshal(p)
	if err != nil {
		return errors.Wrap(err, "encoding progress")
	}
	key := keyPrefix + p.UserID

	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, key).Bytes()
		if err != nil && err != redis.Nil {
			return err
		}
		if err == nil {
			var cached progress.Progress
			if json.Unmarshal(cur, &cached) == nil && newer(cached, p) {
				return nil
			}
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, c.ttl)
			return nil
		})
		return err
	}, key)
	if err == redis.TxFailedErr {
		// a concurrent writer won; drop the key so the next read goes to the database
		return c.Delete(ctx, p.UserID)
	}
	if err != nil {
		return errors.Wrap(err, "caching progress")
	}
	return nil
}

func (c *ProgressCache) Delete(ctx context.Context, userID string) error {
	if err := c.client.Del(ctx, keyPrefix+userID).Err(); err != nil {
		return errors.Wrap(err, "deleting cached progress")
	}
	return nil
}
