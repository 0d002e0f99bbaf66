package redisclient

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// WakeList is the list the API pushes to after enqueueing a job. Workers
// block on it so new jobs get picked up without waiting a full poll tick.
const WakeList = "eventdash:jobs:wake"

type Client struct {
	redisdb *redis.Client
}

type Config struct {
	Addr     string
	Password string
	DB       int
}

func New(cfg Config) *Client {
	redisdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	return &Client{redisdb: redisdb}
}

func (c *Client) Ping(ctx context.Context) error {
	return c.redisdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.redisdb.Close()
}

func (c *Client) Raw() *redis.Client {
	return c.redisdb
}

// Wake signals workers that a job was enqueued. Best effort: the worker
// also polls, so a failed push only delays pickup.
func (c *Client) Wake(ctx context.Context, jobID string) error {
	return c.redisdb.LPush(ctx, WakeList, jobID).Err()
}

// WaitForWake blocks up to timeout for a wake signal. BRPOP needs its own
// read deadline, so the per-command timeout is lifted for this call.
func (c *Client) WaitForWake(ctx context.Context, timeout time.Duration) (string, error) {
	res, err := c.redisdb.WithTimeout(timeout+2*time.Second).BRPop(ctx, timeout, WakeList).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", err
	}
	if len(res) != 2 {
		return "", nil
	}
	return res[1], nil
}
