package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const (
	defaultDailyCap   int64 = 100
	dailyCapKeyPrefix       = "tokencap"
)

var reserveScript = goredis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[2])
end
if current > tonumber(ARGV[1]) then
  return 0
end
return 1
`)

// TokenDailyCap guards the push provider's per-token daily message limit with
// a Redis counter keyed by token and UTC day, shared across process replicas.
type TokenDailyCap struct {
	client *goredis.Client
	cap    int64
	now    func() time.Time
	script *goredis.Script
}

func NewTokenDailyCap(client *goredis.Client, cap int) (*TokenDailyCap, error) {
	return newTokenDailyCap(client, int64(cap), time.Now)
}

func newTokenDailyCap(client *goredis.Client, cap int64, nowFn func() time.Time) (*TokenDailyCap, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if cap <= 0 {
		cap = defaultDailyCap
	}
	if nowFn == nil {
		nowFn = time.Now
	}

	return &TokenDailyCap{
		client: client,
		cap:    cap,
		now:    nowFn,
		script: reserveScript,
	}, nil
}

// TryReserve consumes one slot of the token's daily budget. It returns false
// once the token has exhausted today's cap; the day boundary is UTC midnight.
func (c *TokenDailyCap) TryReserve(ctx context.Context, token string) (bool, error) {
	if c == nil || c.client == nil || c.script == nil {
		return false, fmt.Errorf("token daily cap is not initialized")
	}

	trimmedToken := strings.TrimSpace(token)
	if trimmedToken == "" {
		return false, fmt.Errorf("token is required")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	day := c.now().UTC()
	key := fmt.Sprintf("%s:%s:%s", dailyCapKeyPrefix, trimmedToken, day.Format("20060102"))
	ttl := int(time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1).Sub(day).Seconds())
	if ttl <= 0 {
		ttl = 1
	}

	result, err := c.script.Run(ctx, c.client, []string{key}, c.cap, ttl).Int()
	if err != nil {
		return false, fmt.Errorf("failed to evaluate daily cap: %w", err)
	}

	return result == 1, nil
}
