package middleware

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Фиксированное окно: KEYS[1]=ключ; ARGV[1]=лимит; ARGV[2]=окно в мс.
// Возвращает 1, если запрос разрешён, 0 — если лимит исчерпан.
var luaFixedWindow = redis.NewScript(`
  local k = KEYS[1]
  local limit = tonumber(ARGV[1])
  local windowms = tonumber(ARGV[2])

  local n = redis.call('INCR', k)
  if n == 1 then
    redis.call('PEXPIRE', k, windowms)
  end
  if n > limit then
    return 0
  end
  return 1
`)

// RedisRateLimiter — лимит, общий для всех экземпляров бота.
// Если Redis недоступен, запрос пропускается (fail open).
type RedisRateLimiter struct {
	rdb    redis.Scripter
	limit  int
	window time.Duration
	prefix string
}

func NewRedisRateLimiter(rdb redis.Scripter, limit int, window time.Duration) *RedisRateLimiter {
	return &RedisRateLimiter{
		rdb:    rdb,
		limit:  limit,
		window: window,
		prefix: "respect:ratelimit:",
	}
}

func (rl *RedisRateLimiter) Allow(ctx context.Context, userID int64) bool {
	key := rl.prefix + strconv.FormatInt(userID, 10)
	allowed, err := luaFixedWindow.Run(ctx, rl.rdb, []string{key}, rl.limit, rl.window.Milliseconds()).Int()
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Warn("Redis недоступен, лимит запросов не применён")
		return true
	}
	return allowed == 1
}

// Close ничего не делает: клиентом Redis владеет приложение.
func (rl *RedisRateLimiter) Close() {}
