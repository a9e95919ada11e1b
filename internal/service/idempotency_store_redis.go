package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

var redisIdempotencyBeginScript = redis.NewScript(`
local key = KEYS[1]
local fingerprint = ARGV[1]
local ttl_ms = ARGV[2]
local order_id = ARGV[3]
local user_id = ARGV[4]

if redis.call("EXISTS", key) == 0 then
  redis.call("HSET", key, "fingerprint", fingerprint, "status", "PENDING", "order_id", order_id, "user_id", user_id)
  redis.call("PEXPIRE", key, ttl_ms)
  return {"new"}
end

local existing_fp = redis.call("HGET", key, "fingerprint")
if existing_fp ~= fingerprint then
  return {"conflict"}
end

local status = redis.call("HGET", key, "status")
if status == "COMPLETED" then
  return {"replay", redis.call("HGET", key, "response_status") or "", redis.call("HGET", key, "content_type") or "", redis.call("HGET", key, "response_body") or ""}
end
if status == "FAILED" then
  redis.call("HSET", key, "status", "PENDING")
  redis.call("HDEL", key, "failure_reason")
  redis.call("PEXPIRE", key, ttl_ms)
  return {"new"}
end

return {"in_progress"}
`)

var redisIdempotencyCompleteScript = redis.NewScript(`
local key = KEYS[1]
local fingerprint = ARGV[1]
local ttl_ms = ARGV[2]
local status_code = ARGV[3]
local content_type = ARGV[4]
local response_body = ARGV[5]

if redis.call("EXISTS", key) == 0 then
  return 0
end
if redis.call("HGET", key, "fingerprint") ~= fingerprint then
  return -1
end

redis.call("HSET", key, "status", "COMPLETED", "response_status", status_code, "content_type", content_type, "response_body", response_body)
redis.call("PEXPIRE", key, ttl_ms)
return 1
`)

var redisIdempotencyFailScript = redis.NewScript(`
local key = KEYS[1]
local fingerprint = ARGV[1]
local reason = ARGV[2]

if redis.call("EXISTS", key) == 0 then
  return 0
end
if redis.call("HGET", key, "fingerprint") ~= fingerprint then
  return -1
end
if redis.call("HGET", key, "status") ~= "PENDING" then
  return 0
end

redis.call("HSET", key, "status", "FAILED", "failure_reason", reason)
return 1
`)

// RedisIdempotencyStore keeps the whole check-then-register in one Lua
// round trip. Expiry is native (PEXPIRE), so CleanupExpired is a no-op.
type RedisIdempotencyStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisIdempotencyStore(client redis.UniversalClient, prefix string) *RedisIdempotencyStore {
	if prefix == "" {
		prefix = "idem"
	}
	return &RedisIdempotencyStore{client: client, prefix: prefix}
}

func (s *RedisIdempotencyStore) redisKey(scope, key string) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, scope, key)
}

func (s *RedisIdempotencyStore) Begin(ctx context.Context, scope, key, fingerprint string, meta BeginMeta, ttl time.Duration) (IdempotencyBeginResult, error) {
	raw, err := redisIdempotencyBeginScript.Run(
		ctx,
		s.client,
		[]string{s.redisKey(scope, key)},
		fingerprint,
		int(ttl/time.Millisecond),
		meta.OrderID,
		meta.UserID,
	).Result()
	if err != nil {
		return IdempotencyBeginResult{}, err
	}
	values, ok := raw.([]interface{})
	if !ok || len(values) == 0 {
		return IdempotencyBeginResult{}, fmt.Errorf("unexpected redis begin result type")
	}
	state := asString(values[0])
	switch IdempotencyState(state) {
	case IdempotencyStateNew, IdempotencyStateConflict, IdempotencyStateInProgress:
		return IdempotencyBeginResult{State: IdempotencyState(state)}, nil
	case IdempotencyStateReplay:
		if len(values) < 4 {
			return IdempotencyBeginResult{}, fmt.Errorf("unexpected replay payload")
		}
		status, parseErr := strconv.Atoi(asString(values[1]))
		if parseErr != nil {
			return IdempotencyBeginResult{}, fmt.Errorf("parse replay status: %w", parseErr)
		}
		decoded, decodeErr := base64.StdEncoding.DecodeString(asString(values[3]))
		if decodeErr != nil {
			return IdempotencyBeginResult{}, fmt.Errorf("decode replay body: %w", decodeErr)
		}
		return IdempotencyBeginResult{
			State: IdempotencyStateReplay,
			Cached: &CachedResponse{
				StatusCode:  status,
				ContentType: asString(values[2]),
				Body:        decoded,
			},
		}, nil
	default:
		return IdempotencyBeginResult{}, fmt.Errorf("unknown idempotency state %q", state)
	}
}

func (s *RedisIdempotencyStore) Complete(ctx context.Context, scope, key, fingerprint string, response CachedResponse, ttl time.Duration) error {
	_, err := redisIdempotencyCompleteScript.Run(
		ctx,
		s.client,
		[]string{s.redisKey(scope, key)},
		fingerprint,
		int(ttl/time.Millisecond),
		response.StatusCode,
		response.ContentType,
		base64.StdEncoding.EncodeToString(response.Body),
	).Result()
	return err
}

func (s *RedisIdempotencyStore) Fail(ctx context.Context, scope, key, fingerprint, reason string) error {
	_, err := redisIdempotencyFailScript.Run(
		ctx,
		s.client,
		[]string{s.redisKey(scope, key)},
		fingerprint,
		reason,
	).Result()
	return err
}

func (s *RedisIdempotencyStore) CleanupExpired(context.Context, time.Time, int) (int64, error) {
	return 0, nil
}

func asString(v interface{}) string {
	switch typed := v.(type) {
	case string:
		return typed
	case []byte:
		return string(typed)
	default:
		return fmt.Sprint(v)
	}
}
