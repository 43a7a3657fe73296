package store

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/keyproof/keyproof/core"
	"github.com/keyproof/keyproof/ports"
)

// expiredRetention is how long a challenge row outlives its expiry, so
// a late verify can still be answered with "expired" rather than
// "not found" before Redis garbage-collects the key.
const expiredRetention = time.Hour

// consumeScript re-checks existence, the consumed flag and expiry and
// sets the consumed timestamp in one server-side step. This is the
// critical section that keeps two racing verifies from both succeeding.
var consumeScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 'not_found'
end
if redis.call('HEXISTS', KEYS[1], 'consumed_at') == 1 then
  return 'consumed'
end
local expires = tonumber(redis.call('HGET', KEYS[1], 'expires_at'))
if tonumber(ARGV[1]) >= expires then
  return 'expired'
end
redis.call('HSET', KEYS[1], 'consumed_at', ARGV[1])
return 'ok'
`)

// RedisStore is a Redis implementation of the ChallengeStore interface
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a new Redis challenge store
func NewRedisStore(client *redis.Client) ports.ChallengeStore {
	return &RedisStore{
		client: client,
		prefix: "keyproof:challenge:",
	}
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}

func (s *RedisStore) subjectKey(subject string) string {
	return s.prefix + "subject:" + subject
}

// Create persists a challenge hash with a TTL slightly past its expiry
// and points the subject index at it, invalidating any prior challenge
// outstanding for the same subject.
func (s *RedisStore) Create(ctx context.Context, challenge *core.Challenge) error {
	retention := time.Until(challenge.ExpiresAt) + expiredRetention

	fields := map[string]interface{}{
		"subject":    challenge.Subject,
		"payload":    hex.EncodeToString(challenge.Payload),
		"created_at": challenge.CreatedAt.UnixNano(),
		"expires_at": challenge.ExpiresAt.UnixNano(),
	}
	if err := s.client.HSet(ctx, s.key(challenge.ID), fields).Err(); err != nil {
		return fmt.Errorf("%w: %v", core.ErrStoreOperationFailed, err)
	}
	if err := s.client.Expire(ctx, s.key(challenge.ID), retention).Err(); err != nil {
		return fmt.Errorf("%w: %v", core.ErrStoreOperationFailed, err)
	}

	if challenge.Subject != "" {
		oldID, err := s.client.GetSet(ctx, s.subjectKey(challenge.Subject), challenge.ID).Result()
		if err != nil && err != redis.Nil {
			return fmt.Errorf("%w: %v", core.ErrStoreOperationFailed, err)
		}
		if err == nil && oldID != "" && oldID != challenge.ID {
			if err := s.client.Del(ctx, s.key(oldID)).Err(); err != nil {
				return fmt.Errorf("%w: %v", core.ErrStoreOperationFailed, err)
			}
		}
		if err := s.client.Expire(ctx, s.subjectKey(challenge.Subject), retention).Err(); err != nil {
			return fmt.Errorf("%w: %v", core.ErrStoreOperationFailed, err)
		}
	}

	return nil
}

// Get returns the challenge for an id, consumed or not.
func (s *RedisStore) Get(ctx context.Context, id string) (*core.Challenge, error) {
	fields, err := s.client.HGetAll(ctx, s.key(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrStoreOperationFailed, err)
	}
	if len(fields) == 0 {
		return nil, core.ErrChallengeNotFound
	}
	return parseChallenge(id, fields)
}

// GetBySubject returns the current challenge issued for a subject.
func (s *RedisStore) GetBySubject(ctx context.Context, subject string) (*core.Challenge, error) {
	id, err := s.client.Get(ctx, s.subjectKey(subject)).Result()
	if err == redis.Nil {
		return nil, core.ErrChallengeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrStoreOperationFailed, err)
	}
	return s.Get(ctx, id)
}

// Consume atomically marks a challenge as used via the Lua script.
func (s *RedisStore) Consume(ctx context.Context, id string, now time.Time) error {
	res, err := consumeScript.Run(ctx, s.client, []string{s.key(id)}, now.UnixNano()).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrStoreOperationFailed, err)
	}
	switch res {
	case "ok":
		return nil
	case "not_found":
		return core.ErrChallengeNotFound
	case "consumed":
		return core.ErrChallengeConsumed
	case "expired":
		return core.ErrChallengeExpired
	default:
		return fmt.Errorf("%w: unexpected consume result %v", core.ErrStoreOperationFailed, res)
	}
}

func parseChallenge(id string, fields map[string]string) (*core.Challenge, error) {
	payload, err := hex.DecodeString(fields["payload"])
	if err != nil {
		return nil, fmt.Errorf("%w: corrupt payload: %v", core.ErrStoreOperationFailed, err)
	}
	createdAt, err := strconv.ParseInt(fields["created_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: corrupt created_at: %v", core.ErrStoreOperationFailed, err)
	}
	expiresAt, err := strconv.ParseInt(fields["expires_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: corrupt expires_at: %v", core.ErrStoreOperationFailed, err)
	}

	challenge := &core.Challenge{
		ID:        id,
		Subject:   fields["subject"],
		Payload:   payload,
		CreatedAt: time.Unix(0, createdAt),
		ExpiresAt: time.Unix(0, expiresAt),
	}
	if raw, ok := fields["consumed_at"]; ok {
		consumedAt, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: corrupt consumed_at: %v", core.ErrStoreOperationFailed, err)
		}
		t := time.Unix(0, consumedAt)
		challenge.ConsumedAt = &t
	}
	return challenge, nil
}
