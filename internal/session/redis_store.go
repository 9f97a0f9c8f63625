package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/XavierBriggs/fortuna/services/prophet-dashboard/internal/navigation"
	"github.com/redis/go-redis/v9"
)

// DefaultTTL is how long an idle session is kept
const DefaultTTL = 24 * time.Hour

const maxUpdateAttempts = 10

// RedisStore keeps view state as JSON blobs in Redis
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a new Redis session store
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{
		client: client,
		ttl:    ttl,
	}
}

func stateKey(id string) string {
	return fmt.Sprintf("dashboard:session:%s:state", id)
}

func seqKey(id string) string {
	return fmt.Sprintf("dashboard:session:%s:seq", id)
}

// Get retrieves a session's view state
func (s *RedisStore) Get(ctx context.Context, id string) (*navigation.ViewState, error) {
	data, err := s.client.Get(ctx, stateKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	return decode(data)
}

// Save stores a session's view state and refreshes its TTL
func (s *RedisStore) Save(ctx context.Context, state *navigation.ViewState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, stateKey(state.SessionID), data, s.ttl)
	pipe.Expire(ctx, seqKey(state.SessionID), s.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Update reads, modifies and writes the state under WATCH so concurrent
// navigations of the same session never lose a step
func (s *RedisStore) Update(ctx context.Context, id string, fn func(*navigation.ViewState) error) (*navigation.ViewState, error) {
	key := stateKey(id)
	var result *navigation.ViewState

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		state, err := decode(data)
		if err != nil {
			return err
		}
		if err := fn(state); err != nil {
			return err
		}

		encoded, err := json.Marshal(state)
		if err != nil {
			return fmt.Errorf("marshaling session: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, s.ttl)
			return nil
		})
		if err == nil {
			result = state
		}
		return err
	}

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update session: %w", err)
	}

	return nil, fmt.Errorf("update session: too much contention on %s", id)
}

// NextSeq atomically increments the session's sequence counter. Unknown
// sessions get no counter; a session expiring between the check and the
// increment leaves a counter that expires with the same TTL.
func (s *RedisStore) NextSeq(ctx context.Context, id string) (int64, error) {
	exists, err := s.client.Exists(ctx, stateKey(id)).Result()
	if err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	if exists == 0 {
		return 0, ErrNotFound
	}

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, seqKey(id))
	pipe.Expire(ctx, seqKey(id), s.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	return incr.Val(), nil
}

// LatestSeq returns the last issued sequence token
func (s *RedisStore) LatestSeq(ctx context.Context, id string) (int64, error) {
	seq, err := s.client.Get(ctx, seqKey(id)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("latest sequence: %w", err)
	}
	return seq, nil
}

// Delete removes a session
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, stateKey(id), seqKey(id)).Err()
}

func decode(data []byte) (*navigation.ViewState, error) {
	var state navigation.ViewState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("unmarshaling session: %w", err)
	}
	if state.AvailableWeeks == nil {
		state.AvailableWeeks = make(map[int]int)
	}
	return &state, nil
}
