package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/yelpcamp/internal/common"
	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "session:"

// RedisStore keeps each session as a JSON value whose key TTL matches the
// session expiry.
type RedisStore struct {
	client redis.Cmdable
	prefix string
	now    func() time.Time
}

type RedisOption func(*RedisStore)

func WithPrefix(prefix string) RedisOption {
	return func(s *RedisStore) { s.prefix = prefix }
}

func NewRedisStore(client redis.Cmdable, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, prefix: defaultRedisPrefix, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}

func (s *RedisStore) Load(ctx context.Context, id string) (*Session, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("%w: %w", common.ErrorSessionStore, err)
	}

	sess, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrorSessionStore, err)
	}

	if sess.Expired(s.now()) {
		return nil, common.ErrorNotFound
	}

	return sess, nil
}

func (s *RedisStore) Save(ctx context.Context, sess *Session) error {
	ttl := ttlFor(sess, s.now())
	if ttl <= 0 {
		return s.Delete(ctx, sess.ID)
	}

	data, err := encode(sess)
	if err != nil {
		return err
	}

	if err := s.client.Set(ctx, s.key(sess.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %w", common.ErrorSessionStore, err)
	}
	return nil
}

func (s *RedisStore) Replace(ctx context.Context, sess *Session) error {
	ttl := ttlFor(sess, s.now())
	if ttl <= 0 {
		return common.ErrorNotFound
	}

	data, err := encode(sess)
	if err != nil {
		return err
	}

	ok, err := s.client.SetXX(ctx, s.key(sess.ID), data, ttl).Result()
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrorSessionStore, err)
	}
	if !ok {
		return common.ErrorNotFound
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("%w: %w", common.ErrorSessionStore, err)
	}
	return nil
}
