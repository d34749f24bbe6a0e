package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/betcast/gocast/pkg/logger"
)

const redisKeyPrefix = "gocast:session:"

// RedisMirror persists sessions to Redis with a TTL matching their
// expiry, so a process restart does not silently log every user out.
type RedisMirror struct {
	rdb *redis.Client
	now func() time.Time
}

// NewRedisMirror connects to Redis and verifies the connection.
func NewRedisMirror(ctx context.Context, addr, password string, db int) (*RedisMirror, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &RedisMirror{rdb: rdb, now: time.Now}, nil
}

func (m *RedisMirror) Save(ctx context.Context, s Session) error {
	ttl := s.ExpiresAt.Sub(m.now())
	if ttl <= 0 {
		return m.Delete(ctx, s.Token)
	}
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return m.rdb.Set(ctx, redisKeyPrefix+s.Token, b, ttl).Err()
}

func (m *RedisMirror) Delete(ctx context.Context, token string) error {
	return m.rdb.Del(ctx, redisKeyPrefix+token).Err()
}

func (m *RedisMirror) Close() error {
	return m.rdb.Close()
}

// Restore loads every mirrored session back into the store after a
// restart. Entries whose owner already has a live session are skipped
// (memory is authoritative).
func (m *RedisMirror) Restore(ctx context.Context, store *Store) error {
	iter := m.rdb.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	restored := 0
	for iter.Next(ctx) {
		raw, err := m.rdb.Get(ctx, iter.Val()).Bytes()
		if err != nil {
			continue
		}
		var s Session
		if err := json.Unmarshal(raw, &s); err != nil {
			logger.Warnf("session restore: bad payload at %s: %v", iter.Val(), err)
			continue
		}
		if store.restore(s) {
			restored++
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	logger.Infof("restored %d sessions from redis", restored)
	return nil
}

// restore inserts a mirrored session if it is still live and the owner
// has no session yet.
func (s *Store) restore(sess Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.now().Before(sess.ExpiresAt) {
		return false
	}
	if _, ok := s.byOwner[sess.Owner]; ok {
		return false
	}
	if _, ok := s.byToken[sess.Token]; ok {
		return false
	}
	entry := sess.snapshot()
	s.byToken[sess.Token] = &entry
	s.byOwner[sess.Owner] = sess.Token
	return true
}
