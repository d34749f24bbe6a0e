package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	clobtypes "github.com/betcast/gocast/clob/types"
	"github.com/betcast/gocast/internal/wallet"
	"github.com/betcast/gocast/pkg/logger"
)

// Mirror is an optional write-through copy of the table (e.g. Redis).
// Memory stays authoritative: mirror failures are logged, never
// propagated, and never touch in-memory state.
type Mirror interface {
	Save(ctx context.Context, s Session) error
	Delete(ctx context.Context, token string) error
}

// Store is the session table. One mutex serializes every access, which
// makes CreateOrGet's check-then-insert atomic; nothing blocking runs
// under the lock (derivation is pure, the mirror is written after
// release).
type Store struct {
	mu      sync.Mutex
	byToken map[string]*Session
	byOwner map[common.Address]string

	deriver *wallet.Deriver
	ttl     time.Duration
	sweep   time.Duration

	mirror Mirror
	now    func() time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewStore builds a session table. ttl is absolute: sessions expire at
// CreatedAt+ttl regardless of access (no sliding renewal).
func NewStore(deriver *wallet.Deriver, ttl, sweepInterval time.Duration) *Store {
	return &Store{
		byToken: make(map[string]*Session),
		byOwner: make(map[common.Address]string),
		deriver: deriver,
		ttl:     ttl,
		sweep:   sweepInterval,
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}
}

// SetMirror attaches a persistence mirror. Call before Start.
func (s *Store) SetMirror(m Mirror) {
	s.mirror = m
}

// CreateOrGet returns the live session for owner, creating one if none
// exists. The first caller through the lock defines the session every
// later caller sees; created reports which side of that race we were on.
func (s *Store) CreateOrGet(owner common.Address) (Session, bool, error) {
	token, err := newToken()
	if err != nil {
		return Session{}, false, fmt.Errorf("mint session token: %w", err)
	}

	s.mu.Lock()
	now := s.now()
	if existingToken, ok := s.byOwner[owner]; ok {
		if existing, ok := s.byToken[existingToken]; ok && now.Before(existing.ExpiresAt) {
			snap := existing.snapshot()
			s.mu.Unlock()
			return snap, false, nil
		}
		s.evictLocked(existingToken)
	}

	sess := &Session{
		Token:     token,
		Owner:     owner,
		Proxy:     s.deriver.Derive(owner),
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	s.byToken[token] = sess
	s.byOwner[owner] = token
	snap := sess.snapshot()
	s.mu.Unlock()

	s.mirrorSave(snap)
	return snap, true, nil
}

// Get resolves a token. Expired entries are evicted on the spot and
// reported exactly like unknown tokens.
func (s *Store) Get(token string) (Session, error) {
	s.mu.Lock()
	sess, ok := s.byToken[token]
	if !ok {
		s.mu.Unlock()
		return Session{}, ErrNotFound
	}
	if !s.now().Before(sess.ExpiresAt) {
		s.evictLocked(token)
		s.mu.Unlock()
		s.mirrorDelete(token)
		return Session{}, ErrNotFound
	}
	snap := sess.snapshot()
	s.mu.Unlock()
	return snap, nil
}

// AttachCredential stores the exchange credentials on the session.
// Idempotent: attaching equal credentials twice is a no-op.
func (s *Store) AttachCredential(token string, creds *clobtypes.ApiKeyCreds) error {
	if creds == nil {
		return fmt.Errorf("session: nil credential")
	}

	s.mu.Lock()
	sess, ok := s.byToken[token]
	if !ok || !s.now().Before(sess.ExpiresAt) {
		if ok {
			s.evictLocked(token)
		}
		s.mu.Unlock()
		return ErrNotFound
	}
	c := *creds
	sess.Credential = &c
	snap := sess.snapshot()
	s.mu.Unlock()

	s.mirrorSave(snap)
	return nil
}

// Delete removes a session. Deleting an absent token is not an error.
func (s *Store) Delete(token string) {
	s.mu.Lock()
	s.evictLocked(token)
	s.mu.Unlock()
	s.mirrorDelete(token)
}

// Len reports the number of entries, expired ones included until swept.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byToken)
}

// Start launches the background sweep. The sweep only bounds memory;
// lazy expiry in Get/AttachCredential is the enforcement point.
func (s *Store) Start() {
	go func() {
		ticker := time.NewTicker(s.sweep)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.sweepExpired()
			case <-s.stopCh:
				return
			}
		}
	}()
}

// Close stops the background sweep.
func (s *Store) Close() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

func (s *Store) sweepExpired() {
	var expired []string
	s.mu.Lock()
	now := s.now()
	for token, sess := range s.byToken {
		if !now.Before(sess.ExpiresAt) {
			expired = append(expired, token)
		}
	}
	for _, token := range expired {
		s.evictLocked(token)
	}
	s.mu.Unlock()

	for _, token := range expired {
		s.mirrorDelete(token)
	}
	if len(expired) > 0 {
		logger.Debugf("session sweep evicted %d expired sessions", len(expired))
	}
}

// evictLocked removes the entry and its owner index. Caller holds mu.
func (s *Store) evictLocked(token string) {
	sess, ok := s.byToken[token]
	if !ok {
		return
	}
	delete(s.byToken, token)
	// Only clear the owner index if it still points at this token.
	if s.byOwner[sess.Owner] == token {
		delete(s.byOwner, sess.Owner)
	}
}

func (s *Store) mirrorSave(snap Session) {
	if s.mirror == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.mirror.Save(ctx, snap); err != nil {
		logger.Warnf("session mirror save failed: %v", err)
	}
}

func (s *Store) mirrorDelete(token string) {
	if s.mirror == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.mirror.Delete(ctx, token); err != nil {
		logger.Warnf("session mirror delete failed: %v", err)
	}
}

// newToken returns 256 bits of entropy, hex encoded.
func newToken() (string, error) {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}
