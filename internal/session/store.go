// Package session keeps signed-in wallet sessions in process memory. Tokens
// are opaque and the store is volatile: a restart signs everyone out.
package session

import (
	"crypto/rand"
	"encoding/base64"
	"sync"
	"time"

	"freeswap/internal/wallet"
	"freeswap/pkg/errors"
	"freeswap/pkg/logger"
)

const tokenBytes = 32

// Session ties a bearer token to an open wallet account.
type Session struct {
	Token       string
	AccountName string
	Alias       string
	Account     *wallet.Account
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// Store is a TTL-bound token -> session map with a background sweeper.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	sweep    time.Duration
	logger   logger.Logger
	stop     chan struct{}
	stopOnce sync.Once
	now      func() time.Time
}

func NewStore(ttl, sweepInterval time.Duration, log logger.Logger) *Store {
	return &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		sweep:    sweepInterval,
		logger:   log,
		stop:     make(chan struct{}),
		now:      time.Now,
	}
}

// Create registers an account under a fresh opaque token.
func (s *Store) Create(account *wallet.Account) (*Session, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}

	now := s.now()
	sess := &Session{
		Token:       base64.RawURLEncoding.EncodeToString(buf),
		AccountName: account.Name,
		Alias:       account.Alias,
		Account:     account,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.ttl),
	}

	s.mu.Lock()
	s.sessions[sess.Token] = sess
	s.mu.Unlock()
	return sess, nil
}

// Get resolves a token, rejecting unknown and expired sessions.
func (s *Store) Get(token string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[token]
	s.mu.RUnlock()

	if !ok {
		return nil, errors.ErrSessionNotFound
	}
	if s.now().After(sess.ExpiresAt) {
		s.evict(token)
		return nil, errors.ErrSessionNotFound
	}
	return sess, nil
}

// Delete invalidates a token. Unknown tokens are a no-op so logout is
// idempotent.
func (s *Store) Delete(token string) {
	s.evict(token)
}

// Count returns the number of live sessions.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Start launches the expiry sweeper.
func (s *Store) Start() {
	ticker := time.NewTicker(s.sweep)
	go func() {
		for {
			select {
			case <-ticker.C:
				s.sweepExpired()
			case <-s.stop:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop halts the sweeper and drops every session.
func (s *Store) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })

	s.mu.Lock()
	tokens := make([]string, 0, len(s.sessions))
	for token := range s.sessions {
		tokens = append(tokens, token)
	}
	s.mu.Unlock()

	for _, token := range tokens {
		s.evict(token)
	}
}

func (s *Store) sweepExpired() {
	now := s.now()

	s.mu.RLock()
	var expired []string
	for token, sess := range s.sessions {
		if now.After(sess.ExpiresAt) {
			expired = append(expired, token)
		}
	}
	s.mu.RUnlock()

	for _, token := range expired {
		s.evict(token)
	}
	if len(expired) > 0 {
		s.logger.Info("Expired sessions swept", map[string]interface{}{
			"count": len(expired),
		})
	}
}

func (s *Store) evict(token string) {
	s.mu.Lock()
	sess, ok := s.sessions[token]
	if ok {
		delete(s.sessions, token)
	}
	s.mu.Unlock()

	if ok && sess.Account != nil {
		if err := sess.Account.Close(); err != nil {
			s.logger.Warn("Account close failed", map[string]interface{}{
				"account": sess.AccountName,
				"error":   err.Error(),
			})
		}
	}
}
