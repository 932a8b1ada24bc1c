package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freeswap/internal/wallet"
	"freeswap/pkg/errors"
	"freeswap/pkg/logger"
)

func newTestStore() *Store {
	return NewStore(time.Hour, time.Minute, logger.NewNop())
}

func TestStore_CreateAndGet(t *testing.T) {
	s := newTestStore()
	acct := &wallet.Account{Name: "alice", Alias: "alice"}

	sess, err := s.Create(acct)
	require.NoError(t, err)
	require.NotEmpty(t, sess.Token)
	assert.Equal(t, "alice", sess.AccountName)
	assert.True(t, sess.ExpiresAt.After(sess.CreatedAt))

	got, err := s.Get(sess.Token)
	require.NoError(t, err)
	assert.Same(t, acct, got.Account)
}

func TestStore_TokensAreUnique(t *testing.T) {
	s := newTestStore()
	acct := &wallet.Account{Name: "alice"}

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		sess, err := s.Create(acct)
		require.NoError(t, err)
		assert.False(t, seen[sess.Token])
		seen[sess.Token] = true
	}
	assert.Equal(t, 50, s.Count())
}

func TestStore_UnknownToken(t *testing.T) {
	s := newTestStore()
	_, err := s.Get("nope")
	assert.ErrorIs(t, err, errors.ErrSessionNotFound)
}

func TestStore_DeleteInvalidates(t *testing.T) {
	s := newTestStore()
	sess, err := s.Create(&wallet.Account{Name: "alice"})
	require.NoError(t, err)

	s.Delete(sess.Token)
	_, err = s.Get(sess.Token)
	assert.ErrorIs(t, err, errors.ErrSessionNotFound)

	// Deleting again is a no-op.
	s.Delete(sess.Token)
	assert.Equal(t, 0, s.Count())
}

func TestStore_ExpiredSessionRejected(t *testing.T) {
	s := newTestStore()
	sess, err := s.Create(&wallet.Account{Name: "alice"})
	require.NoError(t, err)

	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	_, err = s.Get(sess.Token)
	assert.ErrorIs(t, err, errors.ErrSessionNotFound)
	assert.Equal(t, 0, s.Count(), "expired session should be evicted on access")
}

func TestStore_SweepExpired(t *testing.T) {
	s := newTestStore()
	_, err := s.Create(&wallet.Account{Name: "alice"})
	require.NoError(t, err)
	_, err = s.Create(&wallet.Account{Name: "bob"})
	require.NoError(t, err)
	require.Equal(t, 2, s.Count())

	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	s.sweepExpired()
	assert.Equal(t, 0, s.Count())
}

func TestStore_StopDropsEverything(t *testing.T) {
	s := newTestStore()
	s.Start()

	sess, err := s.Create(&wallet.Account{Name: "alice"})
	require.NoError(t, err)

	s.Stop()
	assert.Equal(t, 0, s.Count())
	_, err = s.Get(sess.Token)
	assert.ErrorIs(t, err, errors.ErrSessionNotFound)

	// Stop is idempotent.
	s.Stop()
}
