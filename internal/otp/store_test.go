package otp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"akshaya-auth/internal/bucketing"
	"akshaya-auth/internal/config"
	"akshaya-auth/internal/hashing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	// Cheap Argon2 parameters keep the state machine tests fast
	hasher := hashing.NewHasher(config.HashingConfig{
		Argon2MemoryCost:  8 * 1024,
		Argon2TimeCost:    1,
		Argon2Parallelism: 1,
	})
	return NewStore(5*time.Minute, 3, 6, hasher, bucketing.NewManager(64, 16))
}

// wrongGuess returns a code guaranteed not to match the issued one.
func wrongGuess(code string) string {
	if code[0] == '0' {
		return "1" + code[1:]
	}
	return "0" + code[1:]
}

func TestIssueAndVerify(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	code, err := s.Issue("+919876543210", base)
	require.NoError(t, err)
	require.Len(t, code, 6)
	for _, r := range code {
		assert.True(t, r >= '0' && r <= '9')
	}

	require.NoError(t, s.Verify("+919876543210", code, base.Add(time.Minute)))
}

func TestVerifyConsumesChallenge(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	code, err := s.Issue("+919876543210", base)
	require.NoError(t, err)

	require.NoError(t, s.Verify("+919876543210", code, base))

	// Replaying the same code finds nothing
	assert.ErrorIs(t, s.Verify("+919876543210", code, base), ErrNotFound)
	assert.Equal(t, 0, s.Live())
}

func TestVerifyUnknownPhone(t *testing.T) {
	s := newTestStore(t)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.ErrorIs(t, s.Verify("+919999999999", "123456", now), ErrNotFound)
}

func TestReissueReplacesPriorChallenge(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	first, err := s.Issue("+919876543210", base)
	require.NoError(t, err)
	second, err := s.Issue("+919876543210", base.Add(time.Minute))
	require.NoError(t, err)

	// The superseded code is invalid even when it differs from the new one
	if first != second {
		assert.ErrorIs(t, s.Verify("+919876543210", first, base.Add(time.Minute)), ErrInvalid)
	}
	require.NoError(t, s.Verify("+919876543210", second, base.Add(2*time.Minute)))
	assert.Equal(t, 0, s.Live())
}

func TestExpiredChallenge(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	code, err := s.Issue("+919876543210", base)
	require.NoError(t, err)

	// Exactly at the TTL boundary the challenge is still live
	assert.ErrorIs(t, s.Verify("+919876543210", wrongGuess(code), base.Add(5*time.Minute)), ErrInvalid)

	assert.ErrorIs(t, s.Verify("+919876543210", code, base.Add(5*time.Minute+time.Second)), ErrExpired)

	// Expiry deleted the record, so the correct code now reports not found
	assert.ErrorIs(t, s.Verify("+919876543210", code, base.Add(6*time.Minute)), ErrNotFound)
}

func TestExpiryTakesPrecedenceOverLockout(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	code, err := s.Issue("+919876543210", base)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.ErrorIs(t, s.Verify("+919876543210", wrongGuess(code), base), ErrInvalid)
	}

	// Past the TTL the exhausted challenge reads as expired, not locked
	assert.ErrorIs(t, s.Verify("+919876543210", wrongGuess(code), base.Add(10*time.Minute)), ErrExpired)
}

func TestLockoutAfterMaxAttempts(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	code, err := s.Issue("+919876543210", base)
	require.NoError(t, err)

	// The third wrong guess itself still reads as invalid
	require.ErrorIs(t, s.Verify("+919876543210", wrongGuess(code), base), ErrInvalid)
	require.ErrorIs(t, s.Verify("+919876543210", wrongGuess(code), base), ErrInvalid)
	require.ErrorIs(t, s.Verify("+919876543210", wrongGuess(code), base), ErrInvalid)

	// Lockout surfaces on the following call, correct code or not
	assert.ErrorIs(t, s.Verify("+919876543210", code, base), ErrLockedOut)

	// Lockout deleted the challenge
	assert.ErrorIs(t, s.Verify("+919876543210", code, base), ErrNotFound)
}

func TestSuccessOnFinalAttempt(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	code, err := s.Issue("+919876543210", base)
	require.NoError(t, err)

	require.ErrorIs(t, s.Verify("+919876543210", wrongGuess(code), base), ErrInvalid)
	require.ErrorIs(t, s.Verify("+919876543210", wrongGuess(code), base), ErrInvalid)

	// Two failures leave one attempt; the correct code still wins
	require.NoError(t, s.Verify("+919876543210", code, base))
}

func TestReissueResetsAttempts(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	stale, err := s.Issue("+919876543210", base)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		require.ErrorIs(t, s.Verify("+919876543210", wrongGuess(stale), base), ErrInvalid)
	}

	code, err := s.Issue("+919876543210", base.Add(time.Minute))
	require.NoError(t, err)

	// The fresh challenge starts over with zero attempts
	require.ErrorIs(t, s.Verify("+919876543210", wrongGuess(code), base.Add(time.Minute)), ErrInvalid)
	require.NoError(t, s.Verify("+919876543210", code, base.Add(time.Minute)))
}

func TestSweepRemovesOnlyExpired(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	_, err := s.Issue("stale", base)
	require.NoError(t, err)
	fresh, err := s.Issue("fresh", base.Add(4*time.Minute))
	require.NoError(t, err)
	require.Equal(t, 2, s.Live())

	removed := s.Sweep(base.Add(6 * time.Minute))
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, s.Live())

	require.NoError(t, s.Verify("fresh", fresh, base.Add(6*time.Minute)))
}

func TestGenerateCodeLength(t *testing.T) {
	for _, length := range []int{4, 6, 8} {
		code, err := generateCode(length)
		require.NoError(t, err)
		assert.Len(t, code, length)
	}
}
