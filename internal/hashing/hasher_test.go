package hashing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"akshaya-auth/internal/config"
)

func newTestHasher() *Hasher {
	return NewHasher(config.HashingConfig{
		Argon2MemoryCost:  8 * 1024,
		Argon2TimeCost:    1,
		Argon2Parallelism: 1,
	})
}

func TestHashAndVerify(t *testing.T) {
	h := newTestHasher()

	result, err := h.HashOTP("482915")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Hash)
	assert.NotEmpty(t, result.Salt)
	assert.Equal(t, "argon2id-v1", result.Algorithm)

	match, err := h.VerifyOTP("482915", result)
	require.NoError(t, err)
	assert.True(t, match)

	match, err = h.VerifyOTP("482916", result)
	require.NoError(t, err)
	assert.False(t, match)
}

func TestHashesAreSalted(t *testing.T) {
	h := newTestHasher()

	a, err := h.HashOTP("482915")
	require.NoError(t, err)
	b, err := h.HashOTP("482915")
	require.NoError(t, err)

	assert.NotEqual(t, a.Hash, b.Hash)
	assert.NotEqual(t, a.Salt, b.Salt)
}

func TestVerifyAfterPepperRotation(t *testing.T) {
	h := newTestHasher()

	result, err := h.HashOTP("482915")
	require.NoError(t, err)

	// Challenges hashed before a rotation must keep verifying
	h.rotatePepper()

	match, err := h.VerifyOTP("482915", result)
	require.NoError(t, err)
	assert.True(t, match)
}

func TestVerifyUnknownPepperVersion(t *testing.T) {
	h := newTestHasher()

	result, err := h.HashOTP("482915")
	require.NoError(t, err)
	result.PepperVersion = 99

	_, err = h.VerifyOTP("482915", result)
	assert.Error(t, err)
}

func TestVerifyCorruptHash(t *testing.T) {
	h := newTestHasher()

	result, err := h.HashOTP("482915")
	require.NoError(t, err)
	result.Salt = "not base64!!"

	_, err = h.VerifyOTP("482915", result)
	assert.ErrorIs(t, err, ErrInvalidHash)
}
