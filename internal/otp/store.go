package otp

import (
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"akshaya-auth/internal/bucketing"
	"akshaya-auth/internal/hashing"
	"akshaya-auth/internal/util"
)

const shardCount = 16

var (
	ErrNotFound  = errors.New("otp not found")
	ErrExpired   = errors.New("otp expired")
	ErrLockedOut = errors.New("too many otp attempts")
	ErrInvalid   = errors.New("invalid otp")
)

// challenge is the live record for a phone number. Codes are kept as
// Argon2id hashes only; the plaintext leaves the store the moment Issue
// returns.
type challenge struct {
	hash     *hashing.HashResult
	issuedAt time.Time
	attempts int
}

// Store owns the per-phone challenge state machine. A phone has at most
// one live challenge; issuing replaces any prior one. Challenges are
// deleted on successful verify, on detected expiry, or on attempt
// exhaustion, whichever the triggering call hits first.
//
// Locking mirrors the rate limiter: a shard mutex serializes
// read-check-mutate for the same phone, different phones proceed
// independently. Nothing inside a critical section touches the network.
type Store struct {
	ttl         time.Duration
	maxAttempts int
	codeLength  int
	hasher      *hashing.Hasher
	buckets     *bucketing.Manager
	shards      [shardCount]*shard
	stop        chan struct{}
	stopOnce    sync.Once
}

type shard struct {
	mu         sync.Mutex
	challenges map[string]*challenge
}

func NewStore(ttl time.Duration, maxAttempts, codeLength int, hasher *hashing.Hasher, buckets *bucketing.Manager) *Store {
	s := &Store{
		ttl:         ttl,
		maxAttempts: maxAttempts,
		codeLength:  codeLength,
		hasher:      hasher,
		buckets:     buckets,
		stop:        make(chan struct{}),
	}
	for i := range s.shards {
		s.shards[i] = &shard{challenges: make(map[string]*challenge)}
	}
	return s
}

// Issue creates a fresh challenge for phone, unconditionally replacing any
// existing one, and returns the plaintext code for out-of-band delivery.
func (s *Store) Issue(phone string, now time.Time) (string, error) {
	code, err := generateCode(s.codeLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate otp code: %w", err)
	}

	// Hash outside the critical section; Argon2 is the expensive part
	hash, err := s.hasher.HashOTP(code)
	if err != nil {
		return "", fmt.Errorf("failed to hash otp code: %w", err)
	}

	sh := s.shard(phone)
	sh.mu.Lock()
	sh.challenges[phone] = &challenge{
		hash:     hash,
		issuedAt: now,
		attempts: 0,
	}
	sh.mu.Unlock()

	return code, nil
}

// Verify runs the challenge state machine for phone with the presented
// code. A nil return means the code matched and the challenge was
// consumed.
//
// A wrong code that uses up the last attempt still reports ErrInvalid;
// lockout is only detected and enforced on the following call.
func (s *Store) Verify(phone, code string, now time.Time) error {
	sh := s.shard(phone)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	c, ok := sh.challenges[phone]
	if !ok {
		return ErrNotFound
	}

	if now.Sub(c.issuedAt) > s.ttl {
		delete(sh.challenges, phone)
		return ErrExpired
	}

	if c.attempts >= s.maxAttempts {
		delete(sh.challenges, phone)
		return ErrLockedOut
	}

	match, err := s.hasher.VerifyOTP(code, c.hash)
	if err != nil {
		return fmt.Errorf("failed to verify otp code: %w", err)
	}
	if !match {
		c.attempts++
		return ErrInvalid
	}

	delete(sh.challenges, phone)
	return nil
}

// Sweep deletes challenges that have passed their TTL. Lazy expiry in
// Verify stays authoritative; this only bounds memory.
func (s *Store) Sweep(now time.Time) int {
	removed := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for phone, c := range sh.challenges {
			if now.Sub(c.issuedAt) > s.ttl {
				delete(sh.challenges, phone)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed
}

// StartSweeper runs Sweep on the given interval until Close is called.
func (s *Store) StartSweeper(interval time.Duration) {
	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if removed := s.Sweep(time.Now()); removed > 0 {
					util.Debug("OTP sweep completed", zap.Int("challenges_removed", removed))
				}
			case <-s.stop:
				return
			}
		}
	}()
}

func (s *Store) Close() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
}

// Live returns how many challenges are currently stored.
func (s *Store) Live() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		n += len(sh.challenges)
		sh.mu.Unlock()
	}
	return n
}

func (s *Store) shard(phone string) *shard {
	return s.shards[s.buckets.Shard(phone, shardCount)]
}

// generateCode draws each digit independently from a uniform source;
// leading zeros are permitted.
func generateCode(length int) (string, error) {
	digits := make([]byte, length)
	buf := make([]byte, 1)
	for i := 0; i < length; {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		// Reject values that would bias the modulo
		if buf[0] >= 250 {
			continue
		}
		digits[i] = '0' + buf[0]%10
		i++
	}
	return string(digits), nil
}
