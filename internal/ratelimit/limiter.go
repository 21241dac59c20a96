package ratelimit

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"akshaya-auth/internal/bucketing"
	"akshaya-auth/internal/util"
)

const shardCount = 32

// Limiter admits or denies requests per client identity using a sliding
// window of 1-second buckets. State is sharded so concurrent checks for
// different identities do not contend; checks for the same identity are a
// single critical section.
//
// Only the identity being checked is pruned on each call; a background
// sweeper evicts identities that have gone idle, keeping per-request cost
// independent of how many identities are tracked.
type Limiter struct {
	window   time.Duration
	max      int
	buckets  *bucketing.Manager
	shards   [shardCount]*shard
	stop     chan struct{}
	stopOnce sync.Once
}

type shard struct {
	mu       sync.Mutex
	counters map[string]*windowCounter
}

// windowCounter maps a unix second to the number of requests seen during
// that second.
type windowCounter struct {
	perSecond map[int64]int
}

func NewLimiter(window time.Duration, max int, buckets *bucketing.Manager) *Limiter {
	l := &Limiter{
		window:  window,
		max:     max,
		buckets: buckets,
		stop:    make(chan struct{}),
	}
	for i := range l.shards {
		l.shards[i] = &shard{counters: make(map[string]*windowCounter)}
	}
	return l
}

// Allow reports whether a request from identity at time now is admitted.
// A denial mutates no counters; the caller retries after the window ages.
func (l *Limiter) Allow(identity string, now time.Time) bool {
	s := l.shards[l.buckets.Shard(identity, shardCount)]

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[identity]
	if !ok {
		c = &windowCounter{perSecond: make(map[int64]int)}
		s.counters[identity] = c
	}

	cutoff := now.Add(-l.window).Unix()
	total := 0
	for sec, n := range c.perSecond {
		if sec <= cutoff {
			delete(c.perSecond, sec)
			continue
		}
		total += n
	}

	if total >= l.max {
		return false
	}

	c.perSecond[now.Unix()]++
	return true
}

// Sweep drops identities whose every bucket has aged out of the window.
func (l *Limiter) Sweep(now time.Time) int {
	cutoff := now.Add(-l.window).Unix()
	removed := 0

	for _, s := range l.shards {
		s.mu.Lock()
		for identity, c := range s.counters {
			live := false
			for sec := range c.perSecond {
				if sec > cutoff {
					live = true
					break
				}
			}
			if !live {
				delete(s.counters, identity)
				removed++
			}
		}
		s.mu.Unlock()
	}

	return removed
}

// StartSweeper runs Sweep on the given interval until Close is called.
func (l *Limiter) StartSweeper(interval time.Duration) {
	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if removed := l.Sweep(time.Now()); removed > 0 {
					util.Debug("Rate limiter sweep completed", zap.Int("identities_removed", removed))
				}
			case <-l.stop:
				return
			}
		}
	}()
}

func (l *Limiter) Close() {
	l.stopOnce.Do(func() {
		close(l.stop)
	})
}

// Tracked returns how many identities currently hold counters.
func (l *Limiter) Tracked() int {
	n := 0
	for _, s := range l.shards {
		s.mu.Lock()
		n += len(s.counters)
		s.mu.Unlock()
	}
	return n
}
