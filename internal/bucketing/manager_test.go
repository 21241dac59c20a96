package bucketing

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUserBucketIsStable(t *testing.T) {
	m := NewManager(64, 16)

	first := m.UserBucket("user-123")
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, m.UserBucket("user-123"))
	}
	assert.GreaterOrEqual(t, first, 0)
	assert.Less(t, first, 64)
}

func TestBucketsStayInRange(t *testing.T) {
	m := NewManager(64, 16)

	for i := 0; i < 1000; i++ {
		key := fmt.Sprintf("key-%d", i)
		assert.Less(t, m.UserBucket(key), 64)
		assert.Less(t, m.EventBucket(key), 16)
		assert.Less(t, m.Shard(key, 32), 32)
	}
}

func TestBucketsSpread(t *testing.T) {
	m := NewManager(64, 16)

	seen := make(map[int]bool)
	for i := 0; i < 1000; i++ {
		seen[m.UserBucket(fmt.Sprintf("user-%d", i))] = true
	}
	// 1000 keys over 64 buckets should hit most of them
	assert.Greater(t, len(seen), 48)
}

func TestZeroBucketCount(t *testing.T) {
	m := NewManager(0, 0)
	assert.Equal(t, 0, m.UserBucket("anything"))
	assert.Equal(t, 0, m.Shard("anything", 0))
}

func TestDateBucketIsUTC(t *testing.T) {
	m := NewManager(64, 16)

	ist := time.FixedZone("IST", 5*3600+1800)
	// 01:30 IST on March 2nd is still March 1st in UTC
	local := time.Date(2025, 3, 2, 1, 30, 0, 0, ist)
	assert.Equal(t, "2025-03-01", m.DateBucket(local))
}

func TestConcurrentHashing(t *testing.T) {
	m := NewManager(64, 16)
	want := m.UserBucket("shared-key")

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				assert.Equal(t, want, m.UserBucket("shared-key"))
			}
		}()
	}
	wg.Wait()
}
