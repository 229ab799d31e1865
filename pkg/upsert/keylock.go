package upsert

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

const defaultShards = 64

// KeyLocker is a sharded mutex keyed by identity strings such as
// "Genre:Drama". Holders must never lock a second key while holding one.
type KeyLocker struct {
	shards []sync.Mutex
}

// NewKeyLocker creates a locker with n shards. n <= 0 uses a default.
func NewKeyLocker(n int) *KeyLocker {
	if n <= 0 {
		n = defaultShards
	}
	return &KeyLocker{shards: make([]sync.Mutex, n)}
}

// Lock acquires the shard for key and returns its release function.
func (k *KeyLocker) Lock(key string) func() {
	mu := &k.shards[xxhash.Sum64String(key)%uint64(len(k.shards))]
	mu.Lock()
	return mu.Unlock
}

// With runs fn while holding the lock for key.
func (k *KeyLocker) With(key string, fn func() error) error {
	unlock := k.Lock(key)
	defer unlock()
	return fn()
}
