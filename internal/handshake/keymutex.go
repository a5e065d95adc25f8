package handshake

import "sync"

// KeyMutex hands out a per-key *sync.Mutex from a shared table, so that
// concurrent retries/redials for the same ConnectionKey serialize instead
// of racing. Entries are never removed: the
// table is expected to live for the process lifetime of the engine,
// bounded by the number of distinct ConnectionKeys observed.
type KeyMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewKeyMutex returns an empty per-key mutex table.
func NewKeyMutex() *KeyMutex {
	return &KeyMutex{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires (creating if necessary) the mutex for key and returns an
// unlock function.
func (k *KeyMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
