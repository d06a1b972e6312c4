package ledger

import (
	"bytes"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// walletLocks serializes mutations per wallet. Multi-wallet operations
// acquire locks in a canonical order so a transfer and an approval touching
// the same pair of wallets can never deadlock.
type walletLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newWalletLocks() *walletLocks {
	return &walletLocks{locks: make(map[uuid.UUID]*sync.Mutex)}
}

func (l *walletLocks) get(id uuid.UUID) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	return m
}

// Lock acquires the mutexes for the given wallets in canonical order and
// returns the function that releases them.
func (l *walletLocks) Lock(ids ...uuid.UUID) func() {
	// Dedupe, then sort by byte order
	seen := make(map[uuid.UUID]struct{}, len(ids))
	unique := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	sort.Slice(unique, func(i, j int) bool {
		return bytes.Compare(unique[i][:], unique[j][:]) < 0
	})

	held := make([]*sync.Mutex, 0, len(unique))
	for _, id := range unique {
		m := l.get(id)
		m.Lock()
		held = append(held, m)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}
