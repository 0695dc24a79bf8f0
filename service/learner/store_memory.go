package learner

import (
	"context"
	"sync"

	"github.com/tucanapay/tucana/service/chains"
)

// MemoryStore is an in-process Store used by tests and the CLI. It holds the
// same shape of state the Redis store persists, guarded by a mutex so it is
// safe to share across goroutines in tests.
type MemoryStore struct {
	mu    sync.RWMutex
	prefs Preferences
	log   []PaymentRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		prefs: Preferences{FavoriteChainByToken: make(map[string]chains.Key)},
	}
}

func (s *MemoryStore) Preferences(_ context.Context) (Preferences, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clonePreferences(s.prefs), nil
}

func (s *MemoryStore) SetDefaultToken(_ context.Context, tokenID string, chain chains.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs.DefaultTokenID = normalize(tokenID)
	s.prefs.FavoriteChainByToken[normalize(tokenID)] = chain
	return nil
}

func (s *MemoryStore) SetFavoriteChain(_ context.Context, tokenID string, chain chains.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs.FavoriteChainByToken[normalize(tokenID)] = chain
	return nil
}

func (s *MemoryStore) PaymentLog(_ context.Context) ([]PaymentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]PaymentRecord, len(s.log))
	copy(out, s.log)
	return out, nil
}

func (s *MemoryStore) SavePaymentLog(_ context.Context, log []PaymentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log = make([]PaymentRecord, len(log))
	copy(s.log, log)
	return nil
}

func clonePreferences(p Preferences) Preferences {
	out := Preferences{
		DefaultTokenID:       p.DefaultTokenID,
		FavoriteChainByToken: make(map[string]chains.Key, len(p.FavoriteChainByToken)),
	}
	for k, v := range p.FavoriteChainByToken {
		out.FavoriteChainByToken[k] = v
	}
	return out
}
