package registry

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/treb-bootstrap/internal/domain"
	"github.com/trebuchet-org/treb-bootstrap/internal/domain/models"
	"github.com/trebuchet-org/treb-bootstrap/internal/usecase"
)

// MemoryStore is an in-process AddressRegistry. The lock flag is checked on
// every write and, once set, can never be cleared.
type MemoryStore struct {
	mu        sync.RWMutex
	addresses map[common.Hash]common.Address
	bools     map[common.Hash]bool
	locked    bool
}

// NewMemoryStore creates an empty, unlocked store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		addresses: make(map[common.Hash]common.Address),
		bools:     make(map[common.Hash]bool),
	}
}

// SetAddress stores value under key unless the store is locked
func (s *MemoryStore) SetAddress(_ context.Context, key common.Hash, value common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.locked {
		return domain.ErrWriteAfterLock
	}
	s.addresses[key] = value
	return nil
}

// SetBool stores value under key unless the store is locked. Writing true to
// the initialised key locks the store.
func (s *MemoryStore) SetBool(_ context.Context, key common.Hash, value bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.locked {
		return domain.ErrWriteAfterLock
	}
	s.bools[key] = value
	if key == domain.InitialisedKey() && value {
		s.locked = true
	}
	return nil
}

// GetAddress returns the address stored under key
func (s *MemoryStore) GetAddress(_ context.Context, key common.Hash) (common.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.addresses[key]
	if !ok {
		return common.Address{}, domain.ErrNotFound
	}
	return value, nil
}

// GetBool returns the flag stored under key, false when absent
func (s *MemoryStore) GetBool(_ context.Context, key common.Hash) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.bools[key], nil
}

// Locked reports whether the initialised flag has been set
func (s *MemoryStore) Locked() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.locked
}

// Entries returns a snapshot of every stored row
func (s *MemoryStore) Entries() []models.RegistryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]models.RegistryEntry, 0, len(s.addresses)+len(s.bools))
	for key, addr := range s.addresses {
		addr := addr
		entries = append(entries, models.RegistryEntry{Key: key, Address: &addr})
	}
	for key, value := range s.bools {
		value := value
		entries = append(entries, models.RegistryEntry{Key: key, Bool: &value})
	}
	return entries
}

// MemoryBinder hands out one MemoryStore per registry address
type MemoryBinder struct {
	mu     sync.Mutex
	stores map[common.Address]*MemoryStore
}

// NewMemoryBinder creates a new binder
func NewMemoryBinder() *MemoryBinder {
	return &MemoryBinder{stores: make(map[common.Address]*MemoryStore)}
}

// Bind returns the store for registry, creating it on first use
func (b *MemoryBinder) Bind(_ context.Context, registry common.Address) (usecase.AddressRegistry, error) {
	return b.Store(registry), nil
}

// Store returns the concrete store for registry
func (b *MemoryBinder) Store(registry common.Address) *MemoryStore {
	b.mu.Lock()
	defer b.mu.Unlock()

	store, ok := b.stores[registry]
	if !ok {
		store = NewMemoryStore()
		b.stores[registry] = store
	}
	return store
}

// Ensure the adapters implement the interfaces
var (
	_ usecase.AddressRegistry = (*MemoryStore)(nil)
	_ usecase.RegistryBinder  = (*MemoryBinder)(nil)
)
