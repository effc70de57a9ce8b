package memory

import (
	"context"
	"sync"

	"kiosk-quiz-service/internal/domain"
)

// IdentityStore keeps displays' identities in process memory, keyed by display id.
type IdentityStore struct {
	mu         sync.RWMutex
	identities map[string]domain.Identity
}

func NewIdentityStore() *IdentityStore {
	return &IdentityStore{identities: make(map[string]domain.Identity)}
}

// For returns the kiosk.IdentityStore view for one display.
func (s *IdentityStore) For(displayID string) *DisplayIdentity {
	return &DisplayIdentity{store: s, displayID: displayID}
}

// DisplayIdentity is the identity slot of a single display.
type DisplayIdentity struct {
	store     *IdentityStore
	displayID string
}

func (d *DisplayIdentity) Load(_ context.Context) (domain.Identity, bool, error) {
	d.store.mu.RLock()
	defer d.store.mu.RUnlock()
	identity, ok := d.store.identities[d.displayID]
	return identity, ok, nil
}

func (d *DisplayIdentity) Save(_ context.Context, identity domain.Identity) error {
	d.store.mu.Lock()
	defer d.store.mu.Unlock()
	d.store.identities[d.displayID] = identity
	return nil
}

func (d *DisplayIdentity) Clear(_ context.Context) error {
	d.store.mu.Lock()
	defer d.store.mu.Unlock()
	delete(d.store.identities, d.displayID)
	return nil
}
