package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"kiosk-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// IdentityStore persists each display's participant as: SET quiz_user:{displayID} {"name","regno"}
type IdentityStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewIdentityStore(client *redis.Client, ttl time.Duration) *IdentityStore {
	return &IdentityStore{client: client, ttl: ttl}
}

// For returns the kiosk.IdentityStore view for one display.
func (s *IdentityStore) For(displayID string) *DisplayIdentity {
	return &DisplayIdentity{store: s, key: "quiz_user:" + displayID}
}

// DisplayIdentity is the identity record of a single display.
type DisplayIdentity struct {
	store *IdentityStore
	key   string
}

func (d *DisplayIdentity) Load(ctx context.Context) (domain.Identity, bool, error) {
	data, err := d.store.client.Get(ctx, d.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Identity{}, false, nil
	}
	if err != nil {
		return domain.Identity{}, false, fmt.Errorf("get identity: %w", err)
	}
	var identity domain.Identity
	if err := json.Unmarshal(data, &identity); err != nil {
		// a corrupt record behaves like no record
		return domain.Identity{}, false, nil
	}
	return identity, identity.Complete(), nil
}

func (d *DisplayIdentity) Save(ctx context.Context, identity domain.Identity) error {
	data, err := json.Marshal(identity)
	if err != nil {
		return err
	}
	return d.store.client.Set(ctx, d.key, data, d.store.ttl).Err()
}

func (d *DisplayIdentity) Clear(ctx context.Context) error {
	return d.store.client.Del(ctx, d.key).Err()
}
