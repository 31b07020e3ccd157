package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const snapshotKeyPrefix = "diagnosis:session:"

// SnapshotStore persists session snapshots in Redis so a conversation can
// survive process restarts. All methods tolerate a nil client: without
// Redis the system degrades to memory-only sessions.
type SnapshotStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewSnapshotStore creates a snapshot store. rdb may be nil.
func NewSnapshotStore(rdb *redis.Client, ttl time.Duration) *SnapshotStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SnapshotStore{rdb: rdb, ttl: ttl}
}

// Save writes the snapshot under the session key with the store's TTL.
func (s *SnapshotStore) Save(ctx context.Context, snap SessionSnapshot) error {
	if s.rdb == nil {
		return nil
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal session snapshot: %w", err)
	}
	if err := s.rdb.Set(ctx, snapshotKeyPrefix+snap.ID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to persist session snapshot: %w", err)
	}
	return nil
}

// Load reads a snapshot by session id. The second return value reports
// whether a usable snapshot was found. A corrupt payload is deleted and
// treated as not found, so the caller starts a fresh session.
func (s *SnapshotStore) Load(ctx context.Context, sessionID string) (*SessionSnapshot, bool, error) {
	if s.rdb == nil {
		return nil, false, nil
	}
	data, err := s.rdb.Get(ctx, snapshotKeyPrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load session snapshot: %w", err)
	}

	var snap SessionSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		_ = s.rdb.Del(ctx, snapshotKeyPrefix+sessionID).Err()
		return nil, false, nil
	}
	if snap.ID == "" {
		snap.ID = sessionID
	}
	return &snap, true, nil
}

// Delete removes a persisted snapshot.
func (s *SnapshotStore) Delete(ctx context.Context, sessionID string) error {
	if s.rdb == nil {
		return nil
	}
	return s.rdb.Del(ctx, snapshotKeyPrefix+sessionID).Err()
}
