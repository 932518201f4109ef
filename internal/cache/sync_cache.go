// Plenum - Parliamentary Voting Analytics
// Copyright 2026 Plenum Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/plenumlab/plenum

package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/plenumlab/plenum/internal/database"
	"github.com/plenumlab/plenum/internal/metrics"
	"github.com/plenumlab/plenum/internal/models"
)

// Store is the persistence surface the sync cache needs. *database.DB
// satisfies it.
type Store interface {
	GetSyncCacheEntry(ctx context.Context, entityType, externalID string) (*models.SyncCacheEntry, error)
	PutSyncCacheEntry(ctx context.Context, entry *models.SyncCacheEntry) error
	DeleteSyncCacheEntry(ctx context.Context, entityType, externalID string) error
	ClearSyncCache(ctx context.Context) error
}

// CorruptionError marks a structural failure reading the sync cache. Unlike
// a missing row (ordinary staleness), corruption means freshness can no
// longer be trusted and the sync run must abort.
type CorruptionError struct {
	EntityType string
	ExternalID string
	Err        error
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("sync cache corrupted for %s/%s: %v", e.EntityType, e.ExternalID, e.Err)
}

func (e *CorruptionError) Unwrap() error {
	return e.Err
}

// IsCorruption reports whether err is a sync cache corruption.
func IsCorruption(err error) bool {
	var ce *CorruptionError
	return errors.As(err, &ce)
}

// SyncCache decides whether an entity's source payload has changed since the
// last sync. Entries are monotonic: once an (entity, id, fingerprint) triple
// is recorded, re-syncs with the same fingerprint skip the entity unless the
// run is forced.
type SyncCache struct {
	store Store
	now   func() time.Time
}

// NewSyncCache creates a sync cache over the given store.
func NewSyncCache(store Store) *SyncCache {
	return &SyncCache{store: store, now: time.Now}
}

// Fingerprint returns the SHA-256 hex digest of the payload's JSON encoding.
// The digest is computed over the list-level payload, so a detail fetch can
// be skipped whenever the listing entry is byte-for-byte unchanged.
func Fingerprint(payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to fingerprint payload: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// IsFresh reports whether the entity was already synced with this exact
// fingerprint. A missing entry is stale; a read failure other than not-found
// is a *CorruptionError.
func (sc *SyncCache) IsFresh(ctx context.Context, entityType, externalID, fingerprint string) (bool, error) {
	entry, err := sc.store.GetSyncCacheEntry(ctx, entityType, externalID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			metrics.SyncCacheLookups.WithLabelValues(entityType, "miss").Inc()
			return false, nil
		}
		return false, &CorruptionError{EntityType: entityType, ExternalID: externalID, Err: err}
	}

	if entry.Fingerprint != fingerprint {
		metrics.SyncCacheLookups.WithLabelValues(entityType, "stale").Inc()
		return false, nil
	}

	metrics.SyncCacheLookups.WithLabelValues(entityType, "hit").Inc()
	return true, nil
}

// MarkSynced records that the entity has been persisted for this
// fingerprint. Called only after the store write committed.
func (sc *SyncCache) MarkSynced(ctx context.Context, entityType, externalID, fingerprint string) error {
	entry := &models.SyncCacheEntry{
		EntityType:  entityType,
		ExternalID:  externalID,
		Fingerprint: fingerprint,
		SyncedAt:    sc.now().UTC(),
	}
	if err := sc.store.PutSyncCacheEntry(ctx, entry); err != nil {
		return fmt.Errorf("failed to mark %s/%s synced: %w", entityType, externalID, err)
	}
	return nil
}

// Invalidate drops one entity's freshness record so the next sync refetches
// it.
func (sc *SyncCache) Invalidate(ctx context.Context, entityType, externalID string) error {
	return sc.store.DeleteSyncCacheEntry(ctx, entityType, externalID)
}

// InvalidateAll drops every freshness record.
func (sc *SyncCache) InvalidateAll(ctx context.Context) error {
	return sc.store.ClearSyncCache(ctx)
}
