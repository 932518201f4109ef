// Plenum - Parliamentary Voting Analytics
// Copyright 2026 Plenum Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/plenumlab/plenum

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/plenumlab/plenum/internal/metrics"
	"github.com/plenumlab/plenum/internal/models"
)

// GetSyncCacheEntry returns the recorded fingerprint for an entity, or
// ErrNotFound when the entity has never been synced.
func (db *DB) GetSyncCacheEntry(ctx context.Context, entityType, externalID string) (_ *models.SyncCacheEntry, err error) {
	defer metrics.ObserveDBQuery("select", "sync_cache", time.Now(), &err)

	row := db.conn.QueryRowContext(ctx,
		`SELECT entity_type, external_id, fingerprint, synced_at
		 FROM sync_cache WHERE entity_type = ? AND external_id = ?`,
		entityType, externalID)

	var e models.SyncCacheEntry
	if err = row.Scan(&e.EntityType, &e.ExternalID, &e.Fingerprint, &e.SyncedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("sync cache %s/%s: %w", entityType, externalID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query sync cache %s/%s: %w", entityType, externalID, err)
	}
	return &e, nil
}

// PutSyncCacheEntry records (or replaces) the fingerprint for an entity.
func (db *DB) PutSyncCacheEntry(ctx context.Context, entry *models.SyncCacheEntry) (err error) {
	defer metrics.ObserveDBQuery("upsert", "sync_cache", time.Now(), &err)

	query := `INSERT INTO sync_cache (entity_type, external_id, fingerprint, synced_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (entity_type, external_id) DO UPDATE SET
			fingerprint = excluded.fingerprint,
			synced_at = excluded.synced_at`

	if _, err = db.conn.ExecContext(ctx, query,
		entry.EntityType, entry.ExternalID, entry.Fingerprint, entry.SyncedAt); err != nil {
		return fmt.Errorf("failed to upsert sync cache %s/%s: %w", entry.EntityType, entry.ExternalID, err)
	}
	return nil
}

// DeleteSyncCacheEntry removes one entity's fingerprint. Missing rows are not
// an error.
func (db *DB) DeleteSyncCacheEntry(ctx context.Context, entityType, externalID string) (err error) {
	defer metrics.ObserveDBQuery("delete", "sync_cache", time.Now(), &err)

	if _, err = db.conn.ExecContext(ctx,
		`DELETE FROM sync_cache WHERE entity_type = ? AND external_id = ?`,
		entityType, externalID); err != nil {
		return fmt.Errorf("failed to delete sync cache %s/%s: %w", entityType, externalID, err)
	}
	return nil
}

// ClearSyncCache removes every fingerprint, forcing the next sync to refetch
// everything.
func (db *DB) ClearSyncCache(ctx context.Context) (err error) {
	defer metrics.ObserveDBQuery("delete", "sync_cache", time.Now(), &err)

	if _, err = db.conn.ExecContext(ctx, `DELETE FROM sync_cache`); err != nil {
		return fmt.Errorf("failed to clear sync cache: %w", err)
	}
	return nil
}

// GetAnalyticsResult returns a cached analytics payload and its computation
// time, or ErrNotFound.
func (db *DB) GetAnalyticsResult(ctx context.Context, term int, key string) (_ []byte, _ time.Time, err error) {
	defer metrics.ObserveDBQuery("select", "analytics_cache", time.Now(), &err)

	row := db.conn.QueryRowContext(ctx,
		`SELECT data, computed_at FROM analytics_cache WHERE term_num = ? AND key = ?`, term, key)

	var data string
	var computedAt time.Time
	if err = row.Scan(&data, &computedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, time.Time{}, fmt.Errorf("analytics cache %d/%s: %w", term, key, ErrNotFound)
		}
		return nil, time.Time{}, fmt.Errorf("failed to query analytics cache %d/%s: %w", term, key, err)
	}
	return []byte(data), computedAt, nil
}

// PutAnalyticsResult stores (or replaces) a computed analytics payload.
func (db *DB) PutAnalyticsResult(ctx context.Context, term int, key string, data []byte, computedAt time.Time) (err error) {
	defer metrics.ObserveDBQuery("upsert", "analytics_cache", time.Now(), &err)

	query := `INSERT INTO analytics_cache (term_num, key, data, computed_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (term_num, key) DO UPDATE SET
			data = excluded.data,
			computed_at = excluded.computed_at`

	if _, err = db.conn.ExecContext(ctx, query, term, key, string(data), computedAt); err != nil {
		return fmt.Errorf("failed to upsert analytics cache %d/%s: %w", term, key, err)
	}
	return nil
}

// ClearAnalyticsResults drops all cached analytics for a term, typically
// after a sync run changed the underlying data.
func (db *DB) ClearAnalyticsResults(ctx context.Context, term int) (err error) {
	defer metrics.ObserveDBQuery("delete", "analytics_cache", time.Now(), &err)

	if _, err = db.conn.ExecContext(ctx,
		`DELETE FROM analytics_cache WHERE term_num = ?`, term); err != nil {
		return fmt.Errorf("failed to clear analytics cache for term %d: %w", term, err)
	}
	return nil
}
