// Sentinel - Family Safety Monitoring and Real-Time Location Alerts
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

// Package store persists identities, journeys, and location snapshots in
// BadgerDB with JSON values under per-record key prefixes. An in-memory
// Badger instance backs tests and dev mode; production opens a directory.
//
// The store satisfies journey.Store, journey.Directory, rooms.Directory,
// and proximity.Snapshots.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/sentinel/internal/models"
)

// Key prefixes for BadgerDB storage
const (
	identityKeyPrefix = "identity:"
	journeyKeyPrefix  = "journey:"
	locationKeyPrefix = "location:"
)

// ErrIdentityNotFound is returned when an identity id resolves to nothing.
var ErrIdentityNotFound = errors.New("identity not found")

// Config controls where the store keeps its data.
type Config struct {
	// Path is the BadgerDB directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps everything in process memory. Used by tests and dev
	// mode; nothing survives a restart.
	InMemory bool
}

// Store is a BadgerDB-backed record store.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the store described by cfg.
func Open(cfg Config) (*Store, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts.Logger = nil // Suppress BadgerDB logs

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// PutIdentity stores or replaces an identity record.
func (s *Store) PutIdentity(ctx context.Context, ident *models.Identity) error {
	data, err := json.Marshal(ident)
	if err != nil {
		return fmt.Errorf("marshal identity: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(identityKeyPrefix+ident.ID), data)
	})
}

// GetIdentity retrieves an identity by id.
func (s *Store) GetIdentity(ctx context.Context, id string) (*models.Identity, error) {
	var ident models.Identity

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(identityKeyPrefix + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrIdentityNotFound
		}
		if err != nil {
			return fmt.Errorf("get identity: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &ident)
		})
	})
	if err != nil {
		return nil, err
	}
	return &ident, nil
}

// LoadJourney retrieves the journey record for an identity. A traveler with
// no stored record loads as the zero (inactive) journey, never an error.
func (s *Store) LoadJourney(ctx context.Context, identityID string) (*models.Journey, error) {
	var j models.Journey

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(journeyKeyPrefix + identityID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get journey: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &j)
		})
	})
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// SaveJourney stores or replaces the journey record for an identity.
func (s *Store) SaveJourney(ctx context.Context, identityID string, j *models.Journey) error {
	data, err := json.Marshal(j)
	if err != nil {
		return fmt.Errorf("marshal journey: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(journeyKeyPrefix+identityID), data)
	})
}

// SaveSnapshot stores the latest location for an identity, last-write-wins.
func (s *Store) SaveSnapshot(ctx context.Context, snap *models.LocationSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(locationKeyPrefix+snap.IdentityID), data)
	})
}

// GetSnapshot retrieves the latest location for an identity.
func (s *Store) GetSnapshot(ctx context.Context, identityID string) (*models.LocationSnapshot, error) {
	var snap models.LocationSnapshot

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(locationKeyPrefix + identityID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrIdentityNotFound
		}
		if err != nil {
			return fmt.Errorf("get snapshot: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &snap)
		})
	})
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// ListEnabledWithLocation returns the latest snapshot of every identity that
// has location sharing enabled, in key order. Snapshots whose identity
// record is missing or has sharing disabled are skipped.
func (s *Store) ListEnabledWithLocation(ctx context.Context) ([]models.LocationSnapshot, error) {
	var snaps []models.LocationSnapshot

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(locationKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var snap models.LocationSnapshot
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &snap)
			})
			if err != nil {
				continue
			}

			identItem, err := txn.Get([]byte(identityKeyPrefix + snap.IdentityID))
			if err != nil {
				continue // Identity may have been deleted
			}
			var ident models.Identity
			err = identItem.Value(func(val []byte) error {
				return json.Unmarshal(val, &ident)
			})
			if err != nil || !ident.ShareLocation {
				continue
			}

			snaps = append(snaps, snap)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return snaps, nil
}
