// Package fitcache is the on-disk memoization store for Bayesian fits.
// MCMC fitting is expensive; a fit for a given configuration key is
// sampled once and reused across runs unless a refresh is requested.
package fitcache

import (
	"context"
	"encoding/json"

	"epifam/domain/core"
	"epifam/domain/inference"
	apperrors "epifam/internal/errors"

	badger "github.com/dgraph-io/badger/v4"
)

// Store is a badger-backed FitCachePort implementation.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the cache database in dir.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, apperrors.CacheError("failed to open fit cache", err)
	}
	return &Store{db: db}, nil
}

// Get returns the cached fit for key, if present.
func (s *Store) Get(ctx context.Context, key core.FitKey) (*inference.BayesianFit, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	var fit *inference.BayesianFit
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			fit = &inference.BayesianFit{}
			return json.Unmarshal(val, fit)
		})
	})
	if err == badger.ErrKeyNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, apperrors.CacheError("fit cache read failed", err)
	}
	return fit, true, nil
}

// Put stores a fit under key. Write-once semantics: an existing entry
// is left untouched so concurrent writers cannot tear it.
func (s *Store) Put(ctx context.Context, key core.FitKey, fit *inference.BayesianFit) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(fit)
	if err != nil {
		return apperrors.CacheError("fit cache encode failed", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(key)); err == nil {
			return nil // already present, keep the original
		}
		return txn.Set([]byte(key), payload)
	})
	if err != nil {
		return apperrors.CacheError("fit cache write failed", err)
	}
	return nil
}

// Delete removes a cached fit, used when an explicit refresh is requested.
func (s *Store) Delete(ctx context.Context, key core.FitKey) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return apperrors.CacheError("fit cache delete failed", err)
	}
	return nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
