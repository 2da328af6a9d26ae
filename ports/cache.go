package ports

import (
	"context"

	"epifam/domain/core"
	"epifam/domain/inference"
)

// FitCachePort is the key-to-artifact store backing Bayesian fit
// memoization. Keys are deterministic configuration hashes; writes are
// once-per-key, reads return (nil, false, nil) on a miss.
type FitCachePort interface {
	Get(ctx context.Context, key core.FitKey) (*inference.BayesianFit, bool, error)
	Put(ctx context.Context, key core.FitKey, fit *inference.BayesianFit) error
	Delete(ctx context.Context, key core.FitKey) error
	Close() error
}
