package ports

import (
	"context"

	"epifam/domain/core"
	"epifam/domain/inference"
)

// ResultStorePort persists the ordered result sequence of a run for the
// reporting surface.
type ResultStorePort interface {
	SaveResults(ctx context.Context, runID core.RunID, results []inference.AnalysisResult) error
	ListResults(ctx context.Context, runID core.RunID) ([]inference.AnalysisResult, error)
	LatestRun(ctx context.Context) (core.RunID, error)
}
