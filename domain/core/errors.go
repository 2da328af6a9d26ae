package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Configuration errors: caller mistakes, fatal for the configuration
	// that raised them.
	ErrInvalidOutcome = errors.New("outcome not in supported outcome set")
	ErrInvalidCohort  = errors.New("cohort not in supported cohort set")
	ErrInvalidPrior   = errors.New("invalid prior specification")

	// ErrEmptyDataset signals that filtering left no analyzable rows.
	// Expected and non-fatal: orchestration records status no_data.
	ErrEmptyDataset = errors.New("no analyzable rows after filtering")

	// Fitting errors
	ErrNonConvergence = errors.New("likelihood optimization did not converge")
	ErrSampling       = errors.New("posterior sampling failed")

	ErrNotFound = errors.New("resource not found")
)

// Error constructors with context
func NewInvalidOutcomeError(outcome string) error {
	return fmt.Errorf("%w: %q", ErrInvalidOutcome, outcome)
}

func NewInvalidCohortError(cohort string) error {
	return fmt.Errorf("%w: %q", ErrInvalidCohort, cohort)
}

func NewInvalidPriorError(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidPrior, reason)
}

func NewConvergenceError(detail string) error {
	return fmt.Errorf("%w: %s", ErrNonConvergence, detail)
}

func NewSamplingError(detail string) error {
	return fmt.Errorf("%w: %s", ErrSampling, detail)
}

// Error checking helpers
func IsConfigError(err error) bool {
	return errors.Is(err, ErrInvalidOutcome) ||
		errors.Is(err, ErrInvalidCohort) ||
		errors.Is(err, ErrInvalidPrior)
}

func IsEmptyDataset(err error) bool {
	return errors.Is(err, ErrEmptyDataset)
}

func IsNonConvergence(err error) bool {
	return errors.Is(err, ErrNonConvergence)
}

func IsSamplingError(err error) bool {
	return errors.Is(err, ErrSampling)
}
