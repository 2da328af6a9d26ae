package model

import (
	"fmt"

	"epifam/domain/cohort"
	"epifam/domain/core"
)

// Grouping is the typed random-effect structure of a model. There are no
// formula strings anywhere: solvers dispatch on this tag.
type Grouping int

const (
	// GroupingNone has fixed effects only (null comparator for single grouping).
	GroupingNone Grouping = iota
	// GroupingFamily has a family random intercept (per-cohort analyses).
	GroupingFamily
	// GroupingCohortOnly has a cohort random intercept only (null
	// comparator for the nested case).
	GroupingCohortOnly
	// GroupingCohortFamily nests family within cohort (all-cohort analyses).
	GroupingCohortFamily
)

func (g Grouping) String() string {
	switch g {
	case GroupingNone:
		return "none"
	case GroupingFamily:
		return "family"
	case GroupingCohortOnly:
		return "cohort"
	case GroupingCohortFamily:
		return "cohort/family"
	}
	return "unknown"
}

// HasFamily reports whether the grouping includes a family-level intercept.
func (g Grouping) HasFamily() bool {
	return g == GroupingFamily || g == GroupingCohortFamily
}

// HasCohort reports whether the grouping includes a cohort-level intercept.
func (g Grouping) HasCohort() bool {
	return g == GroupingCohortOnly || g == GroupingCohortFamily
}

// PriorBlock identifies which parameter block a prior applies to.
type PriorBlock string

const (
	BlockFixed    PriorBlock = "fixed"
	BlockVariance PriorBlock = "variance"
)

// Prior is one prior distribution specification for a parameter block.
// Df is ignored for the normal family.
type Prior struct {
	Block    PriorBlock `json:"block"`
	Family   string     `json:"family"` // "student_t" or "normal"
	Df       float64    `json:"df"`
	Location float64    `json:"location"`
	Scale    float64    `json:"scale"`
}

// PriorConfig carries at most one prior per block. A nil Fixed prior
// means flat (improper); a nil Variance prior means the framework
// default half-Student-t(3, 0, 2.5) on each standard deviation.
type PriorConfig struct {
	Name     string `json:"name"`
	Fixed    *Prior `json:"fixed,omitempty"`
	Variance *Prior `json:"variance,omitempty"`
}

// DefaultVariancePrior is the framework default for variance-component
// standard deviations.
func DefaultVariancePrior() Prior {
	return Prior{Block: BlockVariance, Family: "student_t", Df: 3, Location: 0, Scale: 2.5}
}

// DefaultPriors returns the framework default configuration: flat fixed
// effects, half-Student-t(3, 0, 2.5) variance components.
func DefaultPriors() PriorConfig {
	return PriorConfig{Name: "default"}
}

// NewPriorConfig validates and assembles a named prior override.
// Supplying two priors for the same block fails with ErrInvalidPrior.
func NewPriorConfig(name string, priors ...Prior) (PriorConfig, error) {
	cfg := PriorConfig{Name: name}
	for _, p := range priors {
		switch p.Block {
		case BlockFixed:
			if cfg.Fixed != nil {
				return PriorConfig{}, core.NewInvalidPriorError("duplicate prior for fixed-effect block")
			}
			prior := p
			cfg.Fixed = &prior
		case BlockVariance:
			if cfg.Variance != nil {
				return PriorConfig{}, core.NewInvalidPriorError("duplicate prior for variance-component block")
			}
			prior := p
			cfg.Variance = &prior
		default:
			return PriorConfig{}, core.NewInvalidPriorError(fmt.Sprintf("unknown block %q", p.Block))
		}
	}
	return cfg, nil
}

// VariancePrior resolves the effective variance-component prior.
func (c PriorConfig) VariancePrior() Prior {
	if c.Variance != nil {
		return *c.Variance
	}
	return DefaultVariancePrior()
}

// Spec is the immutable model configuration consumed by the solvers.
// Fixed-effect terms are fixed by design (intercept, epitype, age,
// age at onset); only outcome, grouping and priors vary.
type Spec struct {
	Outcome  cohort.Outcome `json:"outcome"`
	Grouping Grouping       `json:"grouping"`
	Priors   PriorConfig    `json:"priors"`
}

// New builds a Spec. The outcome must be supported and the grouping must
// carry a family-level intercept: specs describe the full model under
// test, null comparators are derived, never constructed directly.
func New(outcome cohort.Outcome, grouping Grouping, override *PriorConfig) (Spec, error) {
	if !cohort.ValidOutcome(outcome) {
		return Spec{}, core.NewInvalidOutcomeError(string(outcome))
	}
	if !grouping.HasFamily() {
		return Spec{}, fmt.Errorf("grouping %s has no family-level effect to test", grouping)
	}
	priors := DefaultPriors()
	if override != nil {
		priors = *override
	}
	return Spec{Outcome: outcome, Grouping: grouping, Priors: priors}, nil
}

// NullComparator derives the reduced model for the likelihood-ratio
// test: the family-level intercept is dropped, the cohort-level
// intercept (nested case) is retained under both hypotheses.
func (s Spec) NullComparator() Spec {
	null := s
	switch s.Grouping {
	case GroupingFamily:
		null.Grouping = GroupingNone
	case GroupingCohortFamily:
		null.Grouping = GroupingCohortOnly
	}
	return null
}

// FitKey derives the deterministic memoization key for this spec fitted
// over the given cohort scope.
func (s Spec) FitKey(scope string) core.FitKey {
	parts := []string{string(s.Outcome), scope, s.Grouping.String(), s.Priors.Name}
	if s.Priors.Fixed != nil {
		p := s.Priors.Fixed
		parts = append(parts, fmt.Sprintf("fixed:%s(%g,%g,%g)", p.Family, p.Df, p.Location, p.Scale))
	}
	if s.Priors.Variance != nil {
		p := s.Priors.Variance
		parts = append(parts, fmt.Sprintf("variance:%s(%g,%g,%g)", p.Family, p.Df, p.Location, p.Scale))
	}
	return core.ComputeFitKey(parts...)
}
