package cohort

import (
	"epifam/domain/core"
)

// ScopeAll marks a dataset spanning every cohort (nested-grouping analyses).
const ScopeAll = "all"

// Row is one analyzable observation after filtering. Family and cohort
// grouping factors are re-expressed as dense indices scoped to the
// surviving rows, so stale levels never reach a solver.
type Row struct {
	Cohort      Cohort
	FamilyIndex int
	CohortIndex int
	Epitype     Epitype
	Age         float64
	AgeOnset    float64
	Y           int
}

// Dataset is the validated, filtered view of subject records for one
// (outcome, cohort-scope) analysis. Immutable after Build.
type Dataset struct {
	Outcome      Outcome
	Scope        string // ScopeAll or a single cohort name
	Rows         []Row
	FamilyLevels []string // surviving family factor levels, first-appearance order
	CohortLevels []Cohort // surviving cohort factor levels, first-appearance order
}

// Build constructs the per-analysis dataset: select the grouping,
// predictor and outcome fields, apply the optional cohort filter, drop
// incomplete cases, retain only families with at least two surviving
// members, and re-derive the grouping factors from the survivors.
//
// A zero-row result is reported as core.ErrEmptyDataset. That is a
// signal, not a failure: callers record status no_data and move on.
func Build(subjects []Subject, outcome Outcome, filter *Cohort) (*Dataset, error) {
	if !ValidOutcome(outcome) {
		return nil, core.NewInvalidOutcomeError(string(outcome))
	}
	if filter != nil && !ValidCohort(*filter) {
		return nil, core.NewInvalidCohortError(string(*filter))
	}

	scope := ScopeAll
	if filter != nil {
		scope = string(*filter)
	}

	// Complete-case selection in input order.
	type pending struct {
		subj      Subject
		familyKey string
	}
	var kept []pending
	members := make(map[string]map[string]bool) // familyKey -> distinct individual IDs
	for _, s := range subjects {
		if filter != nil && s.Cohort != *filter {
			continue
		}
		if !s.Complete(outcome) {
			continue
		}
		// family_id is only unique within its cohort; qualify it.
		key := string(s.Cohort) + "/" + s.FamilyID
		kept = append(kept, pending{subj: s, familyKey: key})
		if members[key] == nil {
			members[key] = make(map[string]bool)
		}
		members[key][s.IndividualID] = true
	}

	// A family of size one carries no within-family correlation
	// information and destabilizes the variance estimate; drop it.
	ds := &Dataset{Outcome: outcome, Scope: scope}
	familyIndex := make(map[string]int)
	cohortIndex := make(map[Cohort]int)
	for _, p := range kept {
		if len(members[p.familyKey]) < 2 {
			continue
		}
		fi, ok := familyIndex[p.familyKey]
		if !ok {
			fi = len(ds.FamilyLevels)
			familyIndex[p.familyKey] = fi
			ds.FamilyLevels = append(ds.FamilyLevels, p.familyKey)
		}
		ci, ok := cohortIndex[p.subj.Cohort]
		if !ok {
			ci = len(ds.CohortLevels)
			cohortIndex[p.subj.Cohort] = ci
			ds.CohortLevels = append(ds.CohortLevels, p.subj.Cohort)
		}
		ds.Rows = append(ds.Rows, Row{
			Cohort:      p.subj.Cohort,
			FamilyIndex: fi,
			CohortIndex: ci,
			Epitype:     p.subj.Epitype,
			Age:         p.subj.Age,
			AgeOnset:    p.subj.AgeOnset,
			Y:           p.subj.Outcomes[outcome],
		})
	}

	if len(ds.Rows) == 0 {
		return nil, core.ErrEmptyDataset
	}
	return ds, nil
}

// NumFamilies returns the count of surviving family levels.
func (d *Dataset) NumFamilies() int { return len(d.FamilyLevels) }

// NumCohorts returns the count of surviving cohort levels.
func (d *Dataset) NumCohorts() int { return len(d.CohortLevels) }

// Responses returns the binary outcome vector in row order.
func (d *Dataset) Responses() []int {
	y := make([]int, len(d.Rows))
	for i, r := range d.Rows {
		y[i] = r.Y
	}
	return y
}

// FixedDesign returns the fixed-effect design matrix in row order:
// intercept, epitype dummies (GGE and Other against the focal baseline),
// age, age at onset.
func (d *Dataset) FixedDesign() [][]float64 {
	x := make([][]float64, len(d.Rows))
	for i, r := range d.Rows {
		gge, other := 0.0, 0.0
		switch r.Epitype {
		case EpitypeGGE:
			gge = 1
		case EpitypeOther:
			other = 1
		}
		x[i] = []float64{1, gge, other, r.Age, r.AgeOnset}
	}
	return x
}

// FixedTerms names the columns of FixedDesign.
func FixedTerms() []string {
	return []string{"intercept", "epitype_gge", "epitype_other", "age", "age_onset"}
}
