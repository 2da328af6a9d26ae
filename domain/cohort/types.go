package cohort

import (
	"math"

	"epifam/domain/core"
)

// Cohort identifies one of the recruiting sites contributing families.
type Cohort string

const (
	CohortMelbourne Cohort = "melbourne"
	CohortJerusalem Cohort = "jerusalem"
	CohortToronto   Cohort = "toronto"
	CohortLondon    Cohort = "london"
)

// Cohorts lists the supported cohorts in declaration order.
func Cohorts() []Cohort {
	return []Cohort{CohortMelbourne, CohortJerusalem, CohortToronto, CohortLondon}
}

// ValidCohort reports whether c belongs to the supported cohort set.
func ValidCohort(c Cohort) bool {
	for _, known := range Cohorts() {
		if c == known {
			return true
		}
	}
	return false
}

// Epitype classifies a subject's epilepsy syndrome group.
type Epitype string

const (
	EpitypeFocal Epitype = "focal"
	EpitypeGGE   Epitype = "gge"
	EpitypeOther Epitype = "other"

	// EpitypeMissing marks an unrecorded syndrome classification.
	EpitypeMissing Epitype = ""
)

// ValidEpitype reports whether e is a recorded, supported epitype.
func ValidEpitype(e Epitype) bool {
	return e == EpitypeFocal || e == EpitypeGGE || e == EpitypeOther
}

// Outcome names a binary clinical endpoint measured per subject.
type Outcome string

const (
	OutcomeFebrileSeizures        Outcome = "febrile_seizures"
	OutcomeDrugResistance         Outcome = "drug_resistance"
	OutcomeIntellectualDisability Outcome = "intellectual_disability"
	OutcomePsychiatricComorbidity Outcome = "psychiatric_comorbidity"
	OutcomeStatusEpilepticus      Outcome = "status_epilepticus"
)

// Outcomes lists the supported outcomes in declaration order.
func Outcomes() []Outcome {
	return []Outcome{
		OutcomeFebrileSeizures,
		OutcomeDrugResistance,
		OutcomeIntellectualDisability,
		OutcomePsychiatricComorbidity,
		OutcomeStatusEpilepticus,
	}
}

// ValidOutcome reports whether o belongs to the supported outcome set.
func ValidOutcome(o Outcome) bool {
	for _, known := range Outcomes() {
		if o == known {
			return true
		}
	}
	return false
}

// Subject is one row of the raw subject table: a single individual
// within a family within a cohort. Age fields use NaN for missing;
// outcome values are present in the map only when observed.
type Subject struct {
	Cohort       Cohort          `json:"cohort"`
	FamilyID     string          `json:"family_id"`
	IndividualID string          `json:"individual_id"`
	Epitype      Epitype         `json:"epitype"`
	Age          float64         `json:"age"`
	AgeOnset     float64         `json:"age_onset"`
	Outcomes     map[Outcome]int `json:"outcomes"`
}

// HasOutcome reports whether the given outcome was observed for this subject.
func (s Subject) HasOutcome(o Outcome) bool {
	_, ok := s.Outcomes[o]
	return ok
}

// Complete reports whether the subject is a complete case for the given
// outcome: grouping keys present, predictors recorded, outcome observed.
func (s Subject) Complete(o Outcome) bool {
	if s.FamilyID == "" || s.IndividualID == "" {
		return false
	}
	if !ValidCohort(s.Cohort) || !ValidEpitype(s.Epitype) {
		return false
	}
	if math.IsNaN(s.Age) || math.IsNaN(s.AgeOnset) {
		return false
	}
	return s.HasOutcome(o)
}

// Validate checks the fields that do not depend on an outcome selection.
func (s Subject) Validate() error {
	if !ValidCohort(s.Cohort) {
		return core.NewInvalidCohortError(string(s.Cohort))
	}
	return nil
}
