package cohort

import (
	"math"
	"testing"

	"epifam/domain/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func subject(c Cohort, fam, ind string, y int) Subject {
	return Subject{
		Cohort:       c,
		FamilyID:     fam,
		IndividualID: ind,
		Epitype:      EpitypeFocal,
		Age:          30,
		AgeOnset:     10,
		Outcomes:     map[Outcome]int{OutcomeFebrileSeizures: y},
	}
}

func TestBuildFiltersIncompleteCases(t *testing.T) {
	missingAge := subject(CohortMelbourne, "f1", "i3", 1)
	missingAge.Age = math.NaN()
	unobserved := subject(CohortMelbourne, "f1", "i4", 0)
	unobserved.Outcomes = map[Outcome]int{OutcomeDrugResistance: 1}
	noEpitype := subject(CohortMelbourne, "f1", "i5", 0)
	noEpitype.Epitype = EpitypeMissing

	subjects := []Subject{
		subject(CohortMelbourne, "f1", "i1", 1),
		subject(CohortMelbourne, "f1", "i2", 0),
		missingAge,
		unobserved,
		noEpitype,
	}

	ds, err := Build(subjects, OutcomeFebrileSeizures, nil)
	require.NoError(t, err)
	assert.Len(t, ds.Rows, 2)
	assert.Equal(t, 1, ds.NumFamilies())
}

func TestBuildDropsSingletonFamilies(t *testing.T) {
	subjects := []Subject{
		subject(CohortMelbourne, "f1", "i1", 1),
		subject(CohortMelbourne, "f1", "i2", 0),
		subject(CohortMelbourne, "lonely", "i1", 1),
	}

	ds, err := Build(subjects, OutcomeFebrileSeizures, nil)
	require.NoError(t, err)
	assert.Len(t, ds.Rows, 2)
	assert.Equal(t, []string{"melbourne/f1"}, ds.FamilyLevels)
}

func TestBuildQualifiesFamilyIDsByCohort(t *testing.T) {
	// The same family_id in two cohorts is two distinct families; one
	// member in each means both are singletons and both are dropped.
	subjects := []Subject{
		subject(CohortMelbourne, "f1", "i1", 1),
		subject(CohortToronto, "f1", "i1", 0),
	}

	_, err := Build(subjects, OutcomeFebrileSeizures, nil)
	assert.ErrorIs(t, err, core.ErrEmptyDataset)
}

func TestBuildRederivesFactorIndices(t *testing.T) {
	subjects := []Subject{
		subject(CohortToronto, "f9", "i1", 1),
		subject(CohortToronto, "f9", "i2", 0),
		subject(CohortMelbourne, "f2", "i1", 1),
		subject(CohortMelbourne, "f2", "i2", 1),
	}

	ds, err := Build(subjects, OutcomeFebrileSeizures, nil)
	require.NoError(t, err)

	// Dense indices in first-appearance order, regardless of original IDs.
	assert.Equal(t, []string{"toronto/f9", "melbourne/f2"}, ds.FamilyLevels)
	assert.Equal(t, []Cohort{CohortToronto, CohortMelbourne}, ds.CohortLevels)
	assert.Equal(t, 0, ds.Rows[0].FamilyIndex)
	assert.Equal(t, 1, ds.Rows[2].FamilyIndex)
	assert.Equal(t, 0, ds.Rows[0].CohortIndex)
	assert.Equal(t, 1, ds.Rows[2].CohortIndex)
}

func TestBuildCohortFilter(t *testing.T) {
	subjects := []Subject{
		subject(CohortMelbourne, "f1", "i1", 1),
		subject(CohortMelbourne, "f1", "i2", 0),
		subject(CohortToronto, "f1", "i1", 1),
		subject(CohortToronto, "f1", "i2", 0),
	}

	mel := CohortMelbourne
	ds, err := Build(subjects, OutcomeFebrileSeizures, &mel)
	require.NoError(t, err)
	assert.Equal(t, "melbourne", ds.Scope)
	assert.Len(t, ds.Rows, 2)
	assert.Equal(t, 1, ds.NumCohorts())

	all, err := Build(subjects, OutcomeFebrileSeizures, nil)
	require.NoError(t, err)
	assert.Equal(t, ScopeAll, all.Scope)
	assert.Len(t, all.Rows, 4)
}

func TestBuildEmptyDatasetSignal(t *testing.T) {
	subjects := []Subject{
		subject(CohortMelbourne, "f1", "i1", 1),
		subject(CohortMelbourne, "f1", "i2", 0),
	}

	lon := CohortLondon
	_, err := Build(subjects, OutcomeFebrileSeizures, &lon)
	assert.True(t, core.IsEmptyDataset(err))
}

func TestBuildRejectsUnknownEnums(t *testing.T) {
	subjects := []Subject{subject(CohortMelbourne, "f1", "i1", 1)}

	_, err := Build(subjects, Outcome("bogus"), nil)
	assert.ErrorIs(t, err, core.ErrInvalidOutcome)

	bad := Cohort("atlantis")
	_, err = Build(subjects, OutcomeFebrileSeizures, &bad)
	assert.ErrorIs(t, err, core.ErrInvalidCohort)
}

func TestFixedDesignColumns(t *testing.T) {
	gge := subject(CohortMelbourne, "f1", "i2", 0)
	gge.Epitype = EpitypeGGE
	gge.Age = 44
	gge.AgeOnset = 12
	subjects := []Subject{subject(CohortMelbourne, "f1", "i1", 1), gge}

	ds, err := Build(subjects, OutcomeFebrileSeizures, nil)
	require.NoError(t, err)

	x := ds.FixedDesign()
	require.Len(t, x, 2)
	assert.Equal(t, []float64{1, 0, 0, 30, 10}, x[0])
	assert.Equal(t, []float64{1, 1, 0, 44, 12}, x[1])
	assert.Len(t, FixedTerms(), len(x[0]))
}
