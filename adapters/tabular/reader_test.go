package tabular

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"epifam/domain/cohort"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const sampleCSV = `cohort,family_id,individual_id,epitype,age,age_onset,febrile_seizures,drug_resistance,notes
melbourne,f1,i1,focal,34,12,1,0,proband
melbourne,f1,i2,gge,31,NA,0,,sibling
toronto,f2,i1,other,52.5,40,yes,no,
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadCSV(t *testing.T) {
	reader := NewSubjectReader(writeFile(t, "subjects.csv", sampleCSV))
	subjects, err := reader.ReadSubjects(context.Background())
	require.NoError(t, err)
	require.Len(t, subjects, 3)

	first := subjects[0]
	assert.Equal(t, cohort.CohortMelbourne, first.Cohort)
	assert.Equal(t, "f1", first.FamilyID)
	assert.Equal(t, cohort.EpitypeFocal, first.Epitype)
	assert.Equal(t, 34.0, first.Age)
	assert.Equal(t, 1, first.Outcomes[cohort.OutcomeFebrileSeizures])
	assert.Equal(t, 0, first.Outcomes[cohort.OutcomeDrugResistance])

	// NA age_onset becomes missing; blank outcome cell stays unobserved.
	second := subjects[1]
	assert.True(t, math.IsNaN(second.AgeOnset))
	assert.False(t, second.HasOutcome(cohort.OutcomeDrugResistance))

	// yes/no spellings parse as binary.
	third := subjects[2]
	assert.Equal(t, 1, third.Outcomes[cohort.OutcomeFebrileSeizures])
	assert.Equal(t, 0, third.Outcomes[cohort.OutcomeDrugResistance])
}

func TestReadTSV(t *testing.T) {
	tsv := "cohort\tfamily_id\tindividual_id\tepitype\tage\tage_onset\tfebrile_seizures\n" +
		"london\tf1\ti1\tfocal\t20\t5\t1\n"
	reader := NewSubjectReader(writeFile(t, "subjects.tsv", tsv))
	subjects, err := reader.ReadSubjects(context.Background())
	require.NoError(t, err)
	require.Len(t, subjects, 1)
	assert.Equal(t, cohort.CohortLondon, subjects[0].Cohort)
}

func TestReadExcel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subjects.xlsx")
	f := excelize.NewFile()
	rows := [][]interface{}{
		{"cohort", "family_id", "individual_id", "epitype", "age", "age_onset", "drug_resistance"},
		{"jerusalem", "f7", "i1", "gge", 28, 9, 1},
		{"jerusalem", "f7", "i2", "focal", 25, 11, 0},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	reader := NewSubjectReader(path)
	subjects, err := reader.ReadSubjects(context.Background())
	require.NoError(t, err)
	require.Len(t, subjects, 2)
	assert.Equal(t, cohort.CohortJerusalem, subjects[0].Cohort)
	assert.Equal(t, 1, subjects[0].Outcomes[cohort.OutcomeDrugResistance])
}

func TestMissingRequiredColumn(t *testing.T) {
	bad := "cohort,family_id,epitype,age,age_onset,febrile_seizures\nmelbourne,f1,focal,30,10,1\n"
	reader := NewSubjectReader(writeFile(t, "bad.csv", bad))
	_, err := reader.ReadSubjects(context.Background())
	assert.ErrorContains(t, err, "individual_id")
}

func TestNoOutcomeColumns(t *testing.T) {
	bad := "cohort,family_id,individual_id,epitype,age,age_onset\nmelbourne,f1,i1,focal,30,10\n"
	reader := NewSubjectReader(writeFile(t, "bad.csv", bad))
	_, err := reader.ReadSubjects(context.Background())
	assert.ErrorContains(t, err, "outcome")
}

func TestFileNotFound(t *testing.T) {
	reader := NewSubjectReader(filepath.Join(t.TempDir(), "absent.csv"))
	_, err := reader.ReadSubjects(context.Background())
	assert.ErrorContains(t, err, "not found")
}

func TestHeaderOnlyFile(t *testing.T) {
	reader := NewSubjectReader(writeFile(t, "empty.csv",
		"cohort,family_id,individual_id,epitype,age,age_onset,febrile_seizures\n"))
	_, err := reader.ReadSubjects(context.Background())
	assert.Error(t, err)
}
