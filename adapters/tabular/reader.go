// Package tabular reads the subject table from delimited text or Excel
// workbooks. One row per subject; the outcome columns are recognized by
// name against the supported outcome set.
package tabular

import (
	"context"
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"epifam/domain/cohort"
	apperrors "epifam/internal/errors"

	"github.com/xuri/excelize/v2"
)

// SubjectReader handles reading subject tables from CSV/TSV and xlsx files.
type SubjectReader struct {
	filePath string
	fileType string // "xlsx", "csv" or "tsv"
}

// NewSubjectReader creates a reader, dispatching on the file extension.
func NewSubjectReader(filePath string) *SubjectReader {
	fileType := "xlsx"
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".csv":
		fileType = "csv"
	case ".tsv", ".txt":
		fileType = "tsv"
	}
	return &SubjectReader{filePath: filePath, fileType: fileType}
}

// ReadSubjects loads and parses the full subject table.
func (r *SubjectReader) ReadSubjects(ctx context.Context) ([]cohort.Subject, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, apperrors.DataError(fmt.Sprintf("subject file not found: %s", r.filePath))
	}

	var rows [][]string
	var err error
	switch r.fileType {
	case "csv", "tsv":
		rows, err = r.readDelimited()
	default:
		rows, err = r.readExcel()
	}
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, apperrors.DataError("subject file must have a header row and at least one data row")
	}
	return parseRows(rows)
}

func (r *SubjectReader) readDelimited() ([][]string, error) {
	f, err := os.Open(r.filePath)
	if err != nil {
		return nil, apperrors.DataError(fmt.Sprintf("failed to open subject file: %v", err))
	}
	defer f.Close()

	reader := csv.NewReader(f)
	if r.fileType == "tsv" {
		reader.Comma = '\t'
	}
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, apperrors.DataError(fmt.Sprintf("failed to parse delimited file: %v", err))
	}
	return rows, nil
}

func (r *SubjectReader) readExcel() ([][]string, error) {
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, apperrors.DataError(fmt.Sprintf("failed to open Excel file: %v", err))
	}
	defer f.Close()

	rows, err := f.GetRows("Sheet1")
	if err != nil {
		return nil, apperrors.DataError(fmt.Sprintf("failed to read Sheet1: %v", err))
	}
	return rows, nil
}

// parseRows converts the raw table into subject records. Unparseable or
// blank cells become missing values; unknown columns are ignored.
func parseRows(rows [][]string) ([]cohort.Subject, error) {
	header := rows[0]
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"cohort", "family_id", "individual_id", "epitype", "age", "age_onset"} {
		if _, ok := col[required]; !ok {
			return nil, apperrors.DataError(fmt.Sprintf("missing required column %q", required))
		}
	}

	var outcomeCols []cohort.Outcome
	for _, o := range cohort.Outcomes() {
		if _, ok := col[string(o)]; ok {
			outcomeCols = append(outcomeCols, o)
		}
	}
	if len(outcomeCols) == 0 {
		return nil, apperrors.DataError("no recognized outcome columns in subject file")
	}

	subjects := make([]cohort.Subject, 0, len(rows)-1)
	for _, row := range rows[1:] {
		s := cohort.Subject{
			Cohort:       cohort.Cohort(cell(row, col["cohort"])),
			FamilyID:     cell(row, col["family_id"]),
			IndividualID: cell(row, col["individual_id"]),
			Epitype:      cohort.Epitype(cell(row, col["epitype"])),
			Age:          parseFloat(cell(row, col["age"])),
			AgeOnset:     parseFloat(cell(row, col["age_onset"])),
			Outcomes:     make(map[cohort.Outcome]int),
		}
		for _, o := range outcomeCols {
			if v, ok := parseBinary(cell(row, col[string(o)])); ok {
				s.Outcomes[o] = v
			}
		}
		subjects = append(subjects, s)
	}
	return subjects, nil
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func parseFloat(v string) float64 {
	if v == "" || strings.EqualFold(v, "na") {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

func parseBinary(v string) (int, bool) {
	switch strings.ToLower(v) {
	case "0", "false", "no":
		return 0, true
	case "1", "true", "yes":
		return 1, true
	}
	return 0, false
}
