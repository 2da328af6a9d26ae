package ports

import (
	"context"

	"epifam/domain/cohort"
)

// SubjectReaderPort loads the raw subject table from an external data
// source (delimited text or spreadsheet).
type SubjectReaderPort interface {
	ReadSubjects(ctx context.Context) ([]cohort.Subject, error)
}
