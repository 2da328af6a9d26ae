package ui

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"epifam/domain/inference"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResults() []inference.AnalysisResult {
	icc := inference.Interval{Point: 0.31, Lower: 0.12, Upper: 0.55}
	return []inference.AnalysisResult{
		{
			Outcome:      "febrile_seizures",
			Scope:        "melbourne",
			Grouping:     "family",
			PriorVariant: "default",
			Status:       inference.StatusOK,
			Frequentist:  &inference.FrequentistSummary{LRT: 6.2, PValue: 0.0064, NaivePValue: 0.0128, Significant: true},
			ICCFamily:    &icc,
			BF:           &inference.BayesFactor{BF: 14.2, EvidenceRatio: 1 / 14.2},
		},
		{
			Outcome:      "drug_resistance",
			Scope:        "london",
			Grouping:     "family",
			PriorVariant: "default",
			Status:       inference.StatusNoData,
		},
	}
}

func TestResultsEndpoint(t *testing.T) {
	srv := NewServer(gin.TestMode)
	srv.SetResults(sampleResults())

	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/results", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got []inference.AnalysisResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, inference.StatusNoData, got[1].Status)
}

func TestResultsEndpointBeforeAnyRun(t *testing.T) {
	srv := NewServer(gin.TestMode)

	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/results", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReportEndpoint(t *testing.T) {
	srv := NewServer(gin.TestMode)
	srv.SetResults(sampleResults())

	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/report", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "febrile_seizures")
	assert.Contains(t, rec.Body.String(), "<table>")
}

func TestHealthz(t *testing.T) {
	srv := NewServer(gin.TestMode)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBuildMarkdownRows(t *testing.T) {
	md := BuildMarkdown(sampleResults())
	assert.Contains(t, md, "| febrile_seizures | melbourne | default | ok |")
	assert.Contains(t, md, "| drug_resistance | london | default | no_data | - | - | - | - | - |")
	assert.Contains(t, md, "0.31 [0.12, 0.55]")
}
