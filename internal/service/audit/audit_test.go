package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RubachokBoss/plagiarism-checker/urkund-service/internal/models"
)

func TestBuild(t *testing.T) {
	corrects := []models.CorrectOutcome{
		{ExternalID: "req_0", Filename: "a.txt", Significance: 5.86, MatchCount: 2},
		{ExternalID: "req_1", Filename: "b.txt", Significance: 41},
	}
	errs := []models.ErrorOutcome{
		{Code: models.CodeInvalidSampleData, ExternalID: "req_2", Filename: "c.txt"},
	}

	a := Build(corrects, errs, 3)

	assert.Equal(t, 3, a.TotalDocuments)
	assert.Equal(t, 2, a.TotalDocumentsAccepted)
	assert.Equal(t, 1, a.TotalDocumentsRejected)
	assert.Equal(t, corrects, a.Documents.Corrects)
	assert.Equal(t, errs, a.Documents.Errors)

	require.Len(t, a.Comparisons, 2)
	assert.Equal(t, "req_0", a.Comparisons[0].ComparisonID)
	assert.Equal(t, 5.86, a.Comparisons[0].Result)
	assert.Equal(t, corrects[0], a.Comparisons[0].ExtraInfo)
	assert.Equal(t, "req_1", a.Comparisons[1].ComparisonID)
}

func TestBuildEmpty(t *testing.T) {
	a := Build(nil, nil, 0)
	assert.NotNil(t, a.Documents.Corrects)
	assert.NotNil(t, a.Documents.Errors)
	assert.Empty(t, a.Comparisons)
}

func TestMaxRatio(t *testing.T) {
	assert.Equal(t, 0.0, MaxRatio(nil))
	assert.InDelta(t, 0.0586, MaxRatio([]models.CorrectOutcome{{Significance: 5.86}}), 1e-9)
	assert.InDelta(t, 0.41, MaxRatio([]models.CorrectOutcome{{Significance: 5.86}, {Significance: 41}, {Significance: 12}}), 1e-9)
}

func TestAlert(t *testing.T) {
	assert.Equal(t, models.AlertOK, Alert(1, 0))
	assert.Equal(t, models.AlertWarning, Alert(1, 1))
	assert.Equal(t, models.AlertWarning, Alert(0, 2))
}
