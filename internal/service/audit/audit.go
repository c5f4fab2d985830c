// Package audit turns per-document outcomes into the plagiarism audit record.
package audit

import "github.com/RubachokBoss/plagiarism-checker/urkund-service/internal/models"

// Build aggregates outcomes. Comparison results keep the raw 0-100 significance.
func Build(corrects []models.CorrectOutcome, errs []models.ErrorOutcome, total int) models.PlagiarismAudit {
	a := models.PlagiarismAudit{
		TotalDocuments:         total,
		TotalDocumentsAccepted: len(corrects),
		TotalDocumentsRejected: len(errs),
		Documents: models.AuditDocuments{
			Corrects: nonNil(corrects),
			Errors:   nonNil(errs),
		},
		Comparisons: make([]models.AuditComparison, 0, len(corrects)),
	}

	for _, c := range corrects {
		a.Comparisons = append(a.Comparisons, models.AuditComparison{
			ComparisonID: c.ExternalID,
			Result:       c.Significance,
			ExtraInfo:    c,
		})
	}
	return a
}

// MaxRatio is the highest significance among corrects, scaled to 0..1.
func MaxRatio(corrects []models.CorrectOutcome) float64 {
	best := 0.0
	for _, c := range corrects {
		if r := c.Significance / 100; r > best {
			best = r
		}
	}
	return best
}

// Alert is OK when fewer documents failed than succeeded.
func Alert(corrects, errs int) models.AlertCode {
	if errs < corrects {
		return models.AlertOK
	}
	return models.AlertWarning
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
