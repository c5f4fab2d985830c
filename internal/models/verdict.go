package models

import "time"

// Message codes reported back to the assessment platform.
const (
	CodeInvalidMimetype        = "PROVIDER_INVALID_MIMETYPE"
	CodeInvalidSampleData      = "PROVIDER_INVALID_SAMPLE_DATA"
	CodeExternalServiceTimeout = "PROVIDER_EXTERNAL_SERVICE_TIMEOUT"
)

type AlertCode string

const (
	AlertOK      AlertCode = "OK"
	AlertWarning AlertCode = "WARNING"
)

// VerificationResult is the outcome of verifying one sample.
type VerificationResult struct {
	Success      bool             `json:"success"`
	ErrorMessage string           `json:"error_message,omitempty"`
	MessageCode  string           `json:"message_code,omitempty"`
	AlertCode    AlertCode        `json:"alert_code,omitempty"`
	Result       float64          `json:"result"`
	Audit        *PlagiarismAudit `json:"audit,omitempty"`
}

// DelayedResult identifies a verification whose result arrives later.
type DelayedResult struct {
	LearnerID string              `json:"learner_id"`
	RequestID string              `json:"request_id"`
	Result    *VerificationResult `json:"result,omitempty"`
}

// Verdict is what Verify hands back: either an immediate result or a delayed handle.
type Verdict struct {
	Immediate *VerificationResult `json:"immediate,omitempty"`
	Delayed   *DelayedResult      `json:"delayed,omitempty"`
}

func (v *Verdict) IsDelayed() bool {
	return v != nil && v.Delayed != nil
}

// PlagiarismAudit is the evidence attached to a resolved verification.
type PlagiarismAudit struct {
	TotalDocuments         int               `json:"total_documents"`
	TotalDocumentsAccepted int               `json:"total_documents_accepted"`
	TotalDocumentsRejected int               `json:"total_documents_rejected"`
	Documents              AuditDocuments    `json:"documents"`
	Comparisons            []AuditComparison `json:"comparisons"`
}

type AuditDocuments struct {
	Corrects []CorrectOutcome `json:"corrects"`
	Errors   []ErrorOutcome   `json:"errors"`
}

type AuditComparison struct {
	ComparisonID string         `json:"comparison_id"`
	Result       float64        `json:"result"`
	ExtraInfo    CorrectOutcome `json:"extra_info"`
}

type ResultStatus string

const (
	ResultStatusPending   ResultStatus = "pending"
	ResultStatusCompleted ResultStatus = "completed"
)

// StoredResult is a verification as persisted by the result repository.
// Result is nil while the verification is pending.
type StoredResult struct {
	RequestID   string              `json:"request_id"`
	LearnerID   string              `json:"learner_id"`
	Status      ResultStatus        `json:"status"`
	Result      *VerificationResult `json:"result,omitempty"`
	EvidenceKey string              `json:"evidence_key,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}
