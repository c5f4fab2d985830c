package models

import "encoding/json"

// ExternalJob is a document accepted by Urkund and not yet analysed.
type ExternalJob struct {
	ExternalID      string `json:"external_id"`
	AnalysisAddress string `json:"analysis_email"`
	Filename        string `json:"filename"`
}

// CorrectOutcome is an analysed document.
type CorrectOutcome struct {
	ExternalID      string            `json:"external_id"`
	AnalysisAddress string            `json:"analysis_email"`
	Filename        string            `json:"filename"`
	ReportURL       string            `json:"report_url"`
	Significance    float64           `json:"significance"`
	MatchCount      int               `json:"match_count"`
	SourceCount     int               `json:"source_count"`
	Warnings        []json.RawMessage `json:"warnings,omitempty"`
}

// ErrorOutcome is a document that could not be analysed.
type ErrorOutcome struct {
	Code          string `json:"code"`
	ExternalID    string `json:"external_id,omitempty"`
	Filename      string `json:"filename"`
	UrkundCode    string `json:"urkund_code,omitempty"`
	UrkundMessage string `json:"urkund_message,omitempty"`
}

// TrackingState is the working set of one submission between wake-ups.
// Countdown is expressed in minutes.
type TrackingState struct {
	LearnerID  string           `json:"learner_id"`
	RequestID  string           `json:"request_id"`
	TotalFiles int              `json:"total_files"`
	Pending    []ExternalJob    `json:"external_ids"`
	Corrects   []CorrectOutcome `json:"corrects"`
	Errors     []ErrorOutcome   `json:"errors"`
	Countdown  int              `json:"countdown"`
}

// Processed is the number of documents with a final outcome.
func (s *TrackingState) Processed() int {
	return len(s.Corrects) + len(s.Errors)
}

// Done reports whether every document has a final outcome.
func (s *TrackingState) Done() bool {
	return s.Processed() == s.TotalFiles
}

// NotificationTask asks the scheduler to call back after Countdown minutes.
type NotificationTask struct {
	Key       string        `json:"key"`
	Countdown int           `json:"countdown"`
	Info      TrackingState `json:"info"`
	// Retries counts failed attempts at processing this wake-up.
	Retries int `json:"retries,omitempty"`
}
