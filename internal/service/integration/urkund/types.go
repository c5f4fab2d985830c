package urkund

import "encoding/json"

type Unit struct {
	ID            int            `json:"Id"`
	Name          string         `json:"Name"`
	Suffix        string         `json:"Suffix"`
	Organizations []Organization `json:"Organizations"`
}

type Organization struct {
	ID               int               `json:"Id"`
	Name             string            `json:"Name"`
	SubOrganizations []SubOrganization `json:"SubOrganizations"`
}

type SubOrganization struct {
	ID   int    `json:"Id"`
	Name string `json:"Name"`
}

// Receiver is the analysis mailbox registered for a person.
type Receiver struct {
	ID              int              `json:"Id"`
	AnalysisAddress string           `json:"AnalysisAddress"`
	EmailAddress    string           `json:"EmailAddress"`
	FullName        string           `json:"FullName"`
	Language        string           `json:"Language"`
	UnitID          int              `json:"UnitId"`
	Organization    *Organization    `json:"Organization,omitempty"`
	SubOrganization *SubOrganization `json:"SubOrganization,omitempty"`
}

// Submission states reported by Urkund.
const (
	StateSubmitted = "Submitted"
	StateAccepted  = "Accepted"
	StateAnalyzed  = "Analyzed"
	StateRejected  = "Rejected"
	StateError     = "Error"
)

type SubmissionStatus struct {
	State     string `json:"State"`
	ErrorCode int    `json:"ErrorCode"`
	Message   string `json:"Message"`
}

// InProgress reports whether the document is queued or analysed and can be polled.
func (s SubmissionStatus) InProgress() bool {
	switch s.State {
	case StateSubmitted, StateAccepted, StateAnalyzed:
		return true
	default:
		return false
	}
}

type Document struct {
	ID          int    `json:"Id"`
	Date        string `json:"Date"`
	DownloadURL string `json:"DownloadUrl"`
}

type Report struct {
	ID           int               `json:"Id"`
	ReportURL    string            `json:"ReportUrl"`
	Significance float64           `json:"Significance"`
	MatchCount   int               `json:"MatchCount"`
	SourceCount  int               `json:"SourceCount"`
	Warnings     []json.RawMessage `json:"Warnings"`
}

type Submission struct {
	ID         int              `json:"Id"`
	ExternalID string           `json:"ExternalId"`
	Filename   string           `json:"Filename"`
	MimeType   string           `json:"MimeType"`
	Timestamp  string           `json:"Timestamp"`
	Status     SubmissionStatus `json:"Status"`
	Document   *Document        `json:"Document,omitempty"`
	Report     *Report          `json:"Report,omitempty"`
}

// Upload is one document to submit under a receiver.
type Upload struct {
	ExternalID      string
	AnalysisAddress string
	Submitter       string
	Filename        string
	Mimetype        string
	Content         []byte
}
