package models

// Structured activity types a sample context can declare.
const (
	ActivityAssign       = "assign"
	ActivityAssignOnline = "assign_online"
	ActivityQuizAttempt  = "quiz_attempt"
	ActivityForumPost    = "forum_post"
)

// Sample is one learner submission as received from the assessment platform.
type Sample struct {
	LearnerID string         `json:"learner_id"`
	RequestID string         `json:"request_id"`
	Data      string         `json:"data"`
	Metadata  SampleMetadata `json:"metadata"`
}

type SampleMetadata struct {
	Mimetype string        `json:"mimetype"`
	Filename string        `json:"filename"`
	Context  SampleContext `json:"context"`
}

// SampleContext tells where the sample came from inside the learning platform.
type SampleContext struct {
	Type string `json:"type,omitempty"`
}

// IsActivity reports whether the context declares a structured learning activity.
func (c SampleContext) IsActivity() bool {
	switch c.Type {
	case ActivityAssign, ActivityAssignOnline, ActivityQuizAttempt, ActivityForumPost:
		return true
	default:
		return false
	}
}
