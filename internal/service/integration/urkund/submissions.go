package urkund

import (
	"context"
	"encoding/base64"
	"net/http"
	"path"
)

func submissionPath(analysisAddress, externalID string) string {
	return "submissions/" + quote(analysisAddress) + "/" + externalID
}

// Submit uploads one document. Urkund treats the external id as the
// idempotency key within a receiver.
func (c *client) Submit(ctx context.Context, upload Upload) (*Submission, error) {
	headers := map[string]string{
		"Content-Type":       upload.Mimetype,
		"x-urkund-anonymous": "0",
		"x-urkund-message":   "",
		"x-urkund-subject":   "",
		"x-urkund-submitter": upload.Submitter,
		"x-urkund-filename":  base64.StdEncoding.EncodeToString([]byte(path.Base(upload.Filename))),
	}

	var s Submission
	if err := c.do(ctx, http.MethodPost, submissionPath(upload.AnalysisAddress, upload.ExternalID), upload.Content, headers, &s); err != nil {
		return nil, err
	}

	c.logger.Debug().
		Str("external_id", upload.ExternalID).
		Str("state", s.Status.State).
		Msg("Document submitted")

	return &s, nil
}

// Status returns every job Urkund holds for the external id.
func (c *client) Status(ctx context.Context, analysisAddress, externalID string) ([]Submission, error) {
	var subs []Submission
	if err := c.do(ctx, http.MethodGet, submissionPath(analysisAddress, externalID), nil, nil, &subs); err != nil {
		return nil, err
	}
	return subs, nil
}
