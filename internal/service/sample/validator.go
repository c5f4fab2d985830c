// Package sample checks an incoming learner sample and expands it into a file tree.
package sample

import (
	"encoding/base64"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/RubachokBoss/plagiarism-checker/urkund-service/internal/models"
	"github.com/RubachokBoss/plagiarism-checker/urkund-service/internal/service/classifier"
	"github.com/RubachokBoss/plagiarism-checker/urkund-service/internal/service/walker"
)

// Validation is the outcome of checking one sample. When Valid is false,
// Message and Code describe the failure and Tree is nil.
type Validation struct {
	Valid    bool
	Mimetype string
	Tree     []models.FileRecord
	Message  string
	Code     string
}

func invalid(code, format string, args ...any) *Validation {
	return &Validation{
		Valid:   false,
		Message: fmt.Sprintf(format, args...),
		Code:    code,
	}
}

type Validator interface {
	Validate(s models.Sample) *Validation
}

type validator struct {
	classifier *classifier.Classifier
	walker     walker.Walker
	logger     zerolog.Logger
}

func NewValidator(cls *classifier.Classifier, w walker.Walker, logger zerolog.Logger) Validator {
	return &validator{
		classifier: cls,
		walker:     w,
		logger:     logger,
	}
}

func (v *validator) Validate(s models.Sample) *Validation {
	header, payload, hasPayload := strings.Cut(s.Data, ",")

	embedded, ok := embeddedMimetype(header)
	if !ok {
		return invalid(models.CodeInvalidMimetype, "Mimetype is not in sample base64 data")
	}

	mimetype := s.Metadata.Mimetype
	if embedded != mimetype {
		return invalid(models.CodeInvalidMimetype, "Mimetype in sample data differs from sample mimetype")
	}

	if !v.classifier.Accepts(mimetype) {
		accepted := v.classifier.Known()
		sort.Strings(accepted)
		return invalid(models.CodeInvalidMimetype, "Invalid mimetype. Accepted types are: [%s]", strings.Join(accepted, ", "))
	}

	if !hasPayload {
		return invalid(models.CodeInvalidSampleData, "Invalid format sample data.")
	}

	content, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return invalid(models.CodeInvalidSampleData, "Invalid format sample data. Invalid base 64 format.")
	}

	tree, err := v.walker.Walk(content, s.Metadata.Context, mimetype, s.Metadata.Filename, 0)
	if err != nil {
		v.logger.Warn().
			Err(err).
			Str("learner_id", s.LearnerID).
			Str("request_id", s.RequestID).
			Msg("Failed to build file tree")
		return invalid(models.CodeInvalidSampleData, "Invalid format sample data. Error build file tree.")
	}

	return &Validation{
		Valid:    true,
		Mimetype: mimetype,
		Tree:     tree,
	}
}

// embeddedMimetype reads the media type from a "data:<type>;base64" header.
func embeddedMimetype(header string) (string, bool) {
	typePart, _, _ := strings.Cut(header, ";")
	_, mimetype, ok := strings.Cut(typePart, ":")
	return mimetype, ok
}
