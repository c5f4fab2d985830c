package sample

import (
	"encoding/base64"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/RubachokBoss/plagiarism-checker/urkund-service/internal/models"
	"github.com/RubachokBoss/plagiarism-checker/urkund-service/internal/service/classifier"
	"github.com/RubachokBoss/plagiarism-checker/urkund-service/internal/service/walker"
)

type mockWalker struct {
	mock.Mock
}

func (m *mockWalker) Walk(content []byte, sctx models.SampleContext, mimetype, filename string, level int) ([]models.FileRecord, error) {
	args := m.Called(content, sctx, mimetype, filename, level)
	if tree := args.Get(0); tree != nil {
		return tree.([]models.FileRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

func dataURI(mimetype string, content []byte) string {
	return "data:" + mimetype + ";base64," + base64.StdEncoding.EncodeToString(content)
}

func newSample(data, mimetype string) models.Sample {
	return models.Sample{
		LearnerID: "learner-1",
		RequestID: "req-1",
		Data:      data,
		Metadata: models.SampleMetadata{
			Mimetype: mimetype,
			Filename: "essay.txt",
		},
	}
}

func TestValidate(t *testing.T) {
	text := []byte("an honest essay")
	tree := []models.FileRecord{{
		Filename: "essay.txt",
		Mimetype: "text/plain",
		Status:   models.FileStatusAccepted,
		Content:  text,
	}}

	tests := []struct {
		name      string
		sample    models.Sample
		setup     func(*mockWalker)
		wantValid bool
		wantCode  string
		wantMsg   string
	}{
		{
			name:   "valid plain text",
			sample: newSample(dataURI("text/plain", text), "text/plain"),
			setup: func(m *mockWalker) {
				m.On("Walk", text, models.SampleContext{}, "text/plain", "essay.txt", 0).Return(tree, nil).Once()
			},
			wantValid: true,
		},
		{
			name:     "no embedded mimetype",
			sample:   newSample("aGVsbG8=", "text/plain"),
			wantCode: models.CodeInvalidMimetype,
			wantMsg:  "Mimetype is not in sample base64 data",
		},
		{
			name:     "declared zip but embedded text",
			sample:   newSample(dataURI("text/plain", text), "application/zip"),
			wantCode: models.CodeInvalidMimetype,
			wantMsg:  "Mimetype in sample data differs from sample mimetype",
		},
		{
			name:     "unsupported mimetype",
			sample:   newSample(dataURI("image/png", text), "image/png"),
			wantCode: models.CodeInvalidMimetype,
			wantMsg:  "Invalid mimetype. Accepted types are: [",
		},
		{
			name:     "missing payload",
			sample:   newSample("data:text/plain;base64", "text/plain"),
			wantCode: models.CodeInvalidSampleData,
			wantMsg:  "Invalid format sample data.",
		},
		{
			name:     "malformed base64",
			sample:   newSample("data:text/plain;base64,@@not-base64@@", "text/plain"),
			wantCode: models.CodeInvalidSampleData,
			wantMsg:  "Invalid base 64 format",
		},
		{
			name:   "walker failure",
			sample: newSample(dataURI("application/zip", []byte("broken")), "application/zip"),
			setup: func(m *mockWalker) {
				m.On("Walk", []byte("broken"), models.SampleContext{}, "application/zip", "essay.txt", 0).
					Return(nil, errors.New("failed to open zip")).Once()
			},
			wantCode: models.CodeInvalidSampleData,
			wantMsg:  "Error build file tree",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := new(mockWalker)
			if tt.setup != nil {
				tt.setup(w)
			}
			v := NewValidator(classifier.Default(), w, zerolog.Nop())

			got := v.Validate(tt.sample)
			require.NotNil(t, got)
			assert.Equal(t, tt.wantValid, got.Valid)
			if tt.wantValid {
				assert.Equal(t, "text/plain", got.Mimetype)
				assert.Equal(t, tree, got.Tree)
			} else {
				assert.Equal(t, tt.wantCode, got.Code)
				assert.Contains(t, got.Message, tt.wantMsg)
				assert.Nil(t, got.Tree)
			}

			// Walker must never run for samples rejected before decoding.
			w.AssertExpectations(t)
			if tt.setup == nil {
				w.AssertNotCalled(t, "Walk", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}

func TestValidateWithRealWalker(t *testing.T) {
	cls := classifier.Default()
	v := NewValidator(cls, walker.NewWalker(cls, 3, zerolog.Nop()), zerolog.Nop())

	got := v.Validate(newSample(dataURI("text/plain", []byte("plain text body")), "text/plain"))
	require.True(t, got.Valid)
	require.Len(t, got.Tree, 1)
	assert.True(t, got.Tree[0].Accepted())
	assert.Equal(t, 1, models.CountAccepted(got.Tree))
}
