package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	c := Default()

	tests := []struct {
		mimetype string
		want     Class
	}{
		{"text/plain", ClassAccepted},
		{"application/pdf", ClassAccepted},
		{"application/vnd.openxmlformats-officedocument.wordprocessingml.document", ClassAccepted},
		{"application/zip", ClassCompressed},
		{"application/x-7z-compressed", ClassCompressed},
		{"application/x-lzma", ClassCompressed},
		{MimeDirectory, ClassDirectory},
		{"image/png", ClassUnsupported},
		{"", ClassUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.mimetype, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.mimetype))
		})
	}
}

func TestAccepts(t *testing.T) {
	c := New([]string{"text/plain"}, []string{"application/zip"})

	assert.True(t, c.Accepts("text/plain"))
	assert.True(t, c.Accepts("application/zip"))
	assert.False(t, c.Accepts(MimeDirectory))
	assert.False(t, c.Accepts("image/jpeg"))
	assert.ElementsMatch(t, []string{"text/plain"}, c.ProviderTypes())
	assert.ElementsMatch(t, []string{"text/plain", "application/zip"}, c.Known())
}
