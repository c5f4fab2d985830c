// Package classifier decides how a file of a given media type is handled.
package classifier

// MimeDirectory is the pseudo media type given to directories found while walking.
const MimeDirectory = "directory"

type Class int

const (
	ClassUnsupported Class = iota
	ClassAccepted
	ClassCompressed
	ClassDirectory
)

func (c Class) String() string {
	switch c {
	case ClassAccepted:
		return "accepted"
	case ClassCompressed:
		return "compressed"
	case ClassDirectory:
		return "directory"
	default:
		return "unsupported"
	}
}

// ProviderMimetypes are the document types Urkund analyses.
var ProviderMimetypes = []string{
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.sun.xml.writer",
	"application/vnd.ms-powerpoint",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"application/pdf",
	"text/plain",
	"application/rtf",
	"text/html",
	"application/vnd.ms-works",
	"application/vnd.oasis.opendocument.text",
}

// CompressedMimetypes are the archive types the walker expands.
var CompressedMimetypes = []string{
	"application/zip",
	"application/gzip",
	"application/x-tar",
	"application/x-bzip2",
	"application/x-7z-compressed",
	"application/x-rar-compressed",
	"application/x-lzma",
}

// Classifier is a pure lookup over the configured media type sets.
type Classifier struct {
	provider   map[string]struct{}
	compressed map[string]struct{}
}

func New(provider, compressed []string) *Classifier {
	return &Classifier{
		provider:   toSet(provider),
		compressed: toSet(compressed),
	}
}

// Default returns a classifier over the Urkund and archive type lists.
func Default() *Classifier {
	return New(ProviderMimetypes, CompressedMimetypes)
}

func (c *Classifier) Classify(mimetype string) Class {
	if mimetype == MimeDirectory {
		return ClassDirectory
	}
	if _, ok := c.compressed[mimetype]; ok {
		return ClassCompressed
	}
	if _, ok := c.provider[mimetype]; ok {
		return ClassAccepted
	}
	return ClassUnsupported
}

// Accepts reports whether the system as a whole takes samples of this type,
// either for direct analysis or for expansion.
func (c *Classifier) Accepts(mimetype string) bool {
	_, inProvider := c.provider[mimetype]
	_, inCompressed := c.compressed[mimetype]
	return inProvider || inCompressed
}

func (c *Classifier) ProviderTypes() []string {
	return keys(c.provider)
}

// Known lists every media type the classifier has an opinion on.
func (c *Classifier) Known() []string {
	return append(keys(c.provider), keys(c.compressed)...)
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func keys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}
