package walker

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const (
	octetStream = "application/octet-stream"
	emptyFile   = "application/x-empty"
)

// extension hints for formats the content sniffer does not recognise.
var extensionMimetypes = map[string]string{
	".lzma": "application/x-lzma",
	".7z":   "application/x-7z-compressed",
	".rar":  "application/x-rar-compressed",
	".tgz":  "application/gzip",
	".tbz2": "application/x-bzip2",
}

// sniff detects the media type of an extracted file. When the detected type
// or one of its aliases is in known, the known spelling is returned so that
// the classifier lookup matches. Empty files are never text.
func sniff(data []byte, filename string, known []string) string {
	if len(data) == 0 {
		return emptyFile
	}

	detected := mimetype.Detect(data)
	for _, candidate := range known {
		if detected.Is(candidate) {
			return candidate
		}
	}

	found := stripParams(detected.String())
	if found == octetStream || found == "" {
		if hint, ok := extensionMimetypes[strings.ToLower(filepath.Ext(filename))]; ok {
			return hint
		}
	}
	return found
}

func stripParams(mt string) string {
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = mt[:i]
	}
	return strings.TrimSpace(mt)
}
