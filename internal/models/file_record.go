package models

type FileStatus string

const (
	FileStatusAccepted FileStatus = "ACCEPTED"
	FileStatusRejected FileStatus = "REJECTED"
)

func (s FileStatus) String() string {
	return string(s)
}

// Rejection reasons attached to REJECTED records.
const (
	ReasonMaxRecursionLevel   = "MAX_RECURSIVE_LEVEL"
	ReasonUnsupportedMimetype = "UNSUPPORTED_MIMETYPE"
)

// FileRecord is one leaf produced by walking a sample.
type FileRecord struct {
	Filename string     `json:"filename"`
	Mimetype string     `json:"mimetype"`
	Status   FileStatus `json:"status"`
	Reason   string     `json:"reason,omitempty"`
	Content  []byte     `json:"-"`
}

func (r FileRecord) Accepted() bool {
	return r.Status == FileStatusAccepted
}

// CountAccepted returns how many records in tree are ACCEPTED.
func CountAccepted(tree []FileRecord) int {
	n := 0
	for _, r := range tree {
		if r.Accepted() {
			n++
		}
	}
	return n
}
