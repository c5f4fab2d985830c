package urkund

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrUnitAndOrganizationNotValid is returned by New when the configured unit,
// organization and sub-organization do not match the account.
var ErrUnitAndOrganizationNotValid = errors.New("urkund unit and organization not valid")

type Kind int

const (
	KindUnknown Kind = iota
	KindTimeout
	KindBadRequest
	KindUnauthorized
	KindNotFound
	KindReceiverExists
	KindNotAvailable
	KindRequestTooLarge
	KindMediaTypeNotSupported
	KindInvalidResponse
)

var kindNames = map[Kind]string{
	KindUnknown:               "unknown",
	KindTimeout:               "timeout",
	KindBadRequest:            "bad request",
	KindUnauthorized:          "unauthorized",
	KindNotFound:              "not found",
	KindReceiverExists:        "receiver exists",
	KindNotAvailable:          "not available",
	KindRequestTooLarge:       "request too large",
	KindMediaTypeNotSupported: "media type not supported",
	KindInvalidResponse:       "invalid response",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is a failed Urkund call. Status is zero when no response was received.
type Error struct {
	Kind   Kind
	Status int
	Body   string
	Err    error
}

func (e *Error) Error() string {
	msg := "urkund: " + e.Kind.String()
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Body != "" {
		msg += ": " + e.Body
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var uerr *Error
	if errors.As(err, &uerr) {
		return uerr.Kind
	}
	return KindUnknown
}

func IsTimeout(err error) bool {
	return KindOf(err) == KindTimeout
}

func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

func kindForStatus(status int) Kind {
	switch status {
	case http.StatusBadRequest:
		return KindBadRequest
	case http.StatusUnauthorized:
		return KindUnauthorized
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusConflict:
		return KindReceiverExists
	case http.StatusGone:
		return KindNotAvailable
	case http.StatusRequestEntityTooLarge:
		return KindRequestTooLarge
	case http.StatusUnsupportedMediaType:
		return KindMediaTypeNotSupported
	default:
		return KindInvalidResponse
	}
}

var submissionErrorMessages = map[int]string{
	3:    "The submitted document does not contain enough text to be analysed",
	4:    "Document submitted after deadline",
	5000: "General error during analysis process",
	5001: "Failed to generate report",
	7001: "Indexinf failed",
}

// ErrorMessage explains a submission error code reported by Urkund.
func ErrorMessage(code int) string {
	if msg, ok := submissionErrorMessages[code]; ok {
		return msg
	}
	return "Error not explained"
}
