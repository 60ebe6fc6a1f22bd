package drive

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/penter405/brainsync/internal/common"
	"golang.org/x/oauth2"
)

// Sentinel errors for HTTP status code classification. All of them wrap
// common.ErrUpstream.
var (
	ErrBadRequest   = fmt.Errorf("%w: drive: bad request", common.ErrUpstream)
	ErrUnauthorized = fmt.Errorf("%w: drive: unauthorized", common.ErrUpstream)
	ErrForbidden    = fmt.Errorf("%w: drive: forbidden", common.ErrUpstream)
	ErrNotFound     = fmt.Errorf("%w: drive: not found", common.ErrUpstream)
	ErrThrottled    = fmt.Errorf("%w: drive: throttled", common.ErrUpstream)
	ErrServerError  = fmt.Errorf("%w: drive: server error", common.ErrUpstream)
	ErrUnexpected   = fmt.Errorf("%w: drive: unexpected response", common.ErrUpstream)
)

// DriveError carries the HTTP status and the provider's message. Message is
// safe to show to the client as a detail string.
type DriveError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *DriveError) Error() string {
	return fmt.Sprintf("drive: HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *DriveError) Unwrap() error {
	return e.Err
}

func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusTooManyRequests:
		return ErrThrottled
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}
		return ErrUnexpected
	}
}

// googleErrorBody is the error envelope Google APIs return.
type googleErrorBody struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func newDriveError(code int, body []byte) *DriveError {
	msg := http.StatusText(code)
	var g googleErrorBody
	if err := json.Unmarshal(body, &g); err == nil && g.Error.Message != "" {
		msg = g.Error.Message
	}
	return &DriveError{StatusCode: code, Message: msg, Err: classifyStatus(code)}
}

// ErrorDetail returns the provider-supplied message carried by err: the
// Drive API error message, or the token endpoint's error description when a
// refresh or code exchange was rejected. It is empty when there is none.
func ErrorDetail(err error) string {
	var de *DriveError
	if errors.As(err, &de) {
		return de.Message
	}
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		if re.ErrorDescription != "" {
			return re.ErrorDescription
		}
		return re.ErrorCode
	}
	return ""
}
