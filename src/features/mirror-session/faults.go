/**
 * Fault classification - maps capture failures to user-facing messages
 */

package mirrorsession

import (
	"errors"
	"fmt"
)

// Category is a user-facing failure class
type Category string

const (
	CategoryNone              Category = ""
	CategoryNoDisplaySelected Category = "no-display-selected"
	CategoryPermissionDenied  Category = "permission-denied"
	CategoryNoDisplayFound    Category = "no-display-found"
	CategorySourceUnreadable  Category = "source-unreadable"
	CategoryNoVideoTrack      Category = "no-video-track"
	CategoryTrackRuntimeError Category = "track-runtime-error"
	CategoryDetectionFailure  Category = "detection-failure"
	CategoryUnclassified      Category = "unclassified"
)

const (
	MsgNoDisplaySelected = "No display selected"
	MsgPermissionDenied  = "Permission to capture display denied. Please allow screen sharing when prompted."
	MsgNoDisplayFound    = "No display found to capture."
	MsgSourceUnreadable  = "Could not read from the selected display."
	MsgTrackRuntimeError = "Video track error occurred"
	MsgDetectionFailure  = "Failed to detect displays"
	msgStartPrefix       = "Error starting mirroring: "
)

// FailureKind is the platform-reported reason a capture request failed
type FailureKind string

const (
	FailureNotAllowed  FailureKind = "NotAllowedError"
	FailureNotFound    FailureKind = "NotFoundError"
	FailureNotReadable FailureKind = "NotReadableError"
	FailureOther       FailureKind = "Error"
)

// CaptureError is the error a Platform returns when capture acquisition fails
type CaptureError struct {
	Kind   FailureKind
	Detail string
	Err    error
}

func (e *CaptureError) Error() string {
	detail := e.Detail
	if detail == "" && e.Err != nil {
		detail = e.Err.Error()
	}
	if detail == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, detail)
}

func (e *CaptureError) Unwrap() error {
	return e.Err
}

// NewCaptureError creates a CaptureError of the given kind
func NewCaptureError(kind FailureKind, detail string, err error) *CaptureError {
	return &CaptureError{Kind: kind, Detail: detail, Err: err}
}

// errNoVideoTrack marks a stream acquired without a live video track
var errNoVideoTrack = errors.New("No video track in stream")

// Classify maps an acquisition failure to its category and message
func Classify(err error) (Category, string) {
	if err == nil {
		return CategoryNone, ""
	}

	if errors.Is(err, errNoVideoTrack) {
		return CategoryNoVideoTrack, msgStartPrefix + errNoVideoTrack.Error()
	}

	var ce *CaptureError
	if errors.As(err, &ce) {
		switch ce.Kind {
		case FailureNotAllowed:
			return CategoryPermissionDenied, MsgPermissionDenied
		case FailureNotFound:
			return CategoryNoDisplayFound, MsgNoDisplayFound
		case FailureNotReadable:
			return CategorySourceUnreadable, MsgSourceUnreadable
		}
		return CategoryUnclassified, msgStartPrefix + detailOf(ce)
	}

	return CategoryUnclassified, msgStartPrefix + err.Error()
}

func detailOf(ce *CaptureError) string {
	if ce.Detail != "" {
		return ce.Detail
	}
	if ce.Err != nil {
		return ce.Err.Error()
	}
	return string(ce.Kind)
}
