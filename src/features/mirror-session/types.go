/**
 * Mirror session type definitions
 */

package mirrorsession

import (
	"context"
	"errors"
)

// IdealFrameRate is the frame-rate target requested for every capture
const IdealFrameRate = 30

// Display represents one capturable output surface
type Display struct {
	ID        string `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	IsPrimary bool   `json:"isPrimary" yaml:"isPrimary"`
	Width     int    `json:"width" yaml:"width"`
	Height    int    `json:"height" yaml:"height"`
}

// ScreenInfo is a screen record reported by multi-screen enumeration
type ScreenInfo struct {
	ID        string
	Name      string
	IsPrimary bool
	Width     int
	Height    int
}

// Size is a pixel geometry
type Size struct {
	Width  int
	Height int
}

// Constraints are the ideal (non-mandatory) parameters of a capture request.
// DisplayID is a hint; platforms that let the user pick the source may ignore it.
type Constraints struct {
	DisplayID string
	Width     int
	Height    int
	FrameRate int
	Audio     bool
}

// TrackKind identifies the media channel of a track
type TrackKind string

const (
	TrackKindVideo TrackKind = "video"
	TrackKindAudio TrackKind = "audio"
)

// Track is one media channel within a capture stream
type Track interface {
	ID() string
	Kind() TrackKind
	// Live reports whether the track is still producing media
	Live() bool
	Stop()
	// OnEnded registers a handler for spontaneous termination
	OnEnded(fn func()) (cancel func())
	// OnError registers a handler for runtime failures
	OnError(fn func(error)) (cancel func())
}

// Stream is a live capture resource
type Stream interface {
	ID() string
	Tracks() []Track
}

// Platform is the capability surface a MirrorSession consumes
type Platform interface {
	// EnumerateScreens returns ErrEnumerationUnsupported when the platform
	// cannot list its screens
	EnumerateScreens(ctx context.Context) ([]ScreenInfo, error)
	PrimaryScreenSize(ctx context.Context) Size
	ViewportSize(ctx context.Context) Size
	// RequestCapture may block until the user answers a permission prompt
	RequestCapture(ctx context.Context, c Constraints) (Stream, error)
}

// State is a snapshot of the session state
type State struct {
	Displays  []Display `json:"displays" yaml:"displays"`
	Selected  *Display  `json:"selected,omitempty" yaml:"selected,omitempty"`
	Mirroring bool      `json:"mirroring" yaml:"mirroring"`
	Error     string    `json:"error,omitempty" yaml:"error,omitempty"`
	Fault     Category  `json:"fault,omitempty" yaml:"fault,omitempty"`
	StreamID  string    `json:"streamId,omitempty" yaml:"streamId,omitempty"`
}

var (
	// ErrEnumerationUnsupported is returned by platforms without multi-screen enumeration
	ErrEnumerationUnsupported = errors.New("screen enumeration unsupported")
	// ErrUnknownDisplay is returned when selecting an id that was not detected
	ErrUnknownDisplay = errors.New("unknown display")
)

// VideoTrack returns the first live video track of a stream, or nil
func VideoTrack(s Stream) Track {
	if s == nil {
		return nil
	}
	for _, t := range s.Tracks() {
		if t != nil && t.Kind() == TrackKindVideo && t.Live() {
			return t
		}
	}
	return nil
}
