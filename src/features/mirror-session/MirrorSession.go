/**
 * Mirror session - display detection and capture stream lifecycle
 */

package mirrorsession

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ln64-git/deskmirror/src/utility"
)

// defaultScreenSize is used when the platform reports unusable screen geometry
var defaultScreenSize = Size{Width: 1920, Height: 1080}

// MirrorSession owns the detected displays, the selection and at most one
// active capture stream
type MirrorSession struct {
	platform Platform
	logger   *utility.Logger
	mu       sync.RWMutex

	displays  []Display
	selected  *Display
	mirroring bool
	errMsg    string
	fault     Category
	stream    Stream
	detach    []func()

	listeners    map[int]func(State)
	nextListener int
}

// NewMirrorSession creates an idle session bound to platform
func NewMirrorSession(platform Platform, logger *utility.Logger) *MirrorSession {
	if logger == nil {
		logger = utility.GetLogger()
	}
	return &MirrorSession{
		platform:  platform,
		logger:    logger,
		listeners: make(map[int]func(State)),
	}
}

// ==================== Display Registry ====================

// DetectDisplays replaces the display list and resets the selection. It
// never fails: unexpected errors install a single fallback display.
func (s *MirrorSession) DetectDisplays(ctx context.Context) {
	displays, err := s.detect(ctx)

	s.mu.Lock()
	s.displays = displays
	s.selected = defaultSelection(displays)
	if err != nil {
		s.logger.Error("Display detection error: %v", err)
		s.errMsg = MsgDetectionFailure
		s.fault = CategoryDetectionFailure
	} else {
		s.errMsg = ""
		s.fault = CategoryNone
		s.logger.Info("Detected displays: %s", formatDisplayList(displays))
	}
	snap, listeners := s.snapshotLocked()
	s.mu.Unlock()

	notify(listeners, snap)
}

// SelectDisplay selects a detected display by id
func (s *MirrorSession) SelectDisplay(id string) error {
	s.mu.Lock()
	var found *Display
	for i := range s.displays {
		if s.displays[i].ID == id {
			d := s.displays[i]
			found = &d
			break
		}
	}
	if found == nil {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownDisplay, id)
	}
	s.selected = found
	snap, listeners := s.snapshotLocked()
	s.mu.Unlock()

	s.logger.Info("Selected display: %s", found.ID)
	notify(listeners, snap)
	return nil
}

func (s *MirrorSession) detect(ctx context.Context) (displays []Display, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("detection panicked: %v", r)
		}
		if err != nil {
			screen := s.safeScreenSize(ctx)
			displays = []Display{{
				ID:        "fallback",
				Name:      "Display",
				IsPrimary: true,
				Width:     screen.Width,
				Height:    screen.Height,
			}}
		}
	}()

	displays = s.enumerate(ctx)
	if len(displays) > 0 {
		return displays, nil
	}
	return s.heuristicDisplays(ctx)
}

// enumerate runs multi-screen enumeration. Any failure or malformed record
// yields no displays.
func (s *MirrorSession) enumerate(ctx context.Context) (displays []Display) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("Screen enumeration failed: %v", r)
			displays = nil
		}
	}()

	screens, err := s.platform.EnumerateScreens(ctx)
	if err != nil {
		if errors.Is(err, ErrEnumerationUnsupported) {
			s.logger.Debug("Screen enumeration unavailable, using fallback detection")
		} else {
			s.logger.Warn("Screen enumeration failed: %v", err)
		}
		return nil
	}

	seen := make(map[string]bool, len(screens))
	primarySeen := false
	for _, screen := range screens {
		if screen.ID == "" || screen.Width <= 0 || screen.Height <= 0 || seen[screen.ID] {
			s.logger.Warn("Screen enumeration returned malformed record %+v, ignoring enumeration", screen)
			return nil
		}
		seen[screen.ID] = true

		name := screen.Name
		if name == "" {
			name = "Display " + screen.ID
		}
		primary := screen.IsPrimary && !primarySeen
		if primary {
			primarySeen = true
		}
		displays = append(displays, Display{
			ID:        screen.ID,
			Name:      name,
			IsPrimary: primary,
			Width:     screen.Width,
			Height:    screen.Height,
		})
	}
	return displays
}

// heuristicDisplays builds the main display from ambient geometry. A screen
// larger than the viewport is taken as a hint of a secondary output; this
// is approximate, a maximized window on one display can look the same.
func (s *MirrorSession) heuristicDisplays(ctx context.Context) ([]Display, error) {
	screen := s.platform.PrimaryScreenSize(ctx)
	if screen.Width <= 0 || screen.Height <= 0 {
		return nil, fmt.Errorf("invalid screen geometry %dx%d", screen.Width, screen.Height)
	}
	viewport := s.platform.ViewportSize(ctx)

	displays := []Display{{
		ID:        "main",
		Name:      "Main Display",
		IsPrimary: true,
		Width:     screen.Width,
		Height:    screen.Height,
	}}

	if screen.Width > viewport.Width || screen.Height > viewport.Height {
		s.logger.Debug("Screen %dx%d exceeds viewport %dx%d, assuming a secondary display (approximate)",
			screen.Width, screen.Height, viewport.Width, viewport.Height)
		displays = append(displays, Display{
			ID:        "secondary",
			Name:      "Secondary Display",
			IsPrimary: false,
			Width:     screen.Width,
			Height:    screen.Height,
		})
	}
	return displays, nil
}

func (s *MirrorSession) safeScreenSize(ctx context.Context) (size Size) {
	defer func() {
		if r := recover(); r != nil {
			size = defaultScreenSize
		}
	}()
	size = s.platform.PrimaryScreenSize(ctx)
	if size.Width <= 0 || size.Height <= 0 {
		return defaultScreenSize
	}
	return size
}

func defaultSelection(displays []Display) *Display {
	for _, d := range displays {
		if !d.IsPrimary {
			sel := d
			return &sel
		}
	}
	if len(displays) > 0 {
		sel := displays[0]
		return &sel
	}
	return nil
}

// ==================== Capture Lifecycle ====================

// StartMirroring requests a capture stream for the selected display and
// installs it. Failures are reported through State().Error; the session is
// always left consistent.
func (s *MirrorSession) StartMirroring(ctx context.Context) {
	s.mu.Lock()
	if s.selected == nil {
		s.errMsg = MsgNoDisplaySelected
		s.fault = CategoryNoDisplaySelected
		snap, listeners := s.snapshotLocked()
		s.mu.Unlock()
		s.logger.Warn("Start requested with no display selected")
		notify(listeners, snap)
		return
	}
	selected := *s.selected
	s.errMsg = ""
	s.fault = CategoryNone
	s.mu.Unlock()

	s.logger.Info("Starting mirroring for display: %s (%dx%d)", selected.ID, selected.Width, selected.Height)

	stream, err := s.request(ctx, Constraints{
		DisplayID: selected.ID,
		Width:     selected.Width,
		Height:    selected.Height,
		FrameRate: IdealFrameRate,
		Audio:     false,
	})

	var video Track
	if err == nil {
		video = VideoTrack(stream)
		if video == nil {
			stopTracks(stream)
			err = errNoVideoTrack
		}
	}

	if err != nil {
		s.fail(err)
		return
	}

	s.mu.Lock()
	if s.stream != nil {
		s.logger.Info("Replacing active stream %s with %s", s.stream.ID(), stream.ID())
		s.releaseLocked()
	}
	s.stream = stream
	s.detach = s.attachLocked(stream, video)
	s.mirroring = true
	s.errMsg = ""
	s.fault = CategoryNone

	// the track may have ended before the observers were attached
	if !video.Live() {
		s.logger.Warn("Video track %s ended before mirroring started", video.ID())
		s.releaseLocked()
	}
	snap, listeners := s.snapshotLocked()
	s.mu.Unlock()

	if snap.Mirroring {
		s.logger.Info("Mirroring started on stream %s", snap.StreamID)
	}
	notify(listeners, snap)
}

// StopMirroring releases the active stream, if any, and clears mirroring
// and error state. Safe to call at any time.
func (s *MirrorSession) StopMirroring() {
	s.mu.Lock()
	if s.stream != nil {
		s.logger.Info("Stopping mirroring on stream %s", s.stream.ID())
	}
	s.releaseLocked()
	s.errMsg = ""
	s.fault = CategoryNone
	snap, listeners := s.snapshotLocked()
	s.mu.Unlock()

	notify(listeners, snap)
}

// Close tears the session down. It stops mirroring unconditionally.
func (s *MirrorSession) Close() {
	s.StopMirroring()

	s.mu.Lock()
	s.listeners = make(map[int]func(State))
	s.mu.Unlock()
}

func (s *MirrorSession) request(ctx context.Context, c Constraints) (stream Stream, err error) {
	defer func() {
		if r := recover(); r != nil {
			stream = nil
			err = fmt.Errorf("capture request panicked: %v", r)
		}
	}()

	stream, err = s.platform.RequestCapture(ctx, c)
	if err == nil && stream == nil {
		err = errNoVideoTrack
	}
	return stream, err
}

// attachLocked wires the termination and error observers of the video track
func (s *MirrorSession) attachLocked(stream Stream, video Track) []func() {
	streamID := stream.ID()

	cancelEnded := video.OnEnded(func() {
		s.logger.Warn("Video track %s ended", video.ID())
		s.handleTermination(streamID, nil)
	})
	cancelError := video.OnError(func(err error) {
		s.logger.Error("Video track %s error: %v", video.ID(), err)
		s.handleTermination(streamID, err)
	})

	return []func(){cancelEnded, cancelError}
}

// handleTermination routes track end and track errors through the stop
// path. Events from a stream that is no longer active are dropped.
func (s *MirrorSession) handleTermination(streamID string, trackErr error) {
	s.mu.Lock()
	if s.stream == nil || s.stream.ID() != streamID {
		s.mu.Unlock()
		return
	}
	s.releaseLocked()
	s.errMsg = ""
	s.fault = CategoryNone
	if trackErr != nil {
		s.errMsg = MsgTrackRuntimeError
		s.fault = CategoryTrackRuntimeError
	}
	snap, listeners := s.snapshotLocked()
	s.mu.Unlock()

	notify(listeners, snap)
}

// fail forces the session idle and records the classified failure
func (s *MirrorSession) fail(err error) {
	category, msg := Classify(err)
	s.logger.Error("Error in startMirroring: %v", err)

	s.mu.Lock()
	s.releaseLocked()
	s.errMsg = msg
	s.fault = category
	snap, listeners := s.snapshotLocked()
	s.mu.Unlock()

	notify(listeners, snap)
}

// releaseLocked detaches observers and stops every track of the active stream
func (s *MirrorSession) releaseLocked() {
	for _, cancel := range s.detach {
		cancel()
	}
	s.detach = nil
	if s.stream != nil {
		stopTracks(s.stream)
	}
	s.stream = nil
	s.mirroring = false
}

func stopTracks(stream Stream) {
	if stream == nil {
		return
	}
	for _, t := range stream.Tracks() {
		if t != nil {
			t.Stop()
		}
	}
}

// ==================== State ====================

// Subscribe registers fn to receive a snapshot after every state change
func (s *MirrorSession) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// State returns a snapshot of the session
func (s *MirrorSession) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot()
}

// Displays returns the detected displays in detection order
func (s *MirrorSession) Displays() []Display {
	return s.State().Displays
}

// Selected returns the selected display, or nil
func (s *MirrorSession) Selected() *Display {
	return s.State().Selected
}

// IsMirroring reports whether a validated stream is active
func (s *MirrorSession) IsMirroring() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mirroring
}

// Error returns the most recent failure message, empty when none
func (s *MirrorSession) Error() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errMsg
}

func (s *MirrorSession) snapshot() State {
	st := State{
		Displays:  append([]Display(nil), s.displays...),
		Mirroring: s.mirroring,
		Error:     s.errMsg,
		Fault:     s.fault,
	}
	if s.selected != nil {
		sel := *s.selected
		st.Selected = &sel
	}
	if s.stream != nil {
		st.StreamID = s.stream.ID()
	}
	return st
}

func (s *MirrorSession) snapshotLocked() (State, []func(State)) {
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	listeners := make([]func(State), 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, s.listeners[id])
	}
	return s.snapshot(), listeners
}

func notify(listeners []func(State), st State) {
	for _, fn := range listeners {
		fn(st)
	}
}
