package mirrorsession

import (
	"context"
	"fmt"
	"sync"

	"github.com/ln64-git/deskmirror/src/utility"
)

func testLogger() *utility.Logger {
	return utility.NewLogger("silent", utility.DEBUG)
}

// eventLog records the order of track stops and published states
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, fmt.Sprintf(format, args...))
}

func (l *eventLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

type fakeTrack struct {
	id      string
	kind    TrackKind
	log     *eventLog
	mu      sync.Mutex
	live    bool
	stopped bool
	signals TrackSignals
}

func newFakeTrack(id string, kind TrackKind, log *eventLog) *fakeTrack {
	return &fakeTrack{id: id, kind: kind, log: log, live: true}
}

func (t *fakeTrack) ID() string {
	return t.id
}

func (t *fakeTrack) Kind() TrackKind {
	return t.kind
}

func (t *fakeTrack) Live() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.live && !t.stopped
}

func (t *fakeTrack) Stop() {
	t.mu.Lock()
	t.stopped = true
	t.live = false
	t.mu.Unlock()
	if t.log != nil {
		t.log.add("stop:%s", t.id)
	}
}

func (t *fakeTrack) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

func (t *fakeTrack) OnEnded(fn func()) func() {
	return t.signals.OnEnded(fn)
}

func (t *fakeTrack) OnError(fn func(error)) func() {
	return t.signals.OnError(fn)
}

// end simulates the user stopping the share from the platform UI
func (t *fakeTrack) end() {
	t.mu.Lock()
	t.live = false
	t.mu.Unlock()
	t.signals.End()
}

func (t *fakeTrack) fail(err error) {
	t.signals.Fail(err)
}

type fakeStream struct {
	id     string
	tracks []Track
}

func (s *fakeStream) ID() string {
	return s.id
}

func (s *fakeStream) Tracks() []Track {
	return s.tracks
}

func newVideoStream(id string, log *eventLog) (*fakeStream, *fakeTrack) {
	video := newFakeTrack(id+"-video", TrackKindVideo, log)
	return &fakeStream{id: id, tracks: []Track{video}}, video
}

type fakePlatform struct {
	mu sync.Mutex

	screens     []ScreenInfo
	enumErr     error
	enumPanic   bool
	screen      Size
	viewport    Size
	screenPanic bool

	streams    []Stream
	captureErr error
	requests   []Constraints
}

func (p *fakePlatform) EnumerateScreens(ctx context.Context) ([]ScreenInfo, error) {
	if p.enumPanic {
		panic("enumeration exploded")
	}
	if p.enumErr != nil {
		return nil, p.enumErr
	}
	return p.screens, nil
}

func (p *fakePlatform) PrimaryScreenSize(ctx context.Context) Size {
	if p.screenPanic {
		panic("no screen")
	}
	return p.screen
}

func (p *fakePlatform) ViewportSize(ctx context.Context) Size {
	return p.viewport
}

func (p *fakePlatform) RequestCapture(ctx context.Context, c Constraints) (Stream, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.requests = append(p.requests, c)
	if p.captureErr != nil {
		return nil, p.captureErr
	}
	if len(p.streams) == 0 {
		return nil, fmt.Errorf("no stream queued")
	}
	s := p.streams[0]
	p.streams = p.streams[1:]
	return s, nil
}

func (p *fakePlatform) queue(streams ...Stream) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.streams = append(p.streams, streams...)
}

func (p *fakePlatform) fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.captureErr = err
}

func (p *fakePlatform) requestCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

func twoScreenPlatform() *fakePlatform {
	return &fakePlatform{
		screens: []ScreenInfo{
			{ID: "DP-1", IsPrimary: true, Width: 2560, Height: 1440},
			{ID: "HDMI-A-1", IsPrimary: false, Width: 1920, Height: 1080},
		},
		screen:   Size{Width: 2560, Height: 1440},
		viewport: Size{Width: 2560, Height: 1440},
	}
}
