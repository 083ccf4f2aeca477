package desktopmonitor

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	mirrorsession "github.com/ln64-git/deskmirror/src/features/mirror-session"
	"github.com/ln64-git/deskmirror/src/utility"
)

// captureStream is a stream backed by capture processes
type captureStream struct {
	id     string
	tracks []mirrorsession.Track
}

func newCaptureStream(tracks ...mirrorsession.Track) *captureStream {
	return &captureStream{
		id:     uuid.NewString(),
		tracks: tracks,
	}
}

func (s *captureStream) ID() string {
	return s.id
}

func (s *captureStream) Tracks() []mirrorsession.Track {
	return append([]mirrorsession.Track(nil), s.tracks...)
}

// processTrack is a video track whose lifetime is one capture process.
// A clean exit or a kill ends the track; any other non-zero exit is an error.
type processTrack struct {
	id        string
	output    string
	proc      *utility.Process
	stopGrace time.Duration
	logger    *utility.Logger
	signals   mirrorsession.TrackSignals
}

func newProcessTrack(proc *utility.Process, output string, stopGrace time.Duration, logger *utility.Logger) *processTrack {
	t := &processTrack{
		id:        uuid.NewString(),
		output:    output,
		proc:      proc,
		stopGrace: stopGrace,
		logger:    logger,
	}
	go t.watch()
	return t
}

func (t *processTrack) watch() {
	<-t.proc.Done()

	if t.proc.Stopped() {
		return
	}

	code := t.proc.ExitCode()
	if code == 0 || t.proc.Killed() {
		t.logger.Info("Capture of %s finished (pid %d, exit %d)", t.output, t.proc.Pid(), code)
		t.signals.End()
		return
	}

	err := fmt.Errorf("capture of %s exited with code %d", t.output, code)
	if stderr := t.proc.Stderr(); stderr != "" {
		err = fmt.Errorf("%w: %s", err, stderr)
	}
	t.signals.Fail(err)
}

func (t *processTrack) ID() string {
	return t.id
}

func (t *processTrack) Kind() mirrorsession.TrackKind {
	return mirrorsession.TrackKindVideo
}

func (t *processTrack) Live() bool {
	if t.signals.Done() {
		return false
	}
	select {
	case <-t.proc.Done():
		return false
	default:
		return true
	}
}

// Stop interrupts the capture; handlers are not notified of a local stop
func (t *processTrack) Stop() {
	t.signals.Close()
	t.proc.Stop(t.stopGrace)
}

func (t *processTrack) OnEnded(fn func()) func() {
	return t.signals.OnEnded(fn)
}

func (t *processTrack) OnError(fn func(error)) func() {
	return t.signals.OnError(fn)
}
