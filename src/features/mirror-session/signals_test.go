package mirrorsession

import (
	"errors"
	"testing"
)

func TestTrackSignalsEndFiresOnce(t *testing.T) {
	var s TrackSignals
	calls := 0
	s.OnEnded(func() { calls++ })

	if !s.End() {
		t.Fatal("first End reported no transition")
	}
	if s.End() {
		t.Error("second End reported a transition")
	}
	if calls != 1 {
		t.Errorf("ended handler called %d times, want 1", calls)
	}
	if !s.Done() {
		t.Error("Done = false after End")
	}
}

func TestTrackSignalsCancel(t *testing.T) {
	var s TrackSignals
	ended, failed := 0, 0
	cancelEnded := s.OnEnded(func() { ended++ })
	cancelError := s.OnError(func(error) { failed++ })

	cancelEnded()
	cancelError()
	if n := s.Subscribers(); n != 0 {
		t.Fatalf("Subscribers = %d after cancel, want 0", n)
	}

	s.Fail(errors.New("boom"))
	if ended != 0 || failed != 0 {
		t.Errorf("cancelled handlers ran: ended=%d failed=%d", ended, failed)
	}
}

func TestTrackSignalsFailThenEnd(t *testing.T) {
	var s TrackSignals
	var got error
	ended := false
	s.OnError(func(err error) { got = err })
	s.OnEnded(func() { ended = true })

	want := errors.New("decoder lost")
	s.Fail(want)
	s.End()

	if got != want {
		t.Errorf("error handler got %v, want %v", got, want)
	}
	if ended {
		t.Error("ended handler ran after failure")
	}
}

func TestTrackSignalsClose(t *testing.T) {
	var s TrackSignals
	ended := false
	s.OnEnded(func() { ended = true })

	s.Close()
	if s.End() {
		t.Error("End after Close reported a transition")
	}
	if ended {
		t.Error("ended handler ran after Close")
	}
}
