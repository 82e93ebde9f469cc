package verify

import (
	"context"
	"errors"
	"image"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nabeeladzan/lxfu/internal/capture"
)

type fakeCapturer struct {
	result *capture.Result
	err    error

	// block makes Capture wait for cancellation and report it.
	block bool
}

func (f *fakeCapturer) Capture(ctx context.Context) (*capture.Result, error) {
	if f.block {
		<-ctx.Done()
		return &capture.Result{Cancelled: true}, nil
	}
	return f.result, f.err
}

type panicCapturer struct{}

func (panicCapturer) Capture(ctx context.Context) (*capture.Result, error) {
	panic("camera exploded")
}

type fakeExtractor struct {
	vec []float32
	err error
}

func (f *fakeExtractor) Extract(img image.Image) ([]float32, error) {
	return f.vec, f.err
}

type fakeProfiles struct {
	profiles map[string][][]float32
	err      error
}

func (f *fakeProfiles) GetAll() (map[string][][]float32, error) {
	return f.profiles, f.err
}

type statusEvent struct {
	runID  string
	status Status
	detail string
}

type recorder struct {
	mu       sync.Mutex
	events   []statusEvent
	terminal chan statusEvent
}

func newRecorder() *recorder {
	return &recorder{terminal: make(chan statusEvent, 10)}
}

func (r *recorder) VerificationStatus(runID string, status Status, detail string) {
	ev := statusEvent{runID: runID, status: status, detail: detail}
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	if status != StatusStarted {
		r.terminal <- ev
	}
}

func (r *recorder) waitTerminal(t *testing.T) statusEvent {
	t.Helper()
	select {
	case ev := <-r.terminal:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a terminal status")
		return statusEvent{}
	}
}

func (r *recorder) terminalCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.status != StatusStarted {
			n++
		}
	}
	return n
}

func crops(n int) []image.Image {
	faces := make([]image.Image, n)
	for i := range faces {
		faces[i] = image.NewRGBA(image.Rect(0, 0, 8, 8))
	}
	return faces
}

func testSession(cap FaceCapturer, rec *recorder) *Session {
	return &Session{
		Capturer:  cap,
		Extractor: &fakeExtractor{vec: []float32{1, 0, 0}},
		Profiles: &fakeProfiles{profiles: map[string][][]float32{
			"alice": {{1, 0, 0}},
			"bob":   {{0, 1, 0}},
		}},
		Notifier:  rec,
		Threshold: 0.90,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestClaimRejectsSecondOwner(t *testing.T) {
	s := testSession(&fakeCapturer{}, newRecorder())

	if err := s.Claim(":1.10"); err != nil {
		t.Fatalf("Claim() failed: %v", err)
	}
	if err := s.Claim(":1.11"); !errors.Is(err, ErrBusy) {
		t.Errorf("second Claim() error = %v, want ErrBusy", err)
	}
	if s.Owner() != ":1.10" {
		t.Errorf("Owner() = %q, want original owner", s.Owner())
	}

	s.Release()
	if s.State() != StateIdle {
		t.Errorf("State() after Release = %v, want idle", s.State())
	}
	if err := s.Claim(":1.11"); err != nil {
		t.Errorf("Claim() after Release failed: %v", err)
	}
}

func TestVerifyStartRequiresClaim(t *testing.T) {
	s := testSession(&fakeCapturer{}, newRecorder())

	if _, err := s.VerifyStart(context.Background(), "alice", false); !errors.Is(err, ErrNotClaimed) {
		t.Errorf("VerifyStart() error = %v, want ErrNotClaimed", err)
	}
}

func TestVerifyStartRejectsConcurrentRun(t *testing.T) {
	rec := newRecorder()
	s := testSession(&fakeCapturer{block: true}, rec)

	if err := s.Claim("pam"); err != nil {
		t.Fatalf("Claim() failed: %v", err)
	}
	if _, err := s.VerifyStart(context.Background(), "alice", false); err != nil {
		t.Fatalf("VerifyStart() failed: %v", err)
	}
	if _, err := s.VerifyStart(context.Background(), "alice", false); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second VerifyStart() error = %v, want ErrAlreadyRunning", err)
	}

	s.VerifyStop()
	if ev := rec.waitTerminal(t); ev.status != StatusCancelled {
		t.Errorf("terminal status = %v, want cancelled", ev.status)
	}
}

func TestVerifyMatch(t *testing.T) {
	rec := newRecorder()
	s := testSession(&fakeCapturer{result: &capture.Result{Faces: crops(2), TotalFrames: 2, FramesWithFaces: 2}}, rec)

	if err := s.Claim("pam"); err != nil {
		t.Fatalf("Claim() failed: %v", err)
	}
	runID, err := s.VerifyStart(context.Background(), "alice", false)
	if err != nil {
		t.Fatalf("VerifyStart() failed: %v", err)
	}

	ev := rec.waitTerminal(t)
	if ev.status != StatusMatch {
		t.Fatalf("terminal status = %v (%s), want match", ev.status, ev.detail)
	}
	if ev.runID != runID {
		t.Errorf("terminal run ID = %q, want %q", ev.runID, runID)
	}
	if ev.detail != "alice:1.0000" {
		t.Errorf("detail = %q, want alice:1.0000", ev.detail)
	}

	s.VerifyStop()
	if s.State() != StateClaimed {
		t.Errorf("State() after run = %v, want claimed", s.State())
	}
	if n := rec.terminalCount(); n != 1 {
		t.Errorf("got %d terminal statuses, want 1", n)
	}
}

func TestVerifyNoMatchBelowThreshold(t *testing.T) {
	rec := newRecorder()
	s := testSession(&fakeCapturer{result: &capture.Result{Faces: crops(1)}}, rec)
	// The query is orthogonal to bob, remapped similarity 0.5.
	s.Profiles = &fakeProfiles{profiles: map[string][][]float32{"bob": {{0, 1, 0}}}}

	if err := s.Claim("pam"); err != nil {
		t.Fatalf("Claim() failed: %v", err)
	}
	if _, err := s.VerifyStart(context.Background(), "bob", false); err != nil {
		t.Fatalf("VerifyStart() failed: %v", err)
	}

	ev := rec.waitTerminal(t)
	if ev.status != StatusNoMatch {
		t.Fatalf("terminal status = %v, want no-match", ev.status)
	}
	if !strings.HasPrefix(ev.detail, "bob:") {
		t.Errorf("detail = %q, want a bob similarity", ev.detail)
	}
}

func TestVerifyNoEnrollment(t *testing.T) {
	rec := newRecorder()
	s := testSession(&fakeCapturer{result: &capture.Result{Faces: crops(1)}}, rec)
	s.Profiles = &fakeProfiles{profiles: map[string][][]float32{}}

	if err := s.Claim("pam"); err != nil {
		t.Fatalf("Claim() failed: %v", err)
	}
	if _, err := s.VerifyStart(context.Background(), "", true); err != nil {
		t.Fatalf("VerifyStart() failed: %v", err)
	}

	ev := rec.waitTerminal(t)
	if ev.status != StatusNoMatch {
		t.Fatalf("terminal status = %v, want no-match", ev.status)
	}
	if ev.detail != "no-enrollment" {
		t.Errorf("detail = %q, want no-enrollment", ev.detail)
	}
}

func TestVerifyNoFace(t *testing.T) {
	rec := newRecorder()
	s := testSession(&fakeCapturer{result: &capture.Result{TotalFrames: 12}}, rec)

	if err := s.Claim("pam"); err != nil {
		t.Fatalf("Claim() failed: %v", err)
	}
	if _, err := s.VerifyStart(context.Background(), "alice", false); err != nil {
		t.Fatalf("VerifyStart() failed: %v", err)
	}

	if ev := rec.waitTerminal(t); ev.status != StatusNoFace {
		t.Errorf("terminal status = %v, want no-face", ev.status)
	}
}

func TestVerifyProfileLoadError(t *testing.T) {
	rec := newRecorder()
	s := testSession(&fakeCapturer{result: &capture.Result{Faces: crops(1)}}, rec)
	s.Profiles = &fakeProfiles{err: errors.New("store unavailable")}

	if err := s.Claim("pam"); err != nil {
		t.Fatalf("Claim() failed: %v", err)
	}
	if _, err := s.VerifyStart(context.Background(), "", true); err != nil {
		t.Fatalf("VerifyStart() failed: %v", err)
	}

	ev := rec.waitTerminal(t)
	if ev.status != StatusError {
		t.Fatalf("terminal status = %v, want error", ev.status)
	}
	if !strings.Contains(ev.detail, "store unavailable") {
		t.Errorf("detail = %q, want the store error", ev.detail)
	}
}

func TestVerifyStopEmitsCancelled(t *testing.T) {
	rec := newRecorder()
	s := testSession(&fakeCapturer{block: true}, rec)

	if err := s.Claim("pam"); err != nil {
		t.Fatalf("Claim() failed: %v", err)
	}
	if _, err := s.VerifyStart(context.Background(), "alice", false); err != nil {
		t.Fatalf("VerifyStart() failed: %v", err)
	}

	s.VerifyStop()
	if ev := rec.waitTerminal(t); ev.status != StatusCancelled {
		t.Errorf("terminal status = %v, want cancelled", ev.status)
	}
	if s.State() != StateClaimed {
		t.Errorf("State() after stop = %v, want claimed", s.State())
	}

	// The session is reusable after a stop.
	s.Capturer = &fakeCapturer{result: &capture.Result{Faces: crops(1)}}
	if _, err := s.VerifyStart(context.Background(), "alice", false); err != nil {
		t.Fatalf("VerifyStart() after stop failed: %v", err)
	}
	if ev := rec.waitTerminal(t); ev.status != StatusMatch {
		t.Errorf("terminal status = %v, want match", ev.status)
	}
}

func TestVerifyPanicRecovers(t *testing.T) {
	rec := newRecorder()
	s := testSession(panicCapturer{}, rec)

	if err := s.Claim("pam"); err != nil {
		t.Fatalf("Claim() failed: %v", err)
	}
	if _, err := s.VerifyStart(context.Background(), "alice", false); err != nil {
		t.Fatalf("VerifyStart() failed: %v", err)
	}

	ev := rec.waitTerminal(t)
	if ev.status != StatusError {
		t.Fatalf("terminal status = %v, want error", ev.status)
	}
	if !strings.Contains(ev.detail, "camera exploded") {
		t.Errorf("detail = %q, want the panic value", ev.detail)
	}

	s.VerifyStop()
	if s.State() != StateClaimed {
		t.Errorf("State() after panic = %v, want claimed", s.State())
	}
	if _, err := s.VerifyStart(context.Background(), "alice", false); err != nil {
		t.Errorf("VerifyStart() after panic failed: %v", err)
	}
	rec.waitTerminal(t)
}

func TestReleaseStopsRunningVerification(t *testing.T) {
	rec := newRecorder()
	s := testSession(&fakeCapturer{block: true}, rec)

	if err := s.Claim("pam"); err != nil {
		t.Fatalf("Claim() failed: %v", err)
	}
	if _, err := s.VerifyStart(context.Background(), "alice", false); err != nil {
		t.Fatalf("VerifyStart() failed: %v", err)
	}

	s.Release()
	if ev := rec.waitTerminal(t); ev.status != StatusCancelled {
		t.Errorf("terminal status = %v, want cancelled", ev.status)
	}
	if s.State() != StateIdle {
		t.Errorf("State() after Release = %v, want idle", s.State())
	}
}
