// Package verify drives verification runs over a claimed capture device.
//
// A session moves through idle, claimed and verifying states. A run captures
// face crops, embeds them and scores them against stored profiles, then
// notifies its outcome and drops the session back to claimed.
package verify

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/nabeeladzan/lxfu/internal/capture"
	"github.com/nabeeladzan/lxfu/internal/match"
)

var (
	ErrBusy           = errors.New("device already claimed")
	ErrNotClaimed     = errors.New("device not claimed")
	ErrAlreadyRunning = errors.New("verification already in progress")
)

// FaceCapturer collects face crops for one verification run.
type FaceCapturer interface {
	Capture(ctx context.Context) (*capture.Result, error)
}

// Extractor computes an embedding for one face crop.
type Extractor interface {
	Extract(img image.Image) ([]float32, error)
}

// ProfileSource loads all enrolled profiles.
type ProfileSource interface {
	GetAll() (map[string][][]float32, error)
}

// Notifier receives run status updates.
type Notifier interface {
	VerificationStatus(runID string, status Status, detail string)
}

// Session serializes verification runs on a single capture device.
type Session struct {
	Capturer  FaceCapturer
	Extractor Extractor
	Profiles  ProfileSource
	Notifier  Notifier
	Threshold float64
	Logger    *slog.Logger

	mu         sync.Mutex
	state      State
	owner      string
	runID      string
	cancel     context.CancelFunc
	done       chan struct{}
	lastStatus Status
	lastDetail string
}

// Claim takes exclusive ownership of the device.
func (s *Session) Claim(owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		return ErrBusy
	}
	s.state = StateClaimed
	s.owner = owner
	return nil
}

// Release stops any running verification and returns the device to idle.
// Releasing an unclaimed device is a no-op.
func (s *Session) Release() {
	s.VerifyStop()

	s.mu.Lock()
	s.state = StateIdle
	s.owner = ""
	s.mu.Unlock()
}

// VerifyStart launches a verification run against the named profile, or
// against all profiles when allowAll is set. The device must be claimed and
// not already verifying. The run proceeds in the background and reports
// through the notifier.
func (s *Session) VerifyStart(ctx context.Context, target string, allowAll bool) (string, error) {
	s.mu.Lock()
	switch s.state {
	case StateIdle:
		s.mu.Unlock()
		return "", ErrNotClaimed
	case StateVerifying:
		s.mu.Unlock()
		return "", ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	runID := uuid.NewString()
	done := make(chan struct{})
	s.state = StateVerifying
	s.runID = runID
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	s.notify(runID, StatusStarted, "")
	go s.run(runCtx, runID, target, allowAll, done)
	return runID, nil
}

// VerifyStop cancels the running verification and waits for its terminal
// status. A no-op when nothing is running.
func (s *Session) VerifyStop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// State returns the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Owner returns the current claim owner, if any.
func (s *Session) Owner() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.owner
}

// RunID returns the identifier of the running verification, if any.
func (s *Session) RunID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runID
}

// LastStatus returns the most recent run notification.
func (s *Session) LastStatus() (Status, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastStatus, s.lastDetail
}

func (s *Session) run(ctx context.Context, runID, target string, allowAll bool, done chan struct{}) {
	emitted := false
	emit := func(st Status, detail string) {
		if emitted {
			return
		}
		emitted = true
		s.logger().Info("verification finished", "run_id", runID, "status", string(st), "detail", detail)
		s.notify(runID, st, detail)
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger().Error("verification run panicked", "run_id", runID, "panic", r)
			emit(StatusError, fmt.Sprintf("%v", r))
		}
		s.mu.Lock()
		if s.state == StateVerifying {
			s.state = StateClaimed
		}
		s.runID = ""
		s.cancel = nil
		s.done = nil
		s.mu.Unlock()
		close(done)
	}()

	res, err := s.Capturer.Capture(ctx)
	if err != nil {
		emit(StatusError, err.Error())
		return
	}
	if res.Cancelled || ctx.Err() != nil {
		emit(StatusCancelled, "")
		return
	}
	if len(res.Faces) == 0 {
		emit(StatusNoFace, "")
		return
	}

	var queries [][]float32
	for _, face := range res.Faces {
		if ctx.Err() != nil {
			emit(StatusCancelled, "")
			return
		}
		vec, err := s.Extractor.Extract(face)
		if err != nil {
			s.logger().Warn("embedding extraction failed", "run_id", runID, "err", err)
			continue
		}
		queries = append(queries, vec)
	}
	if len(queries) == 0 {
		emit(StatusError, "no embeddings extracted")
		return
	}

	profiles, err := s.Profiles.GetAll()
	if err != nil {
		emit(StatusError, err.Error())
		return
	}

	best := match.BestMatch(queries, profiles, target, allowAll)
	if best == nil {
		emit(StatusNoMatch, "no-enrollment")
		return
	}

	detail := fmt.Sprintf("%s:%.4f", best.Name, best.AvgSimilarity)
	if best.AvgSimilarity >= s.Threshold {
		emit(StatusMatch, detail)
	} else {
		emit(StatusNoMatch, detail)
	}
}

func (s *Session) notify(runID string, st Status, detail string) {
	s.mu.Lock()
	s.lastStatus = st
	s.lastDetail = detail
	s.mu.Unlock()
	if s.Notifier == nil {
		return
	}
	s.Notifier.VerificationStatus(runID, st, detail)
}

func (s *Session) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
