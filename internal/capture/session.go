package capture

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/nabeeladzan/lxfu/internal/detect"
)

const (
	// maxConsecutiveFailures triggers a source reopen.
	maxConsecutiveFailures = 5

	maxReopenAttempts = 3
	reopenSettle      = 200 * time.Millisecond

	// warmupDiscardFrames is the warmup fallback when no delay is configured.
	warmupDiscardFrames = 3
)

// FaceFinder locates the best face in a frame.
type FaceFinder interface {
	Best(img image.Image) (detect.Region, bool)
}

// Session accumulates face crops from a frame source over a capture window.
type Session struct {
	Source string // device or file path, for logging
	Open   Opener
	Faces  FaceFinder // nil keeps whole frames
	Logger *slog.Logger
}

// Options control one capture window.
type Options struct {
	Warmup          time.Duration
	CaptureDuration time.Duration
	FrameInterval   time.Duration

	// FullFrame skips detection and keeps every frame whole.
	FullFrame bool

	// FallbackFullFrame keeps the last raw frame when the window produced
	// no face crops, so matching can still be attempted.
	FallbackFullFrame bool
}

// Result is the outcome of one capture window.
type Result struct {
	Faces           []image.Image
	TotalFrames     int
	FramesWithFaces int
	Cancelled       bool
}

// Accumulate opens the source and collects face crops until the capture
// window closes or the context is cancelled. The window closes only after
// at least one frame succeeded, so a non-positive duration yields exactly
// one successful frame. Read failures are tolerated up to a budget, after
// which the source is reopened; a source that cannot be reopened fails the
// capture.
func (s *Session) Accumulate(ctx context.Context, opts Options) (*Result, error) {
	src, err := s.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", s.Source, err)
	}
	defer func() {
		if src != nil {
			src.Close()
		}
	}()

	if !s.warmup(ctx, src, opts.Warmup) {
		return &Result{Cancelled: true}, nil
	}

	res := &Result{}
	var lastFrame image.Image
	failures := 0
	deadline := time.Now().Add(opts.CaptureDuration)

	for {
		if ctx.Err() != nil {
			res.Cancelled = true
			break
		}

		frame, err := src.ReadFrame()
		if err != nil {
			failures++
			s.logger().Warn("frame read failed", "source", s.Source, "err", err)
			if failures >= maxConsecutiveFailures {
				src.Close()
				src = nil
				src, err = s.reopen()
				if err != nil {
					return nil, err
				}
				failures = 0
			}
			if !sleepCtx(ctx, opts.FrameInterval) {
				res.Cancelled = true
				break
			}
			continue
		}
		failures = 0
		res.TotalFrames++
		lastFrame = frame

		if opts.FullFrame || s.Faces == nil {
			res.Faces = append(res.Faces, frame)
		} else if region, ok := s.Faces.Best(frame); ok {
			res.Faces = append(res.Faces, detect.Crop(frame, region))
			res.FramesWithFaces++
		}

		// The window closes only once at least one frame has succeeded.
		if !time.Now().Before(deadline) {
			break
		}
		if !sleepCtx(ctx, opts.FrameInterval) {
			res.Cancelled = true
			break
		}
	}

	if len(res.Faces) == 0 && opts.FallbackFullFrame && lastFrame != nil {
		s.logger().Info("no face found in capture window, keeping last raw frame", "source", s.Source)
		res.Faces = append(res.Faces, lastFrame)
	}
	return res, nil
}

// RetryUntilFace repeats capture windows until at least one crop is
// collected or the context is cancelled.
func (s *Session) RetryUntilFace(ctx context.Context, opts Options) (*Result, error) {
	for {
		res, err := s.Accumulate(ctx, opts)
		if err != nil {
			return nil, err
		}
		if res.Cancelled || len(res.Faces) > 0 {
			return res, nil
		}
		s.logger().Info("no face detected, retrying", "source", s.Source)
	}
}

// warmup reads and discards frames while the sensor settles, so the capture
// loop never starts on stale pre-warmup exposures. With no configured delay
// a few frames are discarded instead. Reports false on cancellation.
func (s *Session) warmup(ctx context.Context, src Source, delay time.Duration) bool {
	if delay > 0 {
		deadline := time.Now().Add(delay)
		for time.Now().Before(deadline) {
			if ctx.Err() != nil {
				return false
			}
			src.ReadFrame()
		}
		return true
	}
	for i := 0; i < warmupDiscardFrames; i++ {
		if ctx.Err() != nil {
			return false
		}
		if _, err := src.ReadFrame(); err != nil {
			return true
		}
	}
	return true
}

func (s *Session) reopen() (Source, error) {
	var lastErr error
	for attempt := 1; attempt <= maxReopenAttempts; attempt++ {
		time.Sleep(reopenSettle)
		src, err := s.Open()
		if err == nil {
			s.logger().Info("reopened capture source", "source", s.Source, "attempt", attempt)
			return src, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("failed to reopen %s: %w", s.Source, lastErr)
}

func (s *Session) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// sleepCtx sleeps for d unless the context is cancelled first. Reports
// whether the full sleep completed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
