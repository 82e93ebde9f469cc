package service

import (
	"context"

	"github.com/nabeeladzan/lxfu/internal/capture"
)

// verifyCapturer runs one capture window per verification with fixed
// options.
type verifyCapturer struct {
	session *capture.Session
	opts    capture.Options
}

func (c *verifyCapturer) Capture(ctx context.Context) (*capture.Result, error) {
	return c.session.Accumulate(ctx, c.opts)
}
