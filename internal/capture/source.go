// Package capture reads frames from a camera or image file and
// accumulates face crops over a capture window.
package capture

import "image"

// Source yields frames one at a time. Implementations are not required to
// be safe for concurrent use.
type Source interface {
	ReadFrame() (image.Image, error)
	Close() error
}

// Opener creates a fresh Source. The session calls it again after a source
// goes bad mid-capture.
type Opener func() (Source, error)
