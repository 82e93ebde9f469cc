package capture

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
)

// FileSource serves a single decoded image file as an endless frame stream.
// Useful for enrolling from a photo and for exercising the pipeline without
// a camera.
type FileSource struct {
	frame image.Image
}

// OpenFile decodes a JPEG or PNG image from disk.
func OpenFile(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	return &FileSource{frame: img}, nil
}

func (s *FileSource) ReadFrame() (image.Image, error) {
	return s.frame, nil
}

func (s *FileSource) Close() error {
	return nil
}
