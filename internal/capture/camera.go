package capture

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"

	"github.com/blackjack/webcam"
)

// V4L2 fourcc codes.
const (
	pixFmtMJPEG = webcam.PixelFormat(0x47504A4D) // 'MJPG'
	pixFmtYUYV  = webcam.PixelFormat(0x56595559) // 'YUYV'
)

const (
	requestWidth  = 640
	requestHeight = 480

	// frameTimeout bounds a single WaitForFrame call, in seconds.
	frameTimeout = 5
)

// Camera is a V4L2 capture source. MJPEG is preferred, YUYV is the
// fallback; other formats are rejected.
type Camera struct {
	cam    *webcam.Webcam
	format webcam.PixelFormat
	width  int
	height int
}

// OpenCamera opens the device and starts streaming. The driver may adjust
// the requested frame size.
func OpenCamera(device string) (*Camera, error) {
	cam, err := webcam.Open(device)
	if err != nil {
		return nil, fmt.Errorf("failed to open camera %s: %w", device, err)
	}

	var format webcam.PixelFormat
	supported := cam.GetSupportedFormats()
	switch {
	case supported[pixFmtMJPEG] != "":
		format = pixFmtMJPEG
	case supported[pixFmtYUYV] != "":
		format = pixFmtYUYV
	default:
		cam.Close()
		return nil, fmt.Errorf("camera %s supports neither MJPEG nor YUYV", device)
	}

	f, w, h, err := cam.SetImageFormat(format, requestWidth, requestHeight)
	if err != nil {
		cam.Close()
		return nil, fmt.Errorf("failed to set image format on %s: %w", device, err)
	}
	if err := cam.StartStreaming(); err != nil {
		cam.Close()
		return nil, fmt.Errorf("failed to start streaming on %s: %w", device, err)
	}

	return &Camera{cam: cam, format: f, width: int(w), height: int(h)}, nil
}

// ReadFrame waits for and decodes the next frame.
func (c *Camera) ReadFrame() (image.Image, error) {
	if err := c.cam.WaitForFrame(frameTimeout); err != nil {
		return nil, fmt.Errorf("no frame available: %w", err)
	}
	raw, err := c.cam.ReadFrame()
	if err != nil {
		return nil, fmt.Errorf("failed to read frame: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty frame")
	}

	switch c.format {
	case pixFmtMJPEG:
		img, err := jpeg.Decode(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("failed to decode MJPEG frame: %w", err)
		}
		return img, nil
	case pixFmtYUYV:
		return decodeYUYV(raw, c.width, c.height)
	default:
		return nil, fmt.Errorf("unsupported pixel format %v", c.format)
	}
}

// Close stops streaming and releases the device.
func (c *Camera) Close() error {
	c.cam.StopStreaming()
	return c.cam.Close()
}

// decodeYUYV converts a packed YUYV 4:2:2 buffer to RGBA. Each four-byte
// group encodes two horizontal pixels sharing chroma.
func decodeYUYV(raw []byte, width, height int) (image.Image, error) {
	if len(raw) < width*height*2 {
		return nil, fmt.Errorf("short YUYV frame: %d bytes for %dx%d", len(raw), width, height)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x += 2 {
			i := (y*width + x) * 2
			y0, u, y1, v := raw[i], raw[i+1], raw[i+2], raw[i+3]

			r, g, b := color.YCbCrToRGB(y0, u, v)
			img.SetRGBA(x, y, color.RGBA{R: r, G: g, B: b, A: 255})
			if x+1 < width {
				r, g, b = color.YCbCrToRGB(y1, u, v)
				img.SetRGBA(x+1, y, color.RGBA{R: r, G: g, B: b, A: 255})
			}
		}
	}
	return img, nil
}
