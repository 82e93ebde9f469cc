// Package detect finds faces in captured frames using a pigo cascade
// classifier and cuts padded square crops around them.
package detect

import (
	"fmt"
	"image"
	"image/draw"
	"os"

	pigo "github.com/esimov/pigo/core"
)

const (
	// minQuality rejects low-confidence cascade detections.
	minQuality = 5.0

	// cropPadding expands the detected region on each side before cropping.
	cropPadding = 0.2

	minFaceSize = 60
)

// Region is a square face region within a frame.
type Region struct {
	X       int // left edge
	Y       int // top edge
	Size    int
	Quality float32
}

// Detector wraps an unpacked pigo cascade. Safe for concurrent use.
type Detector struct {
	classifier *pigo.Pigo
}

// New loads and unpacks a binary cascade file.
func New(cascadePath string) (*Detector, error) {
	data, err := os.ReadFile(cascadePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read cascade %s: %w", cascadePath, err)
	}
	classifier, err := pigo.NewPigo().Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack cascade %s: %w", cascadePath, err)
	}
	return &Detector{classifier: classifier}, nil
}

// Detect runs the cascade over the frame and returns accepted face regions,
// best quality first.
func (d *Detector) Detect(img image.Image) []Region {
	src := pigo.ImgToNRGBA(img)
	pixels := pigo.RgbToGrayscale(src)
	bounds := src.Bounds()
	cols := bounds.Dx()
	rows := bounds.Dy()

	maxSize := cols
	if rows < cols {
		maxSize = rows
	}
	if maxSize < minFaceSize {
		return nil
	}

	params := pigo.CascadeParams{
		MinSize:     minFaceSize,
		MaxSize:     maxSize,
		ShiftFactor: 0.1,
		ScaleFactor: 1.1,
		ImageParams: pigo.ImageParams{
			Pixels: pixels,
			Rows:   rows,
			Cols:   cols,
			Dim:    cols,
		},
	}

	dets := d.classifier.RunCascade(params, 0.0)
	dets = d.classifier.ClusterDetections(dets, 0.2)

	var regions []Region
	for _, det := range dets {
		if det.Q < minQuality {
			continue
		}
		regions = append(regions, Region{
			X:       det.Col - det.Scale/2,
			Y:       det.Row - det.Scale/2,
			Size:    det.Scale,
			Quality: det.Q,
		})
	}

	for i := 1; i < len(regions); i++ {
		for j := i; j > 0 && regions[j].Quality > regions[j-1].Quality; j-- {
			regions[j], regions[j-1] = regions[j-1], regions[j]
		}
	}
	return regions
}

// Best returns the highest-quality face region, or false when the frame
// contains no acceptable face.
func (d *Detector) Best(img image.Image) (Region, bool) {
	regions := d.Detect(img)
	if len(regions) == 0 {
		return Region{}, false
	}
	return regions[0], true
}

// Crop cuts a padded square crop around the region, clamped to the frame.
func Crop(img image.Image, r Region) image.Image {
	bounds := img.Bounds()

	pad := int(float64(r.Size) * cropPadding)
	x0 := bounds.Min.X + r.X - pad
	y0 := bounds.Min.Y + r.Y - pad
	x1 := bounds.Min.X + r.X + r.Size + pad
	y1 := bounds.Min.Y + r.Y + r.Size + pad

	if x0 < bounds.Min.X {
		x0 = bounds.Min.X
	}
	if y0 < bounds.Min.Y {
		y0 = bounds.Min.Y
	}
	if x1 > bounds.Max.X {
		x1 = bounds.Max.X
	}
	if y1 > bounds.Max.Y {
		y1 = bounds.Max.Y
	}

	rect := image.Rect(x0, y0, x1, y1)
	out := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(out, out.Bounds(), img, rect.Min, draw.Src)
	return out
}
