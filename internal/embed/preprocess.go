package embed

import (
	"image"

	xdraw "golang.org/x/image/draw"
)

// InputSize is the model's expected square input edge in pixels.
const InputSize = 224

// ImageNet channel statistics used by DINOv2.
var (
	channelMean = [3]float32{0.485, 0.456, 0.406}
	channelStd  = [3]float32{0.229, 0.224, 0.225}
)

// Preprocess resizes a crop to the model input size and packs it as
// normalized CHW float32 data.
func Preprocess(img image.Image) []float32 {
	resized := image.NewRGBA(image.Rect(0, 0, InputSize, InputSize))
	xdraw.CatmullRom.Scale(resized, resized.Bounds(), img, img.Bounds(), xdraw.Src, nil)

	const plane = InputSize * InputSize
	data := make([]float32, 3*plane)
	for y := 0; y < InputSize; y++ {
		for x := 0; x < InputSize; x++ {
			px := resized.RGBAAt(x, y)
			i := y*InputSize + x
			data[i] = (float32(px.R)/255 - channelMean[0]) / channelStd[0]
			data[plane+i] = (float32(px.G)/255 - channelMean[1]) / channelStd[1]
			data[2*plane+i] = (float32(px.B)/255 - channelMean[2]) / channelStd[2]
		}
	}
	return data
}
