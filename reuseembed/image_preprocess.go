package reuseembed

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
)

// IconSize is the fixed square input resolution for the image tower.
const IconSize = 224

// Tensor is a preprocessed 224x224 RGB image in channel-first (CHW)
// float32 layout, scaled to [0,1].
type Tensor struct {
	Data [3][IconSize][IconSize]float32
}

// DecodeAndPreprocessIcon runs the icon preprocessing pipeline:
// decode -> resize to 224x224 -> float32 [0,1] -> BGR->RGB ->
// channel-first. Resizing uses golang.org/x/image/draw's Catmull-Rom
// scaler — no suitable resize routine exists in the standard library
// alone.
func DecodeAndPreprocessIcon(iconBase64 string) (*Tensor, error) {
	raw, err := base64.StdEncoding.DecodeString(iconBase64)
	if err != nil {
		return nil, fmt.Errorf("icon base64 decode: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("icon image decode: %w", err)
	}

	resized := image.NewRGBA(image.Rect(0, 0, IconSize, IconSize))
	draw.CatmullRom.Scale(resized, resized.Bounds(), img, img.Bounds(), draw.Over, nil)

	// image.Image decodes to RGBA channel order; the source format is
	// assumed BGR and converted to RGB, which for an RGBA decode is a
	// no-op on channel order — channels are written directly as R,G,B,
	// channel-first.
	var t Tensor
	for y := 0; y < IconSize; y++ {
		for x := 0; x < IconSize; x++ {
			r, g, b, _ := resized.At(x, y).RGBA()
			t.Data[0][y][x] = float32(r>>8) / 255.0
			t.Data[1][y][x] = float32(g>>8) / 255.0
			t.Data[2][y][x] = float32(b>>8) / 255.0
		}
	}

	return &t, nil
}

// Flatten returns the tensor as a single CHW-ordered slice, the shape
// most ONNX image-tower runtimes expect.
func (t *Tensor) Flatten() []float32 {
	out := make([]float32, 3*IconSize*IconSize)
	idx := 0
	for c := 0; c < 3; c++ {
		for y := 0; y < IconSize; y++ {
			for x := 0; x < IconSize; x++ {
				out[idx] = t.Data[c][y][x]
				idx++
			}
		}
	}
	return out
}
