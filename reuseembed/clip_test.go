package reuseembed

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func tinyIconBase64(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{G: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestCLIPImageEncoderUsesFallbackWhenNoTower(t *testing.T) {
	enc := NewCLIPImageEncoder(nil, nil)
	v, err := enc.EmbedIconBase64(context.Background(), tinyIconBase64(t))
	if err != nil {
		t.Fatalf("EmbedIconBase64: %v", err)
	}
	if len(v) != ImageDimension {
		t.Errorf("len(v) = %d, want %d", len(v), ImageDimension)
	}
}

type erroringTower struct{}

func (erroringTower) EmbedTensor(ctx context.Context, tns *Tensor) ([]float32, error) {
	return nil, errors.New("boom")
}

func TestCLIPImageEncoderFallsBackOnTowerError(t *testing.T) {
	enc := NewCLIPImageEncoder(erroringTower{}, nil)
	v, err := enc.EmbedIconBase64(context.Background(), tinyIconBase64(t))
	if err != nil {
		t.Fatalf("EmbedIconBase64 should fall back rather than error: %v", err)
	}
	if len(v) != ImageDimension {
		t.Errorf("len(v) = %d, want %d", len(v), ImageDimension)
	}
}

func TestCLIPImageEncoderInvalidIcon(t *testing.T) {
	enc := NewCLIPImageEncoder(nil, nil)
	if _, err := enc.EmbedIconBase64(context.Background(), "!!!not base64!!!"); err == nil {
		t.Error("expected decode error for invalid icon data")
	}
}

func TestHybridImageEncoderDeterministic(t *testing.T) {
	b64 := tinyIconBase64(t)
	tensor, err := DecodeAndPreprocessIcon(b64)
	if err != nil {
		t.Fatalf("DecodeAndPreprocessIcon: %v", err)
	}

	enc := NewHybridImageEncoder(ImageDimension)
	a := enc.EmbedTensor(tensor)
	b := enc.EmbedTensor(tensor)
	if len(a) != ImageDimension {
		t.Fatalf("len(a) = %d, want %d", len(a), ImageDimension)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("EmbedTensor not deterministic at %d", i)
		}
	}
}
