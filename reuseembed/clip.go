package reuseembed

import (
	"context"
	"log/slog"
)

// TensorEncoder is the pluggable ONNX vision-tower seam: the ONNX
// runtime itself is treated as an external, pluggable embedding
// provider, so CLIPImageEncoder never instantiates one directly — a
// host wires in a concrete implementation (e.g. a hugot
// FeatureExtractionPipeline fed from a vision-model export) via this
// interface.
type TensorEncoder interface {
	EmbedTensor(ctx context.Context, t *Tensor) ([]float32, error)
}

// CLIPImageEncoder implements ImageEncoder by preprocessing an icon
// into a Tensor and delegating to a pluggable
// TensorEncoder, falling back to HybridImageEncoder when none is
// configured or when it errors.
type CLIPImageEncoder struct {
	tower    TensorEncoder
	fallback *HybridImageEncoder
	log      *slog.Logger
}

// NewCLIPImageEncoder builds an encoder. tower may be nil, in which
// case every call uses the HybridLocal fallback.
func NewCLIPImageEncoder(tower TensorEncoder, log *slog.Logger) *CLIPImageEncoder {
	if log == nil {
		log = slog.Default()
	}
	return &CLIPImageEncoder{
		tower:    tower,
		fallback: NewHybridImageEncoder(ImageDimension),
		log:      log,
	}
}

func (c *CLIPImageEncoder) Dimension() int { return ImageDimension }

// EmbedIconBase64 decodes and preprocesses the icon, then
// embeds it via the configured vision tower or, absent one, the
// deterministic fallback.
func (c *CLIPImageEncoder) EmbedIconBase64(ctx context.Context, iconBase64 string) ([]float32, error) {
	tensor, err := DecodeAndPreprocessIcon(iconBase64)
	if err != nil {
		return nil, err
	}

	if c.tower == nil {
		return c.fallback.EmbedTensor(tensor), nil
	}

	vec, err := c.tower.EmbedTensor(ctx, tensor)
	if err != nil {
		c.log.Warn("clip encoder: vision tower inference failed, using fallback", "err", err)
		return c.fallback.EmbedTensor(tensor), nil
	}
	return vec, nil
}
