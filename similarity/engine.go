package similarity

import (
	"context"
	"log/slog"
	"math"
	"strings"

	"gonum.org/v1/gonum/blas/blas32"

	"github.com/fastbot/reuse-core/reusemodel"
)

// TextEncoder embeds normalized text into a fixed-length vector. It is
// satisfied by reuseembed.TextEncoder; declared locally so similarity
// never imports the embedding package (leaf dependency direction).
type TextEncoder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ImageEncoder embeds a base64-encoded icon, doing the preprocessing to
// a 224x224 RGB CHW tensor itself. Satisfied by reuseembed.ImageEncoder.
type ImageEncoder interface {
	// EmbedIconBase64 decodes, preprocesses and embeds a base64 icon.
	// Returns an error if decoding or inference fails.
	EmbedIconBase64(ctx context.Context, iconBase64 string) ([]float32, error)
}

const (
	weightTextNoIcon     = 0.4
	weightResourceNoIcon = 0.2
	weightActivityNoIcon = 0.4
	weightIconNoIcon     = 0.0

	weightTextWithIcon     = 0.35
	weightResourceWithIcon = 0.20
	weightActivityWithIcon = 0.10
	weightIconWithIcon     = 0.35

	// DefaultThreshold is the default cross-platform action-match
	// threshold.
	DefaultThreshold = 0.5
)

// Engine computes the composite weighted similarity between two
// widget descriptors.
type Engine struct {
	Text  TextEncoder
	Image ImageEncoder
	Norm  *Normalizer
	Log   *slog.Logger
}

// NewEngine builds a similarity Engine. log may be nil, in which case
// slog.Default() is used (teacher convention, core/config.Manager).
func NewEngine(text TextEncoder, image ImageEncoder, norm *Normalizer, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	if norm == nil {
		norm = NewNormalizer(nil)
	}
	return &Engine{Text: text, Image: image, Norm: norm, Log: log}
}

// Components holds the four per-field similarity scores, each in
// [0,1], before weighting.
type Components struct {
	Text     float64
	Resource float64
	Activity float64
	Icon     float64
}

// Similarity computes the composite similarity between two widget
// attribute sets.
func (e *Engine) Similarity(ctx context.Context, a, b reusemodel.WidgetAttributes) float64 {
	c := e.components(ctx, a, b)

	bothIcons := a.IconBase64 != "" && b.IconBase64 != ""
	if bothIcons {
		return weightTextWithIcon*c.Text +
			weightResourceWithIcon*c.Resource +
			weightActivityWithIcon*c.Activity +
			weightIconWithIcon*c.Icon
	}
	return weightTextNoIcon*c.Text +
		weightResourceNoIcon*c.Resource +
		weightActivityNoIcon*c.Activity +
		weightIconNoIcon*c.Icon
}

func (e *Engine) components(ctx context.Context, a, b reusemodel.WidgetAttributes) Components {
	return Components{
		Text:     e.fieldSimilarity(ctx, a.Text, b.Text, e.embedText),
		Resource: e.fieldSimilarity(ctx, e.Norm.ResourceID(a.ResourceID), e.Norm.ResourceID(b.ResourceID), e.embedText),
		Activity: e.fieldSimilarity(ctx, e.Norm.ActivityName(a.Activity), e.Norm.ActivityName(b.Activity), e.embedText),
		Icon:     e.iconSimilarity(ctx, a.IconBase64, b.IconBase64),
	}
}

type embedFn func(ctx context.Context, s string) ([]float32, error)

// fieldSimilarity applies the empty/empty and empty/non-empty rules
//, then falls back to the string heuristic ladder
// on any encoder error.
func (e *Engine) fieldSimilarity(ctx context.Context, a, b string, embed embedFn) float64 {
	if a == "" && b == "" {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}

	va, errA := embed(ctx, a)
	vb, errB := embed(ctx, b)
	if errA != nil || errB != nil {
		e.Log.Warn("similarity: text encoder unavailable, using fallback", "err_a", errA, "err_b", errB)
		return stringFallback(a, b)
	}
	return CosineSimilarity(va, vb)
}

func (e *Engine) embedText(ctx context.Context, s string) ([]float32, error) {
	if e.Text == nil {
		return nil, errNoEncoder
	}
	return e.Text.Embed(ctx, s)
}

func (e *Engine) iconSimilarity(ctx context.Context, a, b string) float64 {
	if a == "" && b == "" {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}
	if e.Image == nil {
		return 0.0
	}

	va, errA := e.Image.EmbedIconBase64(ctx, a)
	vb, errB := e.Image.EmbedIconBase64(ctx, b)
	if errA != nil || errB != nil {
		e.Log.Warn("similarity: icon decode/encode failed, icon contributes 0", "err_a", errA, "err_b", errB)
		return 0.0
	}
	return CosineSimilarity(va, vb)
}

var errNoEncoder = errEncoder("no text encoder configured")

type errEncoder string

func (e errEncoder) Error() string { return string(e) }

// CosineSimilarity computes standard dot/(|a|*|b|) over gonum's BLAS
// level-1 routines (generalized from
// core/vectorgraphdb/quantization/distance.go's blas32.Dot usage).
// Zero-length or mismatched-length vectors return 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	va := blas32.Vector{N: len(a), Inc: 1, Data: a}
	vb := blas32.Vector{N: len(b), Inc: 1, Data: b}

	dot := blas32.Dot(va, vb)
	normA := math.Sqrt(float64(blas32.Dot(va, va)))
	normB := math.Sqrt(float64(blas32.Dot(vb, vb)))

	if normA == 0 || normB == 0 {
		return 0
	}
	return float64(dot) / (normA * normB)
}

// stringFallback implements the equality/containment/positional-overlap
// ladder used when an encoder is unavailable.
func stringFallback(a, b string) float64 {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	if la == lb {
		return 1.0
	}
	if strings.Contains(la, lb) || strings.Contains(lb, la) {
		return 0.8
	}

	overlap := positionalOverlap(la, lb)
	if overlap <= 0 {
		return 0.0
	}
	return overlap
}

// positionalOverlap counts the character positions that agree within
// the shorter string's length and divides by the longer string's
// length, giving a value in (0,1], or 0 if nothing overlaps.
func positionalOverlap(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	n := len(ra)
	if len(rb) < n {
		n = len(rb)
	}
	if n == 0 {
		return 0
	}

	matches := 0
	for i := 0; i < n; i++ {
		if ra[i] == rb[i] {
			matches++
		}
	}
	if matches == 0 {
		return 0
	}

	longer := len(ra)
	if len(rb) > longer {
		longer = len(rb)
	}
	return float64(matches) / float64(longer)
}
