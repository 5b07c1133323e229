package reuseembed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/options"
	"github.com/knights-analytics/hugot/pipelines"
)

// BERTConfig configures a BERTTextEncoder.
type BERTConfig struct {
	ModelPath      string
	ModelName      string
	OrtLibraryPath string
	UseGPU         bool
	Vocab          *Vocab
	Segmenter      CJKSegmenter
	Logger         *slog.Logger
}

// BERTTextEncoder wraps an ONNX BERT-style encoder behind the
// TextEncoder interface. Its lifecycle (lazy session/pipeline
// construction, intra-op thread pinning, Close) is generalized from
// core/vectorgraphdb/vamana/embedder.ONNXEmbedder — retargeted from a
// code-embedding pipeline at a masked-mean sentence encoder.
type BERTTextEncoder struct {
	cfg       BERTConfig
	tokenizer *Tokenizer
	fallback  *HybridTextEncoder

	mu       sync.RWMutex
	session  *hugot.Session
	pipeline *pipelines.FeatureExtractionPipeline
	loaded   bool

	log *slog.Logger
}

// NewBERTTextEncoder builds an encoder. The ONNX pipeline is not
// loaded until EnsureModel succeeds; until then (or if it never
// succeeds) Embed transparently uses the HybridLocal fallback (spec
// §7: "Embedding provider unavailable").
func NewBERTTextEncoder(cfg BERTConfig) *BERTTextEncoder {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	vocab := cfg.Vocab
	if vocab == nil {
		vocab = NewVocabSpecialsOnly()
	}
	return &BERTTextEncoder{
		cfg:       cfg,
		tokenizer: NewTokenizer(vocab, cfg.Segmenter),
		fallback:  NewHybridTextEncoder(TextDimension),
		log:       cfg.Logger,
	}
}

func (b *BERTTextEncoder) Dimension() int { return TextDimension }

// EnsureModel loads the ONNX session and pipeline if not already
// loaded. A failure here is recoverable: callers keep using the
// HybridLocal fallback.
func (b *BERTTextEncoder) EnsureModel(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.loaded {
		return nil
	}
	if b.cfg.ModelPath == "" {
		return fmt.Errorf("bert encoder: no model path configured")
	}

	sessionOpts := []options.WithOption{
		options.WithIntraOpNumThreads(1),
	}
	if b.cfg.OrtLibraryPath != "" {
		sessionOpts = append(sessionOpts, options.WithOnnxLibraryPath(b.cfg.OrtLibraryPath))
	}
	if b.cfg.UseGPU {
		sessionOpts = append(sessionOpts, options.WithCuda(nil))
	}

	session, err := hugot.NewORTSession(sessionOpts...)
	if err != nil {
		return fmt.Errorf("bert encoder: create ORT session: %w", err)
	}

	pipelineConfig := hugot.FeatureExtractionConfig{
		ModelPath: b.cfg.ModelPath,
		Name:      b.cfg.ModelName,
	}
	pipeline, err := hugot.NewPipeline(session, pipelineConfig)
	if err != nil {
		session.Destroy()
		return fmt.Errorf("bert encoder: create pipeline: %w", err)
	}

	b.session = session
	b.pipeline = pipeline
	b.loaded = true
	return nil
}

func (b *BERTTextEncoder) isLoaded() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.loaded
}

// Embed returns the masked mean of the last hidden state over
// non-padding positions — not CLS, not an all-positions mean.
func (b *BERTTextEncoder) Embed(ctx context.Context, text string) ([]float32, error) {
	if !b.isLoaded() {
		return b.fallback.Embed(ctx, text)
	}

	b.mu.RLock()
	pipeline := b.pipeline
	b.mu.RUnlock()

	if pipeline == nil {
		return b.fallback.Embed(ctx, text)
	}

	// hugot's FeatureExtractionPipeline owns its own tokenizer and
	// pools the last hidden state over non-padding positions
	// internally (mean pooling against the attention mask, not CLS).
	// b.tokenizer reproduces the same WordPiece rules standalone and is
	// used only by Tokenize; the fallback path does not use it.
	output, err := pipeline.RunPipeline([]string{text})
	if err != nil {
		b.log.Warn("bert encoder: inference failed, using fallback", "err", err)
		return b.fallback.Embed(ctx, text)
	}
	if len(output.Embeddings) == 0 {
		return b.fallback.Embed(ctx, text)
	}

	return output.Embeddings[0], nil
}

// Tokenize exposes the standalone WordPiece tokenizer for callers that
// need to inspect tokenization independent of ONNX inference, such as
// tests asserting its exact rules. (The reusectl vocab-check
// subcommand builds its own Tokenizer over the same rules.)
func (b *BERTTextEncoder) Tokenize(text string) Encoded {
	return b.tokenizer.Encode(text)
}

// Close releases the ONNX session.
func (b *BERTTextEncoder) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session != nil {
		b.session.Destroy()
		b.session = nil
	}
	b.pipeline = nil
	b.loaded = false
	return nil
}
