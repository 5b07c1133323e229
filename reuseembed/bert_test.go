package reuseembed

import (
	"context"
	"testing"
)

func TestBERTTextEncoderUsesFallbackWhenNotLoaded(t *testing.T) {
	enc := NewBERTTextEncoder(BERTConfig{})
	if enc.Dimension() != TextDimension {
		t.Errorf("Dimension() = %d, want %d", enc.Dimension(), TextDimension)
	}

	v, err := enc.Embed(context.Background(), "submit order")
	if err != nil {
		t.Fatalf("Embed() error: %v", err)
	}
	if len(v) != TextDimension {
		t.Errorf("len(v) = %d, want %d", len(v), TextDimension)
	}
}

func TestBERTTextEncoderEnsureModelFailsWithoutModelPath(t *testing.T) {
	enc := NewBERTTextEncoder(BERTConfig{})
	if err := enc.EnsureModel(context.Background()); err == nil {
		t.Error("EnsureModel() with no ModelPath should return an error")
	}
	if enc.isLoaded() {
		t.Error("encoder should not be marked loaded after a failed EnsureModel")
	}
}

func TestBERTTextEncoderTokenize(t *testing.T) {
	enc := NewBERTTextEncoder(BERTConfig{})
	got := enc.Tokenize("hi")
	if len(got.InputIDs) != SequenceLength {
		t.Errorf("len(InputIDs) = %d, want %d", len(got.InputIDs), SequenceLength)
	}
	if got.InputIDs[0] != TokenCLS {
		t.Errorf("InputIDs[0] = %d, want TokenCLS", got.InputIDs[0])
	}
}
