package reuseembed

import (
	"strings"
)

// SequenceLength is the fixed sequence length L the BERT-style encoder
// expects.
const SequenceLength = 512

// latinSplitChars is the Latin-path punctuation split set.
var latinSplitChars = map[rune]bool{
	'.': true, '_': true, ':': true, '/': true, '\\': true,
}

// CJKSegmenter is a pluggable external segmenter for CJK text. No
// implementation ships with this module; when nil, Tokenizer falls
// back to per-codepoint segmentation.
type CJKSegmenter interface {
	Segment(text string) []string
}

// Tokenizer reproduces an exact WordPiece + segmentation pipeline.
// Its output feeds the match cache transitively (via
// ActionAttributes equality), so the rules must be followed exactly
// rather than approximated.
type Tokenizer struct {
	Vocab    *Vocab
	Segmenter CJKSegmenter
}

// NewTokenizer builds a Tokenizer. segmenter may be nil.
func NewTokenizer(vocab *Vocab, segmenter CJKSegmenter) *Tokenizer {
	return &Tokenizer{Vocab: vocab, Segmenter: segmenter}
}

// Encoded holds the three BERT-style input tensors (input ids,
// attention mask, token type ids), each of length SequenceLength.
type Encoded struct {
	InputIDs      []int32
	AttentionMask []int32
	TokenTypeIDs  []int32
}

// Encode tokenizes text into the fixed-length (input_ids,
// attention_mask, token_type_ids) triple.
func (t *Tokenizer) Encode(text string) Encoded {
	segments := t.segment(text)

	var ids []int32
	for _, seg := range segments {
		ids = append(ids, t.wordpiece(seg)...)
	}

	seq := make([]int32, 0, SequenceLength)
	seq = append(seq, TokenCLS)
	seq = append(seq, ids...)
	seq = append(seq, TokenSEP)

	if len(seq) > SequenceLength {
		seq = seq[:SequenceLength]
		seq[SequenceLength-1] = TokenSEP
	}

	inputIDs := make([]int32, SequenceLength)
	attentionMask := make([]int32, SequenceLength)
	tokenTypeIDs := make([]int32, SequenceLength)

	copy(inputIDs, seq)
	for i := range inputIDs {
		if i < len(seq) {
			attentionMask[i] = 1
		}
	}

	return Encoded{InputIDs: inputIDs, AttentionMask: attentionMask, TokenTypeIDs: tokenTypeIDs}
}

// containsCJK reports whether text has any byte with the high bit
// set — any high-bit byte routes to the CJK path.
func containsCJK(text string) bool {
	for i := 0; i < len(text); i++ {
		if text[i]&0x80 != 0 {
			return true
		}
	}
	return false
}

func (t *Tokenizer) segment(text string) []string {
	if containsCJK(text) {
		if t.Segmenter != nil {
			return t.Segmenter.Segment(text)
		}
		return segmentByCodepoint(text)
	}
	return segmentLatin(text)
}

// segmentByCodepoint is the CJK fallback when no segmenter is wired:
// one segment per UTF-8 codepoint.
func segmentByCodepoint(text string) []string {
	var out []string
	for _, r := range text {
		out = append(out, string(r))
	}
	return out
}

// segmentLatin splits on whitespace and the fixed punctuation set.
func segmentLatin(text string) []string {
	var out []string
	var b strings.Builder

	flush := func() {
		if b.Len() > 0 {
			out = append(out, b.String())
			b.Reset()
		}
	}

	for _, r := range text {
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			flush()
		case latinSplitChars[r]:
			flush()
		default:
			b.WriteRune(r)
		}
	}
	flush()
	return out
}

// wordpiece applies the longest-match WordPiece rule: if the whole
// segment is in the vocabulary, emit it; otherwise find the longest
// subword present and recurse on the left and right remainders (spec
// §4.1).
func (t *Tokenizer) wordpiece(segment string) []int32 {
	if segment == "" {
		return nil
	}
	if t.Vocab.Contains(segment) {
		return []int32{t.Vocab.ID(segment)}
	}

	runes := []rune(segment)
	n := len(runes)

	for length := n - 1; length >= 1; length-- {
		for start := 0; start+length <= n; start++ {
			candidate := string(runes[start : start+length])
			if !t.Vocab.Contains(candidate) {
				continue
			}

			var ids []int32
			if start > 0 {
				ids = append(ids, t.wordpiece(string(runes[:start]))...)
			}
			ids = append(ids, t.Vocab.ID(candidate))
			if start+length < n {
				ids = append(ids, t.wordpiece(string(runes[start+length:]))...)
			}
			return ids
		}
	}

	return []int32{TokenUNK}
}
