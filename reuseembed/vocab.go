package reuseembed

import (
	"bufio"
	"os"
)

// Canonical special-token ids. These are seeded even when
// no vocabulary file is available.
const (
	TokenPAD = 0
	TokenUNK = 100
	TokenCLS = 101
	TokenSEP = 102
)

// Vocab is a newline-separated WordPiece vocabulary: token at line n
// (1-based) has id n-1.
type Vocab struct {
	tokenToID map[string]int32
	idToToken map[int32]string
}

// NewVocabSpecialsOnly seeds only the four special tokens, used when
// no vocabulary file is available.
func NewVocabSpecialsOnly() *Vocab {
	v := &Vocab{
		tokenToID: map[string]int32{
			"[PAD]": TokenPAD,
			"[UNK]": TokenUNK,
			"[CLS]": TokenCLS,
			"[SEP]": TokenSEP,
		},
		idToToken: map[int32]string{
			TokenPAD: "[PAD]",
			TokenUNK: "[UNK]",
			TokenCLS: "[CLS]",
			TokenSEP: "[SEP]",
		},
	}
	return v
}

// LoadVocabFile loads a vocabulary file in line=token-1 order. The
// four canonical specials are seeded first and then overwritten if the
// file defines them at different lines, so a caller always has a
// working UNK/CLS/SEP/PAD even from an unusual vocab layout.
func LoadVocabFile(path string) (*Vocab, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	v := NewVocabSpecialsOnly()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var line int32
	for scanner.Scan() {
		tok := scanner.Text()
		if tok == "" {
			line++
			continue
		}
		v.tokenToID[tok] = line
		v.idToToken[line] = tok
		line++
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return v, nil
}

// LoadVocabFromDevicePaths tries the on-device lookup order
// (/data/local/tmp/vocab.txt then /sdcard/vocab.txt), falling back to
// specials-only if neither is present. Never returns an error: a
// missing vocabulary file is a recoverable condition.
func LoadVocabFromDevicePaths() *Vocab {
	for _, p := range []string{"/data/local/tmp/vocab.txt", "/sdcard/vocab.txt"} {
		if v, err := LoadVocabFile(p); err == nil {
			return v
		}
	}
	return NewVocabSpecialsOnly()
}

// ID returns the token's id, or TokenUNK if absent.
func (v *Vocab) ID(token string) int32 {
	if id, ok := v.tokenToID[token]; ok {
		return id
	}
	return TokenUNK
}

// Contains reports whether token is present in the vocabulary.
func (v *Vocab) Contains(token string) bool {
	_, ok := v.tokenToID[token]
	return ok
}

// Len returns the number of tokens loaded.
func (v *Vocab) Len() int {
	return len(v.tokenToID)
}
