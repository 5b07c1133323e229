package similarity

import "strings"

// shortlistTokens are resource-id segments stripped as generic Android
// widget-type noise before embedding.
var shortlistTokens = map[string]bool{
	"iv": true, "btn": true, "tv": true, "img": true, "image": true,
	"button": true, "text": true, "view": true, "layout": true, "id": true,
}

// BrandPrefixes are additional package-local tokens the host can
// configure to be dropped alongside the fixed shortlist. Nil/empty by
// default — brand-prefix configuration is left to the host.
type Normalizer struct {
	BrandPrefixes map[string]bool
}

// NewNormalizer builds a Normalizer with the given brand-prefix
// denylist (may be nil).
func NewNormalizer(brandPrefixes []string) *Normalizer {
	set := make(map[string]bool, len(brandPrefixes))
	for _, p := range brandPrefixes {
		set[strings.ToLower(p)] = true
	}
	return &Normalizer{BrandPrefixes: set}
}

// ResourceID normalizes an Android resource-id into a space-joined
// phrase suitable for tokenization.
func (n *Normalizer) ResourceID(id string) string {
	if id == "" {
		return ""
	}

	tail := id
	if i := strings.LastIndex(tail, "/"); i >= 0 {
		tail = tail[i+1:]
	} else if i := strings.LastIndex(tail, ":"); i >= 0 {
		tail = tail[i+1:]
	}

	var parts []string
	for _, underscorePart := range strings.Split(tail, "_") {
		parts = append(parts, splitCamelCase(underscorePart)...)
	}

	var kept []string
	for _, p := range parts {
		lp := strings.ToLower(p)
		if lp == "" || shortlistTokens[lp] || n.BrandPrefixes[lp] {
			continue
		}
		kept = append(kept, lp)
	}

	return strings.Join(kept, " ")
}

// ActivityName normalizes a fully-qualified Android activity class
// name into a space-joined phrase.
func (n *Normalizer) ActivityName(activity string) string {
	if activity == "" {
		return ""
	}

	tail := activity
	if i := strings.LastIndex(tail, "."); i >= 0 {
		tail = tail[i+1:]
	}

	parts := splitCamelCase(tail)
	if len(parts) > 0 && strings.EqualFold(parts[len(parts)-1], "Activity") {
		parts = parts[:len(parts)-1]
	}

	lowered := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		lowered = append(lowered, strings.ToLower(p))
	}
	return strings.Join(lowered, " ")
}

// splitCamelCase splits "fooBarBAZQux" into ["foo","Bar","BAZ","Qux"].
// A run of uppercase letters followed by a lowercase letter is split
// before the last uppercase letter of the run ("BAZQux" -> "BAZ","Qux").
func splitCamelCase(s string) []string {
	if s == "" {
		return nil
	}

	var parts []string
	runes := []rune(s)
	start := 0

	isUpper := func(r rune) bool { return r >= 'A' && r <= 'Z' }
	isLower := func(r rune) bool { return r >= 'a' && r <= 'z' }

	for i := 1; i < len(runes); i++ {
		prev, cur := runes[i-1], runes[i]
		boundary := false

		switch {
		case isLower(prev) && isUpper(cur):
			boundary = true
		case isUpper(prev) && isUpper(cur) && i+1 < len(runes) && isLower(runes[i+1]):
			boundary = true
		}

		if boundary {
			parts = append(parts, string(runes[start:i]))
			start = i
		}
	}
	parts = append(parts, string(runes[start:]))
	return parts
}
