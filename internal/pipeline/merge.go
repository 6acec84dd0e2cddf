package pipeline

import (
	"strings"
	"unicode"
)

// Merge joins a new chunk transcript onto the accumulated transcript,
// removing text duplicated by the audio overlap between consecutive
// windows. It looks for the longest run of at least two words shared
// between the end of prev and the start of next, comparing at most
// maxOverlapWords words from either side so the cost stays independent
// of transcript length. When a run is found the duplicated words are
// cut from next, preserving its original casing; otherwise the texts
// are concatenated as-is. The second return value reports whether an
// overlap was found.
//
// The matching is a heuristic: a speaker genuinely repeating a phrase
// at a chunk boundary is deduplicated the same way as overlap text.
func Merge(prev, next string, maxOverlapWords int) (string, bool) {
	if prev == "" {
		return next, false
	}
	if next == "" {
		return prev, false
	}
	if maxOverlapWords < 2 {
		return prev + " " + next, false
	}

	prevTokens := tokenize(prev)
	nextTokens, nextOffsets := tokenizeOffsets(next)

	suffix := prevTokens
	if len(suffix) > maxOverlapWords {
		suffix = suffix[len(suffix)-maxOverlapWords:]
	}
	prefix := nextTokens
	if len(prefix) > maxOverlapWords {
		prefix = prefix[:maxOverlapWords]
	}

	maxRun := len(suffix)
	if len(prefix) < maxRun {
		maxRun = len(prefix)
	}

	for k := maxRun; k >= 2; k-- {
		if !tokensEqual(suffix[len(suffix)-k:], prefix[:k]) {
			continue
		}

		// Cut the first k words from next by byte offset so the
		// remainder keeps its original casing.
		remainder := strings.TrimLeftFunc(next[nextOffsets[k-1]:], unicode.IsSpace)
		if remainder == "" {
			return prev, true
		}
		return prev + " " + remainder, true
	}

	return prev + " " + next, false
}

// tokenize splits s into lowercase word tokens
func tokenize(s string) []string {
	fields := strings.Fields(s)
	tokens := make([]string, len(fields))
	for i, f := range fields {
		tokens[i] = strings.ToLower(f)
	}
	return tokens
}

// tokenizeOffsets splits s into lowercase word tokens and records the
// byte offset just past the end of each token in the original string
func tokenizeOffsets(s string) ([]string, []int) {
	var tokens []string
	var offsets []int

	start := -1
	for i, r := range s {
		if unicode.IsSpace(r) {
			if start >= 0 {
				tokens = append(tokens, strings.ToLower(s[start:i]))
				offsets = append(offsets, i)
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		tokens = append(tokens, strings.ToLower(s[start:]))
		offsets = append(offsets, len(s))
	}

	return tokens, offsets
}

func tokensEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
