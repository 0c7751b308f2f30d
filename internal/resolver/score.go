package resolver

import "strings"

// Score computes a similarity score between two normalized titles.
// The scale is nominally 0-100 but deliberately unclamped: the containment
// branch subtracts the full length difference, so an extreme mismatch can
// go negative. Callers compare against thresholds, never against bounds.
//
// Containment is the strongest signal: if one string contains the other,
// the score is 100 minus the length difference, preferring the candidate
// whose length is closest to the query. When containment fails (word order
// broken by an inserted token), the score falls back to word overlap with
// a small credit for fuzzy word matches.
func (m *Matcher) Score(search, candidate string) int {
	if search == "" || candidate == "" {
		return 0
	}

	if strings.Contains(candidate, search) {
		return 100 - (len(candidate) - len(search))
	}
	if strings.Contains(search, candidate) {
		return 100 - (len(search) - len(candidate))
	}

	searchWords := strings.Fields(search)
	candidateWords := strings.Fields(candidate)

	searchSet := wordSet(searchWords)
	candidateSet := wordSet(candidateWords)

	exact := 0
	for word := range searchSet {
		if _, ok := candidateSet[word]; ok {
			exact++
		}
	}

	// Fuzzy credit: search words missing from the candidate that still
	// relate to a candidate-only word by substring containment. Each
	// search word counts at most once, first match wins, which makes the
	// count asymmetric between search and candidate.
	fuzzy := 0
	for word := range searchSet {
		if _, ok := candidateSet[word]; ok {
			continue
		}
		for other := range candidateSet {
			if _, ok := searchSet[other]; ok {
				continue
			}
			if m.fuzzyWordMatch(word, other) {
				fuzzy++
				break
			}
		}
	}

	denom := len(searchWords)
	if len(candidateWords) > denom {
		denom = len(candidateWords)
	}

	// int() truncates toward zero
	return int(100 * (float64(exact) + 0.2*float64(fuzzy)) / float64(denom))
}

// fuzzyWordMatch reports whether two words relate by substring containment
// in either direction. The shorter word must reach MinFuzzyLength so that
// single letters and particles cannot produce spurious matches.
func (m *Matcher) fuzzyWordMatch(a, b string) bool {
	shorter := a
	if len(b) < len(shorter) {
		shorter = b
	}
	if len(shorter) < m.opts.MinFuzzyLength {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

func wordSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
