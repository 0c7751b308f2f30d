package resolver

// IsLikelyFilm is a heuristic predicate over a series' season and episode
// counts. Crunchyroll has no film type, so films hide in three shapes:
// a single-episode single-season series, a series whose "seasons" are all
// one-or-two-episode dub variants of the same film, or a very short
// catalog entry. The predicate is intentionally permissive; false
// positives are filtered later by title-similarity thresholds.
func IsLikelyFilm(seasonCount, episodeCount int) bool {
	if seasonCount <= 1 && episodeCount <= 1 {
		return true
	}
	if seasonCount > 1 && episodeCount <= seasonCount*2 {
		return true
	}
	return episodeCount <= 3
}
