package resolver

import (
	"context"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/imkylecat/crunchyroll-jellyfin/internal/crunchyroll"
)

// Matcher resolves a free-text title against the remote catalog by running
// progressively deeper and looser strategies until one accepts or all are
// exhausted. A nil result means no sufficiently confident match; that is a
// valid outcome, not a failure. Client errors at any step are treated as
// empty data and the cascade moves on; no retries happen here.
type Matcher struct {
	client CatalogClient
	opts   Options
	logger zerolog.Logger
}

// NewMatcher creates a matcher over the given catalog client.
func NewMatcher(client CatalogClient, opts Options, logger zerolog.Logger) *Matcher {
	return &Matcher{
		client: client,
		opts:   opts.normalize(),
		logger: logger.With().Str("component", "matcher").Logger(),
	}
}

// seasonMatch is a candidate/season pair that cleared the combined-score
// bar during the season cascade.
type seasonMatch struct {
	seriesID    string
	seasonID    string
	seasonTitle string
	combined    int
	bonus       int
}

// Resolve runs the match cascade for one query. Strategies are attempted
// strictly in order; the first that accepts is terminal:
//
//	direct hit     — a film-like series scoring at or above sensitivity
//	season cascade — a film-like season inside a plausible series
//	fallback       — the best film-like series alone, with one last
//	                 season refinement attempt
//
// Cancellation aborts immediately with no match.
func (m *Matcher) Resolve(ctx context.Context, query string) *MatchResult {
	candidates := m.search(ctx, query)
	if ctx.Err() != nil || len(candidates) == 0 {
		return nil
	}

	normQuery := Normalize(query)

	if result := m.directHit(candidates); result != nil {
		m.logger.Debug().Str("query", query).Str("seriesId", result.SeriesID).Msg("direct series match")
		return result
	}

	if result := m.seasonCascade(ctx, normQuery, candidates); result != nil {
		m.logger.Debug().
			Str("query", query).
			Str("seriesId", result.SeriesID).
			Str("seasonId", result.SeasonID).
			Msg("season cascade match")
		return result
	}
	if ctx.Err() != nil {
		return nil
	}

	result := m.fallback(ctx, normQuery, candidates)
	if ctx.Err() != nil {
		return nil
	}
	if result == nil {
		m.logger.Debug().Str("query", query).Msg("no match")
		return nil
	}
	m.logger.Debug().
		Str("query", query).
		Str("seriesId", result.SeriesID).
		Str("strategy", string(result.Strategy)).
		Msg("fallback match")
	return result
}

// search fetches and scores the first-level candidates, sorted by score
// descending. The sort is stable so remote relevance order breaks ties.
func (m *Matcher) search(ctx context.Context, query string) []ScoredCandidate {
	results, err := m.client.Search(ctx, query, m.opts.SearchLimit)
	if err != nil {
		m.logger.Debug().Err(err).Str("query", query).Msg("search failed, treating as empty")
		return nil
	}
	if len(results) == 0 {
		return nil
	}

	normQuery := Normalize(query)

	candidates := make([]ScoredCandidate, 0, len(results))
	for _, series := range results {
		if series.Title == "" {
			continue
		}
		candidates = append(candidates, ScoredCandidate{
			Series:     series,
			Score:      m.Score(normQuery, Normalize(series.Title)),
			IsFilmLike: IsLikelyFilm(series.SeasonCount, series.EpisodeCount),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	return candidates
}

// directHit accepts the first film-like candidate at or above the
// sensitivity threshold.
func (m *Matcher) directHit(candidates []ScoredCandidate) *MatchResult {
	for _, c := range candidates {
		if c.Score >= m.opts.Sensitivity && c.IsFilmLike {
			return &MatchResult{
				SeriesID: c.Series.ID,
				Strategy: StrategyDirect,
			}
		}
	}
	return nil
}

// seasonCascade drills into every plausible candidate, scores its
// film-like seasons and picks the single best season across all of them.
// It does not stop at the first qualifying candidate: a later, lower
// ranked series can hold the better season.
func (m *Matcher) seasonCascade(ctx context.Context, normQuery string, candidates []ScoredCandidate) *MatchResult {
	var best *seasonMatch

	tried := 0
	for _, c := range candidates {
		if c.Score < m.opts.MinCascadeScore {
			continue
		}
		if tried >= m.opts.MaxCascadeCandidates {
			break
		}
		tried++

		for _, match := range m.scoreSeasons(ctx, normQuery, c.Series) {
			match := match
			if best == nil ||
				match.combined > best.combined ||
				(match.combined == best.combined && match.bonus > best.bonus) {
				best = &match
			}
		}
		if ctx.Err() != nil {
			return nil
		}
	}

	if best == nil {
		return nil
	}
	return &MatchResult{
		SeriesID:    best.seriesID,
		SeasonID:    best.seasonID,
		SeasonTitle: best.seasonTitle,
		Strategy:    StrategyCascade,
	}
}

// fallback picks the best film-like series when no season match exists,
// trying one more season refinement before settling for the series alone.
func (m *Matcher) fallback(ctx context.Context, normQuery string, candidates []ScoredCandidate) *MatchResult {
	for _, c := range candidates {
		if !c.IsFilmLike || c.Score < m.opts.MinCascadeScore {
			continue
		}

		matches := m.scoreSeasons(ctx, normQuery, c.Series)
		if ctx.Err() != nil {
			return nil
		}

		var best *seasonMatch
		for _, match := range matches {
			match := match
			if best == nil ||
				match.combined > best.combined ||
				(match.combined == best.combined && match.bonus > best.bonus) {
				best = &match
			}
		}
		if best != nil {
			return &MatchResult{
				SeriesID:    best.seriesID,
				SeasonID:    best.seasonID,
				SeasonTitle: best.seasonTitle,
				Strategy:    StrategyFallbackSeason,
			}
		}
		return &MatchResult{
			SeriesID: c.Series.ID,
			Strategy: StrategyFallback,
		}
	}
	return nil
}

// scoreSeasons fetches one series' seasons and returns the film-like ones
// that clear the combined-score bar, in season order.
//
// The combined score is the season title score plus a bonus for
// "distinctive words": query words the parent series title lacks, presumed
// to name the specific film (for a "... Babylonia" series and the query
// "... Solomon", the distinctive word is "solomon"). A season title that
// fuzzily covers more distinctive words earns a larger share of the bonus
// ceiling.
func (m *Matcher) scoreSeasons(ctx context.Context, normQuery string, series crunchyroll.Series) []seasonMatch {
	seasons, err := m.client.GetSeasons(ctx, series.ID)
	if err != nil {
		m.logger.Debug().Err(err).Str("seriesId", series.ID).Msg("season fetch failed, skipping candidate")
		return nil
	}
	if len(seasons) == 0 {
		return nil
	}

	distinctive := distinctiveWords(normQuery, Normalize(series.Title))

	var matches []seasonMatch
	for _, season := range seasons {
		if season.EpisodeCount > m.opts.MaxFilmSeasonEpisodes {
			continue
		}
		normTitle := Normalize(season.Title)
		if normTitle == "" {
			continue
		}

		titleScore := m.Score(normQuery, normTitle)
		bonus := m.distinctiveBonus(distinctive, normTitle)
		combined := titleScore + bonus

		if combined < m.opts.MinCascadeScore {
			continue
		}
		matches = append(matches, seasonMatch{
			seriesID:    series.ID,
			seasonID:    season.ID,
			seasonTitle: season.Title,
			combined:    combined,
			bonus:       bonus,
		})
	}
	return matches
}

// distinctiveBonus grants a share of the bonus ceiling proportional to how
// many distinctive words the season title fuzzily covers. Truncation
// toward zero, zero when there are no distinctive words.
func (m *Matcher) distinctiveBonus(distinctive []string, normSeasonTitle string) int {
	if len(distinctive) == 0 {
		return 0
	}

	seasonWords := strings.Fields(normSeasonTitle)

	hits := 0
	for _, word := range distinctive {
		for _, seasonWord := range seasonWords {
			if m.fuzzyWordMatch(word, seasonWord) {
				hits++
				break
			}
		}
	}

	return m.opts.DistinctiveBonusMax * hits / len(distinctive)
}

// distinctiveWords returns the query words the series title does not
// carry, in query order.
func distinctiveWords(normQuery, normSeriesTitle string) []string {
	titleSet := wordSet(strings.Fields(normSeriesTitle))

	var words []string
	seen := make(map[string]struct{})
	for _, word := range strings.Fields(normQuery) {
		if _, ok := titleSet[word]; ok {
			continue
		}
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		words = append(words, word)
	}
	return words
}
