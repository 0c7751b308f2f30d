package resolver

import (
	"context"

	"github.com/imkylecat/crunchyroll-jellyfin/internal/crunchyroll"
)

// CatalogClient is the remote catalog surface the cascade depends on.
// Search results arrive in remote relevance order, which is not trusted;
// the cascade re-scores locally. GetSeries is used only to hydrate a
// chosen match.
type CatalogClient interface {
	Search(ctx context.Context, query string, limit int) ([]crunchyroll.Series, error)
	GetSeasons(ctx context.Context, seriesID string) ([]crunchyroll.Season, error)
	GetSeries(ctx context.Context, seriesID string) (*crunchyroll.SeriesDetail, error)
}

// Strategy tags how a match was found.
type Strategy string

const (
	// StrategyDirect is a series-level hit above the sensitivity threshold.
	StrategyDirect Strategy = "L1-Direct"
	// StrategyCascade is a film-like season found by drilling into
	// candidate series.
	StrategyCascade Strategy = "L2-Cascade"
	// StrategyFallbackSeason is the series-only fallback that still found
	// a qualifying season on its single series.
	StrategyFallbackSeason Strategy = "L1-Fallback+L2"
	// StrategyFallback is the bare series-only fallback.
	StrategyFallback Strategy = "L1-Fallback"
)

// ScoredCandidate wraps a search result with its locally computed score
// and film-likelihood. Score is unclamped.
type ScoredCandidate struct {
	Series     crunchyroll.Series
	Score      int
	IsFilmLike bool
}

// MatchResult is the terminal output of a resolution. SeasonID and
// SeasonTitle are set only for season-level matches. The series id always
// comes from the same query's search results.
type MatchResult struct {
	SeriesID    string
	SeasonID    string
	SeasonTitle string
	Strategy    Strategy
}

// HasSeason reports whether the match drilled down to a season.
func (r *MatchResult) HasSeason() bool {
	return r.SeasonID != ""
}

// Options holds the cascade tunables. The defaults reproduce the shipped
// behavior; only Sensitivity is commonly changed.
type Options struct {
	// Sensitivity is the inclusive score threshold for a direct
	// series-level match (0-100).
	Sensitivity int
	// SearchLimit caps how many search results are requested.
	SearchLimit int
	// MinCascadeScore is the minimum series score that justifies fetching
	// its seasons, and the minimum combined score for accepting a season.
	MinCascadeScore int
	// MaxCascadeCandidates caps how many series are drilled into.
	MaxCascadeCandidates int
	// MaxFilmSeasonEpisodes is the largest episode count a season may have
	// and still count as film-like.
	MaxFilmSeasonEpisodes int
	// DistinctiveBonusMax is the ceiling of the distinctive-word bonus.
	DistinctiveBonusMax int
	// MinFuzzyLength is the minimum length of the shorter word in a fuzzy
	// substring match.
	MinFuzzyLength int
}

// DefaultOptions returns the default cascade tunables.
func DefaultOptions() Options {
	return Options{
		Sensitivity:           70,
		SearchLimit:           10,
		MinCascadeScore:       25,
		MaxCascadeCandidates:  10,
		MaxFilmSeasonEpisodes: 2,
		DistinctiveBonusMax:   40,
		MinFuzzyLength:        3,
	}
}

// normalize fills zero values so a partially populated Options (say, from
// a config file that only sets sensitivity) still behaves.
func (o Options) normalize() Options {
	def := DefaultOptions()
	if o.Sensitivity <= 0 {
		o.Sensitivity = def.Sensitivity
	}
	if o.SearchLimit <= 0 {
		o.SearchLimit = def.SearchLimit
	}
	if o.MinCascadeScore <= 0 {
		o.MinCascadeScore = def.MinCascadeScore
	}
	if o.MaxCascadeCandidates <= 0 {
		o.MaxCascadeCandidates = def.MaxCascadeCandidates
	}
	if o.MaxFilmSeasonEpisodes <= 0 {
		o.MaxFilmSeasonEpisodes = def.MaxFilmSeasonEpisodes
	}
	if o.DistinctiveBonusMax <= 0 {
		o.DistinctiveBonusMax = def.DistinctiveBonusMax
	}
	if o.MinFuzzyLength <= 0 {
		o.MinFuzzyLength = def.MinFuzzyLength
	}
	return o
}
