package resolver

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"

	"github.com/imkylecat/crunchyroll-jellyfin/internal/crunchyroll"
)

// fakeCatalog is a scriptable CatalogClient for cascade tests.
type fakeCatalog struct {
	series  []crunchyroll.Series
	seasons map[string][]crunchyroll.Season

	searchErr  error
	seasonsErr map[string]error

	// failSeasonsOnce makes the first GetSeasons call for a series fail,
	// then succeed, to exercise the fallback refinement.
	failSeasonsOnce map[string]bool

	// cancelOnSeasons cancels this context during season fetches.
	cancelOnSeasons context.CancelFunc

	searchCalls  int
	seasonsCalls int
}

func (f *fakeCatalog) Search(ctx context.Context, query string, limit int) ([]crunchyroll.Series, error) {
	f.searchCalls++
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.series, nil
}

func (f *fakeCatalog) GetSeasons(ctx context.Context, seriesID string) ([]crunchyroll.Season, error) {
	f.seasonsCalls++
	if f.cancelOnSeasons != nil {
		f.cancelOnSeasons()
	}
	if f.failSeasonsOnce != nil && f.failSeasonsOnce[seriesID] {
		f.failSeasonsOnce[seriesID] = false
		return nil, errors.New("transient failure")
	}
	if err := f.seasonsErr[seriesID]; err != nil {
		return nil, err
	}
	return f.seasons[seriesID], nil
}

func (f *fakeCatalog) GetSeries(ctx context.Context, seriesID string) (*crunchyroll.SeriesDetail, error) {
	return &crunchyroll.SeriesDetail{ID: seriesID}, nil
}

func newMatcher(client CatalogClient) *Matcher {
	return NewMatcher(client, DefaultOptions(), zerolog.Nop())
}

// Scenario: a standalone single-episode series matching the query exactly
// is accepted directly, with no season drill-down.
func TestResolve_DirectHit(t *testing.T) {
	catalog := &fakeCatalog{
		series: []crunchyroll.Series{
			{ID: "S1", Title: "Jujutsu Kaisen 0", SeasonCount: 1, EpisodeCount: 1},
		},
	}

	result := newMatcher(catalog).Resolve(context.Background(), "Jujutsu Kaisen 0")
	if result == nil {
		t.Fatal("Resolve() = nil, want a match")
	}
	if result.SeriesID != "S1" {
		t.Errorf("SeriesID = %q, want %q", result.SeriesID, "S1")
	}
	if result.HasSeason() {
		t.Errorf("unexpected season %q on a direct match", result.SeasonID)
	}
	if result.Strategy != StrategyDirect {
		t.Errorf("Strategy = %q, want %q", result.Strategy, StrategyDirect)
	}
	if catalog.seasonsCalls != 0 {
		t.Errorf("GetSeasons called %d times on a direct hit, want 0", catalog.seasonsCalls)
	}
}

// A score exactly at the sensitivity threshold qualifies: the threshold
// is inclusive.
func TestResolve_DirectHitInclusiveThreshold(t *testing.T) {
	// Word overlap: 7 of the 10 candidate words match, no containment,
	// so the score is exactly 70 against the default sensitivity of 70.
	catalog := &fakeCatalog{
		series: []crunchyroll.Series{
			{ID: "S1", Title: "seven one two three four five six eight nine ten", SeasonCount: 1, EpisodeCount: 1},
		},
	}

	m := newMatcher(catalog)
	query := "one two three four five six seven"
	if score := m.Score(Normalize(query), Normalize(catalog.series[0].Title)); score != 70 {
		t.Fatalf("test setup broken: score = %d, want exactly 70", score)
	}

	result := m.Resolve(context.Background(), query)
	if result == nil {
		t.Fatal("Resolve() = nil, want a direct match at the inclusive threshold")
	}
	if result.Strategy != StrategyDirect {
		t.Errorf("Strategy = %q, want %q", result.Strategy, StrategyDirect)
	}
}

// Scenario: a film hidden as a single-episode season inside a larger
// series. The series itself is not film-like, so the cascade drills into
// its seasons and the distinctive word "solomon" earns the full bonus.
func TestResolve_SeasonCascade(t *testing.T) {
	catalog := &fakeCatalog{
		series: []crunchyroll.Series{
			{ID: "S2", Title: "Fate/Grand Order: Babylonia", SeasonCount: 2, EpisodeCount: 26},
		},
		seasons: map[string][]crunchyroll.Season{
			"S2": {
				{ID: "SE0", Title: "Babylonia", SequenceNumber: 1, EpisodeCount: 21, SeriesID: "S2"},
				{ID: "SE1", Title: "Solomon", SequenceNumber: 2, EpisodeCount: 1, SeriesID: "S2"},
			},
		},
	}

	result := newMatcher(catalog).Resolve(context.Background(), "Fate Grand Order Solomon")
	if result == nil {
		t.Fatal("Resolve() = nil, want a season match")
	}
	if result.SeriesID != "S2" {
		t.Errorf("SeriesID = %q, want %q", result.SeriesID, "S2")
	}
	if result.SeasonID != "SE1" {
		t.Errorf("SeasonID = %q, want %q", result.SeasonID, "SE1")
	}
	if result.SeasonTitle != "Solomon" {
		t.Errorf("SeasonTitle = %q, want %q", result.SeasonTitle, "Solomon")
	}
	if result.Strategy != StrategyCascade {
		t.Errorf("Strategy = %q, want %q", result.Strategy, StrategyCascade)
	}
}

// The cascade keeps going past the first qualifying candidate: a lower
// ranked series can hold the better season, and the global best wins.
func TestResolve_SeasonCascadePicksGlobalBest(t *testing.T) {
	catalog := &fakeCatalog{
		series: []crunchyroll.Series{
			{ID: "A", Title: "gekijouban haikyuu", SeasonCount: 2, EpisodeCount: 50},
			{ID: "B", Title: "haikyuu", SeasonCount: 4, EpisodeCount: 85},
		},
		seasons: map[string][]crunchyroll.Season{
			"A": {
				{ID: "A1", Title: "recap", SequenceNumber: 1, EpisodeCount: 1, SeriesID: "A"},
			},
			"B": {
				{ID: "B1", Title: "gomisuteba no kessen", SequenceNumber: 5, EpisodeCount: 1, SeriesID: "B"},
			},
		},
	}

	result := newMatcher(catalog).Resolve(context.Background(), "haikyuu gomisuteba no kessen")
	if result == nil {
		t.Fatal("Resolve() = nil, want a season match")
	}
	if result.SeriesID != "B" || result.SeasonID != "B1" {
		t.Errorf("got series %q season %q, want series B season B1", result.SeriesID, result.SeasonID)
	}
}

// Scenario: nothing in the catalog matches.
func TestResolve_EmptySearchIsNoMatch(t *testing.T) {
	catalog := &fakeCatalog{}

	if result := newMatcher(catalog).Resolve(context.Background(), "completely unknown title"); result != nil {
		t.Errorf("Resolve() = %+v, want nil", result)
	}
}

// A transport failure surfaces as an empty result, never as a partial
// match or panic.
func TestResolve_SearchErrorIsNoMatch(t *testing.T) {
	catalog := &fakeCatalog{searchErr: errors.New("gateway timeout")}

	if result := newMatcher(catalog).Resolve(context.Background(), "anything"); result != nil {
		t.Errorf("Resolve() = %+v, want nil", result)
	}
}

// Results without a title are skipped at scoring time, not fatal.
func TestResolve_UntitledResultsSkipped(t *testing.T) {
	catalog := &fakeCatalog{
		series: []crunchyroll.Series{
			{ID: "S0", Title: "", SeasonCount: 1, EpisodeCount: 1},
			{ID: "S1", Title: "Akira", SeasonCount: 1, EpisodeCount: 1},
		},
	}

	result := newMatcher(catalog).Resolve(context.Background(), "Akira")
	if result == nil || result.SeriesID != "S1" {
		t.Fatalf("Resolve() = %+v, want series S1", result)
	}
}

// A film-like series below the direct threshold but above the cascade
// floor is returned alone when no season qualifies.
func TestResolve_SeriesFallback(t *testing.T) {
	catalog := &fakeCatalog{
		series: []crunchyroll.Series{
			// Scrambled word order defeats containment: exact=2 of 4
			// words, score 50, film-like.
			{ID: "F1", Title: "beta alpha", SeasonCount: 1, EpisodeCount: 1},
		},
	}

	result := newMatcher(catalog).Resolve(context.Background(), "alpha beta gamma delta")
	if result == nil {
		t.Fatal("Resolve() = nil, want a fallback match")
	}
	if result.SeriesID != "F1" {
		t.Errorf("SeriesID = %q, want %q", result.SeriesID, "F1")
	}
	if result.Strategy != StrategyFallback {
		t.Errorf("Strategy = %q, want %q", result.Strategy, StrategyFallback)
	}
	if result.HasSeason() {
		t.Errorf("unexpected season %q on a series fallback", result.SeasonID)
	}
}

// When the season fetch failed during the cascade but succeeds during the
// fallback refinement, the fallback still attaches the season.
func TestResolve_FallbackWithSeasonRefinement(t *testing.T) {
	catalog := &fakeCatalog{
		series: []crunchyroll.Series{
			{ID: "F1", Title: "beta alpha", SeasonCount: 1, EpisodeCount: 1},
		},
		seasons: map[string][]crunchyroll.Season{
			"F1": {
				{ID: "F1S1", Title: "gamma delta", SequenceNumber: 1, EpisodeCount: 1, SeriesID: "F1"},
			},
		},
		failSeasonsOnce: map[string]bool{"F1": true},
	}

	result := newMatcher(catalog).Resolve(context.Background(), "alpha beta gamma delta")
	if result == nil {
		t.Fatal("Resolve() = nil, want a fallback season match")
	}
	if result.Strategy != StrategyFallbackSeason {
		t.Errorf("Strategy = %q, want %q", result.Strategy, StrategyFallbackSeason)
	}
	if result.SeasonID != "F1S1" {
		t.Errorf("SeasonID = %q, want %q", result.SeasonID, "F1S1")
	}
}

// A failing season fetch for one candidate must not poison the others.
func TestResolve_SeasonFetchErrorSkipsCandidate(t *testing.T) {
	catalog := &fakeCatalog{
		series: []crunchyroll.Series{
			{ID: "BAD", Title: "kimetsu no yaiba", SeasonCount: 3, EpisodeCount: 55},
			{ID: "OK", Title: "kimetsu no yaiba gaiden", SeasonCount: 2, EpisodeCount: 30},
		},
		seasons: map[string][]crunchyroll.Season{
			"OK": {
				{ID: "OKS1", Title: "mugen ressha", SequenceNumber: 1, EpisodeCount: 1, SeriesID: "OK"},
			},
		},
		seasonsErr: map[string]error{"BAD": errors.New("boom")},
	}

	result := newMatcher(catalog).Resolve(context.Background(), "kimetsu no yaiba mugen ressha")
	if result == nil {
		t.Fatal("Resolve() = nil, want a season match from the healthy candidate")
	}
	if result.SeriesID != "OK" || result.SeasonID != "OKS1" {
		t.Errorf("got series %q season %q, want OK/OKS1", result.SeriesID, result.SeasonID)
	}
}

// Seasons with more than two episodes are never offered as film matches.
func TestResolve_OnlyFilmLikeSeasonsConsidered(t *testing.T) {
	catalog := &fakeCatalog{
		series: []crunchyroll.Series{
			{ID: "S", Title: "shingeki no kyojin", SeasonCount: 4, EpisodeCount: 87},
		},
		seasons: map[string][]crunchyroll.Season{
			"S": {
				{ID: "SS1", Title: "shingeki no kyojin kanketsu", SequenceNumber: 1, EpisodeCount: 12, SeriesID: "S"},
			},
		},
	}

	if result := newMatcher(catalog).Resolve(context.Background(), "shingeki no kyojin kanketsu"); result != nil && result.HasSeason() {
		t.Errorf("Resolve() matched non-film season %q", result.SeasonID)
	}
}

// Cancellation at a suspension point aborts the whole resolution.
func TestResolve_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	catalog := &fakeCatalog{
		series: []crunchyroll.Series{
			{ID: "S2", Title: "Fate/Grand Order: Babylonia", SeasonCount: 2, EpisodeCount: 26},
		},
		seasons: map[string][]crunchyroll.Season{
			"S2": {
				{ID: "SE1", Title: "Solomon", SequenceNumber: 2, EpisodeCount: 1, SeriesID: "S2"},
			},
		},
		cancelOnSeasons: cancel,
	}

	if result := newMatcher(catalog).Resolve(ctx, "Fate Grand Order Solomon"); result != nil {
		t.Errorf("Resolve() = %+v after cancellation, want nil", result)
	}
}

// Resolving the same query against an unchanged catalog twice yields the
// identical result.
func TestResolve_Deterministic(t *testing.T) {
	catalog := &fakeCatalog{
		series: []crunchyroll.Series{
			{ID: "A", Title: "gekijouban haikyuu", SeasonCount: 2, EpisodeCount: 50},
			{ID: "B", Title: "haikyuu", SeasonCount: 4, EpisodeCount: 85},
			{ID: "C", Title: "haikyuu second season", SeasonCount: 1, EpisodeCount: 25},
		},
		seasons: map[string][]crunchyroll.Season{
			"A": {{ID: "A1", Title: "recap", SequenceNumber: 1, EpisodeCount: 1, SeriesID: "A"}},
			"B": {{ID: "B1", Title: "gomisuteba no kessen", SequenceNumber: 5, EpisodeCount: 1, SeriesID: "B"}},
		},
	}

	m := newMatcher(catalog)
	first := m.Resolve(context.Background(), "haikyuu gomisuteba no kessen")
	second := m.Resolve(context.Background(), "haikyuu gomisuteba no kessen")
	if first == nil || second == nil {
		t.Fatal("Resolve() = nil, want matches")
	}
	if *first != *second {
		t.Errorf("results differ: %+v vs %+v", first, second)
	}
}

// Every returned series id must come from the search results of that
// query; the cascade never fabricates ids.
func TestResolve_SeriesIDFromSearchResults(t *testing.T) {
	catalog := &fakeCatalog{
		series: []crunchyroll.Series{
			{ID: "S1", Title: "perfect blue", SeasonCount: 1, EpisodeCount: 1},
			{ID: "S2", Title: "paprika", SeasonCount: 1, EpisodeCount: 1},
		},
	}

	queries := []string{"perfect blue", "paprika", "paranoia agent"}
	known := map[string]bool{"S1": true, "S2": true}

	m := newMatcher(catalog)
	for _, q := range queries {
		if result := m.Resolve(context.Background(), q); result != nil && !known[result.SeriesID] {
			t.Errorf("query %q returned fabricated series id %q", q, result.SeriesID)
		}
	}
}

// The candidate cap limits how many series are drilled into.
func TestResolve_CandidateCap(t *testing.T) {
	var series []crunchyroll.Series
	seasons := make(map[string][]crunchyroll.Season)
	for i := 0; i < 15; i++ {
		id := fmt.Sprintf("S%d", i)
		// Identical titles: all score the same, none film-like.
		series = append(series, crunchyroll.Series{ID: id, Title: "boku no hero", SeasonCount: 7, EpisodeCount: 150})
		seasons[id] = nil
	}
	catalog := &fakeCatalog{series: series, seasons: seasons}

	newMatcher(catalog).Resolve(context.Background(), "boku no hero")

	if catalog.seasonsCalls > 10 {
		t.Errorf("GetSeasons called %d times, want at most 10", catalog.seasonsCalls)
	}
}
