package scrape

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/imkylecat/crunchyroll-jellyfin/internal/config"
	"github.com/imkylecat/crunchyroll-jellyfin/internal/crunchyroll"
)

const searchPage = `<html><body>
<div data-t="series-card">
  <a href="/series/GR9P1VX/jujutsu-kaisen-0">link</a>
  <h4><a href="/series/GR9P1VX/jujutsu-kaisen-0">Jujutsu Kaisen 0</a></h4>
  <div data-t="meta-tags">1 Season • 1 Episode</div>
</div>
<div data-t="series-card">
  <a href="/series/GRDV0019R/jujutsu-kaisen">link</a>
  <h4><a href="/series/GRDV0019R/jujutsu-kaisen">Jujutsu Kaisen</a></h4>
  <div data-t="meta-tags">2 Seasons • 47 Episodes</div>
</div>
<div data-t="series-card">
  <a href="/watch/XYZ/not-a-series">broken card</a>
</div>
</body></html>`

const seriesPage = `<html><body>
<h1 data-t="series-title">Fate/Grand Order: Babylonia</h1>
<div data-t="series-description"><p>The seventh singularity.</p></div>
<img data-t="series-poster" src="https://img.example/poster.jpg">
<span data-t="average-rating">4.7</span>
<div data-t="season-option" data-season-id="SE0" data-episode-count="21">
  <span data-t="season-title">Babylonia</span>
</div>
<div data-t="season-option" data-season-id="SE1" data-episode-count="1">
  <span data-t="season-title">Solomon</span>
</div>
<div data-t="season-option">
  <span data-t="season-title">no id, skipped</span>
</div>
</body></html>`

func newTestClient(server *httptest.Server) *Client {
	return NewClient(config.CrunchyrollConfig{
		BaseURL: server.URL,
		Locale:  "en-US",
		Timeout: 5,
	}, zerolog.Nop())
}

func TestScrapeSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("q"); got != "jujutsu kaisen 0" {
			t.Errorf("q param = %q", got)
		}
		if ua := r.Header.Get("User-Agent"); ua != userAgent {
			t.Errorf("User-Agent = %q", ua)
		}
		fmt.Fprint(w, searchPage)
	}))
	defer server.Close()

	results, err := newTestClient(server).Search(context.Background(), "jujutsu kaisen 0", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2 (card without series link skipped)", len(results))
	}
	want := crunchyroll.Series{ID: "GR9P1VX", Title: "Jujutsu Kaisen 0", SeasonCount: 1, EpisodeCount: 1}
	if results[0] != want {
		t.Errorf("results[0] = %+v, want %+v", results[0], want)
	}
	if results[1].SeasonCount != 2 || results[1].EpisodeCount != 47 {
		t.Errorf("results[1] counts = %d/%d, want 2/47", results[1].SeasonCount, results[1].EpisodeCount)
	}
}

func TestScrapeSearch_LimitRespected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, searchPage)
	}))
	defer server.Close()

	results, err := newTestClient(server).Search(context.Background(), "jujutsu", 1)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 {
		t.Errorf("got %d results, want 1", len(results))
	}
}

func TestScrapeGetSeasons(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/series/S2" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprint(w, seriesPage)
	}))
	defer server.Close()

	seasons, err := newTestClient(server).GetSeasons(context.Background(), "S2")
	if err != nil {
		t.Fatalf("GetSeasons() error = %v", err)
	}
	if len(seasons) != 2 {
		t.Fatalf("got %d seasons, want 2 (option without id skipped)", len(seasons))
	}
	want := crunchyroll.Season{ID: "SE1", Title: "Solomon", SequenceNumber: 2, EpisodeCount: 1, SeriesID: "S2"}
	if seasons[1] != want {
		t.Errorf("seasons[1] = %+v, want %+v", seasons[1], want)
	}
}

func TestScrapeGetSeries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, seriesPage)
	}))
	defer server.Close()

	detail, err := newTestClient(server).GetSeries(context.Background(), "S2")
	if err != nil {
		t.Fatalf("GetSeries() error = %v", err)
	}
	if detail.Title != "Fate/Grand Order: Babylonia" {
		t.Errorf("Title = %q", detail.Title)
	}
	if detail.Description != "The seventh singularity." {
		t.Errorf("Description = %q", detail.Description)
	}
	if detail.Rating != 4.7 {
		t.Errorf("Rating = %v, want 4.7", detail.Rating)
	}
	if detail.PosterURL != "https://img.example/poster.jpg" {
		t.Errorf("PosterURL = %q", detail.PosterURL)
	}
}

func TestScrapeGetSeries_EmptyPageIsNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body></body></html>`)
	}))
	defer server.Close()

	if _, err := newTestClient(server).GetSeries(context.Background(), "S2"); !errors.Is(err, crunchyroll.ErrSeriesNotFound) {
		t.Errorf("GetSeries() error = %v, want ErrSeriesNotFound", err)
	}
}

func TestScrapeFetch_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"not found", http.StatusNotFound, crunchyroll.ErrSeriesNotFound},
		{"rate limited", http.StatusTooManyRequests, crunchyroll.ErrRateLimited},
		{"cloudflare challenge", http.StatusForbidden, crunchyroll.ErrRateLimited},
		{"server error", http.StatusBadGateway, crunchyroll.ErrAPIError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			if _, err := newTestClient(server).Search(context.Background(), "akira", 10); !errors.Is(err, tt.want) {
				t.Errorf("Search() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSeriesIDFromHref(t *testing.T) {
	tests := []struct {
		href   string
		wantID string
		wantOK bool
	}{
		{"/series/GR9P1VX/jujutsu-kaisen-0", "GR9P1VX", true},
		{"/series/GR9P1VX", "GR9P1VX", true},
		{"https://www.crunchyroll.com/series/GR9P1VX/slug", "GR9P1VX", true},
		{"/watch/XYZ/episode", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		id, ok := seriesIDFromHref(tt.href)
		if id != tt.wantID || ok != tt.wantOK {
			t.Errorf("seriesIDFromHref(%q) = %q, %v; want %q, %v", tt.href, id, ok, tt.wantID, tt.wantOK)
		}
	}
}

func TestParseCardCounts(t *testing.T) {
	tests := []struct {
		text         string
		wantSeasons  int
		wantEpisodes int
	}{
		{"2 Seasons • 26 Episodes", 2, 26},
		{"1 Season • 1 Episode", 1, 1},
		{"4 Seasons | 85 Episodes", 4, 85},
		{"26 Episodes", 0, 26},
		{"Sub | Dub", 0, 0},
		{"", 0, 0},
	}

	for _, tt := range tests {
		seasons, episodes := parseCardCounts(tt.text)
		if seasons != tt.wantSeasons || episodes != tt.wantEpisodes {
			t.Errorf("parseCardCounts(%q) = %d, %d; want %d, %d", tt.text, seasons, episodes, tt.wantSeasons, tt.wantEpisodes)
		}
	}
}
