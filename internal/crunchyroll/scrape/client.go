// Package scrape is the fallback catalog client for deployments where the
// content API sits behind an aggressive Cloudflare configuration. It
// parses the public website instead and serves the same surface as the
// API client; the matcher cannot tell them apart.
package scrape

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/imkylecat/crunchyroll-jellyfin/internal/config"
	"github.com/imkylecat/crunchyroll-jellyfin/internal/crunchyroll"
)

const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// Client scrapes the Crunchyroll website.
type Client struct {
	httpClient *http.Client
	config     config.CrunchyrollConfig
	logger     zerolog.Logger
}

// NewClient creates a new scraping client.
func NewClient(cfg config.CrunchyrollConfig, logger zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		config: cfg,
		logger: logger.With().Str("component", "crunchyroll-scrape").Logger(),
	}
}

// Name returns the client name.
func (c *Client) Name() string {
	return "crunchyroll-scrape"
}

// IsConfigured is always true; scraping needs no credentials.
func (c *Client) IsConfigured() bool {
	return true
}

// Search parses the website search page for series cards.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]crunchyroll.Series, error) {
	endpoint := fmt.Sprintf("%s/search?q=%s", c.config.BaseURL, url.QueryEscape(query))

	doc, err := c.fetch(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var results []crunchyroll.Series
	doc.Find("[data-t='series-card']").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if len(results) >= limit {
			return false
		}

		id, ok := seriesIDFromHref(sel.Find("a[href*='/series/']").AttrOr("href", ""))
		if !ok {
			return true
		}

		series := crunchyroll.Series{
			ID:    id,
			Title: strings.TrimSpace(sel.Find("[data-t='title'] a, h4 a").First().Text()),
		}
		// Card metadata line reads like "2 Seasons • 26 Episodes"
		series.SeasonCount, series.EpisodeCount = parseCardCounts(sel.Find("[data-t='meta-tags']").First().Text())
		results = append(results, series)
		return true
	})

	c.logger.Debug().
		Str("query", query).
		Int("results", len(results)).
		Msg("series search scraped")

	return results, nil
}

// GetSeasons parses the series page season selector.
func (c *Client) GetSeasons(ctx context.Context, seriesID string) ([]crunchyroll.Season, error) {
	endpoint := fmt.Sprintf("%s/series/%s", c.config.BaseURL, url.PathEscape(seriesID))

	doc, err := c.fetch(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var seasons []crunchyroll.Season
	doc.Find("[data-t='season-option']").Each(func(i int, sel *goquery.Selection) {
		season := crunchyroll.Season{
			ID:             sel.AttrOr("data-season-id", ""),
			Title:          strings.TrimSpace(sel.Find("[data-t='season-title']").First().Text()),
			SequenceNumber: i + 1,
			SeriesID:       seriesID,
		}
		if season.ID == "" {
			return
		}
		if count, err := strconv.Atoi(strings.TrimSpace(sel.AttrOr("data-episode-count", ""))); err == nil {
			season.EpisodeCount = count
		}
		seasons = append(seasons, season)
	})

	c.logger.Debug().
		Str("seriesId", seriesID).
		Int("seasons", len(seasons)).
		Msg("season listing scraped")

	return seasons, nil
}

// GetSeries parses the series page header for display metadata.
func (c *Client) GetSeries(ctx context.Context, seriesID string) (*crunchyroll.SeriesDetail, error) {
	endpoint := fmt.Sprintf("%s/series/%s", c.config.BaseURL, url.PathEscape(seriesID))

	doc, err := c.fetch(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	detail := &crunchyroll.SeriesDetail{
		ID:          seriesID,
		Title:       strings.TrimSpace(doc.Find("h1[data-t='series-title'], h1").First().Text()),
		Description: strings.TrimSpace(doc.Find("[data-t='series-description'] p, [data-t='series-description']").First().Text()),
		PosterURL:   doc.Find("img[data-t='series-poster']").First().AttrOr("src", ""),
	}
	if detail.Title == "" {
		return nil, crunchyroll.ErrSeriesNotFound
	}

	if rating := strings.TrimSpace(doc.Find("[data-t='average-rating']").First().Text()); rating != "" {
		if parsed, err := strconv.ParseFloat(rating, 64); err == nil {
			detail.Rating = parsed
		}
	}

	return detail, nil
}

// fetch GETs a page and parses it.
func (c *Client) fetch(ctx context.Context, endpoint string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", c.config.Locale)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("url", endpoint).Msg("page fetch failed")
		return nil, fmt.Errorf("page fetch failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, crunchyroll.ErrSeriesNotFound
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode == http.StatusForbidden:
		// Cloudflare challenge pages come back as 403
		return nil, crunchyroll.ErrRateLimited
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: status %d", crunchyroll.ErrAPIError, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}
	return doc, nil
}

// seriesIDFromHref pulls the series id out of a /series/{id}/{slug} link.
func seriesIDFromHref(href string) (string, bool) {
	if href == "" {
		return "", false
	}
	parts := strings.Split(strings.Trim(href, "/"), "/")
	for i, part := range parts {
		if part == "series" && i+1 < len(parts) {
			return parts[i+1], true
		}
	}
	return "", false
}

// parseCardCounts reads "2 Seasons • 26 Episodes" style metadata lines.
func parseCardCounts(text string) (seasons, episodes int) {
	for _, field := range strings.FieldsFunc(text, func(r rune) bool { return r == '•' || r == '|' }) {
		words := strings.Fields(field)
		if len(words) < 2 {
			continue
		}
		count, err := strconv.Atoi(words[0])
		if err != nil {
			continue
		}
		switch strings.ToLower(strings.TrimSuffix(words[1], "s")) {
		case "season":
			seasons = count
		case "episode":
			episodes = count
		}
	}
	return seasons, episodes
}
