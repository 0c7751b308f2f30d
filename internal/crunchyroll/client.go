package crunchyroll

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/imkylecat/crunchyroll-jellyfin/internal/config"
)

var (
	ErrNotConfigured  = errors.New("crunchyroll client credentials are not configured")
	ErrAuthFailed     = errors.New("crunchyroll authentication failed")
	ErrSeriesNotFound = errors.New("series not found")
	ErrRateLimited    = errors.New("crunchyroll API rate limited")
	ErrAPIError       = errors.New("crunchyroll API error")
)

// Client is a Crunchyroll content API client. It authenticates with
// anonymous client credentials and caches the bearer token across calls;
// concurrent resolutions share one refresh instead of racing.
type Client struct {
	httpClient *http.Client
	config     config.CrunchyrollConfig
	logger     zerolog.Logger

	// Token management
	mu          sync.RWMutex
	token       string
	tokenExpiry time.Time
}

// NewClient creates a new Crunchyroll client.
func NewClient(cfg config.CrunchyrollConfig, logger zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		config: cfg,
		logger: logger.With().Str("component", "crunchyroll").Logger(),
	}
}

// Name returns the client name.
func (c *Client) Name() string {
	return "crunchyroll"
}

// IsConfigured returns true if client credentials are set.
func (c *Client) IsConfigured() bool {
	return c.config.ClientID != "" && c.config.ClientSecret != ""
}

// authenticate gets or refreshes the bearer token.
func (c *Client) authenticate(ctx context.Context) error {
	c.mu.RLock()
	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		c.mu.RUnlock()
		return nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Double-check after acquiring write lock
	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.AuthURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create token request: %w", err)
	}
	basic := base64.StdEncoding.EncodeToString([]byte(c.config.ClientID + ":" + c.config.ClientSecret))
	req.Header.Set("Authorization", "Basic "+basic)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error().Int("status", resp.StatusCode).Msg("Crunchyroll authentication failed")
		return ErrAuthFailed
	}

	var tokenResp tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return fmt.Errorf("failed to decode token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return ErrAuthFailed
	}

	c.token = tokenResp.AccessToken
	c.tokenExpiry = tokenExpiry(tokenResp)

	c.logger.Debug().Time("expiry", c.tokenExpiry).Msg("Crunchyroll authentication successful")
	return nil
}

// tokenExpiry determines when the token stops being valid. The access
// token is a JWT; its exp claim is authoritative. expires_in is the
// fallback when the claim cannot be read. A one minute safety margin
// avoids using a token that dies mid-request.
func tokenExpiry(resp tokenResponse) time.Time {
	if claims := parseExpClaim(resp.AccessToken); !claims.IsZero() {
		return claims.Add(-time.Minute)
	}
	expiresIn := resp.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = 300
	}
	return time.Now().Add(time.Duration(expiresIn)*time.Second - time.Minute)
}

func parseExpClaim(token string) time.Time {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

// Search returns series-type search results for the query, in the remote
// catalog's relevance order.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]Series, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}

	if err := c.authenticate(ctx); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/content/v2/discover/search", c.config.BaseURL)
	params := url.Values{}
	params.Set("q", query)
	params.Set("n", fmt.Sprintf("%d", limit))
	params.Set("type", "series")
	params.Set("locale", c.config.Locale)

	var response searchResponse
	if err := c.doRequest(ctx, endpoint, params, &response); err != nil {
		return nil, err
	}

	var results []Series
	for _, group := range response.Data {
		if group.Type != "series" {
			continue
		}
		for _, item := range group.Items {
			results = append(results, searchItemToSeries(item))
		}
	}

	c.logger.Debug().
		Str("query", query).
		Int("results", len(results)).
		Msg("series search completed")

	return results, nil
}

// GetSeasons returns all seasons of a series. Order follows the catalog's
// season_sequence_number; callers score them and do not rely on order.
func (c *Client) GetSeasons(ctx context.Context, seriesID string) ([]Season, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}

	if err := c.authenticate(ctx); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/content/v2/cms/series/%s/seasons", c.config.BaseURL, url.PathEscape(seriesID))
	params := url.Values{}
	params.Set("locale", c.config.Locale)

	var response seasonsResponse
	if err := c.doRequest(ctx, endpoint, params, &response); err != nil {
		return nil, err
	}

	seasons := make([]Season, 0, len(response.Data))
	for _, item := range response.Data {
		seasons = append(seasons, Season{
			ID:             item.ID,
			Title:          item.Title,
			SequenceNumber: item.SequenceNumber,
			EpisodeCount:   item.NumberOfEpisodes,
			SeriesID:       seriesID,
		})
	}

	c.logger.Debug().
		Str("seriesId", seriesID).
		Int("seasons", len(seasons)).
		Msg("season listing completed")

	return seasons, nil
}

// GetSeries returns display metadata for one series. Used to hydrate a
// chosen match, never for matching itself.
func (c *Client) GetSeries(ctx context.Context, seriesID string) (*SeriesDetail, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}

	if err := c.authenticate(ctx); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/content/v2/cms/series/%s", c.config.BaseURL, url.PathEscape(seriesID))
	params := url.Values{}
	params.Set("locale", c.config.Locale)

	var response seriesResponse
	if err := c.doRequest(ctx, endpoint, params, &response); err != nil {
		return nil, err
	}
	if len(response.Data) == 0 {
		return nil, ErrSeriesNotFound
	}

	detail := seriesDetailToResult(response.Data[0])

	c.logger.Debug().
		Str("seriesId", seriesID).
		Str("title", detail.Title).
		Msg("got series details")

	return &detail, nil
}

// doRequest performs an authenticated GET request.
func (c *Client) doRequest(ctx context.Context, endpoint string, params url.Values, result interface{}) error {
	reqURL := endpoint
	if len(params) > 0 {
		reqURL = fmt.Sprintf("%s?%s", endpoint, params.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("url", endpoint).Msg("HTTP request failed")
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		switch resp.StatusCode {
		case http.StatusNotFound:
			return ErrSeriesNotFound
		case http.StatusUnauthorized:
			// Token might be expired, clear it
			c.mu.Lock()
			c.token = ""
			c.mu.Unlock()
			return fmt.Errorf("%w: unauthorized", ErrAPIError)
		case http.StatusTooManyRequests:
			return ErrRateLimited
		default:
			return fmt.Errorf("%w: status %d", ErrAPIError, resp.StatusCode)
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// searchItemToSeries converts a search item to a Series.
func searchItemToSeries(item searchItem) Series {
	s := Series{
		ID:    item.ID,
		Title: item.Title,
	}
	if item.SeriesMetadata != nil {
		s.SeasonCount = item.SeriesMetadata.SeasonCount
		s.EpisodeCount = item.SeriesMetadata.EpisodeCount
	}
	return s
}

// seriesDetailToResult converts a series detail item to a SeriesDetail.
func seriesDetailToResult(item seriesDetailItem) SeriesDetail {
	posterURL := ""
	for _, variants := range item.Images.PosterTall {
		for _, img := range variants {
			// Last variant is the largest rendition
			posterURL = img.Source
		}
	}

	return SeriesDetail{
		ID:           item.ID,
		Title:        item.Title,
		Description:  item.Description,
		Year:         item.SeriesLaunchY,
		Rating:       item.AverageRating,
		PosterURL:    posterURL,
		SeasonCount:  item.SeasonCount,
		EpisodeCount: item.EpisodeCount,
	}
}
