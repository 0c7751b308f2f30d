package crunchyroll

// Series is a series-level search result. Crunchyroll has no standalone
// film type: films show up as single-episode series, or as short seasons
// nested inside a larger series.
type Series struct {
	ID           string
	Title        string
	SeasonCount  int
	EpisodeCount int
}

// Season is one season of a series. SequenceNumber is the true ordinal
// position across the series; the API also exposes a season_number field
// that is frequently the same constant for every season of a series and
// must not be used for ordering.
type Season struct {
	ID             string
	Title          string
	SequenceNumber int
	EpisodeCount   int
	SeriesID       string
}

// SeriesDetail carries the display metadata fetched after a match is
// chosen. It plays no part in matching.
type SeriesDetail struct {
	ID           string
	Title        string
	Description  string
	Year         int
	Rating       float64
	PosterURL    string
	SeasonCount  int
	EpisodeCount int
}

// tokenResponse is the auth endpoint payload.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// searchResponse is the discover search payload. Results are grouped by
// type; only the "series" group is consumed.
type searchResponse struct {
	Total int           `json:"total"`
	Data  []searchGroup `json:"data"`
}

type searchGroup struct {
	Type  string       `json:"type"`
	Items []searchItem `json:"items"`
}

type searchItem struct {
	ID             string          `json:"id"`
	Type           string          `json:"type"`
	Title          string          `json:"title"`
	SeriesMetadata *seriesMetadata `json:"series_metadata"`
}

type seriesMetadata struct {
	SeasonCount   int `json:"season_count"`
	EpisodeCount  int `json:"episode_count"`
	SeriesLaunchY int `json:"series_launch_year"`
}

// seasonsResponse is the season listing payload.
type seasonsResponse struct {
	Total int          `json:"total"`
	Data  []seasonItem `json:"data"`
}

type seasonItem struct {
	ID string `json:"id"`
	// Localized display title; may be empty for dub-only variants.
	Title string `json:"title"`
	// season_number is a fixed value on many series and is deliberately
	// ignored; season_sequence_number is the real ordering.
	SeasonNumber     int    `json:"season_number"`
	SequenceNumber   int    `json:"season_sequence_number"`
	NumberOfEpisodes int    `json:"number_of_episodes"`
	SeriesID         string `json:"series_id"`
}

// seriesResponse is the series detail payload.
type seriesResponse struct {
	Data []seriesDetailItem `json:"data"`
}

type seriesDetailItem struct {
	ID             string  `json:"id"`
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	SeriesLaunchY  int     `json:"series_launch_year"`
	AverageRating  float64 `json:"average_rating"`
	SeasonCount    int     `json:"season_count"`
	EpisodeCount   int     `json:"episode_count"`
	Images         images  `json:"images"`
	ContentRatings struct {
		Rating string `json:"rating"`
	} `json:"content_ratings"`
}

type images struct {
	PosterTall [][]image `json:"poster_tall"`
}

type image struct {
	Source string `json:"source"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}
