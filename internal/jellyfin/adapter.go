// Package jellyfin translates finished resolutions into the shape the
// Jellyfin metadata plugin consumes. It sits entirely outside the matching
// core and only sees value types.
package jellyfin

import (
	"fmt"

	"github.com/imkylecat/crunchyroll-jellyfin/internal/resolver"
)

// ProviderID is the key under which the catalog id is stored in Jellyfin's
// provider id map.
const ProviderID = "Crunchyroll"

// RemoteSearchResult mirrors Jellyfin's remote search result DTO.
type RemoteSearchResult struct {
	Name               string            `json:"Name"`
	Overview           string            `json:"Overview,omitempty"`
	ProductionYear     int               `json:"ProductionYear,omitempty"`
	CommunityRating    float64           `json:"CommunityRating,omitempty"`
	ImageURL           string            `json:"ImageUrl,omitempty"`
	ProviderIDs        map[string]string `json:"ProviderIds"`
	SearchProviderName string            `json:"SearchProviderName"`
}

// FromResolution builds the Jellyfin DTO for a resolved title. For
// season-level matches the display name carries both the series and the
// season ("Fate/Grand Order: Babylonia - Solomon") and the provider id
// addresses the season node.
func FromResolution(res *resolver.Resolution) *RemoteSearchResult {
	result := &RemoteSearchResult{
		SearchProviderName: ProviderID,
		ProviderIDs: map[string]string{
			ProviderID: res.Match.SeriesID,
		},
	}
	if res.Match.HasSeason() {
		result.ProviderIDs[ProviderID+"Season"] = res.Match.SeasonID
	}

	if res.Series != nil {
		result.Name = res.Series.Title
		result.Overview = res.Series.Description
		result.ProductionYear = res.Series.Year
		result.CommunityRating = res.Series.Rating
		result.ImageURL = res.Series.PosterURL
	}

	if res.Match.HasSeason() && res.Match.SeasonTitle != "" {
		if result.Name != "" {
			result.Name = fmt.Sprintf("%s - %s", result.Name, res.Match.SeasonTitle)
		} else {
			result.Name = res.Match.SeasonTitle
		}
	}

	return result
}
