package resolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/imkylecat/crunchyroll-jellyfin/internal/crunchyroll"
)

// ErrNoMatch is returned by the service when the cascade exhausted every
// strategy without an acceptable match.
var ErrNoMatch = errors.New("no sufficiently confident match found")

// MappingStore is the persistence surface the service needs. Implemented
// by the mappings package; declared here so the service can be tested with
// a fake.
type MappingStore interface {
	GetResult(ctx context.Context, query string) (*MatchResult, error)
	SaveResult(ctx context.Context, query string, result *MatchResult) error
}

// Resolution is a finished lookup: the match plus the hydrated series
// metadata for display.
type Resolution struct {
	Match  *MatchResult              `json:"match"`
	Series *crunchyroll.SeriesDetail `json:"series,omitempty"`
	// FromMapping is true when the match came from the persisted store
	// instead of a fresh cascade run.
	FromMapping bool `json:"fromMapping"`
}

// Service ties the cascade to the mapping store and series hydration.
type Service struct {
	client  CatalogClient
	matcher *Matcher
	store   MappingStore
	logger  zerolog.Logger
}

// NewService creates a resolution service. The store may be nil, in which
// case every lookup runs the cascade.
func NewService(client CatalogClient, matcher *Matcher, store MappingStore, logger zerolog.Logger) *Service {
	return &Service{
		client:  client,
		matcher: matcher,
		store:   store,
		logger:  logger.With().Str("component", "resolver").Logger(),
	}
}

// Resolve resolves a local title to a catalog node. Previously resolved
// queries are answered from the store; fresh matches are persisted
// best-effort.
func (s *Service) Resolve(ctx context.Context, query string) (*Resolution, error) {
	if s.store != nil {
		if stored, err := s.store.GetResult(ctx, query); err == nil {
			s.logger.Debug().Str("query", query).Msg("resolved from stored mapping")
			return s.hydrate(ctx, stored, true)
		}
	}

	match := s.matcher.Resolve(ctx, query)
	if match == nil {
		return nil, ErrNoMatch
	}

	if s.store != nil {
		if err := s.store.SaveResult(ctx, query, match); err != nil {
			s.logger.Warn().Err(err).Str("query", query).Msg("failed to persist mapping")
		}
	}

	return s.hydrate(ctx, match, false)
}

// hydrate attaches display metadata to a match. A failed detail fetch is
// not fatal; the match stands on its own.
func (s *Service) hydrate(ctx context.Context, match *MatchResult, fromMapping bool) (*Resolution, error) {
	resolution := &Resolution{Match: match, FromMapping: fromMapping}

	detail, err := s.client.GetSeries(ctx, match.SeriesID)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("resolution aborted: %w", ctx.Err())
		}
		s.logger.Warn().Err(err).Str("seriesId", match.SeriesID).Msg("failed to hydrate series details")
		return resolution, nil
	}

	resolution.Series = detail
	return resolution, nil
}
