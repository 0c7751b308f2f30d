package mappings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/imkylecat/crunchyroll-jellyfin/internal/resolver"
)

// ErrNotFound is returned when no mapping exists for a query or id.
var ErrNotFound = errors.New("mapping not found")

// Mapping is one persisted resolution: a local query bound to the catalog
// node it resolved to. Queries are stored normalized so punctuation
// variants of the same title share one row.
type Mapping struct {
	ID          string            `json:"id"`
	Query       string            `json:"query"`
	SeriesID    string            `json:"seriesId"`
	SeasonID    string            `json:"seasonId,omitempty"`
	SeasonTitle string            `json:"seasonTitle,omitempty"`
	Strategy    resolver.Strategy `json:"strategy"`
	CreatedAt   time.Time         `json:"createdAt"`
	LastUsedAt  time.Time         `json:"lastUsedAt"`
}

// Result converts the stored row back into a match result.
func (m *Mapping) Result() *resolver.MatchResult {
	return &resolver.MatchResult{
		SeriesID:    m.SeriesID,
		SeasonID:    m.SeasonID,
		SeasonTitle: m.SeasonTitle,
		Strategy:    m.Strategy,
	}
}

// Store persists resolved mappings in SQLite.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewStore creates a mapping store over the given database.
func NewStore(db *sql.DB, logger zerolog.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger.With().Str("component", "mappings").Logger(),
	}
}

// GetByQuery returns the mapping for a normalized query and bumps its
// last-used timestamp.
func (s *Store) GetByQuery(ctx context.Context, query string) (*Mapping, error) {
	query = resolver.Normalize(query)

	row := s.db.QueryRowContext(ctx, `
		SELECT id, query, series_id, season_id, season_title, strategy, created_at, last_used_at
		FROM mappings WHERE query = ?`, query)

	m, err := scanMapping(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query mapping: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, `UPDATE mappings SET last_used_at = CURRENT_TIMESTAMP WHERE id = ?`, m.ID); err != nil {
		s.logger.Warn().Err(err).Str("id", m.ID).Msg("failed to bump mapping last_used_at")
	}

	return m, nil
}

// Save upserts the resolution for a query.
func (s *Store) Save(ctx context.Context, query string, result *resolver.MatchResult) (*Mapping, error) {
	query = resolver.Normalize(query)
	id := uuid.NewString()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO mappings (id, query, series_id, season_id, season_title, strategy)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(query) DO UPDATE SET
			series_id = excluded.series_id,
			season_id = excluded.season_id,
			season_title = excluded.season_title,
			strategy = excluded.strategy,
			last_used_at = CURRENT_TIMESTAMP`,
		id, query, result.SeriesID, result.SeasonID, result.SeasonTitle, string(result.Strategy))
	if err != nil {
		return nil, fmt.Errorf("failed to save mapping: %w", err)
	}

	return s.GetByQuery(ctx, query)
}

// List returns all mappings, most recently used first.
func (s *Store) List(ctx context.Context) ([]Mapping, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, query, series_id, season_id, season_title, strategy, created_at, last_used_at
		FROM mappings ORDER BY last_used_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list mappings: %w", err)
	}
	defer rows.Close()

	var result []Mapping
	for rows.Next() {
		m, err := scanMapping(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan mapping: %w", err)
		}
		result = append(result, *m)
	}
	return result, rows.Err()
}

// Delete removes a mapping by id.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM mappings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete mapping: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetResult returns the stored match for a query. Satisfies
// resolver.MappingStore.
func (s *Store) GetResult(ctx context.Context, query string) (*resolver.MatchResult, error) {
	m, err := s.GetByQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	return m.Result(), nil
}

// SaveResult persists the match for a query. Satisfies resolver.MappingStore.
func (s *Store) SaveResult(ctx context.Context, query string, result *resolver.MatchResult) error {
	_, err := s.Save(ctx, query, result)
	return err
}

// PruneStale removes mappings not used since the cutoff and returns how
// many rows were dropped.
func (s *Store) PruneStale(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM mappings WHERE last_used_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune mappings: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read prune result: %w", err)
	}
	if affected > 0 {
		s.logger.Info().Int64("removed", affected).Msg("pruned stale mappings")
	}
	return affected, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanMapping(row scanner) (*Mapping, error) {
	var m Mapping
	var strategy string
	if err := row.Scan(&m.ID, &m.Query, &m.SeriesID, &m.SeasonID, &m.SeasonTitle, &strategy, &m.CreatedAt, &m.LastUsedAt); err != nil {
		return nil, err
	}
	m.Strategy = resolver.Strategy(strategy)
	return &m, nil
}
