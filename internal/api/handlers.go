package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/imkylecat/crunchyroll-jellyfin/internal/crunchyroll"
	"github.com/imkylecat/crunchyroll-jellyfin/internal/jellyfin"
	"github.com/imkylecat/crunchyroll-jellyfin/internal/mappings"
	"github.com/imkylecat/crunchyroll-jellyfin/internal/resolver"
)

// resolveRequest is the body of POST /api/v1/resolve.
type resolveRequest struct {
	Title string `json:"title"`
}

// handleHealth reports process liveness and catalog configuration.
// GET /api/v1/health
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":            "ok",
		"catalog":           s.catalog.Name(),
		"catalogConfigured": s.catalog.IsConfigured(),
	})
}

// handleResolve resolves a local title to a catalog node.
// POST /api/v1/resolve
func (s *Server) handleResolve(c echo.Context) error {
	var req resolveRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if strings.TrimSpace(req.Title) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "title is required"})
	}

	resolution, err := s.resolverS.Resolve(c.Request().Context(), req.Title)
	if err != nil {
		if errors.Is(err, resolver.ErrNoMatch) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "no match found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, resolution)
}

// handleSearch exposes raw catalog search for diagnostics.
// GET /api/v1/search?q=
func (s *Server) handleSearch(c echo.Context) error {
	query := c.QueryParam("q")
	if strings.TrimSpace(query) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "q is required"})
	}

	results, err := s.catalog.Search(c.Request().Context(), query, s.cfg.Matcher.SearchLimit)
	if err != nil {
		return c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
	}
	if results == nil {
		results = []crunchyroll.Series{}
	}
	return c.JSON(http.StatusOK, results)
}

// handleGetSeries returns display metadata for one series.
// GET /api/v1/series/:id
func (s *Server) handleGetSeries(c echo.Context) error {
	detail, err := s.catalog.GetSeries(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, crunchyroll.ErrSeriesNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "series not found"})
		}
		return c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, detail)
}

// handleGetSeasons returns all seasons of a series.
// GET /api/v1/series/:id/seasons
func (s *Server) handleGetSeasons(c echo.Context) error {
	seasons, err := s.catalog.GetSeasons(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, crunchyroll.ErrSeriesNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "series not found"})
		}
		return c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
	}
	if seasons == nil {
		seasons = []crunchyroll.Season{}
	}
	return c.JSON(http.StatusOK, seasons)
}

// handleListMappings lists persisted resolutions.
// GET /api/v1/mappings
func (s *Server) handleListMappings(c echo.Context) error {
	list, err := s.store.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if list == nil {
		list = []mappings.Mapping{}
	}
	return c.JSON(http.StatusOK, list)
}

// handleDeleteMapping removes one persisted resolution, forcing the next
// lookup of that title through the cascade again.
// DELETE /api/v1/mappings/:id
func (s *Server) handleDeleteMapping(c echo.Context) error {
	if err := s.store.Delete(c.Request().Context(), c.Param("id")); err != nil {
		if errors.Is(err, mappings.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "mapping not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.NoContent(http.StatusNoContent)
}

// handleJellyfinSeries resolves a title and answers in Jellyfin's remote
// search result shape.
// GET /api/v1/jellyfin/series?title=
func (s *Server) handleJellyfinSeries(c echo.Context) error {
	title := c.QueryParam("title")
	if strings.TrimSpace(title) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "title is required"})
	}

	resolution, err := s.resolverS.Resolve(c.Request().Context(), title)
	if err != nil {
		if errors.Is(err, resolver.ErrNoMatch) {
			return c.JSON(http.StatusOK, []*jellyfin.RemoteSearchResult{})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, []*jellyfin.RemoteSearchResult{jellyfin.FromResolution(resolution)})
}

// handleListTasks returns all scheduled tasks.
// GET /api/v1/scheduler/tasks
func (s *Server) handleListTasks(c echo.Context) error {
	return c.JSON(http.StatusOK, s.sched.ListTasks())
}

// handleRunTask manually triggers a task to run.
// POST /api/v1/scheduler/tasks/:id/run
func (s *Server) handleRunTask(c echo.Context) error {
	taskID := c.Param("id")
	if err := s.sched.RunNow(taskID); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusAccepted, map[string]string{
		"message": "Task started",
		"taskId":  taskID,
	})
}
