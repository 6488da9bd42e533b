package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/showtime-seating/internal/repository"
)

// CatalogHandler serves the public browse endpoints: theaters and their
// upcoming showtimes.  No authentication required.
type CatalogHandler struct {
	Theaters  *repository.TheaterRepo
	Showtimes *repository.ShowtimeRepo
}

// NewCatalogHandler constructs a CatalogHandler.
func NewCatalogHandler(theaters *repository.TheaterRepo, showtimes *repository.ShowtimeRepo) *CatalogHandler {
	if theaters == nil || showtimes == nil {
		panic("nil repository passed to NewCatalogHandler")
	}
	return &CatalogHandler{Theaters: theaters, Showtimes: showtimes}
}

// ListTheaters handles GET /v1/theaters.
func (h *CatalogHandler) ListTheaters(c echo.Context) error {
	theaters, err := h.Theaters.List(c.Request().Context())
	if err != nil {
		return writeDomainError(c, err)
	}
	out := make([]echo.Map, 0, len(theaters))
	for i := range theaters {
		out = append(out, echo.Map{
			"theater_id": theaters[i].ID,
			"name":       theaters[i].Name,
			"layout":     theaters[i].Layout,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"theaters": out})
}

// ListShowtimes handles GET /v1/theaters/:id/showtimes.
func (h *CatalogHandler) ListShowtimes(c echo.Context) error {
	theaterID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid theater id"})
	}
	ctx := c.Request().Context()
	if _, err := h.Theaters.GetByID(ctx, theaterID); err != nil {
		return writeDomainError(c, err)
	}
	shows, err := h.Showtimes.ListByTheater(ctx, theaterID)
	if err != nil {
		return writeDomainError(c, err)
	}
	out := make([]echo.Map, 0, len(shows))
	for i := range shows {
		out = append(out, echo.Map{
			"showtime_id": shows[i].ID,
			"title":       shows[i].Title,
			"starts_at":   shows[i].StartsAt,
			"prices":      shows[i].Prices,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"theater_id": theaterID,
		"showtimes":  out,
	})
}
