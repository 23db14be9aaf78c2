package weather

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/andriy-ko/weather-digest-api/internal/models"
)

const timeoutDuration = 10 * time.Second

type WeatherServicer interface {
	GetByCity(ctx context.Context, city string) (models.WeatherData, error)
}

type Handler struct {
	Service WeatherServicer
	log     zerolog.Logger
}

func NewHandler(svc WeatherServicer, logger zerolog.Logger) *Handler {
	logger = logger.With().Str("component", "WeatherHandler").Logger()
	return &Handler{Service: svc, log: logger}
}

// GetWeather
// @Summary Get current weather
// @Description Returns the current weather for a given city
// @Tags weather
// @Produce json
// @Param city query string true "City name"
// @Success 200 {object} models.WeatherData
// @Failure 400
// @Failure 404
// @Failure 500
// @Router /weather [get]
func (h *Handler) GetWeather(c *gin.Context) {
	city := c.Query("city")
	if city == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "city query parameter is required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
	defer cancel()

	data, err := h.Service.GetByCity(ctx, city)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, data)
	case errors.Is(err, models.ErrCityNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "City not found"})
	default:
		h.log.Error().Err(err).Str("city", city).Msg("failed to fetch weather")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
