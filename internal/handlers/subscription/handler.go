package subscription

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

type subscriber interface {
	Subscribe(ctx context.Context, data models.UserSubData) error
	Confirm(ctx context.Context, token string) error
	Unsubscribe(ctx context.Context, token string) error
}

type Handler struct {
	Service subscriber
	log     zerolog.Logger
}

func NewHandler(svc subscriber, logger zerolog.Logger) *Handler {
	logger = logger.With().Str("component", "SubscriptionHandler").Logger()
	return &Handler{Service: svc, log: logger}
}

// Subscribe
// @Summary Subscribe to weather updates
// @Description Subscribe an email to receive weather updates for a specific city.
// @Tags subscription
// @Accept application/x-www-form-urlencoded
// @Param email formData string true "Email address to subscribe"
// @Param city formData string true "City for weather updates"
// @Param frequency formData string true "Frequency of updates" Enums(hourly, daily)
// @Success 200
// @Failure 400
// @Failure 404
// @Failure 409
// @Failure 500
// @Router /subscribe [post]
func (h *Handler) Subscribe(c *gin.Context) {
	var userData models.UserSubData
	if err := c.ShouldBind(&userData); err != nil {
		h.log.Warn().Err(err).Msg("failed to bind user data")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
	defer cancel()

	err := h.Service.Subscribe(ctx, userData)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"message": "Subscribed successfully"})
	case errors.Is(err, models.ErrEmailAlreadySubscribed):
		c.JSON(http.StatusConflict, gin.H{"error": "Email already subscribed"})
	case errors.Is(err, models.ErrCityNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "City not found"})
	default:
		h.log.Error().Err(err).Str("email", userData.Email).Msg("failed to subscribe")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// Confirm
// @Summary Confirm subscription
// @Description Confirms the subscription using the token sent in email.
// @Tags subscription
// @Param token path string true "Confirmation token"
// @Success 200
// @Failure 404
// @Failure 500
// @Router /confirm/{token} [get]
func (h *Handler) Confirm(c *gin.Context) {
	tok := c.Param("token")

	ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
	defer cancel()

	err := h.Service.Confirm(ctx, tok)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"message": "Subscription confirmed"})
	case errors.Is(err, models.ErrTokenNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Token not found"})
	default:
		h.log.Error().Err(err).Msg("failed to confirm subscription")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// Unsubscribe
// @Summary Unsubscribe
// @Description Unsubscribe from weather updates using the token.
// @Tags subscription
// @Param token path string true "Unsubscribe token"
// @Success 200
// @Failure 404
// @Failure 500
// @Router /unsubscribe/{token} [get]
func (h *Handler) Unsubscribe(c *gin.Context) {
	tok := c.Param("token")

	ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
	defer cancel()

	err := h.Service.Unsubscribe(ctx, tok)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"message": "Unsubscribed successfully"})
	case errors.Is(err, models.ErrTokenNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Token not found"})
	default:
		h.log.Error().Err(err).Msg("failed to unsubscribe")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
