package weather

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/andriy-ko/weather-digest-api/internal/models"
)

type BreakerConfig struct {
	TimeInterval time.Duration
	TimeTimeOut  time.Duration
	RepeatNumber uint32
}

// BreakerClient wraps a weather client with a circuit breaker so a dead
// provider is skipped quickly instead of burning the request timeout.
type BreakerClient struct {
	name    string
	cb      *gobreaker.CircuitBreaker
	wrapped client
}

func NewBreakerClient(name string, cfg BreakerConfig, wrapped client) *BreakerClient {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    cfg.TimeInterval,
		Timeout:     cfg.TimeTimeOut,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.RepeatNumber
		},
	}
	return &BreakerClient{
		name:    name,
		cb:      gobreaker.NewCircuitBreaker(settings),
		wrapped: wrapped,
	}
}

func (b *BreakerClient) Fetch(ctx context.Context, city string) (models.WeatherData, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		return b.wrapped.Fetch(ctx, city)
	})
	if err != nil {
		// An unknown city is a valid answer, not a provider fault.
		if errors.Is(err, models.ErrCityNotFound) {
			return models.WeatherData{}, err
		}
		return models.WeatherData{},
			fmt.Errorf("%s unavailable: %w", b.name, err)
	}
	res, ok := result.(models.WeatherData)
	if !ok {
		return models.WeatherData{},
			fmt.Errorf("%s returned unexpected result", b.name)
	}
	return res, nil
}
