package weather

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/andriy-ko/weather-digest-api/internal/models"
)

type weatherGetter interface {
	GetByCity(ctx context.Context, city string) (models.WeatherData, error)
}

type cacheClient[T any] interface {
	Set(ctx context.Context, key string, value T) error
	Get(ctx context.Context, key string) (T, error)
}

// CachedService serves weather responses from a cache in front of the
// provider chain. Cache failures fall through to the inner service.
type CachedService struct {
	inner  weatherGetter
	cache  cacheClient[models.WeatherData]
	logger zerolog.Logger
}

func NewCachedService(
	inner weatherGetter,
	cache cacheClient[models.WeatherData],
	logger zerolog.Logger,
) *CachedService {
	logger = logger.With().Str("component", "CachedWeatherService").Logger()
	return &CachedService{inner: inner, cache: cache, logger: logger}
}

func (s *CachedService) GetByCity(ctx context.Context, city string) (models.WeatherData, error) {
	key := fmt.Sprintf("weather:%s", city)

	weather, err := s.cache.Get(ctx, key)
	if err == nil {
		s.logger.Debug().
			Ctx(ctx).
			Str("city", city).
			Str("key", key).
			Msg("cache hit")
		return weather, nil
	}
	s.logger.Debug().
		Ctx(ctx).
		Str("city", city).
		Str("key", key).
		Err(err).
		Msg("cache miss")

	weather, err = s.inner.GetByCity(ctx, city)
	if err != nil {
		return models.WeatherData{}, err
	}

	if err := s.cache.Set(ctx, key, weather); err != nil {
		s.logger.Error().
			Ctx(ctx).
			Str("city", city).
			Str("key", key).
			Err(err).
			Msg("cache set failed")
	}

	return weather, nil
}
