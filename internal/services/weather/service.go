package weather

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/andriy-ko/weather-digest-api/internal/models"
)

// ErrProvidersUnavailable is returned when every configured client failed
// for a reason other than an unknown city.
var ErrProvidersUnavailable = errors.New("all weather API clients failed to fetch data")

type client interface {
	Fetch(ctx context.Context, city string) (models.WeatherData, error)
}

type citySearcher interface {
	Search(ctx context.Context, query string) ([]models.City, error)
}

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// ServiceProvider tries each weather client in order and returns the first
// successful result. A CityNotFound answer is authoritative and is not
// retried against the remaining clients.
type ServiceProvider struct {
	logger   zerolog.Logger
	searcher citySearcher
	clients  []client
}

func NewService(logger zerolog.Logger, searcher citySearcher, clients ...client) *ServiceProvider {
	logger = logger.With().Str("component", "WeatherService").Logger()
	return &ServiceProvider{logger: logger, searcher: searcher, clients: clients}
}

func (s *ServiceProvider) GetByCity(ctx context.Context, city string) (models.WeatherData, error) {
	for _, c := range s.clients {
		data, err := c.Fetch(ctx, city)
		if err != nil {
			if errors.Is(err, models.ErrCityNotFound) {
				return models.WeatherData{}, err
			}
			s.logger.Warn().Err(err).Str("city", city).Msg("weather client failed, falling through")
			continue
		}
		return data, nil
	}
	return models.WeatherData{}, ErrProvidersUnavailable
}

// SearchCity resolves a free-form city string against the primary provider's
// location search. An empty result maps to models.ErrCityNotFound.
func (s *ServiceProvider) SearchCity(ctx context.Context, query string) ([]models.City, error) {
	cities, err := s.searcher.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(cities) == 0 {
		return nil, models.ErrCityNotFound
	}
	return cities, nil
}
