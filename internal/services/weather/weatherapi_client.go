package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/andriy-ko/weather-digest-api/internal/models"
)

// weatherapi.com error code for "no matching location found".
const codeNoMatchingLocation = 1006

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type ClientWeatherAPI struct {
	APIKey string
	apiURL string
	client HTTPClient
	logger zerolog.Logger
}

func NewClientWeatherAPI(apiKey, apiURL string, httpClient HTTPClient, logger zerolog.Logger) *ClientWeatherAPI {
	logger = logger.With().Str("component", "ClientWeatherAPI").Logger()
	return &ClientWeatherAPI{APIKey: apiKey, apiURL: apiURL, client: httpClient, logger: logger}
}

func (s *ClientWeatherAPI) Fetch(ctx context.Context, city string) (models.WeatherData, error) {
	reqURL := fmt.Sprintf("%s/current.json?key=%s&q=%s", s.apiURL, s.APIKey, url.QueryEscape(city))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return models.WeatherData{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return models.WeatherData{}, err
	}
	defer s.closeBody(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return models.WeatherData{}, s.decodeError(resp)
	}

	var raw struct {
		Location struct {
			Name string `json:"name"`
		} `json:"location"`
		Current struct {
			TempC     float64 `json:"temp_c"`
			TempF     float64 `json:"temp_f"`
			Humidity  int     `json:"humidity"`
			Condition struct {
				Text string `json:"text"`
			} `json:"condition"`
		} `json:"current"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return models.WeatherData{}, err
	}

	return models.WeatherData{
		City:         raw.Location.Name,
		TemperatureC: raw.Current.TempC,
		TemperatureF: raw.Current.TempF,
		Humidity:     raw.Current.Humidity,
		Condition:    raw.Current.Condition.Text,
	}, nil
}

// Search resolves a free-form city string through search.json.
func (s *ClientWeatherAPI) Search(ctx context.Context, query string) ([]models.City, error) {
	reqURL := fmt.Sprintf("%s/search.json?key=%s&q=%s", s.apiURL, s.APIKey, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer s.closeBody(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, s.decodeError(resp)
	}

	var raw []struct {
		Name    string  `json:"name"`
		Region  string  `json:"region"`
		Country string  `json:"country"`
		Lat     float64 `json:"lat"`
		Lon     float64 `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}

	cities := make([]models.City, 0, len(raw))
	for _, c := range raw {
		cities = append(cities, models.City{
			Name:     c.Name,
			Region:   c.Region,
			Country:  c.Country,
			FullName: strings.Join([]string{c.Name, c.Region, c.Country}, ", "),
			Lat:      c.Lat,
			Lon:      c.Lon,
		})
	}
	return cities, nil
}

// decodeError maps weatherapi.com error payloads to domain errors. The API
// answers in HTML for some failures (e.g. an empty key), which must not be
// mistaken for a city miss.
func (s *ClientWeatherAPI) decodeError(resp *http.Response) error {
	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "application/json") {
		return fmt.Errorf("weather API error: status %s, content type %s", resp.Status, contentType)
	}

	var apiErr apiError
	if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil {
		return fmt.Errorf("weather API error: status %s: %w", resp.Status, err)
	}

	if apiErr.Error.Code == codeNoMatchingLocation {
		return models.ErrCityNotFound
	}

	return fmt.Errorf("weather API error %d: %s", apiErr.Error.Code, apiErr.Error.Message)
}

func (s *ClientWeatherAPI) closeBody(body io.ReadCloser) {
	if err := body.Close(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to close response body")
	}
}
