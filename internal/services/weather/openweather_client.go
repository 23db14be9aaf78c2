package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/andriy-ko/weather-digest-api/internal/models"
)

const kelvinOffset = 273.15

type ClientOpenWeatherMap struct {
	APIKey string
	apiURL string
	client HTTPClient
	logger zerolog.Logger
}

func NewOpenWeatherMapClient(apiKey, apiURL string, httpClient HTTPClient, logger zerolog.Logger) *ClientOpenWeatherMap {
	logger = logger.With().Str("component", "ClientOpenWeatherMap").Logger()
	return &ClientOpenWeatherMap{APIKey: apiKey, apiURL: apiURL, client: httpClient, logger: logger}
}

func (s *ClientOpenWeatherMap) Fetch(ctx context.Context, city string) (models.WeatherData, error) {
	reqURL := fmt.Sprintf("%s?q=%s&appid=%s", s.apiURL, url.QueryEscape(city), s.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return models.WeatherData{}, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return models.WeatherData{}, err
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to close response body")
		}
	}(resp.Body)

	if resp.StatusCode == http.StatusNotFound {
		return models.WeatherData{}, models.ErrCityNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return models.WeatherData{}, fmt.Errorf("OpenWeatherMap error: status %s", resp.Status)
	}

	var raw struct {
		Main struct {
			Temp     float64 `json:"temp"` // Kelvin
			Humidity int     `json:"humidity"`
		} `json:"main"`
		Weather []struct {
			Main string `json:"main"`
		} `json:"weather"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return models.WeatherData{}, err
	}

	tempC := raw.Main.Temp - kelvinOffset
	data := models.WeatherData{
		City:         city,
		TemperatureC: tempC,
		TemperatureF: tempC*9/5 + 32,
		Humidity:     raw.Main.Humidity,
	}
	if len(raw.Weather) > 0 {
		data.Condition = raw.Weather[0].Main
	}
	return data, nil
}
