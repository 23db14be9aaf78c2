package weather_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andriy-ko/weather-digest-api/internal/models"
	"github.com/andriy-ko/weather-digest-api/internal/services/weather"
)

func TestClientWeatherAPI_Fetch(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/current.json", r.URL.Path)
			assert.Equal(t, "test-key", r.URL.Query().Get("key"))
			assert.Equal(t, "Kyiv", r.URL.Query().Get("q"))

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{
				"location": {"name": "Kyiv"},
				"current": {
					"temp_c": 20.0,
					"temp_f": 68.0,
					"humidity": 50,
					"condition": {"text": "Sunny"}
				}
			}`))
		}))
		defer srv.Close()

		c := weather.NewClientWeatherAPI("test-key", srv.URL, srv.Client(), zerolog.Nop())
		data, err := c.Fetch(context.Background(), "Kyiv")

		require.NoError(t, err)
		assert.Equal(t, "Kyiv", data.City)
		assert.InDelta(t, 20.0, data.TemperatureC, 0.01)
		assert.InDelta(t, 68.0, data.TemperatureF, 0.01)
		assert.Equal(t, 50, data.Humidity)
		assert.Equal(t, "Sunny", data.Condition)
	})

	t.Run("NoMatchingLocation", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error": {"code": 1006, "message": "No matching location found."}}`))
		}))
		defer srv.Close()

		c := weather.NewClientWeatherAPI("test-key", srv.URL, srv.Client(), zerolog.Nop())
		_, err := c.Fetch(context.Background(), "Atlantis")

		assert.ErrorIs(t, err, models.ErrCityNotFound)
	})

	t.Run("OtherAPIError", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"error": {"code": 2008, "message": "API key has been disabled."}}`))
		}))
		defer srv.Close()

		c := weather.NewClientWeatherAPI("test-key", srv.URL, srv.Client(), zerolog.Nop())
		_, err := c.Fetch(context.Background(), "Kyiv")

		require.Error(t, err)
		assert.NotErrorIs(t, err, models.ErrCityNotFound)
		assert.Contains(t, err.Error(), "2008")
	})

	t.Run("HTMLErrorPageIsNotCityMiss", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte("<html><body>Forbidden</body></html>"))
		}))
		defer srv.Close()

		c := weather.NewClientWeatherAPI("test-key", srv.URL, srv.Client(), zerolog.Nop())
		_, err := c.Fetch(context.Background(), "Kyiv")

		require.Error(t, err)
		assert.NotErrorIs(t, err, models.ErrCityNotFound)
	})
}

func TestClientWeatherAPI_Search(t *testing.T) {
	t.Run("BuildsFullName", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/search.json", r.URL.Path)
			assert.Equal(t, "Kyiv", r.URL.Query().Get("q"))

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[
				{"name": "Kyiv", "region": "Kyiv City", "country": "Ukraine", "lat": 50.45, "lon": 30.52}
			]`))
		}))
		defer srv.Close()

		c := weather.NewClientWeatherAPI("test-key", srv.URL, srv.Client(), zerolog.Nop())
		cities, err := c.Search(context.Background(), "Kyiv")

		require.NoError(t, err)
		require.Len(t, cities, 1)
		assert.Equal(t, "Kyiv, Kyiv City, Ukraine", cities[0].FullName)
		assert.InDelta(t, 50.45, cities[0].Lat, 0.001)
	})

	t.Run("EmptyResult", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[]`))
		}))
		defer srv.Close()

		c := weather.NewClientWeatherAPI("test-key", srv.URL, srv.Client(), zerolog.Nop())
		cities, err := c.Search(context.Background(), "Nowhereville")

		require.NoError(t, err)
		assert.Empty(t, cities)
	})
}

func TestClientOpenWeatherMap_Fetch(t *testing.T) {
	t.Run("ConvertsKelvin", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Kyiv", r.URL.Query().Get("q"))
			assert.Equal(t, "test-key", r.URL.Query().Get("appid"))

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{
				"main": {"temp": 293.15, "humidity": 50},
				"weather": [{"main": "Clear"}]
			}`))
		}))
		defer srv.Close()

		c := weather.NewOpenWeatherMapClient("test-key", srv.URL, srv.Client(), zerolog.Nop())
		data, err := c.Fetch(context.Background(), "Kyiv")

		require.NoError(t, err)
		assert.InDelta(t, 20.0, data.TemperatureC, 0.01)
		assert.InDelta(t, 68.0, data.TemperatureF, 0.01)
		assert.Equal(t, 50, data.Humidity)
		assert.Equal(t, "Clear", data.Condition)
	})

	t.Run("NotFound", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"cod": "404", "message": "city not found"}`))
		}))
		defer srv.Close()

		c := weather.NewOpenWeatherMapClient("test-key", srv.URL, srv.Client(), zerolog.Nop())
		_, err := c.Fetch(context.Background(), "Atlantis")

		assert.ErrorIs(t, err, models.ErrCityNotFound)
	})
}
