package broadcast_test

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andriy-ko/weather-digest-api/internal/broadcast"
	"github.com/andriy-ko/weather-digest-api/internal/metrics"
	"github.com/andriy-ko/weather-digest-api/internal/models"
)

type fakeLister struct {
	subs []models.Subscription
	err  error
}

func (f *fakeLister) ListConfirmedByFrequency(_ context.Context, _ string) ([]models.Subscription, error) {
	return f.subs, f.err
}

type fakeWeather struct {
	mu      sync.Mutex
	lookups []string
	fail    map[string]error
	data    map[string]models.WeatherData
	block   chan struct{} // when set, Fetch blocks until the channel closes
}

func (f *fakeWeather) GetByCity(_ context.Context, city string) (models.WeatherData, error) {
	f.mu.Lock()
	f.lookups = append(f.lookups, city)
	f.mu.Unlock()

	if f.block != nil {
		<-f.block
	}
	if err, ok := f.fail[city]; ok {
		return models.WeatherData{}, err
	}
	return f.data[city], nil
}

type sentMail struct {
	to       string
	city     string
	forecast models.WeatherData
}

type fakeEmailer struct {
	mu   sync.Mutex
	sent []sentMail
	fail map[string]error // by recipient
}

func (f *fakeEmailer) SendWeather(toEmail, cityFullName string, forecast models.WeatherData) error {
	if err, ok := f.fail[toEmail]; ok {
		return err
	}
	f.mu.Lock()
	f.sent = append(f.sent, sentMail{to: toEmail, city: cityFullName, forecast: forecast})
	f.mu.Unlock()
	return nil
}

func newTestMetrics(t *testing.T) *metrics.Metrics {
	t.Helper()
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return metrics.New("test", db, "test")
}

func confirmedSub(email, city, frequency string) models.Subscription {
	return models.Subscription{
		Email:       email,
		City:        models.City{Name: city, FullName: city},
		Frequency:   frequency,
		RevokeToken: "revoke-" + email,
		Confirmed:   true,
	}
}

const sendsPerSec = 1000 // keep the throttle out of the way in tests

func TestRunCycle_OneLookupPerCity(t *testing.T) {
	lister := &fakeLister{subs: []models.Subscription{
		confirmedSub("one@x.com", "Lviv", "hourly"),
		confirmedSub("two@x.com", "Lviv", "hourly"),
	}}
	weather := &fakeWeather{data: map[string]models.WeatherData{
		"Lviv": {City: "Lviv", TemperatureC: 11, Humidity: 70},
	}}
	emailer := &fakeEmailer{}

	engine := broadcast.NewEngine(lister, weather, emailer, zerolog.Nop(), newTestMetrics(t), sendsPerSec)
	stats, err := engine.RunCycle(context.Background(), broadcast.FreqHourly)

	require.NoError(t, err)
	assert.Equal(t, []string{"Lviv"}, weather.lookups)
	assert.Len(t, emailer.sent, 2)
	assert.Equal(t, 2, stats.Sent)
	assert.Equal(t, 1, stats.Cities)
}

func TestRunCycle_CityFailureIsIsolated(t *testing.T) {
	lister := &fakeLister{subs: []models.Subscription{
		confirmedSub("a@x.com", "Kyiv", "daily"),
		confirmedSub("b@x.com", "Lviv", "daily"),
	}}
	weather := &fakeWeather{
		fail: map[string]error{"Kyiv": errors.New("provider down")},
		data: map[string]models.WeatherData{"Lviv": {City: "Lviv", TemperatureC: 8, Humidity: 60}},
	}
	emailer := &fakeEmailer{}

	engine := broadcast.NewEngine(lister, weather, emailer, zerolog.Nop(), newTestMetrics(t), sendsPerSec)
	stats, err := engine.RunCycle(context.Background(), broadcast.FreqDaily)

	require.NoError(t, err)
	assert.Equal(t, 1, stats.SkippedCities)
	require.Len(t, emailer.sent, 1)
	assert.Equal(t, "b@x.com", emailer.sent[0].to)
}

func TestRunCycle_RecipientFailureIsIsolated(t *testing.T) {
	lister := &fakeLister{subs: []models.Subscription{
		confirmedSub("x@x.com", "Lviv", "hourly"),
		confirmedSub("y@x.com", "Lviv", "hourly"),
	}}
	weather := &fakeWeather{data: map[string]models.WeatherData{
		"Lviv": {City: "Lviv", TemperatureC: 8, Humidity: 60},
	}}
	emailer := &fakeEmailer{fail: map[string]error{"x@x.com": errors.New("mailbox full")}}

	engine := broadcast.NewEngine(lister, weather, emailer, zerolog.Nop(), newTestMetrics(t), sendsPerSec)
	stats, err := engine.RunCycle(context.Background(), broadcast.FreqHourly)

	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, stats.Sent)
	require.Len(t, emailer.sent, 1)
	assert.Equal(t, "y@x.com", emailer.sent[0].to)
}

func TestRunCycle_EmptyIsNoop(t *testing.T) {
	lister := &fakeLister{}
	weather := &fakeWeather{}
	emailer := &fakeEmailer{}

	engine := broadcast.NewEngine(lister, weather, emailer, zerolog.Nop(), newTestMetrics(t), sendsPerSec)
	stats, err := engine.RunCycle(context.Background(), broadcast.FreqDaily)

	require.NoError(t, err)
	assert.Empty(t, weather.lookups)
	assert.Empty(t, emailer.sent)
	assert.Equal(t, broadcast.CycleStats{}, stats)
}

func TestRunCycle_StoreErrorIsFatalForCycle(t *testing.T) {
	lister := &fakeLister{err: errors.New("db gone")}
	engine := broadcast.NewEngine(lister, &fakeWeather{}, &fakeEmailer{},
		zerolog.Nop(), newTestMetrics(t), sendsPerSec)

	_, err := engine.RunCycle(context.Background(), broadcast.FreqHourly)
	assert.Error(t, err)
}

func TestRunCycle_UnknownFrequency(t *testing.T) {
	engine := broadcast.NewEngine(&fakeLister{}, &fakeWeather{}, &fakeEmailer{},
		zerolog.Nop(), newTestMetrics(t), sendsPerSec)

	_, err := engine.RunCycle(context.Background(), "weekly")
	assert.Error(t, err)
}

func TestRunCycle_GroupOrderIsFirstAppearance(t *testing.T) {
	lister := &fakeLister{subs: []models.Subscription{
		confirmedSub("a@x.com", "Kyiv", "hourly"),
		confirmedSub("b@x.com", "Lviv", "hourly"),
		confirmedSub("c@x.com", "Kyiv", "hourly"),
		confirmedSub("d@x.com", "Odesa", "hourly"),
	}}
	weather := &fakeWeather{data: map[string]models.WeatherData{}}
	emailer := &fakeEmailer{}

	engine := broadcast.NewEngine(lister, weather, emailer, zerolog.Nop(), newTestMetrics(t), sendsPerSec)
	_, err := engine.RunCycle(context.Background(), broadcast.FreqHourly)

	require.NoError(t, err)
	assert.Equal(t, []string{"Kyiv", "Lviv", "Odesa"}, weather.lookups)
}

func TestRunCycle_OverlappingRunIsSkipped(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)

	lister := &fakeLister{subs: []models.Subscription{
		confirmedSub("a@x.com", "Kyiv", "hourly"),
	}}
	weather := &fakeWeather{
		block: release,
		data:  map[string]models.WeatherData{"Kyiv": {City: "Kyiv"}},
	}
	emailer := &fakeEmailer{}

	engine := broadcast.NewEngine(lister, weather, emailer, zerolog.Nop(), newTestMetrics(t), sendsPerSec)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		started <- struct{}{}
		_, _ = engine.RunCycle(context.Background(), broadcast.FreqHourly)
	}()

	<-started
	// Wait until the first cycle is inside the weather lookup.
	for {
		weather.mu.Lock()
		inFlight := len(weather.lookups) > 0
		weather.mu.Unlock()
		if inFlight {
			break
		}
		runtime.Gosched()
	}

	stats, err := engine.RunCycle(context.Background(), broadcast.FreqHourly)
	require.NoError(t, err)
	assert.Equal(t, broadcast.CycleStats{}, stats, "overlapping cycle must be skipped")

	close(release)
	wg.Wait()
	assert.Len(t, emailer.sent, 1)
}

func TestRunCycle_ConfirmedDailyScenario(t *testing.T) {
	lister := &fakeLister{subs: []models.Subscription{
		confirmedSub("a@x.com", "Kyiv", "daily"),
	}}
	weather := &fakeWeather{data: map[string]models.WeatherData{
		"Kyiv": {City: "Kyiv", TemperatureC: 20, Humidity: 50},
	}}
	emailer := &fakeEmailer{}

	engine := broadcast.NewEngine(lister, weather, emailer, zerolog.Nop(), newTestMetrics(t), sendsPerSec)
	stats, err := engine.RunCycle(context.Background(), broadcast.FreqDaily)

	require.NoError(t, err)
	assert.Equal(t, 1, stats.Sent)
	require.Len(t, emailer.sent, 1)

	mail := emailer.sent[0]
	assert.Equal(t, "a@x.com", mail.to)
	assert.Equal(t, "Kyiv", mail.city)
	assert.InDelta(t, 20.0, mail.forecast.TemperatureC, 0.01)
	assert.Equal(t, 50, mail.forecast.Humidity)
}
