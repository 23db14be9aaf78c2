// Package broadcast implements the scheduled fan-out of weather updates:
// one weather lookup per distinct city, one email per subscriber, with
// per-city and per-recipient failure isolation.
package broadcast

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/andriy-ko/weather-digest-api/internal/metrics"
	"github.com/andriy-ko/weather-digest-api/internal/models"
)

const (
	FreqHourly = "hourly"
	FreqDaily  = "daily"

	cycleTimeout = 10 * time.Minute
)

type subscriptionLister interface {
	ListConfirmedByFrequency(ctx context.Context, frequency string) ([]models.Subscription, error)
}

type weatherGetter interface {
	GetByCity(ctx context.Context, city string) (models.WeatherData, error)
}

type weatherEmailer interface {
	SendWeather(toEmail, cityFullName string, forecast models.WeatherData) error
}

// CycleStats summarizes one broadcast cycle for logging and tests.
type CycleStats struct {
	Subscribers   int
	Cities        int
	SkippedCities int
	Sent          int
	Failed        int
}

// Engine drives broadcast cycles. A per-frequency guard prevents a slow
// cycle from overlapping the next scheduled tick for the same frequency.
type Engine struct {
	repo    subscriptionLister
	weather weatherGetter
	emailer weatherEmailer
	logger  zerolog.Logger
	m       *metrics.Metrics

	limiter  *rate.Limiter
	inFlight map[string]chan struct{}
}

func NewEngine(
	repo subscriptionLister,
	weather weatherGetter,
	emailer weatherEmailer,
	logger zerolog.Logger,
	m *metrics.Metrics,
	sendsPerSec int,
) *Engine {
	if sendsPerSec <= 0 {
		sendsPerSec = 1
	}
	inFlight := map[string]chan struct{}{
		FreqHourly: make(chan struct{}, 1),
		FreqDaily:  make(chan struct{}, 1),
	}
	logger = logger.With().Str("component", "BroadcastEngine").Logger()
	return &Engine{
		repo:     repo,
		weather:  weather,
		emailer:  emailer,
		logger:   logger,
		m:        m,
		limiter:  rate.NewLimiter(rate.Limit(sendsPerSec), 1),
		inFlight: inFlight,
	}
}

// RunCycle executes one broadcast cycle for the given frequency. Only a
// failure to read the subscriber set is returned as an error; weather and
// delivery failures are isolated per city group and per recipient.
func (e *Engine) RunCycle(ctx context.Context, frequency string) (CycleStats, error) {
	var stats CycleStats

	guard, ok := e.inFlight[frequency]
	if !ok {
		return stats, fmt.Errorf("unknown frequency %q", frequency)
	}
	select {
	case guard <- struct{}{}:
		defer func() { <-guard }()
	default:
		e.logger.Warn().Str("frequency", frequency).
			Msg("previous cycle still running, skipping this tick")
		e.m.CycleSkipped.WithLabelValues(frequency).Inc()
		return stats, nil
	}

	start := time.Now()
	e.m.CycleRuns.WithLabelValues(frequency).Inc()

	ctx, cancel := context.WithTimeout(ctx, cycleTimeout)
	defer cancel()

	subs, err := e.repo.ListConfirmedByFrequency(ctx, frequency)
	if err != nil {
		e.logger.Error().Err(err).
			Str("frequency", frequency).
			Msg("error fetching confirmed subscriptions, aborting cycle")
		e.m.TechnicalErrors.WithLabelValues("fetch_subscriptions", "critical").Inc()
		return stats, err
	}
	if len(subs) == 0 {
		e.logger.Info().Str("frequency", frequency).Msg("no subscriptions for frequency, nothing to do")
		return stats, nil
	}
	stats.Subscribers = len(subs)

	order, groups := groupByCity(subs)
	stats.Cities = len(order)

	for _, cityKey := range order {
		forecast, err := e.weather.GetByCity(ctx, cityKey)
		if err != nil {
			e.logger.Error().Err(err).
				Str("city", cityKey).
				Str("frequency", frequency).
				Msg("weather lookup failed, skipping city group")
			e.m.CitiesSkipped.WithLabelValues(frequency).Inc()
			stats.SkippedCities++
			continue
		}

		for _, recipient := range groups[cityKey] {
			if err := e.limiter.Wait(ctx); err != nil {
				e.logger.Warn().Err(err).
					Str("frequency", frequency).
					Msg("cycle interrupted while throttling sends")
				return stats, nil
			}

			if err := e.emailer.SendWeather(recipient, cityKey, forecast); err != nil {
				e.logger.Error().Err(err).
					Str("email", recipient).
					Str("city", cityKey).
					Msg("email send failed, continuing with remaining recipients")
				e.m.EmailsSent.WithLabelValues(frequency, "error").Inc()
				stats.Failed++
				continue
			}
			e.m.EmailsSent.WithLabelValues(frequency, "ok").Inc()
			stats.Sent++
		}
	}

	dur := time.Since(start)
	e.m.CycleDuration.WithLabelValues(frequency).Observe(dur.Seconds())
	e.logger.Info().
		Str("frequency", frequency).
		Int("subscribers", stats.Subscribers).
		Int("cities", stats.Cities).
		Int("skipped_cities", stats.SkippedCities).
		Int("sent", stats.Sent).
		Int("failed", stats.Failed).
		Dur("duration", dur).
		Msg("broadcast cycle completed")
	return stats, nil
}

// groupByCity buckets subscriber emails by the resolved city full name,
// keeping first-appearance order so a run is deterministic.
func groupByCity(subs []models.Subscription) ([]string, map[string][]string) {
	order := make([]string, 0, len(subs))
	groups := make(map[string][]string, len(subs))

	for _, sub := range subs {
		key := sub.City.FullName
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], sub.Email)
	}
	return order, groups
}
