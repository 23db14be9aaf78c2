package subscriptions

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/andriy-ko/weather-digest-api/internal/metrics"
	"github.com/andriy-ko/weather-digest-api/internal/models"
	"github.com/andriy-ko/weather-digest-api/internal/token"
)

type SubscriptionRepository interface {
	GetByEmail(ctx context.Context, email string) (*models.Subscription, error)
	Create(ctx context.Context, sub models.Subscription) error
	ConfirmByToken(ctx context.Context, tok string) (models.Subscription, error)
	DeleteByRevokeToken(ctx context.Context, tok string) (models.Subscription, error)
}

type CitySearcher interface {
	SearchCity(ctx context.Context, query string) ([]models.City, error)
}

type LifecycleEmailer interface {
	SendConfirmation(toEmail, confirmToken, cityFullName, frequency string) error
	SendConfirmed(toEmail, revokeToken, cityFullName, frequency string) error
	SendUnsubscribed(toEmail, cityFullName, frequency string) error
}

// Service owns the subscription lifecycle: unconfirmed -> confirmed -> deleted.
// Tokens are one-shot guards: the confirmation token is cleared on first use,
// the revoke token dies with the row.
type Service struct {
	repo    SubscriptionRepository
	cities  CitySearcher
	emailer LifecycleEmailer
	logger  zerolog.Logger
	m       *metrics.Metrics
}

func NewService(
	repo SubscriptionRepository,
	cities CitySearcher,
	emailer LifecycleEmailer,
	logger zerolog.Logger,
	m *metrics.Metrics,
) *Service {
	logger = logger.With().Str("component", "SubscriptionService").Logger()
	return &Service{
		repo:    repo,
		cities:  cities,
		emailer: emailer,
		logger:  logger,
		m:       m,
	}
}

// Subscribe registers an unconfirmed subscription for data.Email. The city
// string is resolved strictly against the provider's location search; the
// first (most relevant) match becomes the canonical city identity. Failure
// to deliver the confirmation email does not roll the subscription back.
func (s *Service) Subscribe(ctx context.Context, data models.UserSubData) error {
	existing, err := s.repo.GetByEmail(ctx, data.Email)
	if err != nil {
		return fmt.Errorf("look up subscription: %w", err)
	}
	if existing != nil {
		return models.ErrEmailAlreadySubscribed
	}

	cities, err := s.cities.SearchCity(ctx, data.City)
	if err != nil {
		return fmt.Errorf("resolve city %q: %w", data.City, err)
	}
	city := cities[0]

	confirmToken, err := token.New(token.Length)
	if err != nil {
		return fmt.Errorf("generate confirmation token: %w", err)
	}
	revokeToken, err := token.New(token.Length)
	if err != nil {
		return fmt.Errorf("generate revoke token: %w", err)
	}

	sub := models.Subscription{
		Email:             data.Email,
		City:              city,
		Frequency:         data.Frequency,
		ConfirmationToken: confirmToken,
		RevokeToken:       revokeToken,
		Confirmed:         false,
	}

	if err := s.repo.Create(ctx, sub); err != nil {
		return err
	}
	s.m.SubscriptionsCreated.WithLabelValues(data.Frequency).Inc()

	if err := s.emailer.SendConfirmation(data.Email, confirmToken, city.FullName, data.Frequency); err != nil {
		s.logger.Error().Err(err).Ctx(ctx).
			Str("email", data.Email).
			Msg("failed to send confirmation email, subscription kept")
		s.m.TechnicalErrors.WithLabelValues("email_send_error", "warning").Inc()
	}

	return nil
}

// Confirm flips the subscription matching tok to confirmed. The token is
// consumed in the same step, so replaying it yields ErrTokenNotFound.
func (s *Service) Confirm(ctx context.Context, tok string) error {
	sub, err := s.repo.ConfirmByToken(ctx, tok)
	if err != nil {
		return err
	}
	s.m.SubscriptionsConfirmed.Inc()

	if err := s.emailer.SendConfirmed(sub.Email, sub.RevokeToken, sub.City.FullName, sub.Frequency); err != nil {
		s.logger.Error().Err(err).Ctx(ctx).
			Str("email", sub.Email).
			Msg("failed to send confirmed email")
		s.m.TechnicalErrors.WithLabelValues("email_send_error", "warning").Inc()
	}

	return nil
}

// Unsubscribe deletes the subscription matching the revoke token. The
// farewell email is best-effort and never resurrects the deleted row.
func (s *Service) Unsubscribe(ctx context.Context, tok string) error {
	sub, err := s.repo.DeleteByRevokeToken(ctx, tok)
	if err != nil {
		return err
	}
	s.m.SubscriptionsCanceled.Inc()

	if err := s.emailer.SendUnsubscribed(sub.Email, sub.City.FullName, sub.Frequency); err != nil {
		s.logger.Error().Err(err).Ctx(ctx).
			Str("email", sub.Email).
			Msg("failed to send unsubscribed email")
		s.m.TechnicalErrors.WithLabelValues("email_send_error", "warning").Inc()
	}

	return nil
}
