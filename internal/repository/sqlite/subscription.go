package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/andriy-ko/weather-digest-api/internal/metrics"
	"github.com/andriy-ko/weather-digest-api/internal/models"
)

const selectColumns = `id, email, city_name, city_region, city_country, city_full_name,
		city_lat, city_lon, frequency, confirmation_token, revoke_token, confirmed, created_at`

// SubscriptionRepository handles CRUD operations on subscriptions with
// structured logging and metrics.
type SubscriptionRepository struct {
	DB  *sql.DB
	log zerolog.Logger
	m   *metrics.Metrics
}

func NewSubscriptionRepository(db *sql.DB, logger zerolog.Logger, m *metrics.Metrics) *SubscriptionRepository {
	logger = logger.With().Str("component", "SubscriptionRepository").Logger()
	return &SubscriptionRepository{DB: db, log: logger, m: m}
}

// GetByEmail returns the subscription for email, or nil when none exists.
func (r *SubscriptionRepository) GetByEmail(ctx context.Context, email string) (*models.Subscription, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM subscriptions WHERE email = ?`, email)

	sub, err := scanSubscription(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error().Err(err).Ctx(ctx).Str("email", email).Msg("failed to query subscription by email")
		r.m.TechnicalErrors.WithLabelValues("db_query_error", "critical").Inc()
		return nil, err
	}
	return &sub, nil
}

// Create inserts a new subscription row. The unique constraint on email is
// the authoritative duplicate guard; a violation maps to
// models.ErrEmailAlreadySubscribed.
func (r *SubscriptionRepository) Create(ctx context.Context, sub models.Subscription) error {
	start := time.Now()
	r.log.Debug().Ctx(ctx).
		Str("email", sub.Email).
		Str("city", sub.City.FullName).
		Msg("inserting new subscription record")

	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO subscriptions
		    (email, city_name, city_region, city_country, city_full_name, city_lat, city_lon,
		     frequency, confirmation_token, revoke_token, confirmed, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?)`,
		sub.Email, sub.City.Name, sub.City.Region, sub.City.Country, sub.City.FullName,
		sub.City.Lat, sub.City.Lon, sub.Frequency,
		sub.ConfirmationToken, sub.RevokeToken, time.Now(),
	)
	dur := time.Since(start)
	if err != nil {
		if isUniqueViolation(err) {
			r.log.Warn().Ctx(ctx).
				Str("email", sub.Email).
				Msg("subscription already exists, abort create")
			r.m.BusinessErrors.WithLabelValues("subscription_exists", "warning").Inc()
			return models.ErrEmailAlreadySubscribed
		}
		r.log.Error().Err(err).Ctx(ctx).
			Dur("duration", dur).
			Msg("failed to insert subscription")
		r.m.TechnicalErrors.WithLabelValues("db_insert_error", "critical").Inc()
		return err
	}

	r.log.Info().Ctx(ctx).
		Str("email", sub.Email).
		Str("city", sub.City.FullName).
		Dur("duration", dur).
		Msg("subscription created successfully")
	return nil
}

// ConfirmByToken marks the matching subscription confirmed and clears its
// confirmation token, making the token single-use. Returns the subscription
// as it was found so the caller can address the confirmed email.
func (r *SubscriptionRepository) ConfirmByToken(ctx context.Context, tok string) (models.Subscription, error) {
	start := time.Now()
	r.log.Debug().Ctx(ctx).Msg("confirming subscription token")

	row := r.DB.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM subscriptions WHERE confirmation_token = ?`, tok)
	sub, err := scanSubscription(row)
	if errors.Is(err, sql.ErrNoRows) {
		r.m.BusinessErrors.WithLabelValues("token_not_found", "warning").Inc()
		return models.Subscription{}, models.ErrTokenNotFound
	}
	if err != nil {
		r.log.Error().Err(err).Ctx(ctx).Msg("failed to query subscription by confirmation token")
		r.m.TechnicalErrors.WithLabelValues("db_query_error", "critical").Inc()
		return models.Subscription{}, err
	}

	res, err := r.DB.ExecContext(ctx,
		`UPDATE subscriptions SET confirmed = 1, confirmation_token = NULL
		 WHERE confirmation_token = ?`, tok,
	)
	if err != nil {
		r.log.Error().Err(err).Ctx(ctx).Msg("failed to execute confirm update")
		r.m.TechnicalErrors.WithLabelValues("db_update_error", "critical").Inc()
		return models.Subscription{}, err
	}
	count, err := res.RowsAffected()
	if err != nil {
		r.m.TechnicalErrors.WithLabelValues("db_rows_error", "critical").Inc()
		return models.Subscription{}, err
	}
	if count == 0 {
		// Token consumed between the select and the update.
		r.m.BusinessErrors.WithLabelValues("token_not_found", "warning").Inc()
		return models.Subscription{}, models.ErrTokenNotFound
	}

	sub.Confirmed = true
	sub.ConfirmationToken = ""

	r.log.Info().Ctx(ctx).
		Str("email", sub.Email).
		Dur("duration", time.Since(start)).
		Msg("subscription confirm completed")
	return sub, nil
}

// DeleteByRevokeToken removes the matching subscription row. Returns the
// subscription as it was found so the caller can send the farewell email.
func (r *SubscriptionRepository) DeleteByRevokeToken(ctx context.Context, tok string) (models.Subscription, error) {
	start := time.Now()
	r.log.Debug().Ctx(ctx).Msg("deleting subscription by revoke token")

	row := r.DB.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM subscriptions WHERE revoke_token = ?`, tok)
	sub, err := scanSubscription(row)
	if errors.Is(err, sql.ErrNoRows) {
		r.m.BusinessErrors.WithLabelValues("token_not_found", "warning").Inc()
		return models.Subscription{}, models.ErrTokenNotFound
	}
	if err != nil {
		r.log.Error().Err(err).Ctx(ctx).Msg("failed to query subscription by revoke token")
		r.m.TechnicalErrors.WithLabelValues("db_query_error", "critical").Inc()
		return models.Subscription{}, err
	}

	res, err := r.DB.ExecContext(ctx,
		`DELETE FROM subscriptions WHERE revoke_token = ?`, tok,
	)
	if err != nil {
		r.log.Error().Err(err).Ctx(ctx).Msg("failed to execute delete")
		r.m.TechnicalErrors.WithLabelValues("db_delete_error", "critical").Inc()
		return models.Subscription{}, err
	}
	count, err := res.RowsAffected()
	if err != nil {
		r.m.TechnicalErrors.WithLabelValues("db_rows_error", "critical").Inc()
		return models.Subscription{}, err
	}
	if count == 0 {
		r.m.BusinessErrors.WithLabelValues("token_not_found", "warning").Inc()
		return models.Subscription{}, models.ErrTokenNotFound
	}

	r.log.Info().Ctx(ctx).
		Str("email", sub.Email).
		Dur("duration", time.Since(start)).
		Msg("subscription deleted successfully")
	return sub, nil
}

// ListConfirmedByFrequency retrieves all confirmed subscriptions for the
// given frequency, ordered by row id so broadcast grouping is deterministic.
func (r *SubscriptionRepository) ListConfirmedByFrequency(
	ctx context.Context, frequency string,
) ([]models.Subscription, error) {
	start := time.Now()
	r.log.Debug().Ctx(ctx).Str("frequency", frequency).Msg("querying confirmed subscriptions by frequency")

	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM subscriptions
		 WHERE confirmed = 1 AND frequency = ?
		 ORDER BY id`, frequency,
	)
	if err != nil {
		r.log.Error().Err(err).Ctx(ctx).
			Str("frequency", frequency).
			Msg("failed to query subscriptions by frequency")
		r.m.TechnicalErrors.WithLabelValues("db_query_error", "critical").Inc()
		return nil, err
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			r.log.Error().Err(err).Ctx(ctx).Msg("failed to close rows after query")
		}
	}(rows)

	var subs []models.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			r.log.Error().Err(err).Ctx(ctx).Msg("failed to scan subscription row")
			r.m.TechnicalErrors.WithLabelValues("db_scan_error", "critical").Inc()
			return nil, err
		}
		subs = append(subs, sub)
	}

	if err := rows.Err(); err != nil {
		r.m.TechnicalErrors.WithLabelValues("db_rows_error", "critical").Inc()
		return nil, err
	}

	r.log.Info().Ctx(ctx).
		Str("frequency", frequency).
		Int("count", len(subs)).
		Dur("duration", time.Since(start)).
		Msg("retrieved confirmed subscriptions")
	return subs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row rowScanner) (models.Subscription, error) {
	var (
		sub          models.Subscription
		confirmToken sql.NullString
		confirmed    int
	)
	err := row.Scan(
		&sub.ID, &sub.Email,
		&sub.City.Name, &sub.City.Region, &sub.City.Country, &sub.City.FullName,
		&sub.City.Lat, &sub.City.Lon,
		&sub.Frequency, &confirmToken, &sub.RevokeToken, &confirmed, &sub.CreatedAt,
	)
	if err != nil {
		return models.Subscription{}, err
	}
	if confirmToken.Valid {
		sub.ConfirmationToken = confirmToken.String
	}
	sub.Confirmed = confirmed == 1
	return sub, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
