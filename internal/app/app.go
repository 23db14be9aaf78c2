package app

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.uber.org/zap"

	"github.com/andriy-ko/weather-digest-api/internal/broadcast"
	"github.com/andriy-ko/weather-digest-api/internal/cache"
	"github.com/andriy-ko/weather-digest-api/internal/config"
	"github.com/andriy-ko/weather-digest-api/internal/emailer"
	subHandler "github.com/andriy-ko/weather-digest-api/internal/handlers/subscription"
	weatherHandler "github.com/andriy-ko/weather-digest-api/internal/handlers/weather"
	"github.com/andriy-ko/weather-digest-api/internal/metrics"
	"github.com/andriy-ko/weather-digest-api/internal/models"
	"github.com/andriy-ko/weather-digest-api/internal/repository/sqlite"
	"github.com/andriy-ko/weather-digest-api/internal/services/email"
	httplogger "github.com/andriy-ko/weather-digest-api/internal/services/logger"
	"github.com/andriy-ko/weather-digest-api/internal/services/subscriptions"
	serviceWeather "github.com/andriy-ko/weather-digest-api/internal/services/weather"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	cfg config.Config
	log zerolog.Logger
}

type ServiceContainer struct {
	WeatherService      *serviceWeather.ServiceProvider
	WeatherGetter       weatherHandler.WeatherServicer
	SubscriptionService *subscriptions.Service
	EmailService        *email.Service
	Broadcaster         *broadcast.Engine
	Scheduler           *broadcast.Scheduler
	Metrics             *metrics.Metrics

	Router *gin.Engine
	Srv    *http.Server
	Db     *sql.DB

	redisClient *redis.Client
	httpLog     *zap.Logger
}

func New(cfg config.Config, logger zerolog.Logger) *App {
	return &App{
		cfg: cfg,
		log: logger.With().Str("component", "App").Logger(),
	}
}

func (a *App) Init() (*ServiceContainer, error) {
	a.log.Info().Str("address", a.cfg.Server.Address).Msg("initializing application")

	db, err := OpenSqliteDb(a.cfg.DB.Dialect, a.cfg.DB.Source)
	if err != nil {
		return nil, err
	}
	if err := MigrateSqliteDb(db, a.cfg.DB.Dialect, a.cfg.DB.MigrationsPath); err != nil {
		return nil, err
	}

	m := metrics.New("weather_digest", db, a.cfg.DB.Source)

	router := gin.Default()
	router.Use(m.HTTPMiddleware())

	apiServer := &http.Server{
		Addr:        a.cfg.Server.Address,
		Handler:     router,
		ReadTimeout: time.Duration(a.cfg.Server.ReadTimeout) * time.Second,
	}

	httpLog, err := httplogger.NewFileLogger(a.cfg.HTTPLogsPath)
	if err != nil {
		return nil, err
	}
	providerClient := &http.Client{
		Transport: httplogger.NewRoundTripper(httpLog),
	}

	weatherAPIClient := serviceWeather.NewClientWeatherAPI(
		a.cfg.Weather.WeatherAPIKey,
		a.cfg.Weather.WeatherAPIURL,
		providerClient,
		a.log,
	)

	breakerCfg := serviceWeather.BreakerConfig{
		TimeInterval: a.cfg.Breaker.Interval,
		TimeTimeOut:  a.cfg.Breaker.Timeout,
		RepeatNumber: a.cfg.Breaker.Failures,
	}

	var weatherService *serviceWeather.ServiceProvider
	if a.cfg.Weather.OpenWeatherAPIKey != "" {
		openWeatherClient := serviceWeather.NewOpenWeatherMapClient(
			a.cfg.Weather.OpenWeatherAPIKey,
			a.cfg.Weather.OpenWeatherURL,
			providerClient,
			a.log,
		)
		weatherService = serviceWeather.NewService(a.log, weatherAPIClient,
			serviceWeather.NewBreakerClient("weatherapi", breakerCfg, weatherAPIClient),
			serviceWeather.NewBreakerClient("openweathermap", breakerCfg, openWeatherClient),
		)
	} else {
		weatherService = serviceWeather.NewService(a.log, weatherAPIClient,
			serviceWeather.NewBreakerClient("weatherapi", breakerCfg, weatherAPIClient),
		)
	}

	var weatherGetter weatherHandler.WeatherServicer = weatherService
	var redisClient *redis.Client
	if a.cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: a.cfg.Redis.Addr})
		weatherCache := cache.NewRedisClient[models.WeatherData](redisClient, a.log, a.cfg.Redis.Expiration)
		weatherGetter = serviceWeather.NewCachedService(weatherService, weatherCache, a.log)
	}

	smtpService := emailer.NewSMTPService(a.cfg.Email, a.log)
	emailService := email.NewService(smtpService, a.cfg.TemplatesDir, a.cfg.AppURL)

	subRepository := sqlite.NewSubscriptionRepository(db, a.log, m)
	subscriptionService := subscriptions.NewService(subRepository, weatherService, emailService, a.log, m)

	broadcaster := broadcast.NewEngine(
		subRepository,
		weatherGetter,
		emailService,
		a.log,
		m,
		a.cfg.Broadcast.SendsPerSec,
	)
	scheduler := broadcast.NewScheduler(broadcaster, a.log, a.cfg.Broadcast.HourlySpec, a.cfg.Broadcast.DailySpec)

	return &ServiceContainer{
		WeatherService:      weatherService,
		WeatherGetter:       weatherGetter,
		SubscriptionService: subscriptionService,
		EmailService:        emailService,
		Broadcaster:         broadcaster,
		Scheduler:           scheduler,
		Metrics:             m,

		Router: router,
		Srv:    apiServer,
		Db:     db,

		redisClient: redisClient,
		httpLog:     httpLog,
	}, nil
}

func (a *App) Start(ctx context.Context, c *ServiceContainer) error {
	a.log.Info().Str("address", a.cfg.Server.Address).Msg("starting server")

	subscriptionHandler := subHandler.NewHandler(c.SubscriptionService, a.log)
	currentWeatherHandler := weatherHandler.NewHandler(c.WeatherGetter, a.log)

	api := c.Router.Group("/api")
	{
		api.GET("/weather", currentWeatherHandler.GetWeather)
		api.POST("/subscribe", subscriptionHandler.Subscribe)
		api.GET("/confirm/:token", subscriptionHandler.Confirm)
		api.GET("/unsubscribe/:token", subscriptionHandler.Unsubscribe)
	}
	c.Router.GET("/metrics", gin.WrapH(c.Metrics.Handler()))

	if err := c.Scheduler.Start(ctx); err != nil {
		return err
	}

	if err := c.Srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *App) Stop(c *ServiceContainer) error {
	a.log.Info().Msg("stopping application")

	c.Scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := c.Srv.Shutdown(ctx); err != nil {
		a.log.Error().Err(err).Msg("HTTP shutdown error")
	}

	if c.redisClient != nil {
		if err := c.redisClient.Close(); err != nil {
			a.log.Error().Err(err).Msg("redis close error")
		}
	}

	if err := c.httpLog.Sync(); err != nil {
		a.log.Warn().Err(err).Msg("failed to sync provider HTTP log")
	}

	if err := c.Db.Close(); err != nil {
		a.log.Error().Err(err).Msg("DB close error")
		return err
	}

	a.log.Info().Msg("shutdown complete")
	return nil
}

func OpenSqliteDb(dialect, name string) (*sql.DB, error) {
	if name == "" {
		return nil, errors.New("database name cannot be empty")
	}
	connectionString := "file:" + name + "?cache=shared&mode=rwc"
	db, err := sql.Open(dialect, connectionString)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return db, nil
}

func MigrateSqliteDb(db *sql.DB, dialect, migrationPath string) error {
	if err := goose.SetDialect(dialect); err != nil {
		return err
	}

	return goose.Up(db, migrationPath)
}
