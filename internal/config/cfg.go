package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Server struct {
	Address     string `envconfig:"SERVER_ADDRESS" default:"localhost:8080"`
	ReadTimeout int    `envconfig:"SERVER_TIMEOUT" default:"10"`
}

type Db struct {
	Dialect        string `envconfig:"DB_DIALECT" default:"sqlite"`
	Source         string `envconfig:"DB_NAME" default:"subscriptions.db"`
	MigrationsPath string `envconfig:"DB_MIGRATIONS_DIR" default:"./migrations"`
}

type Email struct {
	User     string `envconfig:"EMAIL_USER"`
	Host     string `envconfig:"EMAIL_HOST" required:"true"`
	Port     string `envconfig:"EMAIL_PORT" default:"587"`
	Password string `envconfig:"EMAIL_PASSWORD"`
	From     string `envconfig:"EMAIL_FROM" required:"true"`
}

type Weather struct {
	WeatherAPIKey     string `envconfig:"WEATHER_API_KEY" required:"true"`
	WeatherAPIURL     string `envconfig:"WEATHER_API_URL" default:"https://api.weatherapi.com/v1"`
	OpenWeatherAPIKey string `envconfig:"OPENWEATHER_API_KEY"`
	OpenWeatherURL    string `envconfig:"OPENWEATHER_API_URL" default:"https://api.openweathermap.org/data/2.5/weather"`
}

type Broadcast struct {
	HourlySpec  string `envconfig:"BROADCAST_HOURLY_CRON" default:"0 * * * *"`
	DailySpec   string `envconfig:"BROADCAST_DAILY_CRON" default:"0 9 * * *"`
	SendsPerSec int    `envconfig:"BROADCAST_SENDS_PER_SEC" default:"5"`
}

type Redis struct {
	Addr       string        `envconfig:"REDIS_ADDR"`
	Expiration time.Duration `envconfig:"REDIS_EXPIRATION" default:"10m"`
}

type Breaker struct {
	Interval time.Duration `envconfig:"BREAKER_INTERVAL" default:"60s"`
	Timeout  time.Duration `envconfig:"BREAKER_TIMEOUT" default:"30s"`
	Failures uint32        `envconfig:"BREAKER_FAILURES" default:"3"`
}

type Config struct {
	AppURL       string `envconfig:"APP_URL" default:"http://localhost:8080"`
	TemplatesDir string `envconfig:"TEMPLATES_DIR" default:"./templates"`
	LogsPath     string `envconfig:"LOGS_PATH" default:"./logs/weather-digest.log"`
	HTTPLogsPath string `envconfig:"HTTP_LOGS_PATH" default:"./logs/weather-providers.log"`

	Server    Server
	DB        Db
	Email     Email
	Weather   Weather
	Broadcast Broadcast
	Redis     Redis
	Breaker   Breaker
}

func New() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
