package email_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andriy-ko/weather-digest-api/internal/models"
	"github.com/andriy-ko/weather-digest-api/internal/services/email"
)

const templatesDir = "../../../templates"

type capturingEmailer struct {
	to      string
	subject string
	headers string
	body    string
	err     error
}

func (c *capturingEmailer) Send(to, subject, additionalHeaders, body string) error {
	c.to = to
	c.subject = subject
	c.headers = additionalHeaders
	c.body = body
	return c.err
}

func TestSendConfirmation(t *testing.T) {
	emailer := &capturingEmailer{}
	svc := email.NewService(emailer, templatesDir, "http://localhost:8080")

	err := svc.SendConfirmation("a@x.com", "confirm-token", "Kyiv, Kyiv City, Ukraine", "daily")
	require.NoError(t, err)

	assert.Equal(t, "a@x.com", emailer.to)
	assert.Equal(t, "Weather Subscription Confirmation", emailer.subject)
	assert.Contains(t, emailer.headers, "text/html")
	assert.Contains(t, emailer.body, "http://localhost:8080/api/confirm/confirm-token")
	assert.Contains(t, emailer.body, "Kyiv, Kyiv City, Ukraine")
	assert.Contains(t, emailer.body, "daily")
}

func TestSendConfirmed(t *testing.T) {
	emailer := &capturingEmailer{}
	svc := email.NewService(emailer, templatesDir, "http://localhost:8080")

	err := svc.SendConfirmed("a@x.com", "revoke-token", "Kyiv, Kyiv City, Ukraine", "hourly")
	require.NoError(t, err)

	assert.Contains(t, emailer.body, "http://localhost:8080/api/unsubscribe/revoke-token")
	assert.Contains(t, emailer.body, "hourly")
}

func TestSendUnsubscribed(t *testing.T) {
	emailer := &capturingEmailer{}
	svc := email.NewService(emailer, templatesDir, "http://localhost:8080")

	err := svc.SendUnsubscribed("a@x.com", "Kyiv, Kyiv City, Ukraine", "daily")
	require.NoError(t, err)

	assert.Equal(t, "Weather Subscription Successfully Unsubscribed!", emailer.subject)
	assert.Contains(t, emailer.body, "Kyiv, Kyiv City, Ukraine")
}

func TestSendWeather(t *testing.T) {
	emailer := &capturingEmailer{}
	svc := email.NewService(emailer, templatesDir, "http://localhost:8080")

	forecast := models.WeatherData{
		City:         "Kyiv",
		TemperatureC: 20.5,
		Humidity:     50,
		Condition:    "Sunny",
	}
	err := svc.SendWeather("a@x.com", "Kyiv, Kyiv City, Ukraine", forecast)
	require.NoError(t, err)

	assert.Equal(t, "Weather Update for Kyiv, Kyiv City, Ukraine", emailer.subject)
	assert.Contains(t, emailer.body, "20.5")
	assert.Contains(t, emailer.body, "50")
	assert.Contains(t, emailer.body, "Sunny")
}

func TestSendWeather_TransportError(t *testing.T) {
	boom := errors.New("smtp down")
	svc := email.NewService(&capturingEmailer{err: boom}, templatesDir, "http://localhost:8080")

	err := svc.SendWeather("a@x.com", "Kyiv", models.WeatherData{})
	assert.ErrorIs(t, err, boom)
}

func TestRender_MissingTemplateDir(t *testing.T) {
	svc := email.NewService(&capturingEmailer{}, "/nonexistent", "http://localhost:8080")

	err := svc.SendConfirmation("a@x.com", "tok", "Kyiv", "daily")
	assert.Error(t, err)
}
