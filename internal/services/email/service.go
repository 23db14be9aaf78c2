package email

import (
	"bytes"
	"fmt"
	"html/template"
	"strconv"

	"github.com/andriy-ko/weather-digest-api/internal/models"
)

const htmlHeaders = "MIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\""

type Emailer interface {
	Send(to, subject, additionalHeaders, body string) error
}

// Service renders lifecycle and weather-update emails from the templates
// directory and hands them to the transport.
type Service struct {
	emailer      Emailer
	templatesDir string
	appURL       string
}

func NewService(emailer Emailer, templatesDir, appURL string) *Service {
	return &Service{
		emailer:      emailer,
		templatesDir: templatesDir,
		appURL:       appURL,
	}
}

// SendConfirmation mails the confirm link for a fresh subscription.
func (e *Service) SendConfirmation(toEmail, confirmToken, cityFullName, frequency string) error {
	body, err := e.render("confirm_email.html", map[string]string{
		"Link":      fmt.Sprintf("%s/api/confirm/%s", e.appURL, confirmToken),
		"City":      cityFullName,
		"Frequency": frequency,
	})
	if err != nil {
		return err
	}

	return e.emailer.Send(toEmail, "Weather Subscription Confirmation", htmlHeaders, body)
}

// SendConfirmed mails the post-confirmation notice with the unsubscribe link.
func (e *Service) SendConfirmed(toEmail, revokeToken, cityFullName, frequency string) error {
	body, err := e.render("confirmed_email.html", map[string]string{
		"Link":      fmt.Sprintf("%s/api/unsubscribe/%s", e.appURL, revokeToken),
		"City":      cityFullName,
		"Frequency": frequency,
	})
	if err != nil {
		return err
	}

	return e.emailer.Send(toEmail, "Weather Subscription Successfully Confirmed!", htmlHeaders, body)
}

// SendUnsubscribed mails the farewell notice after a subscription is deleted.
func (e *Service) SendUnsubscribed(toEmail, cityFullName, frequency string) error {
	body, err := e.render("unsubscribed_email.html", map[string]string{
		"City":      cityFullName,
		"Frequency": frequency,
	})
	if err != nil {
		return err
	}

	return e.emailer.Send(toEmail, "Weather Subscription Successfully Unsubscribed!", htmlHeaders, body)
}

// SendWeather mails one weather update to a subscriber.
func (e *Service) SendWeather(toEmail, cityFullName string, forecast models.WeatherData) error {
	body, err := e.render("weather_update.html", map[string]string{
		"City":        cityFullName,
		"Temperature": strconv.FormatFloat(forecast.TemperatureC, 'f', 1, 64),
		"Humidity":    strconv.Itoa(forecast.Humidity),
		"Condition":   forecast.Condition,
	})
	if err != nil {
		return err
	}

	subject := fmt.Sprintf("Weather Update for %s", cityFullName)
	return e.emailer.Send(toEmail, subject, htmlHeaders, body)
}

func (e *Service) render(name string, data map[string]string) (string, error) {
	tmpl, err := template.ParseFiles(e.templatesDir + "/" + name)
	if err != nil {
		return "", err
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return "", err
	}
	return body.String(), nil
}
