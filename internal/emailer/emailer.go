package emailer

import (
	"net/smtp"

	"github.com/rs/zerolog"

	"github.com/andriy-ko/weather-digest-api/internal/config"
)

// SMTPService delivers mail through a plain-auth SMTP relay.
type SMTPService struct {
	User     string
	Host     string
	Port     string
	Password string
	From     string

	log zerolog.Logger
}

func NewSMTPService(cfg config.Email, logger zerolog.Logger) *SMTPService {
	logger = logger.With().Str("component", "SMTPService").Logger()
	svc := &SMTPService{
		User:     cfg.User,
		Host:     cfg.Host,
		Port:     cfg.Port,
		Password: cfg.Password,
		From:     cfg.From,
		log:      logger,
	}

	if svc.Host == "" || svc.Port == "" || svc.From == "" {
		logger.Warn().Str("host", svc.Host).Str("port", svc.Port).
			Msg("SMTP credentials are not fully set")
	}
	return svc
}

func (e *SMTPService) Send(to, subject, additionalHeaders, body string) error {
	auth := smtp.PlainAuth("", e.User, e.Password, e.Host)

	msg := "From: " + e.From + "\n" +
		"To: " + to + "\n" +
		"Subject: " + subject + "\n" +
		additionalHeaders + "\n\n" +
		body

	addr := e.Host + ":" + e.Port
	return smtp.SendMail(addr, auth, e.From, []string{to}, []byte(msg))
}
