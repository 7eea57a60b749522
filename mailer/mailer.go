// Package mailer sends notification email over SMTP.
package mailer

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"gopkg.in/gomail.v2"
)

// Config holds SMTP configuration for sending emails.
type Config struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT" envDefault:"587"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"SMTP_FROM"`
}

// ConfigFromEnv builds a Config from SMTP_* environment variables.
func ConfigFromEnv() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("mailer: parse environment: %w", err)
	}
	return cfg, nil
}

// Validate checks that every required SMTP setting is present.
func (c Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("missing SMTP_HOST environment variable")
	}
	if c.Port == 0 {
		return fmt.Errorf("missing SMTP_PORT environment variable")
	}
	if c.From == "" {
		return fmt.Errorf("missing SMTP_FROM environment variable")
	}
	return nil
}

// Mailer sends plain text email through a gomail dialer.
type Mailer struct {
	config Config
	dialer *gomail.Dialer
}

// New creates a Mailer from the given configuration.
func New(cfg Config) (*Mailer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Mailer{
		config: cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}, nil
}

// Send delivers a single text email to one recipient.
func (m *Mailer) Send(to, subject, body string) error {
	if to == "" {
		return fmt.Errorf("no recipient specified")
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.config.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	return m.dialer.DialAndSend(msg)
}
