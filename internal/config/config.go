package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort    string `env:"HTTP_PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL,required"`
	SiteURL     string `env:"SITE_URL" envDefault:"http://localhost:8080"`

	JWTSecret             string `env:"JWT_SECRET,required"`
	JWTAlgorithm          string `env:"JWT_ALGORITHM" envDefault:"HS256"`
	AccessTokenTTLMinutes int    `env:"ACCESS_TOKEN_TTL_MINUTES" envDefault:"30"`

	EmailConfirmTokenTTLMinutes  int `env:"EMAIL_CONFIRM_TOKEN_TTL_MINUTES" envDefault:"1440"`
	PasswordResetTokenTTLMinutes int `env:"PASSWORD_RESET_TOKEN_TTL_MINUTES" envDefault:"30"`
	MinPasswordLength            int `env:"MIN_PASSWORD_LENGTH" envDefault:"8"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPass     string `env:"SMTP_PASS"`
	SMTPFrom     string `env:"SMTP_FROM"`
	SMTPFromName string `env:"SMTP_FROM_NAME"`
	SMTPUseTLS   bool   `env:"SMTP_USE_TLS" envDefault:"false"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	switch cfg.JWTAlgorithm {
	case "HS256", "HS384", "HS512":
	default:
		return nil, fmt.Errorf("unsupported jwt algorithm %q", cfg.JWTAlgorithm)
	}
	if cfg.MinPasswordLength < 1 {
		return nil, fmt.Errorf("min password length must be positive")
	}
	return &cfg, nil
}
