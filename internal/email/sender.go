package email

import (
	"context"
	"errors"
)

// Sender define la interfaz para los correos transaccionales del flujo de
// credenciales. Cada método corresponde a un tipo de notificación.
type Sender interface {
	SendRegistration(ctx context.Context, toEmail, firstName, confirmLink string) error
	SendConfirmationResend(ctx context.Context, toEmail, firstName, confirmLink string) error
	SendPasswordChanged(ctx context.Context, toEmail, firstName string) error
	SendPasswordReset(ctx context.Context, toEmail, resetLink string) error
	SendPasswordSet(ctx context.Context, toEmail, firstName string) error
}

type disabledSender struct {
	reason string
}

func NewDisabledSender(reason string) Sender {
	return &disabledSender{reason: reason}
}

func (s *disabledSender) err() error {
	if s.reason == "" {
		return errors.New("email sender disabled")
	}
	return errors.New(s.reason)
}

func (s *disabledSender) SendRegistration(context.Context, string, string, string) error {
	return s.err()
}

func (s *disabledSender) SendConfirmationResend(context.Context, string, string, string) error {
	return s.err()
}

func (s *disabledSender) SendPasswordChanged(context.Context, string, string) error {
	return s.err()
}

func (s *disabledSender) SendPasswordReset(context.Context, string, string) error {
	return s.err()
}

func (s *disabledSender) SendPasswordSet(context.Context, string, string) error {
	return s.err()
}
