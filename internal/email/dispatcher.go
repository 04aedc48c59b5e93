package email

import (
	"context"
	"errors"
	"net/textproto"
	"sync"
	"time"

	"go.uber.org/zap"
)

// registrationRetryDelays son las esperas entre reintentos del correo de
// registro: 1m, 5m, 15m, 30m, 60m.
var registrationRetryDelays = []time.Duration{
	time.Minute,
	5 * time.Minute,
	15 * time.Minute,
	30 * time.Minute,
	60 * time.Minute,
}

// Dispatcher despacha notificaciones fire-and-forget. El estado ya quedó
// confirmado antes del despacho: un correo perdido no revierte nada, el
// usuario puede pedir un reenvío. Sólo el correo de registro reintenta ante
// fallas SMTP transitorias; el resto se loguea y se descarta.
type Dispatcher struct {
	logger      *zap.Logger
	sender      Sender
	links       LinkBuilder
	retryDelays []time.Duration
	wg          sync.WaitGroup
}

func NewDispatcher(logger *zap.Logger, sender Sender, links LinkBuilder) *Dispatcher {
	return &Dispatcher{
		logger:      logger,
		sender:      sender,
		links:       links,
		retryDelays: registrationRetryDelays,
	}
}

// Registration despacha el correo de bienvenida con enlace de confirmación.
func (d *Dispatcher) Registration(toEmail, firstName, confirmToken string) {
	link := d.links.ConfirmEmailLink(confirmToken)
	d.run(func() {
		d.sendRegistrationWithRetry(toEmail, firstName, link)
	})
}

// ConfirmationResend despacha un nuevo enlace de confirmación.
func (d *Dispatcher) ConfirmationResend(toEmail, firstName, confirmToken string) {
	link := d.links.ConfirmEmailLink(confirmToken)
	d.run(func() {
		if err := d.sender.SendConfirmationResend(context.Background(), toEmail, firstName, link); err != nil {
			d.logger.Warn("send confirmation resend failed", zap.Error(err), zap.String("email", toEmail))
		}
	})
}

// PasswordChanged despacha el aviso de cambio de password.
func (d *Dispatcher) PasswordChanged(toEmail, firstName string) {
	d.run(func() {
		if err := d.sender.SendPasswordChanged(context.Background(), toEmail, firstName); err != nil {
			d.logger.Warn("send password changed failed", zap.Error(err), zap.String("email", toEmail))
		}
	})
}

// PasswordReset despacha el enlace de reset de password.
func (d *Dispatcher) PasswordReset(toEmail, resetToken string) {
	link := d.links.ResetPasswordLink(toEmail, resetToken)
	d.run(func() {
		if err := d.sender.SendPasswordReset(context.Background(), toEmail, link); err != nil {
			d.logger.Warn("send password reset failed", zap.Error(err), zap.String("email", toEmail))
		}
	})
}

// PasswordSet despacha el aviso de password establecido.
func (d *Dispatcher) PasswordSet(toEmail, firstName string) {
	d.run(func() {
		if err := d.sender.SendPasswordSet(context.Background(), toEmail, firstName); err != nil {
			d.logger.Warn("send password set failed", zap.Error(err), zap.String("email", toEmail))
		}
	})
}

// Wait bloquea hasta que terminen los despachos en vuelo.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) run(fn func()) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		fn()
	}()
}

func (d *Dispatcher) sendRegistrationWithRetry(toEmail, firstName, link string) {
	var err error
	for attempt := 0; ; attempt++ {
		err = d.sender.SendRegistration(context.Background(), toEmail, firstName, link)
		if err == nil {
			return
		}
		if !isTransientSMTPError(err) || attempt >= len(d.retryDelays) {
			d.logger.Error("send registration email failed", zap.Error(err), zap.String("email", toEmail))
			return
		}
		delay := d.retryDelays[attempt]
		d.logger.Warn("transient smtp failure, retrying registration email",
			zap.Error(err),
			zap.String("email", toEmail),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
		)
		time.Sleep(delay)
	}
}

// isTransientSMTPError reconoce respuestas 4xx del servidor SMTP.
func isTransientSMTPError(err error) bool {
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		return protoErr.Code >= 400 && protoErr.Code < 500
	}
	return false
}
