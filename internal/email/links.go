package email

import "net/url"

// LinkBuilder arma los enlaces profundos que viajan dentro de los correos.
type LinkBuilder struct {
	siteURL string
}

func NewLinkBuilder(siteURL string) LinkBuilder {
	return LinkBuilder{siteURL: siteURL}
}

// ConfirmEmailLink genera la URL de confirmación de email.
func (b LinkBuilder) ConfirmEmailLink(token string) string {
	return b.siteURL + "/auth/confirm_email?token=" + url.QueryEscape(token)
}

// ResetPasswordLink genera la URL de confirmación de reset de password.
func (b LinkBuilder) ResetPasswordLink(email, token string) string {
	return b.siteURL + "/auth/reset_password_confirm?email=" + url.QueryEscape(email) +
		"&token=" + url.QueryEscape(token)
}
