package email

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"html/template"
	"net/smtp"
)

//go:embed templates/invite_member.html
var inviteMemberHTML string

var inviteMemberTmpl = template.Must(template.New("invite_member").Parse(inviteMemberHTML))

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type SMTPProvider struct {
	cfg Config
}

func NewSMTP(cfg Config) *SMTPProvider {
	return &SMTPProvider{cfg: cfg}
}

func (p *SMTPProvider) SendInvite(ctx context.Context, to string, invite Invite) error {
	var body bytes.Buffer
	if err := inviteMemberTmpl.Execute(&body, map[string]any{
		"OrgName":     invite.OrgName,
		"InviterName": invite.InviterName,
		"Role":        invite.Role,
		"AcceptURL":   invite.AcceptURL,
		"ExpiresAt":   invite.ExpiresAt.Format("Jan 2, 2006 15:04 MST"),
	}); err != nil {
		return fmt.Errorf("render invite template: %w", err)
	}

	subject := fmt.Sprintf("You're invited to join %s", invite.OrgName)
	return p.send(to, subject, body.String())
}

func (p *SMTPProvider) send(to, subject, htmlBody string) error {
	auth := smtp.PlainAuth("", p.cfg.Username, p.cfg.Password, p.cfg.Host)
	addr := fmt.Sprintf("%s:%d", p.cfg.Host, p.cfg.Port)

	mime := "MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\n\n"
	msg := []byte(fmt.Sprintf("To: %s\r\nSubject: %s\r\n%s\r\n%s", to, subject, mime, htmlBody))

	return smtp.SendMail(addr, auth, p.cfg.From, []string{to}, msg)
}
