package notify

import (
	"fmt"
	"net/smtp"

	"go.uber.org/zap"

	"bloodlink/internal/core/config"
)

// Mailer 告警邮件出口
type Mailer interface {
	SendEmail(to, subject, body string) error
}

type smtpMailer struct {
	host     string
	port     string
	from     string
	username string
	password string
}

// NewMailer host 未配置时返回日志 no-op
func NewMailer(cfg *config.Config, l *zap.Logger) Mailer {
	if cfg.SMTP.Host == "" {
		l.Warn("smtp host empty, email disabled (noop mailer)")
		return &noopMailer{l: l}
	}
	return &smtpMailer{
		host:     cfg.SMTP.Host,
		port:     cfg.SMTP.Port,
		from:     cfg.SMTP.From,
		username: cfg.SMTP.Username,
		password: cfg.SMTP.Password,
	}
}

func (m *smtpMailer) SendEmail(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s", m.from, to, subject, body)
	addr := fmt.Sprintf("%s:%s", m.host, m.port)

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}
	return smtp.SendMail(addr, auth, m.from, []string{to}, []byte(msg))
}

type noopMailer struct{ l *zap.Logger }

func (n *noopMailer) SendEmail(to, subject, _ string) error {
	n.l.Info("email (noop)", zap.String("to", to), zap.String("subject", subject))
	return nil
}
