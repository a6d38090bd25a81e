package stmp

import (
	"errors"
	"fmt"
	"html"
	"strings"

	"blackcnote/common/config"

	"github.com/wneessen/go-mail"
)

var ErrSMTPNotConfigured = errors.New("SMTP 未配置")

type StmpConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func currentConfig() StmpConfig {
	return StmpConfig{
		Host:     config.SMTPServer,
		Port:     config.SMTPPort,
		Username: config.SMTPAccount,
		Password: config.SMTPToken,
		From:     config.SMTPFrom,
	}
}

func (s StmpConfig) enabled() bool {
	return s.Host != "" && s.Username != ""
}

func (s StmpConfig) Send(to, subject, body string) error {
	if !s.enabled() {
		return ErrSMTPNotConfigured
	}
	from := s.From
	if from == "" {
		from = s.Username
	}

	message := mail.NewMsg()
	if err := message.FromFormat(config.SystemName, from); err != nil {
		return err
	}
	if err := message.To(to); err != nil {
		return err
	}
	message.Subject(subject)
	message.SetBodyString(mail.TypeTextHTML, body)

	opts := []mail.Option{
		mail.WithPort(s.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.Username),
		mail.WithPassword(s.Password),
	}
	if s.Port == 465 {
		opts = append(opts, mail.WithSSLPort(false))
	} else {
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSOpportunistic))
	}

	client, err := mail.NewClient(s.Host, opts...)
	if err != nil {
		return err
	}
	return client.DialAndSend(message)
}

func Enabled() bool {
	return currentConfig().enabled()
}

func render(title string, lines ...string) string {
	var b strings.Builder
	b.WriteString("<div style=\"font-family:Arial,sans-serif;max-width:560px;margin:0 auto\">")
	b.WriteString(fmt.Sprintf("<h2>%s</h2>", html.EscapeString(title)))
	for _, line := range lines {
		b.WriteString("<p>")
		b.WriteString(line)
		b.WriteString("</p>")
	}
	b.WriteString(fmt.Sprintf("<p style=\"color:#888\">%s</p></div>", html.EscapeString(config.SystemName)))
	return b.String()
}

func SendVerificationCodeEmail(email, code string) error {
	subject := fmt.Sprintf("%s email verification", config.SystemName)
	body := render("Verify your email",
		fmt.Sprintf("Your verification code is <strong>%s</strong>.", html.EscapeString(code)),
		"The code is valid for 10 minutes.",
	)
	return currentConfig().Send(email, subject, body)
}

func SendPasswordResetEmail(userName, email, link string) error {
	subject := fmt.Sprintf("%s password reset", config.SystemName)
	body := render("Password reset",
		fmt.Sprintf("Hello %s,", html.EscapeString(userName)),
		fmt.Sprintf("<a href=\"%s\">Click here to reset your password</a>. The link is valid for 10 minutes.", html.EscapeString(link)),
	)
	return currentConfig().Send(email, subject, body)
}

func SendDepositSuccessEmail(email, userName, trx, amount, gateway string) error {
	subject := fmt.Sprintf("%s deposit completed", config.SystemName)
	body := render("Deposit completed",
		fmt.Sprintf("Hello %s,", html.EscapeString(userName)),
		fmt.Sprintf("Your deposit of <strong>%s %s</strong> via %s has been credited.",
			html.EscapeString(amount), html.EscapeString(config.CurrencyText), html.EscapeString(gateway)),
		fmt.Sprintf("Transaction: %s", html.EscapeString(trx)),
	)
	return currentConfig().Send(email, subject, body)
}

func SendWithdrawStatusEmail(email, userName, trx, amount, status, feedback string) error {
	subject := fmt.Sprintf("%s withdrawal %s", config.SystemName, status)
	lines := []string{
		fmt.Sprintf("Hello %s,", html.EscapeString(userName)),
		fmt.Sprintf("Your withdrawal of <strong>%s %s</strong> is %s.",
			html.EscapeString(amount), html.EscapeString(config.CurrencyText), html.EscapeString(status)),
		fmt.Sprintf("Transaction: %s", html.EscapeString(trx)),
	}
	if feedback != "" {
		lines = append(lines, html.EscapeString(feedback))
	}
	return currentConfig().Send(email, subject, render("Withdrawal "+status, lines...))
}
