package email

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type smtpService struct {
	cfg    SMTPConfig
	dialer *gomail.Dialer
}

func NewSMTPService(cfg SMTPConfig) Service {
	return &smtpService{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

func (s *smtpService) SendOTP(_ context.Context, to string, code string) error {
	body := fmt.Sprintf("Your RaktSeva verification code is %s. It expires in 10 minutes.", code)
	return s.send(to, "RaktSeva OTP Verification", body)
}

func (s *smtpService) SendCustom(_ context.Context, to string, subject string, content string) error {
	return s.send(to, subject, content)
}

func (s *smtpService) send(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}
