package sender

import (
	"context"
	"crypto/tls"
	"log"

	"scoda_backend/internals/configs"
	"scoda_backend/internals/features/notifications/batcher"

	"gopkg.in/gomail.v2"
)

// Dialer is the part of *gomail.Dialer the sender uses.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type MailSender struct {
	Dialer Dialer
	From   string
}

func NewMailSender(cfg configs.SMTPSettings) *MailSender {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	d.SSL = cfg.UseSSL
	d.TLSConfig = &tls.Config{ServerName: cfg.Host}
	return &MailSender{Dialer: d, From: cfg.From}
}

func (s *MailSender) SendIndividual(ctx context.Context, to batcher.Recipient, ev batcher.PickupEvent) error {
	return s.send(ctx, to, IndividualMessage(to, ev))
}

func (s *MailSender) SendDigest(ctx context.Context, to batcher.Recipient, events []batcher.PickupEvent) error {
	return s.send(ctx, to, DigestMessage(to, events))
}

func (s *MailSender) send(ctx context.Context, to batcher.Recipient, msg Message) error {
	// contacts without an address still get the inbox copy
	if to.Email == "" {
		log.Printf("[NOTIFY] %s has no email address, skipping %q", to.PersonID, msg.Subject)
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetAddressHeader("To", to.Email, to.Name)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Text)
	m.AddAlternative("text/html", msg.HTML)

	if err := s.Dialer.DialAndSend(m); err != nil {
		return err
	}
	log.Printf("[NOTIFY] email %q sent to %s", msg.Subject, to.Email)
	return nil
}
