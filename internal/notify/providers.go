package notify

import (
	"fmt"
	"io"

	"github.com/safar/go-shop-api/internal/config"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"gopkg.in/gomail.v2"
)

type EmailMessage struct {
	To             string
	Bcc            []string
	Subject        string
	Body           string
	Attachment     []byte
	AttachmentName string
}

// EmailSender and TextSender are the outbound provider seams. Both are
// invoked at most once per recipient; no delivery confirmation is awaited
// beyond the provider's synchronous response.
type EmailSender interface {
	Send(msg EmailMessage) error
}

type TextSender interface {
	Send(to, body string) error
}

type smtpSender struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPSender(cfg config.SMTPConfig) EmailSender {
	return &smtpSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (s *smtpSender) Send(msg EmailMessage) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	if len(msg.Bcc) > 0 {
		m.SetHeader("Bcc", msg.Bcc...)
	}
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.Body)
	if len(msg.Attachment) > 0 {
		m.Attach(msg.AttachmentName, gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(msg.Attachment)
			return err
		}))
	}

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send email to %s: %w", msg.To, err)
	}
	return nil
}

type whatsAppSender struct {
	client *twilio.RestClient
	from   string
}

func NewWhatsAppSender(cfg config.WhatsAppConfig) TextSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &whatsAppSender{client: client, from: cfg.FromNumber}
}

func (s *whatsAppSender) Send(to, body string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo("whatsapp:" + to)
	params.SetFrom("whatsapp:" + s.from)
	params.SetBody(body)

	if _, err := s.client.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("send whatsapp to %s: %w", to, err)
	}
	return nil
}
