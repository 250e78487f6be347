package notify

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/dicoevent/dicoevent/logger"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Mailer sends one rendered message.
type Mailer interface {
	Send(ctx context.Context, msg *Message) error
}

// SendGridMailer delivers through the SendGrid v3 API.
type SendGridMailer struct {
	client *sendgrid.Client
}

func NewSendGridMailer(apiKey string) *SendGridMailer {
	return &SendGridMailer{client: sendgrid.NewSendClient(apiKey)}
}

func (m *SendGridMailer) Send(ctx context.Context, msg *Message) error {
	from := mail.NewEmail(msg.FromName, msg.FromEmail)
	to := mail.NewEmail(msg.ToName, msg.To)
	email := mail.NewSingleEmail(from, msg.Subject, to, msg.Text, msg.HTML)
	for _, a := range msg.Attachments {
		att := mail.NewAttachment()
		att.SetContent(base64.StdEncoding.EncodeToString(a.Data))
		att.SetType(a.ContentType)
		att.SetFilename(a.Filename)
		att.SetDisposition("attachment")
		email.AddAttachment(att)
	}

	response, err := m.client.SendWithContext(ctx, email)
	if err != nil {
		return err
	}
	if response.StatusCode >= 300 {
		return fmt.Errorf("sendgrid rejected email to %s: status %d: %s", msg.To, response.StatusCode, response.Body)
	}
	logger.Debugf("Email sent to %s. Status Code: %d", msg.To, response.StatusCode)
	return nil
}

// LogMailer only logs messages. Used when no mail provider is configured.
type LogMailer struct{}

func (LogMailer) Send(_ context.Context, msg *Message) error {
	logger.Infof("Sending email to %s: %s (%d attachments)", msg.To, msg.Subject, len(msg.Attachments))
	return nil
}
