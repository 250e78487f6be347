package notify

import (
	"bytes"
	htmltemplate "html/template"
	"text/template"
	"time"

	"github.com/dicoevent/dicoevent/web/locale"
	"github.com/skip2/go-qrcode"
)

// Message is a rendered email.
type Message struct {
	FromEmail   string
	FromName    string
	To          string
	ToName      string
	Subject     string
	Text        string
	HTML        string
	Attachments []Attachment
}

type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

const textLayout = `{{.Greeting}}

{{range .Lines}}{{.}}

{{end}}{{.NoReply}}

{{.Signature}}
`

const htmlLayout = `<html>
<body style="font-family: Arial, sans-serif; color: #2c3e50; background-color: #f9f9f9; padding: 20px;">
  <div style="max-width: 600px; margin: auto; background-color: #ffffff; padding: 30px; border-radius: 10px; border: 1px solid #e0e0e0;">
    <h2 style="color: #1A73E8; text-align: center;">{{.Heading}}</h2>
    <p>{{.Greeting}}</p>
    {{range .Lines}}<p>{{.}}</p>
    {{end}}<hr style="margin: 30px 0;">
    <p style="font-size: 12px; color: #888; text-align: center;">{{.NoReply}}<br><strong>{{.Signature}}</strong></p>
  </div>
</body>
</html>
`

var (
	textTmpl = template.Must(template.New("text").Parse(textLayout))
	htmlTmpl = htmltemplate.Must(htmltemplate.New("html").Parse(htmlLayout))
)

type emailBody struct {
	Heading   string
	Greeting  string
	Lines     []string
	NoReply   string
	Signature string
}

// Renderer builds translated emails in one language.
type Renderer struct {
	lang      string
	fromEmail string
	fromName  string
	location  *time.Location
}

func NewRenderer(lang, fromEmail, fromName string, location *time.Location) *Renderer {
	if location == nil {
		location = time.Local
	}
	return &Renderer{lang: lang, fromEmail: fromEmail, fromName: fromName, location: location}
}

func (r *Renderer) Render(task Task) (*Message, error) {
	l, err := locale.NewLocalizer(r.lang)
	if err != nil {
		return nil, err
	}
	data := map[string]any{
		"Name":           task.Name,
		"RegistrationId": task.RegistrationId,
		"Event":          task.Event,
		"Start":          task.StartTime.In(r.location).Format("02 Jan 2006 15:04 MST"),
	}

	var subject string
	body := emailBody{
		NoReply:   l.T("email.common.noReply", nil),
		Signature: l.T("email.common.signature", nil),
	}
	switch task.Kind {
	case KindEventReminder:
		subject = l.T("email.reminder.subject", data)
		body.Heading = l.T("email.reminder.heading", data)
		body.Greeting = l.T("email.reminder.greeting", data)
		body.Lines = []string{
			l.T("email.reminder.body", data),
			l.T("email.reminder.bookingId", data),
			l.T("email.reminder.arrive", data),
		}
	default:
		subject = l.T("email.confirmation.subject", data)
		body.Heading = l.T("email.confirmation.heading", data)
		body.Greeting = l.T("email.confirmation.greeting", data)
		body.Lines = []string{
			l.T("email.confirmation.thanks", data),
			l.T("email.confirmation.details", data),
			l.T("email.confirmation.bookingId", data),
			l.T("email.confirmation.arrive", data),
			l.T("email.confirmation.closing", data),
			l.T("email.confirmation.qr", data),
		}
	}

	var text, html bytes.Buffer
	if err := textTmpl.Execute(&text, body); err != nil {
		return nil, err
	}
	if err := htmlTmpl.Execute(&html, body); err != nil {
		return nil, err
	}

	msg := &Message{
		FromEmail: r.fromEmail,
		FromName:  r.fromName,
		To:        task.Email,
		ToName:    task.Name,
		Subject:   subject,
		Text:      text.String(),
		HTML:      html.String(),
	}
	if task.Kind == KindTicketConfirmation {
		png, err := qrcode.Encode(task.RegistrationId, qrcode.Medium, 256)
		if err != nil {
			return nil, err
		}
		msg.Attachments = append(msg.Attachments, Attachment{
			Filename:    "ticket-" + task.RegistrationId + ".png",
			ContentType: "image/png",
			Data:        png,
		})
	}
	return msg, nil
}
