package notify

import (
	"github.com/dicoevent/dicoevent/config"
	"github.com/dicoevent/dicoevent/logger"
)

// NewHandlerFromConfig builds the renderer and mailer from the environment.
// Without a SendGrid key emails are only logged.
func NewHandlerFromConfig() *Handler {
	renderer := NewRenderer(config.GetMailLang(), config.GetMailSender(), config.GetMailSenderName(), config.GetTimeLocation())
	var mailer Mailer = LogMailer{}
	if key := config.GetSendGridAPIKey(); key != "" {
		mailer = NewSendGridMailer(key)
	} else {
		logger.Warning("SENDGRID_API_KEY is not set, emails will only be logged")
	}
	return NewHandler(renderer, mailer, config.GetMailTimeout())
}

// OpenDispatcher publishes to NATS when a broker URL is configured and
// otherwise delivers in-process.
func OpenDispatcher() (Dispatcher, error) {
	url := config.GetNatsURL()
	if url == "" {
		logger.Info("No task broker configured, delivering emails in-process")
		return NewLocalDispatcher(NewHandlerFromConfig(), config.GetMailWorkers(), 100), nil
	}
	conn, err := Connect(url, config.GetName()+"-api")
	if err != nil {
		return nil, err
	}
	return NewNatsDispatcher(conn, config.GetNatsSubject(), config.GetBrokerTimeout()), nil
}
