package notify

import (
	"CourseMarket/pkg/logger"
	"context"
)

type Message struct {
	ToName  string
	ToEmail string
	Subject string
	Text    string
	HTML    string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// ConsoleMailer logs messages instead of sending them. Used when no SendGrid key is configured.
type ConsoleMailer struct {
	log logger.Log
}

func NewConsoleMailer(log logger.Log) *ConsoleMailer {
	return &ConsoleMailer{log: log}
}

func (m *ConsoleMailer) Send(_ context.Context, msg Message) error {
	m.log.Info("email",
		"to", msg.ToEmail,
		"subject", msg.Subject,
		"body", msg.Text,
	)
	return nil
}
