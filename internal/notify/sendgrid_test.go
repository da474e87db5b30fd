package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendGridMailer_Build(t *testing.T) {
	m := NewSendGridMailer("key", "Course Market", "no-reply@example.com")
	mail := m.build(Message{
		ToName:  "Ada",
		ToEmail: "ada@example.com",
		Subject: "Congratulations",
		Text:    "done",
	})

	require.Len(t, mail.Personalizations, 1)
	require.Len(t, mail.Personalizations[0].To, 1)
	assert.Equal(t, "ada@example.com", mail.Personalizations[0].To[0].Address)
	assert.Equal(t, "Congratulations", mail.Personalizations[0].Subject)
	assert.Equal(t, "no-reply@example.com", mail.From.Address)
	require.Len(t, mail.Content, 1)
	assert.Equal(t, "text/plain", mail.Content[0].Type)
}
