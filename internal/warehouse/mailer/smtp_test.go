package mailer_test

import (
	"strings"
	"testing"

	"github.com/ksp/warehouse/internal/warehouse/mailer"
	"github.com/ksp/warehouse/pkg/config"
	"github.com/stretchr/testify/assert"
)

func TestComposeEncodesSubjectAndNormalizesLineEndings(t *testing.T) {
	raw := string(mailer.Compose("magazyn@example.com", mailer.Message{
		To:      []string{"a@example.com", "b@example.com"},
		Subject: "Przedmioty z bliskim terminem ważności",
		Body:    "linia 1\nlinia 2",
	}))

	assert.Contains(t, raw, "From: magazyn@example.com\r\n")
	assert.Contains(t, raw, "To: a@example.com, b@example.com\r\n")
	assert.Contains(t, raw, "Subject: =?utf-8?q?")
	assert.True(t, strings.HasSuffix(raw, "\r\n\r\nlinia 1\r\nlinia 2"))
}

func TestFromFallsBackToUsername(t *testing.T) {
	m := mailer.NewSMTPMailer(config.SMTPConfig{Username: "user@example.com"})
	assert.Equal(t, "user@example.com", m.From())

	m = mailer.NewSMTPMailer(config.SMTPConfig{Username: "user@example.com", From: "noreply@example.com"})
	assert.Equal(t, "noreply@example.com", m.From())
}
