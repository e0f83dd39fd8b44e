package notify

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/musichub/catalog-api/internal/core/ports"
)

func TestRender_Welcome(t *testing.T) {
	m, err := Render(ports.Notification{Kind: ports.NotificationWelcome, Username: "ana", Email: "ana@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", m.To)
	assert.Equal(t, "Welcome!", m.Subject)
	assert.Contains(t, m.HTML, "Hello, ana,")
}

func TestRender_EscapesUsername(t *testing.T) {
	m, err := Render(ports.Notification{Kind: ports.NotificationWelcome, Username: "<script>x</script>", Email: "a@b.c"})
	require.NoError(t, err)
	assert.NotContains(t, m.HTML, "<script>")
	assert.Contains(t, m.HTML, "&lt;script&gt;")
}

func TestRender_UnknownKind(t *testing.T) {
	_, err := Render(ports.Notification{Kind: "digest", Email: "a@b.c"})
	assert.Error(t, err)
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(zerolog.New(&buf))

	require.NoError(t, n.Send(context.Background(), ports.Notification{Kind: ports.NotificationWelcome, Username: "ana", Email: "ana@example.com"}))
	assert.Contains(t, buf.String(), `"to":"ana@example.com"`)

	assert.Error(t, n.Send(context.Background(), ports.Notification{Kind: "digest"}))
}

func TestBuildMIME(t *testing.T) {
	body := string(buildMIME("noreply@musichub.test", Message{To: "ana@example.com", Subject: "Welcome!", HTML: "<p>hi</p>"}))

	head, html, ok := strings.Cut(body, "\r\n\r\n")
	require.True(t, ok)
	assert.Equal(t, "<p>hi</p>", html)
	assert.Contains(t, head, "From: noreply@musichub.test\r\n")
	assert.Contains(t, head, "To: ana@example.com\r\n")
	assert.Contains(t, head, "Content-Type: text/html")
}

func TestNewSMTPNotifier_DefaultsFromToUser(t *testing.T) {
	n := NewSMTPNotifier(SMTPConfig{Host: "smtp.test", Port: 465, User: "mailer@musichub.test"})
	assert.Equal(t, "mailer@musichub.test", n.cfg.From)
}
