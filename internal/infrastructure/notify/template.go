// Package notify renders and delivers user notifications.
package notify

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/musichub/catalog-api/internal/core/ports"
)

var welcomeTmpl = template.Must(template.New("welcome").Parse(`<div>
    <h1 style="color: blue;">Hello, {{.Username}},</h1>
    <p>Thank you for registering with us.</p>
</div>
`))

// Message is a rendered notification.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Render builds the message for n.
func Render(n ports.Notification) (Message, error) {
	switch n.Kind {
	case ports.NotificationWelcome:
		var buf bytes.Buffer
		if err := welcomeTmpl.Execute(&buf, n); err != nil {
			return Message{}, fmt.Errorf("render welcome: %w", err)
		}
		return Message{To: n.Email, Subject: "Welcome!", HTML: buf.String()}, nil
	default:
		return Message{}, fmt.Errorf("unknown notification kind %q", n.Kind)
	}
}
