package service

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/noah-isme/foundation-api/internal/models"
)

type messageTemplate struct {
	subject *template.Template
	body    *template.Template
}

func mustMessage(name, subject, body string) messageTemplate {
	return messageTemplate{
		subject: template.Must(template.New(name + "_subject").Parse(subject)),
		body:    template.Must(template.New(name + "_body").Parse(body)),
	}
}

var messageTemplates = map[string]messageTemplate{
	models.TemplateWelcome: mustMessage(models.TemplateWelcome,
		"Welcome to {{.Program}}",
		"Hello {{.Name}},\n\nWelcome to {{.Program}}. {{if .Amount}}Your approved support is {{.Amount}} {{.Currency}} ({{.Frequency}}).{{end}}\n\nWe are glad to have you with us."),
	models.TemplateInvitation: mustMessage(models.TemplateInvitation,
		"You have been invited to join as {{.Role}}",
		"Hello {{.Name}},\n\nYou have been invited to join the foundation portal as {{.Role}}. Sign up with this email address to accept the invitation."),
	models.TemplateCustom: mustMessage(models.TemplateCustom, "{{.Subject}}", "{{.Body}}"),
}

// renderMessage fills a named template with data.
func renderMessage(name string, data map[string]string) (subject, body string, err error) {
	tmpl, ok := messageTemplates[name]
	if !ok {
		return "", "", fmt.Errorf("unknown notification template %q", name)
	}
	var sb, bb bytes.Buffer
	if err := tmpl.subject.Execute(&sb, data); err != nil {
		return "", "", fmt.Errorf("render %s subject: %w", name, err)
	}
	if err := tmpl.body.Execute(&bb, data); err != nil {
		return "", "", fmt.Errorf("render %s body: %w", name, err)
	}
	return sb.String(), bb.String(), nil
}

// newNotification renders a template into a pending outbox row.
func newNotification(channel models.NotificationChannel, recipient string, recipientUserID *string, name string, data map[string]string) (*models.Notification, error) {
	subject, body, err := renderMessage(name, data)
	if err != nil {
		return nil, err
	}
	return &models.Notification{
		RecipientUserID: recipientUserID,
		Channel:         channel,
		Recipient:       recipient,
		Template:        name,
		Subject:         subject,
		Body:            body,
		Status:          models.NotificationPending,
	}, nil
}
