package notification

import (
	"fmt"
	"log/slog"
)

// defaultTemplates are the built-in security notice templates. They can be
// replaced per notice type with RegisterTemplate.
var defaultTemplates = map[NoticeType]NoticeTemplate{
	NoticePasswordChanged: {
		Subject: "Your password was changed",
		Text:    "Hello {{.Username}},\n\nthe password of your account was just changed through the self-service portal. If this was not you, contact your administrator immediately.\n",
	},
	NoticeAccountUnlocked: {
		Subject: "Your account was unlocked",
		Text:    "Hello {{.Username}},\n\nyour account was unlocked and all active sessions were signed out. You can sign in again now.\n",
	},
	NoticeMFAConfigured: {
		Subject: "Two-factor authentication was reconfigured",
		Text:    "Hello {{.Username}},\n\ntwo-factor authentication for your account was set up again. Previous authenticator app entries no longer work. If this was not you, contact your administrator immediately.\n",
	},
}

// Manager renders and dispatches security notices through a Notifier
type Manager struct {
	notifier  Notifier
	templates map[NoticeType]NoticeTemplate
}

// NewManager creates a notice manager with the built-in templates
func NewManager(notifier Notifier) *Manager {
	templates := make(map[NoticeType]NoticeTemplate, len(defaultTemplates))
	for noticeType, tmpl := range defaultTemplates {
		templates[noticeType] = tmpl
	}
	return &Manager{notifier: notifier, templates: templates}
}

// RegisterTemplate replaces the template for one notice type
func (m *Manager) RegisterTemplate(noticeType NoticeType, template NoticeTemplate) error {
	if noticeType == "" || template.Subject == "" || template.Text == "" {
		return fmt.Errorf("invalid input: notice type, subject, and text cannot be empty")
	}
	m.templates[noticeType] = template
	return nil
}

// Notify sends one notice. Failures are logged and swallowed so credential
// operations never fail because a notice could not be delivered.
func (m *Manager) Notify(noticeType NoticeType, to, username string) {
	template, ok := m.templates[noticeType]
	if !ok {
		slog.Error("No template registered for notice type", "type", noticeType)
		return
	}

	err := m.notifier.Send(noticeType, NotificationData{
		To:   to,
		Data: map[string]string{"Username": username},
	}, template)
	if err != nil {
		slog.Error("Failed to send security notice", "type", noticeType, "to", to, "err", err)
	}
}
