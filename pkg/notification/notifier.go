// Package notification sends security notices to end users after their
// credentials were changed through the portal. Delivery is best-effort: a
// failed notice is logged and never fails the administrative operation that
// triggered it.
package notification

// NoticeType identifies the security notice to send
type NoticeType string

const (
	NoticePasswordChanged NoticeType = "password_changed"
	NoticeAccountUnlocked NoticeType = "account_unlocked"
	NoticeMFAConfigured   NoticeType = "mfa_configured"
)

// NoticeTemplate holds the subject and body templates for one notice type.
// Body templates are text/template over NotificationData.Data.
type NoticeTemplate struct {
	Subject string
	Text    string
}

// NotificationData carries the recipient and template values for one notice
type NotificationData struct {
	To   string            // recipient email address
	Data map[string]string // template values, e.g. "Username"
}

// Notifier delivers one rendered notice
type Notifier interface {
	Send(noticeType NoticeType, notification NotificationData, template NoticeTemplate) error
}

// MockNotifier records notices instead of delivering them
type MockNotifier struct {
	SentNotifications []NotificationData
	SentTypes         []NoticeType
}

func (m *MockNotifier) Send(noticeType NoticeType, notification NotificationData, template NoticeTemplate) error {
	m.SentNotifications = append(m.SentNotifications, notification)
	m.SentTypes = append(m.SentTypes, noticeType)
	return nil
}
