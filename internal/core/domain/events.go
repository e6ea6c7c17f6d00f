package domain

import "time"

// Event types published to the notification stream.
const (
	EventUserRegistered  = "user.registered"
	EventUserLoggedIn    = "user.logged_in"
	EventLoginFailed     = "user.login_failed"
	EventAccountLocked   = "user.account_locked"
	EventPasswordChanged = "user.password_changed"
	EventRoleGranted     = "user.role_granted"
	EventRoleRevoked     = "user.role_revoked"
)

// NotificationEvent is the payload dispatched to the notification
// stream whenever a security-relevant action happens.
type NotificationEvent struct {
	EventID    string
	EventType  string
	UserID     string
	OccurredAt time.Time
	Detail     map[string]string
}
