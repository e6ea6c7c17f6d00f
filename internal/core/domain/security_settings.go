package domain

// SecuritySettings is a bag of named security policy toggles applied to
// an account. Each field can be overridden independently via With*
// modifiers; the zero-configuration default is DefaultSecuritySettings.
type SecuritySettings struct {
	TwoFactorEnabled        bool
	SecurityQuestionsNeeded bool
	PasswordExpiryDays      int
	NotifyOnLogin           bool
	NotifyOnPasswordChange  bool
}

// DefaultSecuritySettings returns the baseline policy toggles.
func DefaultSecuritySettings() SecuritySettings {
	return SecuritySettings{
		TwoFactorEnabled:        false,
		SecurityQuestionsNeeded: false,
		PasswordExpiryDays:      90,
		NotifyOnLogin:           false,
		NotifyOnPasswordChange:  true,
	}
}

// WithTwoFactor returns a copy with two-factor enrollment toggled.
func (s SecuritySettings) WithTwoFactor(enabled bool) SecuritySettings {
	s.TwoFactorEnabled = enabled
	return s
}

// WithSecurityQuestions returns a copy with the security question
// requirement toggled.
func (s SecuritySettings) WithSecurityQuestions(required bool) SecuritySettings {
	s.SecurityQuestionsNeeded = required
	return s
}

// WithPasswordExpiryDays returns a copy with the password max age set.
// A non-positive value disables expiry.
func (s SecuritySettings) WithPasswordExpiryDays(days int) SecuritySettings {
	s.PasswordExpiryDays = days
	return s
}

// WithLoginNotifications returns a copy with login notifications toggled.
func (s SecuritySettings) WithLoginNotifications(enabled bool) SecuritySettings {
	s.NotifyOnLogin = enabled
	return s
}

// WithPasswordChangeNotifications returns a copy with password change
// notifications toggled.
func (s SecuritySettings) WithPasswordChangeNotifications(enabled bool) SecuritySettings {
	s.NotifyOnPasswordChange = enabled
	return s
}

// PasswordExpiryEnabled reports whether password expiry applies.
func (s SecuritySettings) PasswordExpiryEnabled() bool {
	return s.PasswordExpiryDays > 0
}
