package logger

import (
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	shared *zap.Logger
	once   sync.Once
)

// New builds the process-wide zap logger: JSON in production, colored
// console output everywhere else. Repeated calls return the same
// instance.
func New(env string) (*zap.Logger, error) {
	var err error
	once.Do(func() {
		cfg := zap.NewProductionConfig()
		if env != "production" {
			cfg = zap.NewDevelopmentConfig()
			cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}

		shared, err = cfg.Build()
	})

	return shared, err
}

// Masking helpers keep account identifiers out of structured logs.
// They reveal just enough of the value to correlate log lines by eye.

// MaskEmail keeps the first character of the local part and the domain:
// "carol@example.com" becomes "c***@example.com".
func MaskEmail(email string) string {
	if email == "" {
		return ""
	}

	at := strings.IndexByte(email, '@')
	if at <= 0 {
		return "***"
	}

	return email[:1] + "***" + email[at:]
}

// MaskPhone keeps the last four digits: "+491701234567" becomes
// "***4567".
func MaskPhone(phone string) string {
	if len(phone) <= 4 {
		return "***"
	}
	return "***" + phone[len(phone)-4:]
}

// MaskString keeps the first and last two characters of anything else
// worth hiding, such as usernames.
func MaskString(s string) string {
	if len(s) <= 4 {
		return "***"
	}
	return s[:2] + "***" + s[len(s)-2:]
}
