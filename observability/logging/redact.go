package logging

import (
	"log/slog"
	"strings"
)

// RedactedValue replaces credentials in log output.
const RedactedValue = "[REDACTED]"

// secretKeys never reach the log sink in clear text, whatever logs them.
var secretKeys = map[string]struct{}{
	"passphrase":  {},
	"password":    {},
	"hmac_secret": {},
	"jwt_secret":  {},
	"private_key": {},
}

func isSecret(key string) bool {
	_, ok := secretKeys[strings.ToLower(strings.TrimSpace(key))]
	return ok
}

// maskSecret blanks attr when its key names a credential.
func maskSecret(attr slog.Attr) slog.Attr {
	if !isSecret(attr.Key) || attr.Value.String() == "" {
		return attr
	}
	return slog.String(attr.Key, RedactedValue)
}

// Redact masks the credential of an Authorization header while keeping the
// scheme, so "Bearer abc.def" logs as "Bearer [REDACTED]".
func Redact(header string) string {
	trimmed := strings.TrimSpace(header)
	if trimmed == "" {
		return ""
	}
	scheme, _, found := strings.Cut(trimmed, " ")
	if !found {
		return RedactedValue
	}
	return scheme + " " + RedactedValue
}
