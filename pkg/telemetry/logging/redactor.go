package logging

import (
	"log/slog"
	"regexp"
	"strings"
)

// Redacted replaces sensitive values in log output.
const Redacted = "***"

// sensitiveKeys are attribute keys whose values are always replaced.
var sensitiveKeys = []string{
	"api_key",
	"apikey",
	"x-api-key",
	"authorization",
	"secret",
	"password",
	"token",
	"latex",
}

// Redactor removes API keys and document source from log attributes.
type Redactor struct {
	keys    map[string]struct{}
	bearer  *regexp.Regexp
	keyLike *regexp.Regexp
}

// NewRedactor creates a Redactor with the built-in rules.
func NewRedactor() *Redactor {
	keys := make(map[string]struct{}, len(sensitiveKeys))
	for _, k := range sensitiveKeys {
		keys[k] = struct{}{}
	}
	return &Redactor{
		keys:    keys,
		bearer:  regexp.MustCompile(`(?i)(bearer\s+)[A-Za-z0-9._~+/=-]+`),
		keyLike: regexp.MustCompile(`(?i)(x-api-key[=:]\s*)\S+`),
	}
}

// ReplaceAttr has the slog.HandlerOptions.ReplaceAttr signature.
func (r *Redactor) ReplaceAttr(_ []string, a slog.Attr) slog.Attr {
	if r.isSensitiveKey(a.Key) {
		return slog.String(a.Key, Redacted)
	}
	if a.Value.Kind() == slog.KindString {
		if s := a.Value.String(); s != "" {
			if red := r.RedactString(s); red != s {
				return slog.String(a.Key, red)
			}
		}
	}
	return a
}

// RedactString masks bearer tokens and inline key headers in s.
func (r *Redactor) RedactString(s string) string {
	s = r.bearer.ReplaceAllString(s, "${1}"+Redacted)
	s = r.keyLike.ReplaceAllString(s, "${1}"+Redacted)
	return s
}

func (r *Redactor) isSensitiveKey(key string) bool {
	_, ok := r.keys[strings.ToLower(key)]
	return ok
}
