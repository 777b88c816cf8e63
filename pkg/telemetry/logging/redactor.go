package logging

import (
	"fmt"
	"regexp"
	"strings"

	"mercator-hq/spanfan/pkg/config"
)

// Redactor redacts PII (Personally Identifiable Information) from log
// fields and from span attributes leaving the process.
type Redactor struct {
	// patterns are applied in order; more specific patterns come first so
	// that e.g. a bearer token is not half-eaten by the API key pattern.
	patterns []*redactPattern
}

// redactPattern contains a compiled regex and replacement string.
type redactPattern struct {
	name        string
	regex       *regexp.Regexp
	replacement string
}

// Common PII pattern names.
const (
	PatternBearerToken = "bearer_token"
	PatternAPIKey      = "api_key"
	PatternEmail       = "email"
	PatternSSN         = "ssn"
	PatternCreditCard  = "credit_card"
	PatternIPv4        = "ipv4"
	PatternIPv6        = "ipv6"
	PatternPhone       = "phone"
	PatternPassword    = "password"
)

var defaultPatterns = []struct {
	name        string
	regex       string
	replacement string
}{
	{PatternBearerToken, `Bearer\s+[a-zA-Z0-9\-._~+/]+=*`, "Bearer ***"},
	{PatternPassword, `(password|passwd|pwd)[:=]\s*[^\s]+`, "$1: ***"},
	{PatternAPIKey, `(sk-[a-zA-Z0-9]+|api[-_]?key[-_:]\s*[a-zA-Z0-9]+)`, "sk-***"},
	{PatternEmail, `[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`, "***@***"},
	{PatternIPv6, `\b(?:[0-9a-fA-F]{1,4}:){7}[0-9a-fA-F]{1,4}\b`, "****:****:****:****:****:****:****:****"},
	{PatternIPv4, `\b(?:\d{1,3}\.){3}\d{1,3}\b`, "*.*.*.*"},
	{PatternCreditCard, `\b(?:\d[ -]*?){13,16}\b`, "****-****-****-****"},
	{PatternSSN, `\b\d{3}[-\s]?\d{2}[-\s]?\d{4}\b`, "***-**-****"},
	{PatternPhone, `\b(?:\+?1[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b`, "***-***-****"},
}

var sensitiveKeys = []string{
	"password", "passwd", "pwd",
	"secret", "token", "api_key", "apikey",
	"auth", "authorization",
	"ssn", "social_security",
	"credit_card", "creditcard",
	"private_key", "privatekey",
}

// NewRedactor creates a new Redactor with default and custom patterns.
// Custom patterns run after the defaults; invalid expressions are skipped.
func NewRedactor(customPatterns []config.RedactPattern) *Redactor {
	r := &Redactor{}

	for _, p := range defaultPatterns {
		r.patterns = append(r.patterns, &redactPattern{
			name:        p.name,
			regex:       regexp.MustCompile(p.regex),
			replacement: p.replacement,
		})
	}

	for _, p := range customPatterns {
		regex, err := regexp.Compile(p.Pattern)
		if err != nil {
			continue
		}
		r.patterns = append(r.patterns, &redactPattern{
			name:        p.Name,
			regex:       regex,
			replacement: p.Replacement,
		})
	}

	return r
}

// PatternCount returns the number of active patterns.
func (r *Redactor) PatternCount() int {
	return len(r.patterns)
}

// RedactString redacts PII from a string value.
func (r *Redactor) RedactString(value string) string {
	if value == "" {
		return value
	}

	redacted := value
	for _, pattern := range r.patterns {
		redacted = pattern.regex.ReplaceAllString(redacted, pattern.replacement)
	}

	return redacted
}

// RedactKeyValue redacts a single string field: values under sensitive
// keys are masked entirely, everything else goes through the patterns.
func (r *Redactor) RedactKeyValue(key, value string) string {
	if IsSensitiveKey(key) {
		return maskValue(value)
	}
	return r.RedactString(value)
}

// RedactArgs redacts PII from variadic log arguments.
// Args are in the form: key1, value1, key2, value2, ...
func (r *Redactor) RedactArgs(args ...any) []any {
	if len(args) == 0 {
		return args
	}

	redacted := make([]any, len(args))
	copy(redacted, args)

	for i := 1; i < len(redacted); i += 2 {
		if key, ok := redacted[i-1].(string); ok && IsSensitiveKey(key) {
			redacted[i] = maskAny(redacted[i])
			continue
		}

		if str, ok := redacted[i].(string); ok {
			redacted[i] = r.RedactString(str)
		}
	}

	return redacted
}

// IsSensitiveKey reports whether a key name indicates sensitive data.
func IsSensitiveKey(key string) bool {
	lowerKey := strings.ToLower(key)
	for _, sensitive := range sensitiveKeys {
		if strings.Contains(lowerKey, sensitive) {
			return true
		}
	}
	return false
}

// maskValue keeps a four character hint of longer values.
func maskValue(v string) string {
	if v == "" {
		return ""
	}
	if len(v) <= 4 {
		return "***"
	}
	return v[:4] + "***"
}

func maskAny(value any) any {
	switch v := value.(type) {
	case string:
		return maskValue(v)
	case fmt.Stringer:
		return "***"
	default:
		return "***"
	}
}
