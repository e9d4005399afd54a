package core

import "strings"

const RedactedValue = "[REDACTED]"

// sensitiveKeyTokens flags a key as credential-bearing when any token
// appears anywhere in it (so "access_token" and "webhook_token" both hit).
var sensitiveKeyTokens = []string{
	"password",
	"secret",
	"token",
	"authorization",
	"api_key",
	"apikey",
	"access_key",
	"credential",
	"signature",
	"noise_key",
	"identity_key",
}

// traceabilityKeys are always preserved verbatim; without them a redacted
// webhook payload or log line cannot be correlated back to an account.
var traceabilityKeys = map[string]struct{}{
	"account_id":      {},
	"message_id":      {},
	"chat_id":         {},
	"participant":     {},
	"collection_name": {},
	"subscriber_id":   {},
	"media_type":      {},
	"idempotency_key": {},
	"trace_id":        {},
	"request_id":      {},
}

// RedactSensitiveMap returns a copy of metadata with values under
// credential-looking keys replaced by RedactedValue. Nested maps and
// slices are walked; traceability identifiers are always preserved.
func RedactSensitiveMap(metadata map[string]any) map[string]any {
	out := make(map[string]any, len(metadata))
	for key, value := range metadata {
		if shouldRedactKey(key) {
			out[key] = RedactedValue
			continue
		}
		out[key] = redactValue(value)
	}
	return out
}

func redactValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		return RedactSensitiveMap(typed)
	case []any:
		out := make([]any, len(typed))
		for i, element := range typed {
			out[i] = redactValue(element)
		}
		return out
	default:
		return value
	}
}

func shouldRedactKey(key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return false
	}
	if _, preserved := traceabilityKeys[key]; preserved {
		return false
	}
	for _, token := range sensitiveKeyTokens {
		if strings.Contains(key, token) {
			return true
		}
	}
	return false
}
