package logger

import (
	"regexp"
	"strings"
)

var secretKeys = []string{"api_key", "apikey", "password", "secret", "token"}

var apiKeyParam = regexp.MustCompile(`(?i)(api_key=)[^&\s"]+`)

// RedactSecret masks a credential for safe logging.
// "sk_live_abcdef" → "sk***"
// Short values (≤4 chars) are fully masked: "abcd" → "***"
func RedactSecret(secret string) string {
	if len(secret) > 4 {
		return secret[:2] + "***"
	}
	return "***"
}

// RedactURL scrubs api_key query parameters from a URL or message.
func RedactURL(s string) string {
	return apiKeyParam.ReplaceAllString(s, "${1}***")
}

func redactValue(key, val string) string {
	key = strings.ToLower(key)
	for _, k := range secretKeys {
		if strings.Contains(key, k) {
			return RedactSecret(val)
		}
	}
	return RedactURL(val)
}
