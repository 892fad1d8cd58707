/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package security provides credential hygiene for the webhook gateway. It
// keeps bot tokens, webhook secrets and similar values out of log output and
// CLI renderings.
package security

import (
	"net/http"
	"regexp"
	"sort"
	"strings"
)

// redactedPlaceholder replaces sensitive values.
const redactedPlaceholder = "[REDACTED]"

// Common patterns for secrets/tokens in log lines and API payloads.
var sensitivePatterns = []*regexp.Regexp{
	// Telegram bot tokens (<bot id>:<35 char secret>), also inside api URLs
	regexp.MustCompile(`\d{6,12}:[A-Za-z0-9_-]{30,}`),
	// Bearer tokens
	regexp.MustCompile(`(?i)(bearer\s+)[a-zA-Z0-9\-_.~+/]+=*`),
	// Webhook secret headers echoed into logs
	regexp.MustCompile(`(?i)(x-telegram-bot-api-secret-token["\s:=]+)\S+`),
	// secret_token fields in setWebhook payloads
	regexp.MustCompile(`(?i)(secret_token["\s:=]+)[^\s",}]+`),
	// Base64-encoded tokens (long sequences)
	regexp.MustCompile(`(?i)(token["\s:=]+)[a-zA-Z0-9+/]{40,}=*`),
	// Generic API keys
	regexp.MustCompile(`(?i)(api[_-]?key["\s:=]+)[a-zA-Z0-9\-_.]{20,}`),
	// Password fields
	regexp.MustCompile(`(?i)(password["\s:=]+)\S+`),
}

// Sanitize scrubs sensitive data from text. It matches common secret
// patterns and replaces values with [REDACTED], preserving the prefix
// label where possible for readability.
func Sanitize(text string) string {
	result := text
	for _, pattern := range sensitivePatterns {
		result = pattern.ReplaceAllStringFunc(result, func(match string) string {
			loc := pattern.FindStringSubmatchIndex(match)
			if len(loc) >= 4 && loc[2] >= 0 {
				prefix := match[loc[2]:loc[3]]
				return prefix + redactedPlaceholder
			}
			return redactedPlaceholder
		})
	}
	return result
}

// ContainsSecret checks if text likely contains sensitive data.
func ContainsSecret(text string) bool {
	for _, pattern := range sensitivePatterns {
		if pattern.MatchString(text) {
			return true
		}
	}
	return false
}

// MaskSecret keeps at most the first and last two characters of a secret so
// mismatches stay diagnosable. Short values are fully masked.
func MaskSecret(s string) string {
	if s == "" {
		return `""`
	}
	if len(s) <= 8 {
		return strings.Repeat("*", len(s))
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}

// SanitizeHeaders flattens headers for logging, masking credential-bearing
// names and scrubbing the rest.
func SanitizeHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := strings.Join(h[k], ", ")
		if isCredentialKey(k) {
			out[k] = redactedPlaceholder
		} else {
			out[k] = Sanitize(v)
		}
	}
	return out
}

// isCredentialKey checks if a header or field name suggests it holds a secret.
func isCredentialKey(key string) bool {
	lower := strings.ToLower(key)
	for _, s := range []string{"password", "secret", "token", "api_key", "apikey", "authorization", "cookie"} {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}
