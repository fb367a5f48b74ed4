package utils

import (
	"strings"
	"unicode"
)

// UniqueStrings keeps the first occurrence of every value, preserving order.
func UniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	unique := make([]string, 0, len(values))

	for _, value := range values {
		if _, exists := seen[value]; !exists {
			seen[value] = struct{}{}
			unique = append(unique, value)
		}
	}

	return unique
}

// ExtractDomainFromEmail returns the text after the first '@' up to the
// first whitespace, lower-cased. Empty when there is no '@'.
func ExtractDomainFromEmail(email string) string {
	at := strings.IndexByte(email, '@')
	if at < 0 {
		return ""
	}

	domain := email[at+1:]
	if end := strings.IndexFunc(domain, unicode.IsSpace); end >= 0 {
		domain = domain[:end]
	}

	return strings.ToLower(strings.TrimSpace(domain))
}

func NormalizeDomain(domain string) string {
	return strings.ToLower(strings.TrimSpace(domain))
}
