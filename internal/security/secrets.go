package security

import (
	"fmt"
	"regexp"
)

// SecretScanner matches known credential shapes (API keys, tokens) in
// text. A match is a hard rejection: the save never reaches the store.
type SecretScanner struct {
	patterns []*regexp.Regexp
}

// NewSecretScanner compiles the policy's secret patterns.
func NewSecretScanner(policy Policy) (*SecretScanner, error) {
	patterns := make([]*regexp.Regexp, 0, len(policy.SecretPatterns))
	for _, raw := range policy.SecretPatterns {
		re, err := regexp.Compile(raw)
		if err != nil {
			return nil, fmt.Errorf("compile secret pattern %q: %w", raw, err)
		}
		patterns = append(patterns, re)
	}
	return &SecretScanner{patterns: patterns}, nil
}

// CheckSecrets scans text for credential shapes. It returns the first
// match found, or found=false when the text is clean.
func (s *SecretScanner) CheckSecrets(text string) (found bool, match string) {
	for _, re := range s.patterns {
		if m := re.FindString(text); m != "" {
			return true, m
		}
	}
	return false, ""
}
