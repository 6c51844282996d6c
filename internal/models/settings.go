package models

import "strings"

// Defaults the settings form shows until real values are entered.
const (
	PlaceholderAPIKey   = "MyAfterShipAPIKey"
	PlaceholderUsername = "MyAfterShipUsername"
)

type Settings struct {
	APIKey                    string `json:"apiKey" yaml:"apiKey" validate:"required"`
	Username                  string `json:"username" yaml:"username"`
	AllowCustomerNotification bool   `json:"allowCustomerNotification" yaml:"allowCustomerNotification"`
}

// HasAPIKey is false for an empty key and for the placeholder.
func (s Settings) HasAPIKey() bool {
	return s.APIKey != "" && s.APIKey != PlaceholderAPIKey
}

func (s Settings) HasUsername() bool {
	return s.Username != "" && s.Username != PlaceholderUsername
}

const redactedPrefix = "****"

// Redacted hides the API key for logs and admin responses.
func (s Settings) Redacted() Settings {
	if len(s.APIKey) > 4 {
		s.APIKey = redactedPrefix + s.APIKey[len(s.APIKey)-4:]
	} else if s.APIKey != "" {
		s.APIKey = redactedPrefix
	}
	return s
}

// KeepsStoredKey reports whether the API key is absent or the masked copy
// returned by Redacted, i.e. the admin did not enter a new key.
func (s Settings) KeepsStoredKey() bool {
	return s.APIKey == "" || strings.HasPrefix(s.APIKey, redactedPrefix)
}
