package config

import "strings"

var placeholderMarkers = []string{"your_", "changeme", "example", "placeholder", "replace"}

// PlaceholderSecrets names the secrets that still hold template values
// such as "your_api_key_here".
func (c *Config) PlaceholderSecrets() []string {
	secrets := []struct {
		name  string
		value string
	}{
		{"GOPHISH_API_KEY", c.Secrets.GoPhishAPIKey},
		{"SMTP_USERNAME", c.Secrets.SMTPUsername},
		{"SMTP_PASSWORD", c.Secrets.SMTPPassword},
	}

	var found []string
	for _, s := range secrets {
		if isPlaceholder(s.value) {
			found = append(found, s.name)
		}
	}
	return found
}

func isPlaceholder(value string) bool {
	lower := strings.ToLower(value)
	for _, marker := range placeholderMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
