// internal/models/target.go
package models

import (
	"regexp"
	"strings"
)

// Target is one roster row. Email is the identity within a run.
type Target struct {
	FirstName string `json:"first_name" csv:"FirstName"`
	LastName  string `json:"last_name" csv:"LastName"`
	Email     string `json:"email" csv:"Email"`
	Position  string `json:"position" csv:"Position"`
}

func (t Target) FullName() string {
	return strings.TrimSpace(t.FirstName + " " + t.LastName)
}

// NormalizeEmail is the key used to match roster rows against GoPhish results.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// emailPattern is the address rule the campaign payload schema enforces.
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+$`)

// ValidEmail reports whether email has exactly one @ with no whitespace.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}
