// Package identity derives the dedupe key that makes contacts comparable
// across import sessions.
package identity

import (
	"github.com/Ramsey-B/clover/pkg/normalizers"
)

const (
	// PrefixEmail marks keys derived from an email address
	PrefixEmail = "email:"
	// PrefixProfile marks keys derived from a profile URL
	PrefixProfile = "profile:"
	// PrefixNameCo marks keys derived from name plus company
	PrefixNameCo = "nameco:"
)

// Key holds the normalized identity fields of one contact alongside the
// dedupe key derived from them.
type Key struct {
	Email      string
	ProfileURL string
	DedupeKey  string
}

// ComputeDedupeKey derives a deterministic key from raw identity fields.
// Email wins over profile URL, which wins over name+company. A record with
// none of the four yields an empty key and is never auto-matched.
func ComputeDedupeKey(firstName, lastName, company, email, profileURL string) string {
	first := normalizers.Text(firstName)
	last := normalizers.Text(lastName)
	comp := normalizers.Company(company)
	mail := normalizers.Email(email)
	profile := normalizers.ProfileURL(profileURL)

	if mail != "" {
		return PrefixEmail + mail
	}
	if profile != "" {
		return PrefixProfile + profile
	}
	if first != "" || last != "" || comp != "" {
		return PrefixNameCo + first + "|" + last + "|" + comp
	}
	return ""
}

// Compute normalizes the identity fields of a row and derives its dedupe key
func Compute(firstName, lastName, company, email, profileURL string) Key {
	return Key{
		Email:      normalizers.Email(email),
		ProfileURL: normalizers.ProfileURL(profileURL),
		DedupeKey:  ComputeDedupeKey(firstName, lastName, company, email, profileURL),
	}
}
