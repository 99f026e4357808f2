// Package normalizers provides field normalization functions for contact identity
package normalizers

import (
	"strings"
	"unicode"

	"github.com/Ramsey-B/clover/pkg/models"
)

// Normalizer is a function that normalizes a string value
type Normalizer func(string) string

// registry holds all registered normalizers
var registry = make(map[string]Normalizer)

func init() {
	// Register built-in normalizers
	Register("text", Text)
	Register("company", Company)
	Register("email", Email)
	Register("profile_url", ProfileURL)
	Register("status", Status)
	Register("phone", Phone)
}

// Register adds a normalizer to the registry
func Register(name string, fn Normalizer) {
	registry[name] = fn
}

// Get retrieves a normalizer by name
func Get(name string) (Normalizer, bool) {
	fn, ok := registry[name]
	return fn, ok
}

// Apply applies a named normalizer to a value
func Apply(value, normalizer string) string {
	fn, ok := registry[normalizer]
	if !ok {
		return value
	}
	return fn(value)
}

// legalSuffixes are entity suffix words stripped from company names so
// "Acme Inc." and "ACME, Inc" canonicalize identically
var legalSuffixes = map[string]bool{
	"inc":          true,
	"incorporated": true,
	"llc":          true,
	"ltd":          true,
	"limited":      true,
	"co":           true,
	"corp":         true,
	"corporation":  true,
	"company":      true,
	"gmbh":         true,
	"sarl":         true,
	"sa":           true,
	"plc":          true,
	"ag":           true,
	"bv":           true,
	"srl":          true,
	"spa":          true,
	"oy":           true,
	"ab":           true,
	"pty":          true,
	"pvt":          true,
}

// Text trims, lowercases, and collapses internal whitespace runs to one space
func Text(s string) string {
	var result strings.Builder
	prevSpace := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsSpace(r) {
			if !prevSpace {
				result.WriteRune(' ')
				prevSpace = true
			}
			continue
		}
		result.WriteRune(r)
		prevSpace = false
	}
	return strings.TrimSpace(result.String())
}

// Company canonicalizes a company name: lowercase, "&" becomes "and",
// punctuation is dropped, and legal entity suffix words are removed
func Company(s string) string {
	s = Text(s)
	s = strings.ReplaceAll(s, "&", " and ")

	var cleaned strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == ' ' {
			cleaned.WriteRune(r)
		}
	}

	words := strings.Fields(cleaned.String())
	kept := words[:0]
	for _, w := range words {
		if legalSuffixes[w] {
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}

// Email lowercases and trims an email address. Values without an "@" are
// treated as not an email and normalize to empty.
func Email(s string) string {
	s = Text(s)
	if !strings.Contains(s, "@") {
		return ""
	}
	return s
}

// ProfileURL canonicalizes a profile link: lowercase, scheme prefixed when
// missing, query string and fragment dropped, one trailing slash trimmed
func ProfileURL(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSuffix(s, "/")
	return s
}

// Status maps free text onto the pipeline enumeration, case-insensitively.
// Unrecognized values normalize to empty.
func Status(s string) string {
	s = Text(s)
	for _, p := range models.Pipeline {
		if strings.ToLower(string(p)) == s {
			return string(p)
		}
	}
	return ""
}

// Phone keeps only digit characters
func Phone(s string) string {
	var result strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}
