package normalizers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"whitespace only", "   \t\n  ", ""},
		{"lowercases", "JANE Doe", "jane doe"},
		{"trims", "  jane  ", "jane"},
		{"collapses runs", "jane \t\n  doe", "jane doe"},
		{"already clean", "jane doe", "jane doe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Text(tt.input))
		})
	}
}

func TestCompany(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"strips inc with dot", "Acme Inc.", "acme"},
		{"strips inc with comma", "ACME, Inc", "acme"},
		{"ampersand becomes and", "Smith & Sons", "smith and sons"},
		{"strips gmbh", "Widget GmbH", "widget"},
		{"strips multiple suffixes", "Acme Holding Co Ltd", "acme holding"},
		{"keeps inner words", "Incredible Machines", "incredible machines"},
		{"strips punctuation", "O'Brien-Tech (EU) S.A.", "obrientech eu"},
		{"digits survive", "42 Robotics LLC", "42 robotics"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Company(tt.input))
		})
	}
}

func TestCompanyCanonicalizesVariants(t *testing.T) {
	// The whole point: different spellings of one company collapse together.
	assert.Equal(t, Company("Acme Inc."), Company("ACME, Inc"))
	assert.Equal(t, Company("Smith & Sons Ltd"), Company("smith and sons"))
}

func TestEmail(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"lowercases and trims", "  Jane.Doe@Example.COM ", "jane.doe@example.com"},
		{"no at sign rejected", "not-an-email", ""},
		{"whitespace rejected", "   ", ""},
		{"keeps plus tag", "jane+leads@example.com", "jane+leads@example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Email(tt.input))
		})
	}
}

func TestProfileURL(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"adds scheme", "linkedin.com/in/jdoe", "https://linkedin.com/in/jdoe"},
		{"keeps existing scheme", "http://linkedin.com/in/jdoe", "http://linkedin.com/in/jdoe"},
		{"lowercases", "https://LinkedIn.com/in/JDoe", "https://linkedin.com/in/jdoe"},
		{"strips query", "linkedin.com/in/jdoe?trk=x&src=y", "https://linkedin.com/in/jdoe"},
		{"strips fragment", "linkedin.com/in/jdoe#section", "https://linkedin.com/in/jdoe"},
		{"strips trailing slash", "linkedin.com/in/jdoe/", "https://linkedin.com/in/jdoe"},
		{"strips slash then query", "linkedin.com/in/jdoe/?trk=x", "https://linkedin.com/in/jdoe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ProfileURL(tt.input))
		})
	}
}

func TestProfileURLCanonicalizesVariants(t *testing.T) {
	assert.Equal(t,
		ProfileURL("linkedin.com/in/jdoe/?trk=x"),
		ProfileURL("https://LinkedIn.com/in/jdoe"),
	)
}

func TestStatus(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"exact", "New", "New"},
		{"lowercase", "contacted", "Contacted"},
		{"uppercase", "WON", "Won"},
		{"padded", "  quoted  ", "Quoted"},
		{"two words", "on hold", "On hold"},
		{"unknown", "banana", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Status(tt.input))
		})
	}
}

func TestRegistry(t *testing.T) {
	fn, ok := Get("company")
	assert.True(t, ok)
	assert.Equal(t, "acme", fn("Acme Inc."))

	// Unknown normalizers pass values through untouched
	assert.Equal(t, "Acme Inc.", Apply("Acme Inc.", "missing"))
}

func TestPhone(t *testing.T) {
	assert.Equal(t, "4915112345678", Phone("+49 151 1234-5678"))
	assert.Equal(t, "", Phone("no digits"))
}
