package auth_test

import (
	"testing"

	auth "github.com/goliatone/go-campus-auth"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "already normalized",
			input:    "jane@vitapstudent.ac.in",
			expected: "jane@vitapstudent.ac.in",
		},
		{
			name:     "mixed case",
			input:    "Jane.Doe@VitapStudent.AC.IN",
			expected: "jane.doe@vitapstudent.ac.in",
		},
		{
			name:     "surrounding whitespace",
			input:    "  jane@vitapstudent.ac.in  ",
			expected: "jane@vitapstudent.ac.in",
		},
		{
			name:     "embedded crlf",
			input:    "jane@vitap\r\nstudent.ac.in",
			expected: "jane@vitapstudent.ac.in",
		},
		{
			name:     "empty",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, auth.NormalizeEmail(tt.input))
		})
	}
}

func TestHasInstitutionalDomain(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		domain  string
		allowed bool
	}{
		{
			name:    "campus address default domain",
			email:   "jane@vitapstudent.ac.in",
			domain:  "",
			allowed: true,
		},
		{
			name:    "outside address",
			email:   "jane@gmail.com",
			domain:  "",
			allowed: false,
		},
		{
			name:    "domain with leading at",
			email:   "jane@example.edu",
			domain:  "@example.edu",
			allowed: true,
		},
		{
			name:    "lookalike domain",
			email:   "jane@notvitapstudent.ac.in.evil.com",
			domain:  "",
			allowed: false,
		},
		{
			name:    "domain as substring only",
			email:   "vitapstudent.ac.in@gmail.com",
			domain:  "",
			allowed: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, auth.HasInstitutionalDomain(tt.email, tt.domain))
		})
	}
}
