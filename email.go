package auth

import (
	"net/mail"
	"strings"
)

// DefaultInstitutionalDomain is the email suffix gating who may register.
const DefaultInstitutionalDomain = "vitapstudent.ac.in"

// NormalizeEmail trims whitespace, strips CR/LF and lower-cases the
// address. Every lookup and comparison in the package goes through
// this, so different casings of one address are the same account.
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	email = strings.ReplaceAll(email, "\r", "")
	email = strings.ReplaceAll(email, "\n", "")
	return strings.ToLower(email)
}

// HasInstitutionalDomain reports whether a normalized email belongs to
// the configured campus domain. The domain may be given with or
// without the leading "@".
func HasInstitutionalDomain(email, domain string) bool {
	if domain == "" {
		domain = DefaultInstitutionalDomain
	}
	domain = strings.TrimPrefix(strings.ToLower(domain), "@")
	return strings.HasSuffix(email, "@"+domain)
}

func isEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}

func getUsername(username, email string) string {
	if username != "" {
		return username
	}

	if strings.Contains(email, "@") {
		username = strings.Split(email, "@")[0]
	}

	return username
}
