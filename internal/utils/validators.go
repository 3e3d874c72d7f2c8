package utils

import (
	"net/url"
	"regexp"
	"strings"
)

// ticketIDPattern matches tracker keys such as ABC-123: an uppercase letter,
// one or more uppercase letters or digits, a hyphen, then digits.
var ticketIDPattern = regexp.MustCompile(`^[A-Z][A-Z0-9]+-\d+$`)

// ValidateTicketID reports whether id (ignoring surrounding whitespace) is a
// well-formed ticket key.
func ValidateTicketID(id string) bool {
	return ticketIDPattern.MatchString(strings.TrimSpace(id))
}

// ValidateURL accepts absolute http(s) URLs with a host.
func ValidateURL(raw string) bool {
	u, err := url.ParseRequestURI(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
