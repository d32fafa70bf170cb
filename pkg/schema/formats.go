// pkg/schema/formats.go

package schema

import (
	"fmt"
	"net/url"
	"regexp"
)

var (
	// Conservative single-at-sign check; full RFC 5322 parsing rejects
	// addresses that work in practice.
	emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

	// RFC 4122 textual shape.
	uuidRe = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

	// Three dot-separated base64url segments.
	jwtRe = regexp.MustCompile(`^[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+$`)

	// Base64 alphabet with 0-2 padding characters.
	base64Re = regexp.MustCompile(`^[A-Za-z0-9+/]+={0,2}$`)
)

// checkFormat validates a value against one declared format. Returns nil
// when the value conforms.
func checkFormat(format Format, value string) error {
	switch format {
	case FormatURL:
		// Absolute means scheme plus some remainder; a bare "scheme://"
		// is rejected, but host-less forms like file:///path are fine.
		u, err := url.Parse(value)
		if err != nil || !u.IsAbs() || (u.Host == "" && u.Opaque == "" && u.Path == "") {
			return fmt.Errorf("not an absolute URL")
		}
	case FormatEmail:
		if !emailRe.MatchString(value) {
			return fmt.Errorf("not a valid email address")
		}
	case FormatUUID:
		if !uuidRe.MatchString(value) {
			return fmt.Errorf("not a valid UUID")
		}
	case FormatJWT:
		if !jwtRe.MatchString(value) {
			return fmt.Errorf("not a valid JWT (want three dot-separated base64url segments)")
		}
	case FormatBase64:
		if !base64Re.MatchString(value) {
			return fmt.Errorf("not valid base64")
		}
	default:
		return fmt.Errorf("unknown format %q", format)
	}
	return nil
}

// impliedFormat returns the format checker implied by a variable's type when
// no explicit format is declared.
func impliedFormat(t VarType) (Format, bool) {
	switch t {
	case TypeURL:
		return FormatURL, true
	case TypeEmail:
		return FormatEmail, true
	}
	return "", false
}
