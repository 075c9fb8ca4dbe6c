package validation

import (
	"fmt"
	"regexp"
)

var (
	// Zone names and sources handed to firewall-cmd: alphanumerics and dots only.
	tokenRegex = regexp.MustCompile(`^[a-zA-Z0-9.]+$`)

	// HTTP path prefix: empty, or /segment[/segment...]
	endpointRegex = regexp.MustCompile(`^(/[a-zA-Z0-9._~-]+)*$`)
)

// ValidateToken checks a zone or source token before it is passed to the
// firewall tool. Disallowed characters are rejected, never stripped.
func ValidateToken(kind, value string) error {
	if value == "" {
		return fmt.Errorf("%s cannot be empty", kind)
	}

	if len(value) > 255 {
		return fmt.Errorf("%s too long (max 255 characters)", kind)
	}

	if !tokenRegex.MatchString(value) {
		return fmt.Errorf("invalid %s: %q (must be alphanumeric with .)", kind, value)
	}

	return nil
}

// ValidateZone validates a firewalld zone name.
func ValidateZone(zone string) error {
	return ValidateToken("zone", zone)
}

// ValidateSource validates an address to be allowed.
func ValidateSource(source string) error {
	return ValidateToken("source", source)
}

// ValidateEndpoint validates the HTTP path prefix.
func ValidateEndpoint(endpoint string) error {
	if !endpointRegex.MatchString(endpoint) {
		return fmt.Errorf("invalid endpoint %q (must be empty or start with /, no trailing slash)", endpoint)
	}
	return nil
}

// ValidatePortNumber validates a port number
func ValidatePortNumber(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("invalid port number: %d (must be 1-65535)", port)
	}
	return nil
}
