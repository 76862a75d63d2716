package security

import (
	"fmt"
	"net/url"
)

// ValidateRedirectURL checks that a URL handed to the browser for a payment
// redirect is an absolute http(s) URL. The gateway URL comes from the
// backend; a relative or schemeless value here means a broken or tampered
// response and must not reach the client.
func ValidateRedirectURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL format")
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("URL scheme must be http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}
