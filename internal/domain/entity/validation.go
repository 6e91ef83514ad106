package entity

import (
	"fmt"
	"net/url"
)

// maxURLLength defines the maximum allowed length for endpoint URLs.
const maxURLLength = 2048

// ValidateEndpointURL validates the format of a backend endpoint URL.
// It checks that the URL is well-formed, uses HTTP/HTTPS scheme, and has a valid host.
// Private and loopback addresses are allowed: local backends normally live on the LAN.
// Returns a ValidationError if the URL is invalid or empty.
func ValidateEndpointURL(field, rawURL string) error {
	if rawURL == "" {
		return &ValidationError{Field: field, Message: "URL is required"}
	}

	if len(rawURL) > maxURLLength {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("url must not exceed %d characters", maxURLLength),
		}
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return &ValidationError{Field: field, Message: fmt.Sprintf("invalid URL: %v", err)}
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return &ValidationError{Field: field, Message: "URL must use http or https scheme"}
	}

	if parsedURL.Host == "" {
		return &ValidationError{Field: field, Message: "URL must have a valid host"}
	}

	return nil
}
