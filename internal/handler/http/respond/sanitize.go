package respond

import (
	"regexp"
)

var (
	// anthropicKeyPattern must run before openaiKeyPattern: the more specific prefix wins.
	anthropicKeyPattern = regexp.MustCompile(`sk-ant-[a-zA-Z0-9-_]+`)
	openaiKeyPattern    = regexp.MustCompile(`sk-[a-zA-Z0-9]{10,}`)

	bearerPattern = regexp.MustCompile(`(?i)(bearer\s+)[a-zA-Z0-9._~+/=-]+`)

	// Credentials embedded in endpoint URLs.
	urlPasswordPattern = regexp.MustCompile(`://([^:/@\s]+):([^@\s]+)@`)
)

// SanitizeError returns the error message with credentials masked. Hosted
// backend errors may echo request headers or endpoint URLs.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	msg = anthropicKeyPattern.ReplaceAllString(msg, "sk-ant-****")
	msg = openaiKeyPattern.ReplaceAllString(msg, "sk-****")
	msg = bearerPattern.ReplaceAllString(msg, "${1}****")
	msg = urlPasswordPattern.ReplaceAllString(msg, "://$1:****@")

	return msg
}
