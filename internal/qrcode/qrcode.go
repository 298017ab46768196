// Package qrcode handles the QR identifier format printed on physical tags:
// "QR-" followed by a canonical UUID. Scanner output arrives in many shapes
// (raw code, full URL, query parameter), so all input goes through Extract
// before being treated as an identifier.
package qrcode

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const prefix = "QR-"

var codePattern = regexp.MustCompile(`(?i)QR-[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}`)

// Generate returns a fresh identifier with a lowercase canonical UUID.
func Generate() string {
	return prefix + uuid.NewString()
}

// Valid reports whether code is a well-formed identifier on its own.
func Valid(code string) bool {
	return strings.HasPrefix(code, prefix) && codePattern.MatchString(code)
}

// Extract pulls an identifier out of free-form input: a pasted code, a full
// URL, or a URL carrying a qr query parameter. Matching is case-insensitive;
// the returned code is normalized to the canonical lowercase-UUID form. Input
// without a matching substring is rejected, never coerced.
func Extract(input string) (string, bool) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", false
	}

	if match := codePattern.FindString(input); match != "" {
		return normalize(match), true
	}

	// A URL may carry the code in its qr query parameter.
	if parsed, err := url.Parse(input); err == nil {
		if param := parsed.Query().Get("qr"); param != "" {
			return Extract(param)
		}
	}

	return "", false
}

// FoundURL builds the URL embedded in the printed QR code, pointing a finder
// at the public found page for the item.
func FoundURL(baseURL string, code string) string {
	return strings.TrimRight(baseURL, "/") + "/found?qr=" + url.QueryEscape(code)
}

func normalize(code string) string {
	return prefix + strings.ToLower(code[len(prefix):])
}
