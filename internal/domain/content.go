// Package domain holds the list and session models shared by the hub, its
// handlers and the persistence adapters.
package domain

import (
	"strings"
	"unicode/utf8"

	apperrors "github.com/Ezyrone/TP-Final-2/pkg/errors"
)

// MaxContentLength is the maximum item content length, counted in characters
// after sanitizing.
const MaxContentLength = 280

var angleBrackets = strings.NewReplacer("<", "", ">", "")

// SanitizeContent trims the input and strips angle brackets, then checks the
// length bounds on the result.
func SanitizeContent(raw string) (string, error) {
	content := strings.TrimSpace(angleBrackets.Replace(strings.TrimSpace(raw)))

	n := utf8.RuneCountInString(content)
	if n == 0 || n > MaxContentLength {
		return "", apperrors.NewValidationError(apperrors.CodeBadContent, apperrors.MsgBadContent)
	}
	return content, nil
}
