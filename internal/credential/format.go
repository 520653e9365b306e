package credential

import "strings"

const (
	// Prefix every OpenAI secret key starts with
	Prefix = "sk-"
	// MinLength is the shortest key accepted by the format check
	MinLength = 20

	maskVisible = 8
	maskRune    = '•'
)

// ValidateFormat reports whether token looks like an OpenAI API key
func ValidateFormat(token string) bool {
	if token == "" {
		return false
	}
	return strings.HasPrefix(token, Prefix) && len([]rune(token)) >= MinLength
}

// Mask keeps the first eight characters and replaces the rest with
// placeholders of the same count. Display only.
func Mask(token string) string {
	runes := []rune(token)
	if len(runes) < maskVisible {
		return token
	}
	return string(runes[:maskVisible]) + strings.Repeat(string(maskRune), len(runes)-maskVisible)
}
