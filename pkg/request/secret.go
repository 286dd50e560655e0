package request

import (
	"strings"
	"unicode/utf8"
)

// Secret is a form value that never leaves the process in clear text. It
// decodes like a string and encodes as a fixed mask.
type Secret string

func (Secret) MarshalJSON() ([]byte, error) {
	return []byte(`"***"`), nil
}

func (Secret) String() string {
	return "***"
}

// NormalizeEmail is the form addresses are stored and looked up in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// MaskEmail keeps the first character of the local part and the domain.
func MaskEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" {
		return "***"
	}
	first, _ := utf8.DecodeRuneInString(local)
	return string(first) + "***@" + domain
}
