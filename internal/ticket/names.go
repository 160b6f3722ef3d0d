package ticket

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

const maxChannelName = 100

// NormalizeName prepares a user supplied channel name: it trims, lowercases
// and replaces whitespace runs with '-'. The result must be 1 to 100
// characters of letters, digits, '-' and '_'.
func NormalizeName(name string) (string, error) {
	name = strings.ToLower(strings.Join(strings.Fields(name), "-"))
	if name == "" {
		return "", fmt.Errorf("%w: name is empty", ErrInvalidName)
	}
	if n := utf8.RuneCountInString(name); n > maxChannelName {
		return "", fmt.Errorf("%w: %d characters, at most %d allowed", ErrInvalidName, n, maxChannelName)
	}
	for _, r := range name {
		if !validNameRune(r) {
			return "", fmt.Errorf("%w: character %q is not allowed", ErrInvalidName, r)
		}
	}
	return name, nil
}

// ChannelName builds the channel name of a new ticket. Characters the
// platform rejects are dropped rather than reported.
func ChannelName(t Type, username string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(t.Key + "-ticket-" + username) {
		switch {
		case validNameRune(r):
			sb.WriteRune(r)
		case unicode.IsSpace(r) || r == '.':
			sb.WriteByte('-')
		}
	}
	name := sb.String()
	if utf8.RuneCountInString(name) > maxChannelName {
		name = string([]rune(name)[:maxChannelName])
	}
	return name
}

func validNameRune(r rune) bool {
	return r == '-' || r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
