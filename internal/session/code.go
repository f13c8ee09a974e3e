package session

import (
	"math/rand/v2"
	"strings"
	"unicode/utf8"

	"github.com/Iron-Ham/cvcollab/internal/errors"
)

// CodeLength is the number of characters in a session code.
const CodeLength = 6

const codeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// GenerateCode returns a random session code drawn from [0-9A-Z].
// intn must return a value in [0, n); nil uses math/rand/v2.
func GenerateCode(intn func(n int) int) string {
	if intn == nil {
		intn = rand.IntN
	}
	var b strings.Builder
	b.Grow(CodeLength)
	for range CodeLength {
		b.WriteByte(codeAlphabet[intn(len(codeAlphabet))])
	}
	return b.String()
}

// ValidateCode checks the shape of a session code. Only the length is
// checked; whether a session with that code exists anywhere is not.
func ValidateCode(code string) error {
	if utf8.RuneCountInString(code) != CodeLength {
		return errors.NewInvalidCodeError(code)
	}
	return nil
}

// DefaultInviteOrigin is the origin invite links use when none is given.
const DefaultInviteOrigin = "http://localhost:3000"

// InviteLink returns the URL another participant opens to join code.
func InviteLink(origin, code string) string {
	if origin == "" {
		origin = DefaultInviteOrigin
	}
	return strings.TrimRight(origin, "/") + "/join/" + code
}
