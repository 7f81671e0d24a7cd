package utils

import (
	mathrand "math/rand"
	"time"

	"github.com/samber/lo"
)

const (
	_alphaTable       = "abcdefghijklmnopqrstuvwxyz"
	_AlphaTable       = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	_numTable         = "0123456789"
	AlphaNumericTable = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

func init() {
	mathrand.Seed(time.Now().UnixNano())
}

// GenerateID generates a random identifier. It is not cryptographically secure.
func GenerateID() string {
	const size = 32
	return lo.RandomString(size, []rune(_alphaTable+_numTable))
}

// NewAccessCode generates a team access code. Codes are opaque bearer secrets
// for the read-only team view; they only need to be unguessable at contest
// scale.
func NewAccessCode() string {
	const size = 12
	return lo.RandomString(size, []rune(AlphaNumericTable))
}

// NewAdminToken generates the shared admin secret used when none is
// configured.
func NewAdminToken() string {
	const size = 24
	return lo.RandomString(size, []rune(AlphaNumericTable))
}
