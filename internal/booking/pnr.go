package booking

import (
	"math/rand"
	"regexp"
	"strings"
)

const pnrLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

var pnrPattern = regexp.MustCompile(`^[A-Z]{3}[0-9]{3}$`)

// NewPNR draws three uppercase letters and three digits uniformly.
// Uniqueness is enforced when the booking is stored, not here.
func NewPNR() string {
	var b strings.Builder
	b.Grow(6)
	for i := 0; i < 3; i++ {
		b.WriteByte(pnrLetters[rand.Intn(len(pnrLetters))])
	}
	for i := 0; i < 3; i++ {
		b.WriteByte(byte('0' + rand.Intn(10)))
	}
	return b.String()
}

// NormalizePNR upper-cases and trims a code supplied by a client.
func NormalizePNR(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }

// ValidPNR reports whether s is a well-formed reservation code.
func ValidPNR(s string) bool { return pnrPattern.MatchString(s) }
