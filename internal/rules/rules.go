package rules

import (
	"strings"

	"github.com/pkg/errors"
)

// Alphabet holds every character a username may contain, in ascending ASCII
// order. Keyspace enumeration depends on this ordering.
const Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ_abcdefghijklmnopqrstuvwxyz"

// Platform limits on username length.
const (
	MinLength = 3
	MaxLength = 20
)

// Validate reports why name is not a legal username, or nil when it is.
// Checks run in a fixed order so the first violation wins.
func Validate(name string) error {
	if len(name) < MinLength {
		return errors.Errorf("username must be at least %d characters", MinLength)
	}
	if len(name) > MaxLength {
		return errors.Errorf("username must be at most %d characters", MaxLength)
	}
	digits := 0
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= '0' && c <= '9':
			digits++
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_':
		default:
			return errors.New("username may only contain letters, numbers, and underscores")
		}
	}
	if digits == len(name) {
		return errors.New("username cannot be all numbers")
	}
	if strings.HasPrefix(name, "_") || strings.HasSuffix(name, "_") {
		return errors.New("username cannot start or end with an underscore")
	}
	if strings.Count(name, "_") > 1 {
		return errors.New("username may contain at most one underscore")
	}
	return nil
}

// IsValid reports whether name passes every username rule.
func IsValid(name string) bool { return Validate(name) == nil }
