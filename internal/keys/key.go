// Package keys parses and normalizes trigger key names.
//
// A Key is either a named key ("f3", "space", "ctrl_l") or a single
// character ("a", "7", "é"). Parse accepts the canonical names plus a set of
// common aliases and returns the canonical form, so two Keys are equal iff
// they name the same key.
package keys

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// ErrInvalidKey is returned when the input is neither a known key
// name nor a single character.
var ErrInvalidKey = errors.New("invalid key name")

// ErrEmptyKey is returned for blank key names.
var ErrEmptyKey = errors.New("empty key name")

// Key is a normalized key identifier. The zero value means "no key".
type Key string

// Parse converts a user-supplied key name into a Key.
//
// Input is trimmed, lower-cased and NFC-normalized before lookup, so
// "F3", " f3 " and "f3" all yield the same Key, as do the composed and
// decomposed spellings of an accented character.
func Parse(spec string) (Key, error) {
	s := norm.NFC.String(strings.ToLower(strings.TrimSpace(spec)))
	if s == "" {
		return "", ErrEmptyKey
	}

	if name, ok := aliases[s]; ok {
		s = name
	}
	if _, ok := named[s]; ok {
		return Key(s), nil
	}

	if utf8.RuneCountInString(s) == 1 {
		return Key(s), nil
	}

	return "", fmt.Errorf("%w: %q", ErrInvalidKey, spec)
}

// MustParse is like Parse but panics on error. Intended for tests and
// package-level defaults.
func MustParse(spec string) Key {
	k, err := Parse(spec)
	if err != nil {
		panic(err)
	}
	return k
}

// String returns the canonical key name.
func (k Key) String() string {
	return string(k)
}

// IsZero reports whether k is the empty key.
func (k Key) IsZero() bool {
	return k == ""
}

// IsNamed reports whether k is a named key rather than a character key.
func (k Key) IsNamed() bool {
	_, ok := named[string(k)]
	return ok
}

// Valid reports whether s parses as a key.
func Valid(s string) bool {
	_, err := Parse(s)
	return err == nil
}
