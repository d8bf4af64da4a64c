package domain

import (
	"strconv"
	"strings"

	"go.trai.ch/zerr"
)

// Level identifies one of the three nested graph scopes.
type Level int

const (
	// LevelClaims is the top level: the claims made in a video.
	LevelClaims Level = iota
	// LevelStatements holds the statements supporting one claim.
	LevelStatements
	// LevelProvenance holds the sources behind one statement.
	LevelProvenance
)

// LevelCount is the number of navigation levels.
const LevelCount = 3

// Levels lists every level from the top down.
var Levels = [LevelCount]Level{LevelClaims, LevelStatements, LevelProvenance}

var levelNames = [LevelCount]string{"claims", "statements", "provenance"}

// String returns the lowercase level name.
func (l Level) String() string {
	if !l.Valid() {
		return "level(" + strconv.Itoa(int(l)) + ")"
	}
	return levelNames[l]
}

// Valid reports whether l is one of the known levels.
func (l Level) Valid() bool {
	return l >= LevelClaims && l <= LevelProvenance
}

// Parent returns the level above l.
func (l Level) Parent() (Level, bool) {
	if l <= LevelClaims || !l.Valid() {
		return l, false
	}
	return l - 1, true
}

// Child returns the level below l.
func (l Level) Child() (Level, bool) {
	if l >= LevelProvenance || !l.Valid() {
		return l, false
	}
	return l + 1, true
}

// ParseLevel accepts a level name or its 1-based depth.
func ParseLevel(s string) (Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range levelNames {
		if s == name || s == strconv.Itoa(i+1) {
			return Level(i), nil
		}
	}
	return 0, zerr.With(zerr.Wrap(ErrUnknownLevel, "cannot parse level"), "level", s)
}

// MarshalText implements encoding.TextMarshaler.
func (l Level) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, zerr.With(zerr.Wrap(ErrUnknownLevel, "cannot marshal level"), "level", int(l))
	}
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Level) UnmarshalText(text []byte) error {
	parsed, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Key is the identifier that selects a level's content: a video URL for
// claims, a numeric claim id for statements, a numeric statement id for
// provenance.
type Key string

// IsZero reports whether the key is unset.
func (k Key) IsZero() bool {
	return k == ""
}

// String returns the key as a string.
func (k Key) String() string {
	return string(k)
}

// ValidFor checks that k has the shape the level expects.
func (k Key) ValidFor(level Level) error {
	if k.IsZero() {
		return zerr.With(zerr.Wrap(ErrInvalidKey, "empty key"), "level", level.String())
	}
	if level == LevelClaims {
		return nil
	}
	if _, err := strconv.ParseInt(string(k), 10, 64); err != nil {
		return zerr.With(zerr.With(zerr.Wrap(ErrInvalidKey, "key must be numeric"), "level", level.String()), "key", string(k))
	}
	return nil
}

// KeyFromID builds a key from a numeric id.
func KeyFromID(id int64) Key {
	return Key(strconv.FormatInt(id, 10))
}
