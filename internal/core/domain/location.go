package domain

import (
	"errors"
	"net/url"
	"strings"

	"go.trai.ch/zerr"
)

const (
	analyzePrefix        = "/analyze/"
	misinformationPrefix = "misinformation"
	subnodeSegment       = "subnode"
)

// Location describes where the user is: the active level and the keys that
// lead to it. Ancestor keys may be empty when the location was derived from
// a path that does not carry them.
type Location struct {
	Level     Level `json:"level"`
	Video     Key   `json:"video,omitempty"`
	Claim     Key   `json:"claim,omitempty"`
	Statement Key   `json:"statement,omitempty"`
}

// KeyFor returns the key that selects the given level's content.
func (l Location) KeyFor(level Level) Key {
	switch level {
	case LevelClaims:
		return l.Video
	case LevelStatements:
		return l.Claim
	case LevelProvenance:
		return l.Statement
	default:
		return ""
	}
}

// Key returns the key of the active level.
func (l Location) Key() Key {
	return l.KeyFor(l.Level)
}

// IsZero reports whether no location has been set.
func (l Location) IsZero() bool {
	return l == Location{}
}

// Validate checks that the active level is known and its key is well formed.
func (l Location) Validate() error {
	if !l.Level.Valid() {
		return zerr.With(zerr.Wrap(ErrInvalidLocation, "unknown level"), "level", int(l.Level))
	}
	if err := l.Key().ValidFor(l.Level); err != nil {
		return errors.Join(ErrInvalidLocation, err)
	}
	return nil
}

// Inherit fills ancestor keys that l leaves empty from prev.
func (l Location) Inherit(prev Location) Location {
	if l.Video.IsZero() {
		l.Video = prev.Video
	}
	if l.Level >= LevelProvenance && l.Claim.IsZero() {
		l.Claim = prev.Claim
	}
	return l
}

// Descend returns the location reached by selecting nodeID on the active level.
func (l Location) Descend(nodeID NodeID) (Location, error) {
	child, ok := l.Level.Child()
	if !ok {
		return l, zerr.With(zerr.Wrap(ErrNoChildLevel, "cannot descend"), "level", l.Level.String())
	}
	next := Location{Level: child, Video: l.Video}
	switch child {
	case LevelStatements:
		next.Claim = Key(nodeID)
	case LevelProvenance:
		next.Claim = l.Claim
		next.Statement = Key(nodeID)
	}
	if err := next.Validate(); err != nil {
		return l, err
	}
	return next, nil
}

// Parent returns the location one level up.
func (l Location) Parent() (Location, error) {
	parent, ok := l.Level.Parent()
	if !ok {
		return l, zerr.With(zerr.Wrap(ErrNoParentLevel, "cannot go back"), "level", l.Level.String())
	}
	up := Location{Level: parent, Video: l.Video}
	if parent == LevelStatements {
		up.Claim = l.Claim
	}
	if up.Key().IsZero() {
		return l, zerr.With(zerr.Wrap(ErrNoParentLevel, "parent key unknown"), "level", parent.String())
	}
	return up, nil
}

// Path renders the location in its route form.
func (l Location) Path() string {
	switch l.Level {
	case LevelClaims:
		return analyzePrefix + url.PathEscape(string(l.Video))
	case LevelStatements:
		return "/" + misinformationPrefix + "/" + string(l.Claim)
	case LevelProvenance:
		return "/" + misinformationPrefix + "/" + string(l.Claim) + "/" + subnodeSegment + "/" + string(l.Statement)
	default:
		return "/"
	}
}

// String implements fmt.Stringer.
func (l Location) String() string {
	return l.Path()
}

// ParseLocation parses a route path into a Location.
//
// Accepted forms are /analyze/{video url}, /misinformation/{claim} and
// /misinformation/{claim}/subnode/{statement}.
func ParseLocation(path string) (Location, error) {
	if rest, ok := strings.CutPrefix(path, analyzePrefix); ok {
		video, err := url.PathUnescape(rest)
		if err != nil {
			video = rest
		}
		loc := Location{Level: LevelClaims, Video: Key(video)}
		if err := loc.Validate(); err != nil {
			return Location{}, zerr.With(err, "path", path)
		}
		return loc, nil
	}

	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) == 0 || parts[0] != misinformationPrefix {
		return Location{}, zerr.With(zerr.Wrap(ErrInvalidLocation, "unrecognized path"), "path", path)
	}

	var loc Location
	switch {
	case len(parts) == 2:
		loc = Location{Level: LevelStatements, Claim: Key(parts[1])}
	case len(parts) == 4 && parts[2] == subnodeSegment:
		loc = Location{Level: LevelProvenance, Claim: Key(parts[1]), Statement: Key(parts[3])}
		if err := loc.Claim.ValidFor(LevelStatements); err != nil {
			return Location{}, zerr.With(errors.Join(ErrInvalidLocation, err), "path", path)
		}
	default:
		return Location{}, zerr.With(zerr.Wrap(ErrInvalidLocation, "unrecognized path"), "path", path)
	}

	if err := loc.Validate(); err != nil {
		return Location{}, zerr.With(err, "path", path)
	}
	return loc, nil
}
