package domain

import "go.trai.ch/zerr"

var (
	// ErrMalformedGraph is returned when a payload cannot be turned into a valid snapshot.
	ErrMalformedGraph = zerr.New("malformed graph")

	// ErrDuplicateNode is returned when two nodes in one snapshot share an id.
	ErrDuplicateNode = zerr.Wrap(ErrMalformedGraph, "duplicate node id")

	// ErrDanglingEdge is returned in strict mode when an edge references an unknown node.
	ErrDanglingEdge = zerr.Wrap(ErrMalformedGraph, "edge references unknown node")

	// ErrFetchFailed is returned when the backend could not deliver a payload.
	ErrFetchFailed = zerr.New("fetch failed")

	// ErrNotFound is returned when the backend has no data for a key.
	ErrNotFound = zerr.Wrap(ErrFetchFailed, "not found")

	// ErrPayloadDecode is returned when a payload body cannot be decoded.
	ErrPayloadDecode = zerr.Wrap(ErrFetchFailed, "failed to decode payload")

	// ErrInvalidKey is returned when a key does not fit the level it is used with.
	ErrInvalidKey = zerr.New("invalid key")

	// ErrInvalidLocation is returned when a location cannot be parsed or is incomplete.
	ErrInvalidLocation = zerr.New("invalid location")

	// ErrInvalidParameter is the panic value raised by the layout engine on bad parameters.
	ErrInvalidParameter = zerr.New("invalid layout parameter")

	// ErrUnknownLevel is returned when a level name or number is not recognized.
	ErrUnknownLevel = zerr.New("unknown level")

	// ErrNoParentLevel is returned when navigating back from the top level.
	ErrNoParentLevel = zerr.New("level has no parent")

	// ErrNoChildLevel is returned when descending below the provenance level.
	ErrNoChildLevel = zerr.New("level has no child")

	// ErrNodeNotFound is returned when a node id is not part of the active snapshot.
	ErrNodeNotFound = zerr.New("node not found")

	// ErrLevelNotReady is returned when an operation needs a Ready level.
	ErrLevelNotReady = zerr.New("level is not ready")

	// ErrCacheClosed is returned by the level cache after Close.
	ErrCacheClosed = zerr.New("level cache closed")

	// ErrConfigRead is returned when the config file exists but cannot be read.
	ErrConfigRead = zerr.New("failed to read config file")

	// ErrConfigParse is returned when the config file is not valid YAML.
	ErrConfigParse = zerr.New("failed to parse config file")

	// ErrInvalidConfig is returned when a config value is out of range.
	ErrInvalidConfig = zerr.New("invalid configuration")
)
