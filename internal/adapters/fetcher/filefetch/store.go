// Package filefetch implements ports.Fetcher over a directory of payload fixtures.
//
// A payload for level L and key K lives at {dir}/{L}/{K}.json, .yaml or
// .yml, where L is the level name and K is the key with every character
// outside [A-Za-z0-9._-] replaced by an underscore.
package filefetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.trai.ch/claimgraph/internal/core/domain"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

var extensions = []string{".json", ".yaml", ".yml"}

// Store reads payload fixtures from a directory.
type Store struct {
	dir string
}

// New creates a Store rooted at dir.
func New(dir string) *Store {
	return &Store{dir: filepath.Clean(dir)}
}

// SanitizeKey turns a key into a file name stem.
func SanitizeKey(key domain.Key) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, string(key))
}

// Path returns the fixture path stem for level and key, without extension.
func (s *Store) Path(level domain.Level, key domain.Key) string {
	return filepath.Join(s.dir, level.String(), SanitizeKey(key))
}

// Fetch implements ports.Fetcher.
func (s *Store) Fetch(ctx context.Context, level domain.Level, key domain.Key) (domain.RawPayload, error) {
	if !level.Valid() {
		return nil, zerr.With(zerr.Wrap(domain.ErrUnknownLevel, "no fixtures for level"), "level", int(level))
	}
	if err := key.ValidFor(level); err != nil {
		return nil, err
	}

	stem := s.Path(level, key)
	for _, ext := range extensions {
		if err := ctx.Err(); err != nil {
			return nil, errors.Join(domain.ErrFetchFailed, err)
		}
		payload, err := ReadPayload(stem+ext, level)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		return payload, err
	}

	err := zerr.With(zerr.Wrap(domain.ErrNotFound, "no fixture for key"), "level", level.String())
	return nil, zerr.With(err, "key", key.String())
}

// ReadPayload decodes the payload file at path as a level payload. Files
// ending in .json are read as JSON, anything else as YAML.
func ReadPayload(path string, level domain.Level) (domain.RawPayload, error) {
	payload, err := domain.NewPayload(level)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path) //nolint:gosec // path is provided by the caller
	if err != nil {
		return nil, zerr.With(errors.Join(domain.ErrFetchFailed, err), "path", path)
	}
	if err := decode(data, filepath.Ext(path), payload); err != nil {
		return nil, zerr.With(errors.Join(domain.ErrPayloadDecode, err), "path", path)
	}
	return payload, nil
}

func decode(data []byte, ext string, payload domain.RawPayload) error {
	if ext == ".json" {
		return json.Unmarshal(data, payload)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(payload); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
