// Package keydb provides escher.KeyDB implementations backed by memory,
// files, secret directories and redis.
package keydb

import (
	"errors"
	"fmt"
	"os"

	"github.com/forestrie/go-escher/escher"
	"gopkg.in/yaml.v2"
)

var (
	ErrDuplicateKey = errors.New("duplicate key id")
	ErrEmptyKey     = errors.New("empty key id or secret")
)

// Static is an in-memory key database mapping key ids to secrets.
type Static map[string]string

var _ escher.KeyDB = Static(nil)

// Secret returns the secret of keyID.
func (s Static) Secret(keyID string) ([]byte, bool) {
	secret, ok := s[keyID]
	if !ok {
		return nil, false
	}
	return []byte(secret), true
}

type keyEntry struct {
	KeyID  string `yaml:"keyId"`
	Secret string `yaml:"secret"`
}

// ParseYAML reads a key database document. Two layouts are accepted, a
// mapping from key id to secret:
//
//	suite_key: suite_secret
//
// or a list of entries:
//
//	- keyId: suite_key
//	  secret: suite_secret
func ParseYAML(data []byte) (Static, error) {
	var mapping map[string]string
	if err := yaml.Unmarshal(data, &mapping); err == nil {
		for keyID, secret := range mapping {
			if keyID == "" || secret == "" {
				return nil, fmt.Errorf("key %q: %w", keyID, ErrEmptyKey)
			}
		}
		if mapping == nil {
			mapping = make(map[string]string)
		}
		return Static(mapping), nil
	}

	var entries []keyEntry
	if err := yaml.UnmarshalStrict(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse key database: %w", err)
	}

	keys := make(Static, len(entries))
	for _, e := range entries {
		if e.KeyID == "" || e.Secret == "" {
			return nil, fmt.Errorf("key %q: %w", e.KeyID, ErrEmptyKey)
		}
		if _, ok := keys[e.KeyID]; ok {
			return nil, fmt.Errorf("key %q: %w", e.KeyID, ErrDuplicateKey)
		}
		keys[e.KeyID] = e.Secret
	}
	return keys, nil
}

// LoadFile reads a YAML key database, see ParseYAML.
func LoadFile(path string) (Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read key database: %w", err)
	}
	keys, err := ParseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return keys, nil
}

// Chain asks each key database in turn and returns the first hit.
type Chain []escher.KeyDB

// Secret returns the secret of keyID from the first database knowing it.
func (c Chain) Secret(keyID string) ([]byte, bool) {
	for _, db := range c {
		if secret, ok := db.Secret(keyID); ok {
			return secret, true
		}
	}
	return nil, false
}
