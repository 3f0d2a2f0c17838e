// Package kv defines the persistent key-value port the repository writes
// through to. Values are JSON-encoded text.
package kv

import (
	"context"
	"errors"
)

// Keys of the persisted state layout.
const (
	KeyTeams     = "teams"
	KeyPeople    = "people"
	KeyGlobalFee = "globalFee"
)

// ErrClosed is returned by stores used after Close.
var ErrClosed = errors.New("store closed")

type (
	// Store is a durable mapping from string keys to encoded values.
	Store interface {
		// Get returns the value stored under key. found is false when the key
		// has never been written.
		Get(ctx context.Context, key string) (value []byte, found bool, err error)
		// Set replaces the value stored under key.
		Set(ctx context.Context, key string, value []byte) error
	}

	// BatchSetter is implemented by stores that can write several keys
	// together, all or nothing.
	BatchSetter interface {
		SetMany(ctx context.Context, entries map[string][]byte) error
	}
)

// SetAll writes entries through SetMany when the store supports it and
// falls back to one Set per key otherwise.
func SetAll(ctx context.Context, s Store, entries map[string][]byte) error {
	if b, ok := s.(BatchSetter); ok {
		return b.SetMany(ctx, entries)
	}
	for k, v := range entries {
		if err := s.Set(ctx, k, v); err != nil {
			return err
		}
	}
	return nil
}
