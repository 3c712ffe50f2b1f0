package scene

import (
	"crypto/sha256"
	"encoding/hex"
)

// ID is a content-addressed identifier derived from an element's path
// (e.g. "sphere/anchor-a" or "intersect/1").
type ID [sha256.Size]byte

// ZeroID is the unset ID.
var ZeroID ID

// NewID hashes path into an ID.
func NewID(path string) ID {
	return ID(sha256.Sum256([]byte(path)))
}

// IsZero reports whether id is unset.
func (id ID) IsZero() bool { return id == ZeroID }

// String returns the full hex form.
func (id ID) String() string { return hex.EncodeToString(id[:]) }

// Short returns the first 6 bytes in hex, enough for messages.
func (id ID) Short() string { return hex.EncodeToString(id[:6]) }

// MarshalText encodes the ID as hex so it can key JSON maps.
func (id ID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
