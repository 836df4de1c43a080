package core

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Short returns the first 12 hex characters, enough for log lines.
func (h Hash) Short() string {
	if len(h) <= 12 {
		return string(h)
	}
	return string(h[:12])
}

// TableFingerprint identifies the exact content of a tidy table.
type TableFingerprint Hash

func NewTableFingerprint(data []byte) TableFingerprint { return TableFingerprint(NewHash(data)) }

func (h TableFingerprint) String() string { return Hash(h).String() }
func (h TableFingerprint) Short() string  { return Hash(h).Short() }
