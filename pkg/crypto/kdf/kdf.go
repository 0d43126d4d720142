// Package kdf stretches a human passphrase into a fixed-size symmetric key.
package kdf

import (
    "crypto/sha256"

    "golang.org/x/crypto/pbkdf2"
)

const (
    Iterations = 4096
    KeySize    = 32
)

// FromPassphrase derives a KeySize key with PBKDF2-HMAC-SHA256.
func FromPassphrase(passphrase, salt []byte) []byte {
    return pbkdf2.Key(passphrase, salt, Iterations, KeySize, sha256.New)
}
