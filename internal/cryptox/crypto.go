// Package cryptox holds the key handling shared by the token codec and the
// admin auth layer.
package cryptox

import (
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

// KeySize is the length of every derived key, matching HMAC-SHA256 block output.
const KeySize = 32

// Info labels keep derived keys independent of each other.
const (
	InfoTokenMAC = "classmint/token-mac/v1"
	InfoAdminJWT = "classmint/admin-jwt/v1"
)

var ErrEmptySecret = errors.New("empty secret")

// DeriveKey expands secret into a KeySize key bound to info using
// HKDF-SHA256. The same (secret, info) pair always yields the same key.
func DeriveKey(secret []byte, info string) ([]byte, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(info)), key); err != nil {
		return nil, err
	}
	return key, nil
}

// Wipe zeroes b in place. Nil is fine.
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
