// Package fingerprint derives stable identities for raw input bytes.
//
// A fingerprint is a cache/identity key: byte-identical inputs always yield
// identical fingerprints, across calls and across processes. It is not a
// security boundary.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the hex-encoded digest of raw.
func Sum(raw []byte) string {
	h := sha256.Sum256(raw)
	return hex.EncodeToString(h[:])
}
