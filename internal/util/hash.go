package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// ContentHash fingerprints uploaded file bytes. The spool uses it to name
// files, so re-uploading identical content lands on the same path.
func ContentHash(b []byte) string {
	x := sha256.Sum256(b)
	return hex.EncodeToString(x[:])
}
