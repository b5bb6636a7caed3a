// Package checksum fingerprints stored documents.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"strconv"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// SumReader digests everything read from r.
func SumReader(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ETag formats a digest as a strong HTTP entity tag.
func ETag(sum string) string {
	return strconv.Quote(sum)
}
