// Package canonical produces the deterministic byte form every hash and
// signature in the system commits to.
//
// The rules are fixed and shared with the offline verifier: structs
// serialize in declaration order with no insignificant whitespace, maps
// serialize with lexicographically sorted keys, and HTML characters are
// not escaped. Identical logical input always yields identical bytes;
// changing any field changes the bytes.
package canonical

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Marshal returns the canonical byte form of v.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("canonical marshal: %w", err)
	}
	// Encode appends a newline; the canonical form has none.
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// HashHex returns the lowercase hex sha256 of the canonical form of v.
func HashHex(v any) (string, error) {
	b, err := Marshal(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// HashBytes returns the lowercase hex sha256 of b.
func HashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// HMACHex returns the lowercase hex hmac-sha256 of b under key.
func HMACHex(key, b []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write(b)
	return hex.EncodeToString(mac.Sum(nil))
}
