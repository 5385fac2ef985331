// Package signer provides the optional detached-signature collaborator
// backed by a local ed25519 key. When no key is configured the rest of
// the system runs unchanged and proofs degrade to keyed hashes.
package signer

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"os"

	"github.com/wevote/api/internal/core/domain"
	"github.com/wevote/api/internal/core/ports"
)

const algorithm = "ed25519"

type ed25519Signer struct {
	key ed25519.PrivateKey
}

// NewFromEnv builds a signer from the LEDGER_SIGNING_KEY environment
// variable, a base64 32-byte ed25519 seed. Returns nil, nil when the
// variable is unset; callers treat a nil signer as "no signatures".
func NewFromEnv() (ports.Signer, error) {
	seedB64 := os.Getenv("LEDGER_SIGNING_KEY")
	if seedB64 == "" {
		return nil, nil
	}
	seed, err := base64.StdEncoding.DecodeString(seedB64)
	if err != nil {
		return nil, fmt.Errorf("invalid LEDGER_SIGNING_KEY: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("LEDGER_SIGNING_KEY must be a %d-byte seed", ed25519.SeedSize)
	}
	return New(ed25519.NewKeyFromSeed(seed)), nil
}

func New(key ed25519.PrivateKey) ports.Signer {
	return &ed25519Signer{key: key}
}

func (s *ed25519Signer) Sign(ctx context.Context, data []byte) (*domain.Signature, error) {
	sig := ed25519.Sign(s.key, data)
	return &domain.Signature{
		SignatureBase64: base64.StdEncoding.EncodeToString(sig),
		Algorithm:       algorithm,
	}, nil
}
