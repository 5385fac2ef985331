package ports

import (
	"context"

	"github.com/wevote/api/internal/core/domain"
)

// Signer produces detached signatures over canonical bytes. It is an
// optional collaborator: a nil Signer (or a sign failure) degrades
// receipts and ledger entries to hash-only proofs, it never blocks
// them.
type Signer interface {
	Sign(ctx context.Context, data []byte) (*domain.Signature, error)
}
