// Package directory defines the reviewer directory port (interface).
package directory

import (
	"context"

	"github.com/arbiterhq/arbiter/internal/domain/reviewer"
)

// Directory resolves a reviewer id to the reviewer's identity and authority
// tier. Lookup returns domain.ErrUnauthorized when the id is unknown or the
// account is disabled, and domain.ErrUnavailable on backend I/O failure.
// Any backing implementation (database, config file, identity service)
// satisfies the engine.
type Directory interface {
	Lookup(ctx context.Context, reviewerID string) (*reviewer.Reviewer, error)
}
