// Package claims persists redemption records.
package claims

import (
	"context"

	"github.com/dmitrijs2005/classmint/internal/server/models"
)

// Repository stores redemption records. Claims are insert-only.
type Repository interface {
	Create(ctx context.Context, c *models.Claim) (*models.Claim, error)
	// ExistsForToken reports whether any claim references tokenID.
	ExistsForToken(ctx context.Context, tokenID int64) (bool, error)
	Totals(ctx context.Context) (*models.ClaimTotals, error)
}
