package cart

import (
	"context"

	"github.com/angelmondragon/packfinderz-storefront/pkg/db/models"
	"github.com/angelmondragon/packfinderz-storefront/pkg/types"
	"gorm.io/gorm"
)

// CartRepository is the origin store the in-memory cart is loaded from and written back to.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	ListItems(ctx context.Context, buyerID string) ([]models.CartItem, error)
	DeleteItems(ctx context.Context, buyerID string, ids []string) error
	UpdateQuantity(ctx context.Context, buyerID, itemID string, qty int) error
	ReplaceSelection(ctx context.Context, buyerID string, selected []string) error
	FindSession(ctx context.Context, buyerID string) (*models.CartSession, error)
	SaveAddress(ctx context.Context, buyerID string, addr *types.Address) error
}
