package cart

import (
	"context"

	"github.com/angelmondragon/packfinderz-storefront/pkg/db/models"
	"github.com/angelmondragon/packfinderz-storefront/pkg/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository exposes persistence operations for buyer carts.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) CartRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// ListItems returns the buyer's cart lines in display order.
func (r *Repository) ListItems(ctx context.Context, buyerID string) ([]models.CartItem, error) {
	var rows []models.CartItem
	if err := r.db.WithContext(ctx).
		Where("buyer_id = ?", buyerID).
		Order("position ASC").
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// DeleteItems removes the given lines from the buyer's cart.
func (r *Repository) DeleteItems(ctx context.Context, buyerID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("buyer_id = ? AND id IN ?", buyerID, ids).
		Delete(&models.CartItem{}).Error
}

// UpdateQuantity changes the quantity of one line.
func (r *Repository) UpdateQuantity(ctx context.Context, buyerID, itemID string, qty int) error {
	return r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("buyer_id = ? AND id = ?", buyerID, itemID).
		Update("quantity", qty).Error
}

// ReplaceSelection marks exactly the provided lines as selected.
func (r *Repository) ReplaceSelection(ctx context.Context, buyerID string, selected []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.CartItem{}).
			Where("buyer_id = ?", buyerID).
			Update("selected", false).Error; err != nil {
			return err
		}
		if len(selected) == 0 {
			return nil
		}
		return tx.Model(&models.CartItem{}).
			Where("buyer_id = ? AND id IN ?", buyerID, selected).
			Update("selected", true).Error
	})
}

// FindSession loads the buyer's cart session.
func (r *Repository) FindSession(ctx context.Context, buyerID string) (*models.CartSession, error) {
	var session models.CartSession
	if err := r.db.WithContext(ctx).
		Where("buyer_id = ?", buyerID).
		First(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

// SaveAddress upserts the active delivery address; nil clears it.
func (r *Repository) SaveAddress(ctx context.Context, buyerID string, addr *types.Address) error {
	session := models.CartSession{BuyerID: buyerID, ShippingAddress: addr}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "buyer_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"shipping_address", "updated_at"}),
		}).
		Create(&session).Error
}

// ItemInputs converts stored rows into the shape LoadItems expects.
func ItemInputs(rows []models.CartItem) []ItemInput {
	out := make([]ItemInput, 0, len(rows))
	for _, row := range rows {
		selected := row.Selected
		out = append(out, ItemInput{
			ID:        row.ID,
			ShopID:    row.ShopID,
			ProductID: row.ProductID,
			Title:     row.Title,
			Quantity:  row.Quantity,
			UnitPrice: row.UnitPrice,
			Selected:  &selected,
		})
	}
	return out
}
