package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartItem persists one line of a buyer's cart in the origin store.
type CartItem struct {
	ID        string          `gorm:"column:id;primaryKey"`
	BuyerID   string          `gorm:"column:buyer_id;not null;index:idx_cart_items_buyer"`
	ShopID    string          `gorm:"column:shop_id;not null"`
	ProductID string          `gorm:"column:product_id;not null"`
	Title     string          `gorm:"column:title"`
	Quantity  int             `gorm:"column:quantity;not null"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(18,2);not null"`
	Selected  bool            `gorm:"column:selected;not null;default:false"`
	Position  int             `gorm:"column:position;not null;default:0"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (CartItem) TableName() string { return "cart_items" }
