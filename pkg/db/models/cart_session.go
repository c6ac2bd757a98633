package models

import (
	"time"

	"github.com/angelmondragon/packfinderz-storefront/pkg/types"
)

// CartSession stores the active delivery address chosen for a buyer's cart.
type CartSession struct {
	BuyerID         string         `gorm:"column:buyer_id;primaryKey"`
	ShippingAddress *types.Address `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	UpdatedAt       time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (CartSession) TableName() string { return "cart_sessions" }
