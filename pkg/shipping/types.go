package shipping

import (
	"context"

	pkgerrors "github.com/angelmondragon/packfinderz-storefront/pkg/errors"
	"github.com/angelmondragon/packfinderz-storefront/pkg/types"
	"github.com/shopspring/decimal"
)

// Line is one selected cart item priced by the provider.
type Line struct {
	ItemID   string `json:"item_id"`
	ShopID   string `json:"shop_id"`
	Quantity int    `json:"quantity"`
}

// ItemsRequest asks for the fee of a set of selected items.
type ItemsRequest struct {
	Address types.Address `json:"address"`
	Lines   []Line        `json:"items"`
}

// CheckoutRequest asks for fees keyed by address and the full per-shop item map.
type CheckoutRequest struct {
	Address types.Address     `json:"address"`
	Shops   map[string][]Line `json:"shops"`
}

// Fee is the shipping fee computed for one shop.
type Fee struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// Quote maps shop ids to fees. Shops the carrier cannot serve are omitted.
type Quote map[string]Fee

// Provider computes shipping fees.
type Provider interface {
	FetchFee(ctx context.Context, req ItemsRequest) (Quote, error)
	FetchCheckoutFee(ctx context.Context, req CheckoutRequest) (Quote, error)
}

// IsUnsupported reports whether err is a carrier rejection of the address.
func IsUnsupported(err error) bool {
	return pkgerrors.HasCode(err, pkgerrors.CodeUnsupportedAddress)
}
