package cartdto

import "github.com/angelmondragon/packfinderz-storefront/pkg/types"

// SelectionRequest is the optional body of the toggle endpoints. When Selected
// is omitted the current state is flipped.
type SelectionRequest struct {
	Selected *bool `json:"selected"`
}

// UpdateQuantityRequest changes one line's quantity.
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity" validate:"gt=0,max=999"`
}

// RemoveItemsRequest removes lines from the cart.
type RemoveItemsRequest struct {
	ItemIDs []string `json:"item_ids" validate:"required,min=1,max=200,unique,dive,required"`
}

// ChangeAddressRequest switches the delivery address; a null address clears it.
type ChangeAddressRequest struct {
	Address *types.Address `json:"address"`
}
