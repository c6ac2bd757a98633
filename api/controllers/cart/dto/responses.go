package cartdto

import (
	"github.com/angelmondragon/packfinderz-storefront/internal/notifications"
	"github.com/angelmondragon/packfinderz-storefront/internal/storefront"
)

// SelectionChange is returned by every selection or quantity mutation.
type SelectionChange struct {
	AffectedShops []string                     `json:"affected_shops"`
	Selection     storefront.SelectionSnapshot `json:"selection"`
	Fees          storefront.FeeSnapshot       `json:"fees"`
}

// RemoveItemsResult is returned after lines are removed.
type RemoveItemsResult struct {
	RemovedShops []string               `json:"removed_shops"`
	Fees         storefront.FeeSnapshot `json:"fees"`
}

// AddressChange is returned after the delivery address is updated.
type AddressChange struct {
	Changed bool                   `json:"changed"`
	Fees    storefront.FeeSnapshot `json:"fees"`
}

// NotificationList carries drained notifications.
type NotificationList struct {
	Items []notifications.Notification `json:"items"`
}
