package fees

import (
	"context"

	"github.com/angelmondragon/packfinderz-storefront/internal/cart"
	"github.com/angelmondragon/packfinderz-storefront/pkg/types"
)

// OnAddressChanged switches the active delivery address. When the address
// identity changes every shop with a selected item is repriced through the
// checkout variant; a nil address clears the table. It reports whether the
// identity changed.
func (s *Synchronizer) OnAddressChanged(ctx context.Context, addr *types.Address, reader SelectionReader) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if types.AddressKey(addr) == types.AddressKey(s.address) {
		if addr != nil {
			updated := *addr
			s.address = &updated
		}
		return false
	}

	if addr == nil {
		s.address = nil
		for _, shopID := range s.table.Shops() {
			s.table.Clear(shopID)
		}
		s.logg.Info(ctx, "delivery address cleared")
		return true
	}

	updated := *addr
	s.address = &updated
	s.logg.Info(s.logg.WithField(ctx, "address_key", updated.Key()), "delivery address changed")

	selected := make(map[cart.ShopID]struct{})
	for _, shopID := range reader.ShopsWithSelection() {
		selected[shopID] = struct{}{}
		s.reconcileLocked(ctx, shopID, reader.SelectedLines(shopID), TriggerAddress)
	}
	for _, shopID := range s.table.Shops() {
		if _, ok := selected[shopID]; !ok {
			s.table.Clear(shopID)
		}
	}
	return true
}

// Address returns a copy of the active delivery address, or nil.
func (s *Synchronizer) Address() *types.Address {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.address == nil {
		return nil
	}
	addr := *s.address
	return &addr
}
