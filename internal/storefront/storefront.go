package storefront

import (
	"context"
	"reflect"
	"sync"

	"github.com/angelmondragon/packfinderz-storefront/internal/cart"
	"github.com/angelmondragon/packfinderz-storefront/internal/fees"
	pkgerrors "github.com/angelmondragon/packfinderz-storefront/pkg/errors"
	"github.com/angelmondragon/packfinderz-storefront/pkg/logger"
	"github.com/angelmondragon/packfinderz-storefront/pkg/types"
)

// Storefront is one buyer's cart session. Every mutation and the
// reconciliation it causes run under a single lock, so snapshots never
// observe a selection whose fees have not been reconciled yet.
type Storefront struct {
	mu      sync.Mutex
	buyerID string
	model   *cart.Model
	fees    *fees.Synchronizer
	store   cart.CartRepository
	logg    *logger.Logger
}

// New builds an empty storefront. store may be nil, in which case nothing is written back.
func New(buyerID string, synchronizer *fees.Synchronizer, store cart.CartRepository, logg *logger.Logger) *Storefront {
	return &Storefront{
		buyerID: buyerID,
		model:   cart.NewModel(),
		fees:    synchronizer,
		store:   store,
		logg:    logg,
	}
}

// BuyerID returns the owner of the session.
func (s *Storefront) BuyerID() string {
	return s.buyerID
}

// Load replaces the cart contents and the delivery address. Only shops whose
// selected lines differ from before, or that have no fee yet, are repriced.
func (s *Storefront) Load(ctx context.Context, items []cart.ItemInput, addr *types.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := selectedLineSets(s.model)
	s.model.LoadItems(items)
	if s.fees.OnAddressChanged(ctx, addr, s.model) {
		return
	}

	after := selectedLineSets(s.model)
	affected := cart.NewAffectedShops()
	for shopID, lines := range after {
		if !reflect.DeepEqual(before[shopID], lines) {
			affected.Add(shopID)
			continue
		}
		if _, ok := s.fees.Entry(shopID); !ok {
			affected.Add(shopID)
		}
	}
	for shopID := range before {
		if _, ok := after[shopID]; !ok {
			affected.Add(shopID)
		}
	}
	for _, shopID := range s.fees.Shops() {
		if _, ok := after[shopID]; !ok {
			affected.Add(shopID)
		}
	}
	s.fees.Reconcile(ctx, affected, s.model)
}

// ToggleItem flips one item's selection.
func (s *Storefront) ToggleItem(ctx context.Context, id cart.ItemID) (cart.AffectedShops, error) {
	return s.changeSelection(ctx, func(m *cart.Model) cart.AffectedShops {
		return m.ToggleItem(id)
	})
}

// ToggleShop selects the whole shop unless it is fully selected, then clears it.
func (s *Storefront) ToggleShop(ctx context.Context, shopID cart.ShopID) (cart.AffectedShops, error) {
	return s.changeSelection(ctx, func(m *cart.Model) cart.AffectedShops {
		return m.ToggleShop(shopID)
	})
}

// ToggleAll selects the whole cart unless it is fully selected, then clears it.
func (s *Storefront) ToggleAll(ctx context.Context) (cart.AffectedShops, error) {
	return s.changeSelection(ctx, func(m *cart.Model) cart.AffectedShops {
		return m.ToggleAll()
	})
}

// SetItemSelected sets one item's selection.
func (s *Storefront) SetItemSelected(ctx context.Context, id cart.ItemID, selected bool) (cart.AffectedShops, error) {
	return s.changeSelection(ctx, func(m *cart.Model) cart.AffectedShops {
		return m.SetItemSelected(id, selected)
	})
}

// SetShopSelected sets the selection of every item in a shop.
func (s *Storefront) SetShopSelected(ctx context.Context, shopID cart.ShopID, selected bool) (cart.AffectedShops, error) {
	return s.changeSelection(ctx, func(m *cart.Model) cart.AffectedShops {
		return m.SetShopSelected(shopID, selected)
	})
}

// SetAllSelected sets the selection of every item in the cart.
func (s *Storefront) SetAllSelected(ctx context.Context, selected bool) (cart.AffectedShops, error) {
	return s.changeSelection(ctx, func(m *cart.Model) cart.AffectedShops {
		return m.SetAllSelected(selected)
	})
}

// RemoveItems deletes items from the origin store and the cart. Shops that
// lose a selected item are repriced and emptied shops lose their fee.
func (s *Storefront) RemoveItems(ctx context.Context, ids []cart.ItemID) (cart.RemovedShops, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(ids) == 0 {
		return nil, nil
	}
	if s.store != nil {
		raw := make([]string, 0, len(ids))
		for _, id := range ids {
			raw = append(raw, string(id))
		}
		if err := s.store.DeleteItems(ctx, s.buyerID, raw); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart items")
		}
	}

	affected := s.model.SelectionAffectedBy(ids)
	removed := s.model.RemoveItems(ids)
	affected.Add(removed...)
	s.fees.Reconcile(ctx, affected, s.model)
	return removed, nil
}

// UpdateQuantity changes an item's quantity and reprices its shop when the item is selected.
func (s *Storefront) UpdateQuantity(ctx context.Context, id cart.ItemID, qty int) (cart.AffectedShops, error) {
	if qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.model.Item(id); !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	if s.store != nil {
		if err := s.store.UpdateQuantity(ctx, s.buyerID, string(id), qty); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item quantity")
		}
	}

	affected := s.model.SetQuantity(id, qty)
	s.fees.Reconcile(ctx, affected, s.model)
	return affected, nil
}

// ChangeAddress stores the delivery address and reprices every selected shop
// when its identity changed. A nil address clears all fees.
func (s *Storefront) ChangeAddress(ctx context.Context, addr *types.Address) (bool, error) {
	if addr != nil && !addr.HasLocation() {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "address location is incomplete")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store != nil {
		if err := s.store.SaveAddress(ctx, s.buyerID, addr); err != nil {
			return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save delivery address")
		}
	}
	return s.fees.OnAddressChanged(ctx, addr, s.model), nil
}

// Wait blocks until in-flight fee requests settle.
func (s *Storefront) Wait() {
	s.fees.Wait()
}

// Close stops the session's fee requests.
func (s *Storefront) Close() {
	s.fees.Close()
}

func (s *Storefront) changeSelection(ctx context.Context, mutate func(*cart.Model) cart.AffectedShops) (cart.AffectedShops, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	affected := mutate(s.model)
	if affected.Len() == 0 {
		return affected, nil
	}
	s.fees.Reconcile(ctx, affected, s.model)

	if s.store == nil {
		return affected, nil
	}
	selected := s.model.SelectedItemIDs()
	raw := make([]string, 0, len(selected))
	for _, id := range selected {
		raw = append(raw, string(id))
	}
	if err := s.store.ReplaceSelection(ctx, s.buyerID, raw); err != nil {
		s.logg.Error(s.logg.WithBuyerID(ctx, s.buyerID), "failed to persist cart selection", err)
		return affected, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist cart selection")
	}
	return affected, nil
}

func selectedLineSets(m *cart.Model) map[cart.ShopID][]cart.Line {
	out := make(map[cart.ShopID][]cart.Line)
	for _, shopID := range m.ShopsWithSelection() {
		out[shopID] = m.SelectedLines(shopID)
	}
	return out
}
