package storefront

import (
	"github.com/angelmondragon/packfinderz-storefront/internal/cart"
	"github.com/angelmondragon/packfinderz-storefront/internal/fees"
	"github.com/angelmondragon/packfinderz-storefront/pkg/types"
	"github.com/shopspring/decimal"
)

// SelectionSnapshot is the checkbox state of the cart.
type SelectionSnapshot struct {
	AllSelected bool                                `json:"all_selected"`
	PerShop     map[cart.ShopID]cart.SelectionState `json:"per_shop"`
}

// ShopFee is the presentation view of one shop's shipping fee.
type ShopFee struct {
	Amount      *decimal.Decimal `json:"amount"`
	Currency    string           `json:"currency,omitempty"`
	Loading     bool             `json:"loading"`
	Unsupported bool             `json:"unsupported"`
}

// FeeSnapshot is the presentation view of every shop's fee.
type FeeSnapshot struct {
	PerShop     map[cart.ShopID]ShopFee `json:"per_shop"`
	AnyLoading  bool                    `json:"any_loading"`
	CanCheckout bool                    `json:"can_checkout"`
	Total       decimal.Decimal         `json:"total"`
}

// ItemView is one cart line as rendered.
type ItemView struct {
	ID        cart.ItemID     `json:"id"`
	ProductID string          `json:"product_id"`
	Title     string          `json:"title"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Selected  bool            `json:"selected"`
}

// ShopView is one shop group as rendered.
type ShopView struct {
	ShopID    cart.ShopID         `json:"shop_id"`
	Selection cart.SelectionState `json:"selection"`
	Items     []ItemView          `json:"items"`
	Subtotal  decimal.Decimal     `json:"subtotal"`
	Fee       ShopFee             `json:"fee"`
}

// CartView is the full cart page state taken under one lock.
type CartView struct {
	BuyerID   string            `json:"buyer_id"`
	Shops     []ShopView        `json:"shops"`
	Selection SelectionSnapshot `json:"selection"`
	Fees      FeeSnapshot       `json:"fees"`
	Address   *types.Address    `json:"address"`
}

// SelectionSnapshot returns the current checkbox state.
func (s *Storefront) SelectionSnapshot() SelectionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectionLocked()
}

// FeeSnapshot returns the current fee state.
func (s *Storefront) FeeSnapshot() FeeSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.feesLocked(s.fees.Entries())
}

// View returns the cart, selection and fees in one consistent snapshot.
func (s *Storefront) View() CartView {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.fees.Entries()
	feeSnap := s.feesLocked(entries)
	groups := s.model.Groups()
	shops := make([]ShopView, 0, len(groups))
	for _, group := range groups {
		items := make([]ItemView, 0, len(group.Items))
		for _, item := range group.Items {
			items = append(items, ItemView{
				ID:        item.ID,
				ProductID: item.ProductID,
				Title:     item.Title,
				Quantity:  item.Quantity,
				UnitPrice: item.UnitPrice,
				Selected:  item.Selected,
			})
		}
		shops = append(shops, ShopView{
			ShopID:    group.ShopID,
			Selection: s.model.ShopSelection(group.ShopID),
			Items:     items,
			Subtotal:  s.model.Subtotal(group.ShopID),
			Fee:       feeSnap.PerShop[group.ShopID],
		})
	}

	return CartView{
		BuyerID:   s.buyerID,
		Shops:     shops,
		Selection: s.selectionLocked(),
		Fees:      feeSnap,
		Address:   s.fees.Address(),
	}
}

func (s *Storefront) selectionLocked() SelectionSnapshot {
	shopIDs := s.model.ShopIDs()
	perShop := make(map[cart.ShopID]cart.SelectionState, len(shopIDs))
	for _, shopID := range shopIDs {
		perShop[shopID] = s.model.ShopSelection(shopID)
	}
	return SelectionSnapshot{
		AllSelected: s.model.AllSelected(),
		PerShop:     perShop,
	}
}

// feesLocked derives the fee view. Checkout needs an address, at least one
// selected item and a Ready fee for every shop with a selection.
func (s *Storefront) feesLocked(entries map[cart.ShopID]fees.Entry) FeeSnapshot {
	shopIDs := s.model.ShopIDs()
	snap := FeeSnapshot{
		PerShop: make(map[cart.ShopID]ShopFee, len(shopIDs)),
		Total:   decimal.Zero,
	}
	for _, shopID := range shopIDs {
		snap.PerShop[shopID] = shopFee(entries[shopID])
	}
	for _, entry := range entries {
		if entry.State == fees.Pending {
			snap.AnyLoading = true
		}
	}

	selected := s.model.ShopsWithSelection()
	snap.CanCheckout = s.fees.Address() != nil && len(selected) > 0
	for _, shopID := range selected {
		snap.Total = snap.Total.Add(s.model.Subtotal(shopID))
		entry, ok := entries[shopID]
		if !ok || entry.State != fees.Ready {
			snap.CanCheckout = false
			continue
		}
		snap.Total = snap.Total.Add(entry.Amount)
	}
	return snap
}

func shopFee(entry fees.Entry) ShopFee {
	fee := ShopFee{
		Loading:     entry.State == fees.Pending,
		Unsupported: entry.State == fees.Unsupported,
	}
	if entry.State == fees.Ready {
		amount := entry.Amount
		fee.Amount = &amount
		fee.Currency = entry.Currency
	}
	return fee
}
