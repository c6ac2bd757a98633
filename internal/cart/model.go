package cart

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ItemID identifies a cart line item; unique across the whole cart.
type ItemID string

// ShopID identifies the selling shop that owns a group of line items.
type ShopID string

// CartItem is one line of the cart.
type CartItem struct {
	ID        ItemID
	ShopID    ShopID
	ProductID string
	Title     string
	Quantity  int
	UnitPrice decimal.Decimal
	Selected  bool
}

// ItemInput is the raw shape handed to LoadItems. A nil Selected means "not selected".
type ItemInput struct {
	ID        string
	ShopID    string
	ProductID string
	Title     string
	Quantity  int
	UnitPrice decimal.Decimal
	Selected  *bool
}

// Line is the minimal description of a selected item sent to the fee provider.
type Line struct {
	ItemID   ItemID
	ShopID   ShopID
	Quantity int
}

// ShopGroup holds the items of one shop in insertion order.
type ShopGroup struct {
	ShopID ShopID
	Items  []CartItem
}

// SelectedItemIDs returns the ids of the group's selected items.
func (g ShopGroup) SelectedItemIDs() []ItemID {
	ids := make([]ItemID, 0, len(g.Items))
	for _, item := range g.Items {
		if item.Selected {
			ids = append(ids, item.ID)
		}
	}
	return ids
}

// RemovedShops lists shops whose last item was removed.
type RemovedShops []ShopID

// Model is the in-memory cart partitioned by shop. It has no internal locking;
// the owner serializes access.
type Model struct {
	order  []ShopID
	groups map[ShopID]*ShopGroup
	owner  map[ItemID]ShopID
}

// NewModel returns an empty cart.
func NewModel() *Model {
	return &Model{
		groups: map[ShopID]*ShopGroup{},
		owner:  map[ItemID]ShopID{},
	}
}

// LoadItems replaces the whole cart. Items without an id or shop, or with a
// non-positive quantity, are skipped; a repeated id keeps its last occurrence.
func (m *Model) LoadItems(items []ItemInput) {
	m.order = nil
	m.groups = make(map[ShopID]*ShopGroup, len(items))
	m.owner = make(map[ItemID]ShopID, len(items))

	for _, in := range items {
		id := ItemID(strings.TrimSpace(in.ID))
		shopID := ShopID(strings.TrimSpace(in.ShopID))
		if id == "" || shopID == "" || in.Quantity <= 0 {
			continue
		}
		if _, dup := m.owner[id]; dup {
			m.remove(id)
		}
		m.add(CartItem{
			ID:        id,
			ShopID:    shopID,
			ProductID: in.ProductID,
			Title:     in.Title,
			Quantity:  in.Quantity,
			UnitPrice: in.UnitPrice,
			Selected:  in.Selected != nil && *in.Selected,
		})
	}
}

// AllItemIDs returns every item id: shops in first-seen order, items in insertion order.
func (m *Model) AllItemIDs() []ItemID {
	ids := make([]ItemID, 0, len(m.owner))
	for _, shopID := range m.order {
		for _, item := range m.groups[shopID].Items {
			ids = append(ids, item.ID)
		}
	}
	return ids
}

// SelectedItemIDs returns the selected subset of AllItemIDs.
func (m *Model) SelectedItemIDs() []ItemID {
	ids := []ItemID{}
	for _, shopID := range m.order {
		ids = append(ids, m.groups[shopID].SelectedItemIDs()...)
	}
	return ids
}

// ItemsForShop returns a copy of the shop's items, or nil for an unknown shop.
func (m *Model) ItemsForShop(shopID ShopID) []CartItem {
	group, ok := m.groups[shopID]
	if !ok {
		return nil
	}
	out := make([]CartItem, len(group.Items))
	copy(out, group.Items)
	return out
}

// Item returns a copy of the item with the given id.
func (m *Model) Item(id ItemID) (CartItem, bool) {
	group, ok := m.groupOf(id)
	if !ok {
		return CartItem{}, false
	}
	for _, item := range group.Items {
		if item.ID == id {
			return item, true
		}
	}
	return CartItem{}, false
}

// Groups returns copies of every shop group in display order.
func (m *Model) Groups() []ShopGroup {
	out := make([]ShopGroup, 0, len(m.order))
	for _, shopID := range m.order {
		out = append(out, ShopGroup{ShopID: shopID, Items: m.ItemsForShop(shopID)})
	}
	return out
}

// ShopIDs returns every shop with at least one item.
func (m *Model) ShopIDs() []ShopID {
	out := make([]ShopID, len(m.order))
	copy(out, m.order)
	return out
}

// ShopsWithSelection returns the shops that have at least one selected item.
func (m *Model) ShopsWithSelection() []ShopID {
	out := []ShopID{}
	for _, shopID := range m.order {
		if m.hasSelection(shopID) {
			out = append(out, shopID)
		}
	}
	return out
}

// SelectedLines returns the selected items of a shop as fee request lines.
func (m *Model) SelectedLines(shopID ShopID) []Line {
	group, ok := m.groups[shopID]
	if !ok {
		return nil
	}
	var lines []Line
	for _, item := range group.Items {
		if item.Selected {
			lines = append(lines, Line{ItemID: item.ID, ShopID: shopID, Quantity: item.Quantity})
		}
	}
	return lines
}

// Subtotal sums unit price times quantity over the shop's selected items.
func (m *Model) Subtotal(shopID ShopID) decimal.Decimal {
	total := decimal.Zero
	group, ok := m.groups[shopID]
	if !ok {
		return total
	}
	for _, item := range group.Items {
		if item.Selected {
			total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}
	}
	return total
}

// Len returns the number of items in the cart.
func (m *Model) Len() int {
	return len(m.owner)
}

// SelectionAffectedBy returns the shops owning a selected item among ids.
// Removing those items changes the shop's selected set.
func (m *Model) SelectionAffectedBy(ids []ItemID) AffectedShops {
	affected := AffectedShops{}
	for _, id := range ids {
		if item, ok := m.Item(id); ok && item.Selected {
			affected.Add(item.ShopID)
		}
	}
	return affected
}

// RemoveItems deletes the given items, pruning shops that become empty.
// Unknown ids are ignored.
func (m *Model) RemoveItems(ids []ItemID) RemovedShops {
	touched := map[ShopID]struct{}{}
	for _, id := range ids {
		if shopID, ok := m.owner[id]; ok {
			m.remove(id)
			touched[shopID] = struct{}{}
		}
	}

	var removed RemovedShops
	for shopID := range touched {
		if _, still := m.groups[shopID]; !still {
			removed = append(removed, shopID)
		}
	}
	sortShopIDs(removed)
	return removed
}

// SetQuantity changes an item's quantity. The owning shop is affected only when
// the item is selected, since only the selected set is priced.
func (m *Model) SetQuantity(id ItemID, qty int) AffectedShops {
	affected := AffectedShops{}
	if qty <= 0 {
		return affected
	}
	item := m.itemRef(id)
	if item == nil || item.Quantity == qty {
		return affected
	}
	item.Quantity = qty
	if item.Selected {
		affected.Add(item.ShopID)
	}
	return affected
}

func (m *Model) add(item CartItem) {
	group, ok := m.groups[item.ShopID]
	if !ok {
		group = &ShopGroup{ShopID: item.ShopID}
		m.groups[item.ShopID] = group
		m.order = append(m.order, item.ShopID)
	}
	group.Items = append(group.Items, item)
	m.owner[item.ID] = item.ShopID
}

func (m *Model) remove(id ItemID) {
	shopID := m.owner[id]
	delete(m.owner, id)
	group := m.groups[shopID]
	if group == nil {
		return
	}
	for i, item := range group.Items {
		if item.ID == id {
			group.Items = append(group.Items[:i], group.Items[i+1:]...)
			break
		}
	}
	if len(group.Items) > 0 {
		return
	}
	delete(m.groups, shopID)
	for i, candidate := range m.order {
		if candidate == shopID {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

func (m *Model) groupOf(id ItemID) (*ShopGroup, bool) {
	shopID, ok := m.owner[id]
	if !ok {
		return nil, false
	}
	group, ok := m.groups[shopID]
	return group, ok
}

func (m *Model) itemRef(id ItemID) *CartItem {
	group, ok := m.groupOf(id)
	if !ok {
		return nil
	}
	for i := range group.Items {
		if group.Items[i].ID == id {
			return &group.Items[i]
		}
	}
	return nil
}

func (m *Model) hasSelection(shopID ShopID) bool {
	group, ok := m.groups[shopID]
	if !ok {
		return false
	}
	for _, item := range group.Items {
		if item.Selected {
			return true
		}
	}
	return false
}
