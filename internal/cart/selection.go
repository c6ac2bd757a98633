package cart

import "sort"

// AffectedShops is the set of shops whose selected-item set changed and whose
// fee must therefore be reconciled.
type AffectedShops map[ShopID]struct{}

// NewAffectedShops builds a set from the given shops.
func NewAffectedShops(shops ...ShopID) AffectedShops {
	set := AffectedShops{}
	set.Add(shops...)
	return set
}

func (a AffectedShops) Add(shops ...ShopID) {
	for _, shopID := range shops {
		a[shopID] = struct{}{}
	}
}

func (a AffectedShops) Has(shopID ShopID) bool {
	_, ok := a[shopID]
	return ok
}

func (a AffectedShops) Len() int {
	return len(a)
}

// Merge adds every shop of other into a.
func (a AffectedShops) Merge(other AffectedShops) {
	for shopID := range other {
		a[shopID] = struct{}{}
	}
}

// Sorted returns the shops in a deterministic order.
func (a AffectedShops) Sorted() []ShopID {
	out := make([]ShopID, 0, len(a))
	for shopID := range a {
		out = append(out, shopID)
	}
	sortShopIDs(out)
	return out
}

// SelectionState is the tri-state checkbox value of a shop.
type SelectionState string

const (
	SelectionUnchecked     SelectionState = "unchecked"
	SelectionChecked       SelectionState = "checked"
	SelectionIndeterminate SelectionState = "indeterminate"
)

// SetItemSelected sets one item's flag. The owning shop is affected whenever the
// flag actually changes; an unknown id or an unchanged flag affects nothing.
func (m *Model) SetItemSelected(id ItemID, selected bool) AffectedShops {
	affected := AffectedShops{}
	item := m.itemRef(id)
	if item == nil || item.Selected == selected {
		return affected
	}
	item.Selected = selected
	affected.Add(item.ShopID)
	return affected
}

// SetShopSelected applies the flag to every item of one shop.
func (m *Model) SetShopSelected(shopID ShopID, selected bool) AffectedShops {
	affected := AffectedShops{}
	group, ok := m.groups[shopID]
	if !ok {
		return affected
	}
	if applySelection(group, selected) {
		affected.Add(shopID)
	}
	return affected
}

// SetAllSelected applies the flag to every item in the cart. Selecting affects the
// shops that gained a selected item; deselecting affects the shops that had one.
func (m *Model) SetAllSelected(selected bool) AffectedShops {
	affected := AffectedShops{}
	for _, shopID := range m.order {
		if applySelection(m.groups[shopID], selected) {
			affected.Add(shopID)
		}
	}
	return affected
}

// ToggleItem flips one item's flag.
func (m *Model) ToggleItem(id ItemID) AffectedShops {
	item, ok := m.Item(id)
	if !ok {
		return AffectedShops{}
	}
	return m.SetItemSelected(id, !item.Selected)
}

// ToggleShop selects every item of the shop unless all are already selected,
// in which case it deselects them.
func (m *Model) ToggleShop(shopID ShopID) AffectedShops {
	if _, ok := m.groups[shopID]; !ok {
		return AffectedShops{}
	}
	return m.SetShopSelected(shopID, m.ShopSelection(shopID) != SelectionChecked)
}

// ToggleAll selects the whole cart unless it is already fully selected.
func (m *Model) ToggleAll() AffectedShops {
	return m.SetAllSelected(!m.AllSelected())
}

// ShopSelection reports the checkbox state of one shop.
func (m *Model) ShopSelection(shopID ShopID) SelectionState {
	group, ok := m.groups[shopID]
	if !ok {
		return SelectionUnchecked
	}
	selected := 0
	for _, item := range group.Items {
		if item.Selected {
			selected++
		}
	}
	switch {
	case selected == 0:
		return SelectionUnchecked
	case selected == len(group.Items):
		return SelectionChecked
	default:
		return SelectionIndeterminate
	}
}

// AllSelected reports whether the cart is non-empty and every item is selected.
func (m *Model) AllSelected() bool {
	if len(m.owner) == 0 {
		return false
	}
	for _, shopID := range m.order {
		if m.ShopSelection(shopID) != SelectionChecked {
			return false
		}
	}
	return true
}

func applySelection(group *ShopGroup, selected bool) bool {
	changed := false
	for i := range group.Items {
		if group.Items[i].Selected != selected {
			group.Items[i].Selected = selected
			changed = true
		}
	}
	return changed
}

func sortShopIDs(ids []ShopID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
