package cart

import (
	"reflect"
	"testing"
)

func TestSetItemSelectedReturnsOwningShop(t *testing.T) {
	m := sampleCart()

	affected := m.SetItemSelected("i1", true)
	if !reflect.DeepEqual(affected.Sorted(), []ShopID{"A"}) {
		t.Fatalf("expected {A}, got %v", affected.Sorted())
	}
	if again := m.SetItemSelected("i1", true); again.Len() != 0 {
		t.Fatalf("re-applying the same flag must not affect any shop, got %v", again.Sorted())
	}
}

func TestUnknownIDsAreNoOps(t *testing.T) {
	m := sampleCart()

	if got := m.SetItemSelected("nope", true); got.Len() != 0 {
		t.Fatalf("unknown item should be a no-op")
	}
	if got := m.SetShopSelected("nope", true); got.Len() != 0 {
		t.Fatalf("unknown shop should be a no-op")
	}
	if got := m.ToggleItem("nope"); got.Len() != 0 {
		t.Fatalf("unknown toggle should be a no-op")
	}
	if got := m.ToggleShop("nope"); got.Len() != 0 {
		t.Fatalf("unknown shop toggle should be a no-op")
	}
}

func TestSetShopSelected(t *testing.T) {
	m := sampleCart()

	affected := m.SetShopSelected("A", true)
	if !reflect.DeepEqual(affected.Sorted(), []ShopID{"A"}) {
		t.Fatalf("expected {A}, got %v", affected.Sorted())
	}
	if m.ShopSelection("A") != SelectionChecked {
		t.Fatalf("expected shop A checked")
	}
	if m.ShopSelection("B") != SelectionUnchecked {
		t.Fatalf("expected shop B unchecked")
	}
}

func TestSetAllSelectedReturnsExactDelta(t *testing.T) {
	m := sampleCart()
	m.SetShopSelected("A", true)

	affected := m.SetAllSelected(true)
	if !reflect.DeepEqual(affected.Sorted(), []ShopID{"B"}) {
		t.Fatalf("expected only B to change, got %v", affected.Sorted())
	}
	if !m.AllSelected() {
		t.Fatalf("expected whole cart selected")
	}

	m.SetItemSelected("i3", false)
	affected = m.SetAllSelected(false)
	if !reflect.DeepEqual(affected.Sorted(), []ShopID{"A"}) {
		t.Fatalf("expected only shops with a prior selection, got %v", affected.Sorted())
	}
}

func TestShopSelectionIndeterminate(t *testing.T) {
	m := sampleCart()
	m.SetItemSelected("i2", true)
	if got := m.ShopSelection("A"); got != SelectionIndeterminate {
		t.Fatalf("expected indeterminate, got %s", got)
	}
}

func TestToggleShopAndAll(t *testing.T) {
	m := sampleCart()
	m.SetItemSelected("i1", true)

	if affected := m.ToggleShop("A"); !affected.Has("A") {
		t.Fatalf("toggling a partially selected shop selects the rest")
	}
	if m.ShopSelection("A") != SelectionChecked {
		t.Fatalf("expected shop A fully selected")
	}
	m.ToggleShop("A")
	if m.ShopSelection("A") != SelectionUnchecked {
		t.Fatalf("toggling a fully selected shop clears it")
	}

	affected := m.ToggleAll()
	if !reflect.DeepEqual(affected.Sorted(), []ShopID{"A", "B"}) {
		t.Fatalf("expected both shops, got %v", affected.Sorted())
	}
	affected = m.ToggleAll()
	if !reflect.DeepEqual(affected.Sorted(), []ShopID{"A", "B"}) {
		t.Fatalf("expected both shops cleared, got %v", affected.Sorted())
	}
	if len(m.SelectedItemIDs()) != 0 {
		t.Fatalf("expected nothing selected")
	}
}

func TestAllSelectedEmptyCart(t *testing.T) {
	if NewModel().AllSelected() {
		t.Fatalf("empty cart is never all-selected")
	}
}
