package fees

import (
	"sort"

	"github.com/angelmondragon/packfinderz-storefront/internal/cart"
	"github.com/shopspring/decimal"
)

// State is the lifecycle stage of one shop's shipping fee.
type State int

const (
	Absent State = iota
	Pending
	Ready
	Unsupported
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Ready:
		return "ready"
	case Unsupported:
		return "unsupported"
	default:
		return "absent"
	}
}

// Entry is the fee record of one shop. Amount and Currency are only meaningful when Ready.
type Entry struct {
	ShopID   cart.ShopID
	Amount   decimal.Decimal
	Currency string
	State    State
	Token    uint64
}

// Table holds fee entries keyed by shop together with per-shop request tokens.
// Tokens only ever grow, including across removal of the entry. Not safe for
// concurrent use.
type Table struct {
	entries map[cart.ShopID]*Entry
	tokens  map[cart.ShopID]uint64
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{
		entries: make(map[cart.ShopID]*Entry),
		tokens:  make(map[cart.ShopID]uint64),
	}
}

// Get returns a copy of the shop's entry.
func (t *Table) Get(shopID cart.ShopID) (Entry, bool) {
	entry, ok := t.entries[shopID]
	if !ok {
		return Entry{ShopID: shopID, State: Absent, Token: t.tokens[shopID]}, false
	}
	return *entry, true
}

// Begin issues a fresh token and moves the shop to Pending, dropping any previous amount.
func (t *Table) Begin(shopID cart.ShopID) uint64 {
	token := t.nextToken(shopID)
	t.entries[shopID] = &Entry{ShopID: shopID, State: Pending, Token: token}
	return token
}

// Clear removes the shop's entry and advances its token so in-flight responses no longer match.
func (t *Table) Clear(shopID cart.ShopID) {
	t.nextToken(shopID)
	delete(t.entries, shopID)
}

// Current reports whether token is the latest issued for the shop and the entry still awaits it.
func (t *Table) Current(shopID cart.ShopID, token uint64) bool {
	entry, ok := t.entries[shopID]
	return ok && entry.State == Pending && entry.Token == token && t.tokens[shopID] == token
}

// Resolve records a fee for token. It returns false when the token is stale.
func (t *Table) Resolve(shopID cart.ShopID, token uint64, amount decimal.Decimal, currency string) bool {
	if !t.Current(shopID, token) {
		return false
	}
	entry := t.entries[shopID]
	entry.State = Ready
	entry.Amount = amount
	entry.Currency = currency
	return true
}

// MarkUnsupported records a carrier rejection for token. It returns false when the token is stale.
func (t *Table) MarkUnsupported(shopID cart.ShopID, token uint64) bool {
	if !t.Current(shopID, token) {
		return false
	}
	entry := t.entries[shopID]
	entry.State = Unsupported
	entry.Amount = decimal.Zero
	entry.Currency = ""
	return true
}

// Fail drops the entry after a failed request for token. It returns false when the token is stale.
func (t *Table) Fail(shopID cart.ShopID, token uint64) bool {
	if !t.Current(shopID, token) {
		return false
	}
	delete(t.entries, shopID)
	return true
}

// Entries returns copies of every entry ordered by shop id.
func (t *Table) Entries() []Entry {
	out := make([]Entry, 0, len(t.entries))
	for _, entry := range t.entries {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ShopID < out[j].ShopID })
	return out
}

// Shops returns the ids of shops holding an entry.
func (t *Table) Shops() []cart.ShopID {
	out := make([]cart.ShopID, 0, len(t.entries))
	for shopID := range t.entries {
		out = append(out, shopID)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Len returns the number of entries.
func (t *Table) Len() int {
	return len(t.entries)
}

func (t *Table) nextToken(shopID cart.ShopID) uint64 {
	t.tokens[shopID]++
	return t.tokens[shopID]
}
