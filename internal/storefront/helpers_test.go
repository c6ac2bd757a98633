package storefront

import (
	"context"
	"sync"
	"testing"

	"github.com/angelmondragon/packfinderz-storefront/internal/cart"
	"github.com/angelmondragon/packfinderz-storefront/internal/fees"
	"github.com/angelmondragon/packfinderz-storefront/pkg/db/models"
	pkgerrors "github.com/angelmondragon/packfinderz-storefront/pkg/errors"
	"github.com/angelmondragon/packfinderz-storefront/pkg/shipping"
	"github.com/angelmondragon/packfinderz-storefront/pkg/types"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// pricingProvider prices a shop as the sum of quantity times a per-item weight.
type pricingProvider struct {
	mu          sync.Mutex
	calls       int
	checkouts   int
	unsupported map[string]bool
	gate        chan struct{}
}

func (p *pricingProvider) FetchFee(ctx context.Context, req shipping.ItemsRequest) (shipping.Quote, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	return p.price(ctx, map[string][]shipping.Line{req.Lines[0].ShopID: req.Lines})
}

func (p *pricingProvider) FetchCheckoutFee(ctx context.Context, req shipping.CheckoutRequest) (shipping.Quote, error) {
	p.mu.Lock()
	p.calls++
	p.checkouts++
	p.mu.Unlock()
	return p.price(ctx, req.Shops)
}

func (p *pricingProvider) price(ctx context.Context, shops map[string][]shipping.Line) (shipping.Quote, error) {
	if p.gate != nil {
		select {
		case <-p.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	quote := shipping.Quote{}
	for shopID, lines := range shops {
		if p.unsupported[shopID] {
			return nil, pkgerrors.New(pkgerrors.CodeUnsupportedAddress, "no coverage")
		}
		quote[shopID] = shipping.Fee{Amount: expectedFee(lines), Currency: "VND"}
	}
	return quote, nil
}

func (p *pricingProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func expectedFee(lines []shipping.Line) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		weight := int64(1000)
		if len(line.ItemID) > 1 {
			weight += int64(line.ItemID[len(line.ItemID)-1]-'0') * 100
		}
		total = total.Add(decimal.NewFromInt(weight * int64(line.Quantity)))
	}
	return total
}

func expectedFeeFor(m *cart.Model, shopID cart.ShopID) decimal.Decimal {
	var lines []shipping.Line
	for _, line := range m.SelectedLines(shopID) {
		lines = append(lines, shipping.Line{ItemID: string(line.ItemID), ShopID: string(line.ShopID), Quantity: line.Quantity})
	}
	return expectedFee(lines)
}

type memoryRepo struct {
	mu        sync.Mutex
	items     []models.CartItem
	session   *models.CartSession
	selected  []string
	deleted   []string
	addresses []*types.Address
	failWith  error
}

func (m *memoryRepo) WithTx(*gorm.DB) cart.CartRepository { return m }

func (m *memoryRepo) ListItems(context.Context, string) ([]models.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.CartItem(nil), m.items...), nil
}

func (m *memoryRepo) DeleteItems(_ context.Context, _ string, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	m.deleted = append(m.deleted, ids...)
	return nil
}

func (m *memoryRepo) UpdateQuantity(context.Context, string, string, int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failWith
}

func (m *memoryRepo) ReplaceSelection(_ context.Context, _ string, selected []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	m.selected = append([]string(nil), selected...)
	return nil
}

func (m *memoryRepo) FindSession(context.Context, string) (*models.CartSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil, gorm.ErrRecordNotFound
	}
	session := *m.session
	return &session, nil
}

func (m *memoryRepo) SaveAddress(_ context.Context, _ string, addr *types.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	m.addresses = append(m.addresses, addr)
	return nil
}

func homeAddress() *types.Address {
	return &types.Address{
		ID:        "home",
		Recipient: "Lan",
		Phone:     "0900000000",
		Line1:     "12 Ly Thuong Kiet",
		Ward:      "Ward 1",
		District:  "District 1",
		Province:  "Ho Chi Minh",
	}
}

func scenarioItems() []cart.ItemInput {
	return []cart.ItemInput{
		{ID: "i1", ShopID: "A", Quantity: 2, UnitPrice: decimal.NewFromInt(100000)},
		{ID: "i2", ShopID: "A", Quantity: 1, UnitPrice: decimal.NewFromInt(50000)},
		{ID: "i3", ShopID: "B", Quantity: 1, UnitPrice: decimal.NewFromInt(70000)},
	}
}

func newTestStorefront(t *testing.T, provider shipping.Provider, repo cart.CartRepository) *Storefront {
	t.Helper()
	synchronizer, err := fees.New(fees.Options{Provider: provider})
	if err != nil {
		t.Fatalf("new synchronizer: %v", err)
	}
	sf := New("buyer-1", synchronizer, repo, nil)
	t.Cleanup(sf.Close)
	return sf
}
