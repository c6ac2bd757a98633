package fees

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/packfinderz-storefront/internal/cart"
	pkgerrors "github.com/angelmondragon/packfinderz-storefront/pkg/errors"
	"github.com/angelmondragon/packfinderz-storefront/pkg/shipping"
	"github.com/angelmondragon/packfinderz-storefront/pkg/types"
	"github.com/shopspring/decimal"
)

const testTimeout = 2 * time.Second

type reply struct {
	quote shipping.Quote
	err   error
}

type providerCall struct {
	shopID   string
	checkout bool
	address  types.Address
	lines    []shipping.Line
	release  chan reply
}

func (c *providerCall) respond(amount int64) {
	c.release <- reply{quote: shipping.Quote{c.shopID: {Amount: decimal.NewFromInt(amount), Currency: "VND"}}}
}

func (c *providerCall) respondEmpty() {
	c.release <- reply{quote: shipping.Quote{}}
}

func (c *providerCall) reject() {
	c.release <- reply{err: pkgerrors.New(pkgerrors.CodeUnsupportedAddress, "no coverage")}
}

func (c *providerCall) fail() {
	c.release <- reply{err: pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("connection reset"), "execute fee request")}
}

func (c *providerCall) itemIDs() []string {
	ids := make([]string, 0, len(c.lines))
	for _, line := range c.lines {
		ids = append(ids, line.ItemID)
	}
	return ids
}

// fakeProvider blocks every call until the test releases it.
type fakeProvider struct {
	mu    sync.Mutex
	calls []*providerCall
	seen  chan *providerCall
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{seen: make(chan *providerCall, 64)}
}

func (f *fakeProvider) FetchFee(ctx context.Context, req shipping.ItemsRequest) (shipping.Quote, error) {
	shopID := ""
	if len(req.Lines) > 0 {
		shopID = req.Lines[0].ShopID
	}
	return f.block(ctx, &providerCall{shopID: shopID, address: req.Address, lines: req.Lines})
}

func (f *fakeProvider) FetchCheckoutFee(ctx context.Context, req shipping.CheckoutRequest) (shipping.Quote, error) {
	call := &providerCall{checkout: true, address: req.Address}
	for shopID, lines := range req.Shops {
		call.shopID = shopID
		call.lines = lines
	}
	return f.block(ctx, call)
}

func (f *fakeProvider) block(ctx context.Context, call *providerCall) (shipping.Quote, error) {
	call.release = make(chan reply, 1)
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
	f.seen <- call

	select {
	case r := <-call.release:
		return r.quote, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeProvider) next(t *testing.T) *providerCall {
	t.Helper()
	select {
	case call := <-f.seen:
		return call
	case <-time.After(testTimeout):
		t.Fatalf("timed out waiting for fee request")
		return nil
	}
}

func (f *fakeProvider) expectNoCall(t *testing.T) {
	t.Helper()
	select {
	case call := <-f.seen:
		t.Fatalf("unexpected fee request for shop %s", call.shopID)
	case <-time.After(50 * time.Millisecond):
	}
}

type recordingNotifier struct {
	mu       sync.Mutex
	titles   []string
	messages []string
}

func (r *recordingNotifier) NotifyError(_ context.Context, title, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.titles = append(r.titles, title)
	r.messages = append(r.messages, message)
	return nil
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.titles)
}

type settlement struct {
	shopID  cart.ShopID
	token   uint64
	outcome string
}

type harness struct {
	sync     *Synchronizer
	provider *fakeProvider
	notifier *recordingNotifier
	model    *cart.Model
	settled  chan settlement
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	provider := newFakeProvider()
	notifier := &recordingNotifier{}
	s, err := New(Options{Provider: provider, Notifier: notifier})
	if err != nil {
		t.Fatalf("new synchronizer: %v", err)
	}
	h := &harness{
		sync:     s,
		provider: provider,
		notifier: notifier,
		model:    cart.NewModel(),
		settled:  make(chan settlement, 64),
	}
	s.observe = func(shopID cart.ShopID, token uint64, outcome string) {
		h.settled <- settlement{shopID: shopID, token: token, outcome: outcome}
	}
	t.Cleanup(s.Close)
	return h
}

func (h *harness) waitSettled(t *testing.T) settlement {
	t.Helper()
	select {
	case s := <-h.settled:
		return s
	case <-time.After(testTimeout):
		t.Fatalf("timed out waiting for fee response to settle")
		return settlement{}
	}
}

func (h *harness) setAddress(t *testing.T, addr types.Address) {
	t.Helper()
	h.sync.OnAddressChanged(context.Background(), &addr, h.model)
}

func (h *harness) reconcile(affected cart.AffectedShops) {
	h.sync.Reconcile(context.Background(), affected, h.model)
}

func (h *harness) entry(t *testing.T, shopID cart.ShopID) (Entry, bool) {
	t.Helper()
	return h.sync.Entry(shopID)
}

func decimalOf(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func homeAddress() types.Address {
	return types.Address{
		ID:        "home",
		Recipient: "Lan",
		Phone:     "0900000000",
		Line1:     "12 Ly Thuong Kiet",
		Ward:      "Ward 1",
		District:  "District 1",
		Province:  "Ho Chi Minh",
	}
}

func officeAddress() types.Address {
	addr := homeAddress()
	addr.ID = "office"
	addr.Line1 = "1 Nguyen Hue"
	return addr
}

// scenarioItems is shop A {i1 qty 2, i2 qty 1} and shop B {i3 qty 1}, nothing selected.
func scenarioItems() []cart.ItemInput {
	return []cart.ItemInput{
		{ID: "i1", ShopID: "A", Quantity: 2, UnitPrice: decimal.NewFromInt(100000)},
		{ID: "i2", ShopID: "A", Quantity: 1, UnitPrice: decimal.NewFromInt(50000)},
		{ID: "i3", ShopID: "B", Quantity: 1, UnitPrice: decimal.NewFromInt(70000)},
	}
}

func addrPtr(addr types.Address) *types.Address { return &addr }
