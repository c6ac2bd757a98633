package fees

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/angelmondragon/packfinderz-storefront/internal/cart"
	"github.com/angelmondragon/packfinderz-storefront/internal/notifications"
	pkgerrors "github.com/angelmondragon/packfinderz-storefront/pkg/errors"
	"github.com/angelmondragon/packfinderz-storefront/pkg/logger"
	"github.com/angelmondragon/packfinderz-storefront/pkg/metrics"
	"github.com/angelmondragon/packfinderz-storefront/pkg/shipping"
	"github.com/angelmondragon/packfinderz-storefront/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Trigger names what caused a fee request.
type Trigger string

const (
	TriggerSelection Trigger = "selection"
	TriggerAddress   Trigger = "address"
)

const (
	unsupportedTitle = "Shipping unavailable"
	failedTitle      = "Shipping fee unavailable"
)

// SelectionReader exposes the selected items the synchronizer prices.
type SelectionReader interface {
	SelectedLines(shopID cart.ShopID) []cart.Line
	ShopsWithSelection() []cart.ShopID
}

// Result is the outcome of one fee request.
type Result struct {
	Amount   decimal.Decimal
	Currency string
	Err      error
}

// Options wires the synchronizer's collaborators.
type Options struct {
	Provider shipping.Provider
	Notifier notifications.Notifier
	Logger   *logger.Logger
	Metrics  *metrics.FeeMetrics
}

// Synchronizer keeps the fee table in agreement with the cart selection. Each
// reconciled shop gets a fresh token and one asynchronous request; responses
// only land when their token is still the shop's latest.
type Synchronizer struct {
	provider shipping.Provider
	notifier notifications.Notifier
	logg     *logger.Logger
	metrics  *metrics.FeeMetrics

	mu       sync.Mutex
	table    *Table
	address  *types.Address
	notified map[cart.ShopID]string
	closed   bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// observe is called after every response is settled.
	observe func(shopID cart.ShopID, token uint64, outcome string)
}

type request struct {
	shopID  cart.ShopID
	token   uint64
	trigger Trigger
	address types.Address
	lines   []shipping.Line
}

// New builds a synchronizer. The provider is required.
func New(opts Options) (*Synchronizer, error) {
	if opts.Provider == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "shipping provider required")
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Synchronizer{
		provider: opts.Provider,
		notifier: opts.Notifier,
		logg:     opts.Logger,
		metrics:  opts.Metrics,
		table:    NewTable(),
		notified: make(map[cart.ShopID]string),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Reconcile brings the listed shops back in line with the current selection.
// Shops without selected items, or any shop while no address is set, lose
// their entry; every other shop goes Pending with a new request in flight.
func (s *Synchronizer) Reconcile(ctx context.Context, shops cart.AffectedShops, reader SelectionReader) {
	if shops.Len() == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, shopID := range shops.Sorted() {
		s.reconcileLocked(ctx, shopID, reader.SelectedLines(shopID), TriggerSelection)
	}
}

// Entry returns the shop's current fee entry.
func (s *Synchronizer) Entry(shopID cart.ShopID) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.Get(shopID)
}

// Entries returns a copy of the whole table keyed by shop.
func (s *Synchronizer) Entries() map[cart.ShopID]Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[cart.ShopID]Entry, s.table.Len())
	for _, entry := range s.table.Entries() {
		out[entry.ShopID] = entry
	}
	return out
}

// Shops returns the shops currently holding an entry.
func (s *Synchronizer) Shops() []cart.ShopID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.Shops()
}

// Wait blocks until every dispatched request has settled.
func (s *Synchronizer) Wait() {
	s.wg.Wait()
}

// Close cancels in-flight requests and waits for them. Later reconciliations
// clear entries without dispatching.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}

func (s *Synchronizer) reconcileLocked(ctx context.Context, shopID cart.ShopID, lines []cart.Line, trigger Trigger) {
	if len(lines) == 0 || s.address == nil || s.closed {
		if _, ok := s.table.Get(shopID); ok {
			s.logg.Debug(s.logg.WithShopID(ctx, string(shopID)), "clearing shipping fee")
		}
		s.table.Clear(shopID)
		return
	}

	req := request{
		shopID:  shopID,
		token:   s.table.Begin(shopID),
		trigger: trigger,
		address: *s.address,
		lines:   toShippingLines(lines),
	}
	s.dispatchLocked(ctx, req)
}

func (s *Synchronizer) dispatchLocked(ctx context.Context, req request) {
	// Requests outlive the caller; keep its log fields but not its cancellation.
	logCtx := s.logg.WithFields(context.WithoutCancel(ctx), map[string]any{
		"shop_id":    string(req.shopID),
		"token":      req.token,
		"trigger":    string(req.trigger),
		"request_id": uuid.NewString(),
	})
	s.logg.Debug(logCtx, "dispatching shipping fee request")
	s.metrics.IncRequest(string(req.trigger))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		callCtx, cancel := context.WithCancel(logCtx)
		stop := context.AfterFunc(s.ctx, cancel)
		defer stop()
		defer cancel()

		started := time.Now()
		result := s.fetch(callCtx, req)
		s.metrics.ObserveDuration(string(req.trigger), time.Since(started))

		if s.ctx.Err() != nil {
			return
		}
		s.settle(logCtx, req, result)
	}()
}

func (s *Synchronizer) fetch(ctx context.Context, req request) Result {
	var (
		quote shipping.Quote
		err   error
	)
	switch req.trigger {
	case TriggerAddress:
		quote, err = s.provider.FetchCheckoutFee(ctx, shipping.CheckoutRequest{
			Address: req.address,
			Shops:   map[string][]shipping.Line{string(req.shopID): req.lines},
		})
	default:
		quote, err = s.provider.FetchFee(ctx, shipping.ItemsRequest{
			Address: req.address,
			Lines:   req.lines,
		})
	}
	if err != nil {
		return Result{Err: err}
	}

	fee, ok := quote[string(req.shopID)]
	if !ok {
		return Result{Err: pkgerrors.New(pkgerrors.CodeUnsupportedAddress, "shop missing from fee quote")}
	}
	return Result{Amount: fee.Amount, Currency: fee.Currency}
}

type notice struct {
	title   string
	message string
}

func (s *Synchronizer) settle(ctx context.Context, req request, result Result) {
	s.mu.Lock()
	outcome, note := s.applyLocked(ctx, req, result)
	s.mu.Unlock()

	s.metrics.IncResponse(outcome)
	if note != nil && s.notifier != nil {
		if err := s.notifier.NotifyError(ctx, note.title, note.message); err != nil {
			s.logg.Warn(ctx, "failed to deliver shipping notification")
		}
	}
	if s.observe != nil {
		s.observe(req.shopID, req.token, outcome)
	}
}

func (s *Synchronizer) applyLocked(ctx context.Context, req request, result Result) (string, *notice) {
	if !s.table.Current(req.shopID, req.token) {
		s.logg.Debug(ctx, "discarding stale shipping fee response")
		return metrics.OutcomeStale, nil
	}

	switch {
	case result.Err == nil:
		s.table.Resolve(req.shopID, req.token, result.Amount, result.Currency)
		s.logg.Debug(ctx, "shipping fee ready")
		return metrics.OutcomeApplied, nil

	case shipping.IsUnsupported(result.Err):
		s.table.MarkUnsupported(req.shopID, req.token)
		s.logg.Warn(ctx, "carrier does not support shipping address")
		key := req.address.Key()
		if s.notified[req.shopID] == key {
			return metrics.OutcomeUnsupported, nil
		}
		s.notified[req.shopID] = key
		return metrics.OutcomeUnsupported, &notice{
			title:   unsupportedTitle,
			message: "Shop " + string(req.shopID) + " cannot deliver to the selected address.",
		}

	default:
		s.table.Fail(req.shopID, req.token)
		s.logg.Error(ctx, "shipping fee request failed", result.Err)
		return metrics.OutcomeFailed, &notice{
			title:   failedTitle,
			message: "Could not load the shipping fee for shop " + string(req.shopID) + ". Please try again.",
		}
	}
}

func toShippingLines(lines []cart.Line) []shipping.Line {
	out := make([]shipping.Line, 0, len(lines))
	for _, line := range lines {
		out = append(out, shipping.Line{
			ItemID:   string(line.ItemID),
			ShopID:   string(line.ShopID),
			Quantity: line.Quantity,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	return out
}
