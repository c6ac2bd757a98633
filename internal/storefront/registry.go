package storefront

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/angelmondragon/packfinderz-storefront/internal/cart"
	"github.com/angelmondragon/packfinderz-storefront/internal/fees"
	"github.com/angelmondragon/packfinderz-storefront/internal/notifications"
	pkgerrors "github.com/angelmondragon/packfinderz-storefront/pkg/errors"
	"github.com/angelmondragon/packfinderz-storefront/pkg/logger"
	"github.com/angelmondragon/packfinderz-storefront/pkg/metrics"
	"github.com/angelmondragon/packfinderz-storefront/pkg/shipping"
	"github.com/angelmondragon/packfinderz-storefront/pkg/types"
	"gorm.io/gorm"
)

// RegistryOptions wires the shared collaborators of every session.
type RegistryOptions struct {
	Repository cart.CartRepository
	Provider   shipping.Provider
	Inbox      *notifications.Inbox
	Logger     *logger.Logger
	Metrics    *metrics.FeeMetrics
}

// Registry owns one Storefront per buyer, loading each lazily from the origin store.
type Registry struct {
	repo     cart.CartRepository
	provider shipping.Provider
	inbox    *notifications.Inbox
	logg     *logger.Logger
	metrics  *metrics.FeeMetrics

	mu       sync.Mutex
	sessions map[string]*Storefront
}

// NewRegistry validates dependencies and returns an empty registry.
func NewRegistry(opts RegistryOptions) (*Registry, error) {
	if opts.Repository == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "cart repository required")
	}
	if opts.Provider == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "shipping provider required")
	}
	inbox := opts.Inbox
	if inbox == nil {
		inbox = notifications.NewInbox(0)
	}
	return &Registry{
		repo:     opts.Repository,
		provider: opts.Provider,
		inbox:    inbox,
		logg:     opts.Logger,
		metrics:  opts.Metrics,
		sessions: make(map[string]*Storefront),
	}, nil
}

// Get returns the buyer's session, loading it on first use.
func (r *Registry) Get(ctx context.Context, buyerID string) (*Storefront, error) {
	buyerID = strings.TrimSpace(buyerID)
	if buyerID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}

	r.mu.Lock()
	if sf, ok := r.sessions[buyerID]; ok {
		r.mu.Unlock()
		return sf, nil
	}
	r.mu.Unlock()

	sf, err := r.open(ctx, buyerID)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.sessions[buyerID]; ok {
		sf.Close()
		return existing, nil
	}
	r.sessions[buyerID] = sf
	return sf, nil
}

// Refresh reloads the buyer's cart from the origin store into the live session.
func (r *Registry) Refresh(ctx context.Context, buyerID string) (*Storefront, error) {
	sf, err := r.Get(ctx, buyerID)
	if err != nil {
		return nil, err
	}
	items, addr, err := r.fetch(ctx, sf.BuyerID())
	if err != nil {
		return nil, err
	}
	sf.Load(ctx, items, addr)
	return sf, nil
}

// Notifications drains the buyer's pending notifications.
func (r *Registry) Notifications(buyerID string) []notifications.Notification {
	return r.inbox.Drain(strings.TrimSpace(buyerID))
}

// Drop closes and forgets the buyer's session.
func (r *Registry) Drop(buyerID string) {
	r.mu.Lock()
	sf, ok := r.sessions[buyerID]
	delete(r.sessions, buyerID)
	r.mu.Unlock()

	if ok {
		sf.Close()
	}
}

// Close stops every session.
func (r *Registry) Close() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Storefront)
	r.mu.Unlock()

	for _, sf := range sessions {
		sf.Close()
	}
}

func (r *Registry) open(ctx context.Context, buyerID string) (*Storefront, error) {
	items, addr, err := r.fetch(ctx, buyerID)
	if err != nil {
		return nil, err
	}

	synchronizer, err := fees.New(fees.Options{
		Provider: r.provider,
		Notifier: notifications.Fanout{r.inbox.For(buyerID), notifications.NewLogNotifier(r.logg)},
		Logger:   r.logg,
		Metrics:  r.metrics,
	})
	if err != nil {
		return nil, err
	}

	sf := New(buyerID, synchronizer, r.repo, r.logg)
	sf.Load(r.logg.WithBuyerID(ctx, buyerID), items, addr)
	r.logg.Info(r.logg.WithFields(ctx, map[string]any{
		"buyer_id":   buyerID,
		"item_count": len(items),
	}), "cart session opened")
	return sf, nil
}

func (r *Registry) fetch(ctx context.Context, buyerID string) ([]cart.ItemInput, *types.Address, error) {
	rows, err := r.repo.ListItems(ctx, buyerID)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cart items")
	}

	var addr *types.Address
	session, err := r.repo.FindSession(ctx, buyerID)
	switch {
	case err == nil:
		addr = session.ShippingAddress
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart session")
	}
	return cart.ItemInputs(rows), addr, nil
}
