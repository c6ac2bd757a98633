package shipping

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/packfinderz-storefront/pkg/logger"
	"github.com/angelmondragon/packfinderz-storefront/pkg/redis"
	"github.com/angelmondragon/packfinderz-storefront/pkg/types"
)

type quoteCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	FeeQuoteKey(digest string) string
}

// CachedProvider memoizes successful quotes for an exact address and item set.
type CachedProvider struct {
	next   Provider
	cache  quoteCache
	ttl    time.Duration
	logger *logger.Logger
}

// NewCachedProvider wraps next with a quote cache. A nil cache disables caching.
func NewCachedProvider(next Provider, cache quoteCache, ttl time.Duration, logg *logger.Logger) *CachedProvider {
	return &CachedProvider{next: next, cache: cache, ttl: ttl, logger: logg}
}

// FetchFee returns a cached quote or calls through to the wrapped provider.
func (p *CachedProvider) FetchFee(ctx context.Context, req ItemsRequest) (Quote, error) {
	return p.fetch(ctx, func() string {
		return quoteDigest("items", req.Address, map[string][]Line{"": req.Lines})
	}, func() (Quote, error) {
		return p.next.FetchFee(ctx, req)
	})
}

// FetchCheckoutFee returns a cached quote or calls through to the wrapped provider.
func (p *CachedProvider) FetchCheckoutFee(ctx context.Context, req CheckoutRequest) (Quote, error) {
	return p.fetch(ctx, func() string {
		return quoteDigest("checkout", req.Address, req.Shops)
	}, func() (Quote, error) {
		return p.next.FetchCheckoutFee(ctx, req)
	})
}

func (p *CachedProvider) fetch(ctx context.Context, digest func() string, call func() (Quote, error)) (Quote, error) {
	if p.cache == nil || p.ttl <= 0 {
		return call()
	}
	key := p.cache.FeeQuoteKey(digest())

	raw, err := p.cache.Get(ctx, key)
	switch {
	case err == nil:
		var quote Quote
		if decodeErr := json.Unmarshal([]byte(raw), &quote); decodeErr == nil {
			return quote, nil
		}
		p.logger.Warn(ctx, "discarding undecodable cached quote")
	case !errors.Is(err, redis.ErrMiss):
		p.logger.Warn(p.logger.WithField(ctx, "cache_key", key), "quote cache read failed")
	}

	quote, err := call()
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(quote)
	if err == nil {
		if setErr := p.cache.Set(ctx, key, string(payload), p.ttl); setErr != nil {
			p.logger.Warn(p.logger.WithField(ctx, "cache_key", key), "quote cache write failed")
		}
	}
	return quote, nil
}

// quoteDigest hashes the address key and the order-independent item set.
func quoteDigest(kind string, addr types.Address, shops map[string][]Line) string {
	shopIDs := make([]string, 0, len(shops))
	for shopID := range shops {
		shopIDs = append(shopIDs, shopID)
	}
	sort.Strings(shopIDs)

	var b strings.Builder
	b.WriteString(kind)
	b.WriteString("\n")
	b.WriteString(addr.Key())
	for _, shopID := range shopIDs {
		lines := append([]Line(nil), shops[shopID]...)
		sort.Slice(lines, func(i, j int) bool { return lines[i].ItemID < lines[j].ItemID })
		b.WriteString("\n#")
		b.WriteString(shopID)
		for _, line := range lines {
			b.WriteString("\n")
			b.WriteString(line.ShopID)
			b.WriteString("/")
			b.WriteString(line.ItemID)
			b.WriteString("x")
			b.WriteString(strconv.Itoa(line.Quantity))
		}
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
