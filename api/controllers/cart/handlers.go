package cart

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	cartdto "github.com/angelmondragon/packfinderz-storefront/api/controllers/cart/dto"
	"github.com/angelmondragon/packfinderz-storefront/api/middleware"
	"github.com/angelmondragon/packfinderz-storefront/api/responses"
	"github.com/angelmondragon/packfinderz-storefront/api/validators"
	cartmodel "github.com/angelmondragon/packfinderz-storefront/internal/cart"
	"github.com/angelmondragon/packfinderz-storefront/internal/notifications"
	"github.com/angelmondragon/packfinderz-storefront/internal/storefront"
	pkgerrors "github.com/angelmondragon/packfinderz-storefront/pkg/errors"
	"github.com/angelmondragon/packfinderz-storefront/pkg/logger"
)

// Sessions resolves the live cart session of a buyer.
type Sessions interface {
	Get(ctx context.Context, buyerID string) (*storefront.Storefront, error)
	Refresh(ctx context.Context, buyerID string) (*storefront.Storefront, error)
	Notifications(buyerID string) []notifications.Notification
}

// CartFetch renders the whole cart. ?refresh=true reloads it from the origin store first.
func CartFetch(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		refresh, err := validators.ParseQueryBool(r, "refresh", false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var sf *storefront.Storefront
		if refresh {
			sf, err = withRefresh(r, sessions)
		} else {
			sf, err = session(r, sessions)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, sf.View())
	}
}

// CartFees renders the fee snapshot the checkout button polls.
func CartFees(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sf, err := session(r, sessions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sf.FeeSnapshot())
	}
}

// ToggleItem flips, or sets, one item's selection.
func ToggleItem(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := validators.PathParam(chi.URLParam(r, "itemId"), "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		mutateSelection(w, r, sessions, logg, func(ctx context.Context, sf *storefront.Storefront, selected *bool) (cartmodel.AffectedShops, error) {
			if selected != nil {
				return sf.SetItemSelected(ctx, cartmodel.ItemID(itemID), *selected)
			}
			return sf.ToggleItem(ctx, cartmodel.ItemID(itemID))
		})
	}
}

// ToggleShop flips, or sets, the selection of a whole shop.
func ToggleShop(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shopID, err := validators.PathParam(chi.URLParam(r, "shopId"), "shopId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		mutateSelection(w, r, sessions, logg, func(ctx context.Context, sf *storefront.Storefront, selected *bool) (cartmodel.AffectedShops, error) {
			if selected != nil {
				return sf.SetShopSelected(ctx, cartmodel.ShopID(shopID), *selected)
			}
			return sf.ToggleShop(ctx, cartmodel.ShopID(shopID))
		})
	}
}

// ToggleAll flips, or sets, the selection of the whole cart.
func ToggleAll(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mutateSelection(w, r, sessions, logg, func(ctx context.Context, sf *storefront.Storefront, selected *bool) (cartmodel.AffectedShops, error) {
			if selected != nil {
				return sf.SetAllSelected(ctx, *selected)
			}
			return sf.ToggleAll(ctx)
		})
	}
}

// UpdateQuantity changes one line's quantity.
func UpdateQuantity(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := validators.PathParam(chi.URLParam(r, "itemId"), "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload cartdto.UpdateQuantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sf, err := session(r, sessions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		affected, err := sf.UpdateQuantity(r.Context(), cartmodel.ItemID(itemID), payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, selectionChange(sf, affected))
	}
}

// RemoveItems deletes lines from the cart.
func RemoveItems(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload cartdto.RemoveItemsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sf, err := session(r, sessions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ids := make([]cartmodel.ItemID, 0, len(payload.ItemIDs))
		for _, id := range payload.ItemIDs {
			ids = append(ids, cartmodel.ItemID(id))
		}
		removed, err := sf.RemoveItems(r.Context(), ids)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		shops := make([]string, 0, len(removed))
		for _, shopID := range removed {
			shops = append(shops, string(shopID))
		}
		responses.WriteSuccess(w, cartdto.RemoveItemsResult{
			RemovedShops: shops,
			Fees:         sf.FeeSnapshot(),
		})
	}
}

// ChangeAddress switches the delivery address and reprices selected shops.
func ChangeAddress(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload cartdto.ChangeAddressRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sf, err := session(r, sessions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		changed, err := sf.ChangeAddress(r.Context(), payload.Address)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status := http.StatusOK
		if changed && payload.Address != nil {
			status = http.StatusAccepted
		}
		responses.WriteSuccessStatus(w, status, cartdto.AddressChange{
			Changed: changed,
			Fees:    sf.FeeSnapshot(),
		})
	}
}

// Notifications drains the buyer's pending notifications.
func Notifications(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sessions == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart sessions unavailable"))
			return
		}
		buyerID, err := buyerIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cartdto.NotificationList{Items: sessions.Notifications(buyerID)})
	}
}

type selectionMutation func(ctx context.Context, sf *storefront.Storefront, selected *bool) (cartmodel.AffectedShops, error)

func mutateSelection(w http.ResponseWriter, r *http.Request, sessions Sessions, logg *logger.Logger, mutate selectionMutation) {
	var payload cartdto.SelectionRequest
	if r.ContentLength > 0 {
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
	}

	sf, err := session(r, sessions)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	affected, err := mutate(r.Context(), sf, payload.Selected)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	responses.WriteSuccess(w, selectionChange(sf, affected))
}

func selectionChange(sf *storefront.Storefront, affected cartmodel.AffectedShops) cartdto.SelectionChange {
	shops := make([]string, 0, affected.Len())
	for _, shopID := range affected.Sorted() {
		shops = append(shops, string(shopID))
	}
	return cartdto.SelectionChange{
		AffectedShops: shops,
		Selection:     sf.SelectionSnapshot(),
		Fees:          sf.FeeSnapshot(),
	}
}

func session(r *http.Request, sessions Sessions) (*storefront.Storefront, error) {
	if sessions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart sessions unavailable")
	}
	buyerID, err := buyerIDFromContext(r)
	if err != nil {
		return nil, err
	}
	return sessions.Get(r.Context(), buyerID)
}

func withRefresh(r *http.Request, sessions Sessions) (*storefront.Storefront, error) {
	if sessions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart sessions unavailable")
	}
	buyerID, err := buyerIDFromContext(r)
	if err != nil {
		return nil, err
	}
	return sessions.Refresh(r.Context(), buyerID)
}

func buyerIDFromContext(r *http.Request) (string, error) {
	if r == nil {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "buyer context missing")
	}
	buyerID := middleware.BuyerIDFromContext(r.Context())
	if buyerID == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "buyer context missing")
	}
	return buyerID, nil
}
