package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/packfinderz-storefront/api/controllers"
	cartcontrollers "github.com/angelmondragon/packfinderz-storefront/api/controllers/cart"
	"github.com/angelmondragon/packfinderz-storefront/api/middleware"
	"github.com/angelmondragon/packfinderz-storefront/pkg/config"
	"github.com/angelmondragon/packfinderz-storefront/pkg/logger"
)

// NewRouter wires the storefront HTTP surface. metricsHandler may be nil to omit /metrics.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisP controllers.Pinger,
	sessions cartcontrollers.Sessions,
	metricsHandler http.Handler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Get("/", cartcontrollers.CartFetch(sessions, logg))
		r.Get("/fees", cartcontrollers.CartFees(sessions, logg))
		r.Get("/notifications", cartcontrollers.Notifications(sessions, logg))
		r.Post("/toggle-all", cartcontrollers.ToggleAll(sessions, logg))
		r.Put("/address", cartcontrollers.ChangeAddress(sessions, logg))
		r.Delete("/items", cartcontrollers.RemoveItems(sessions, logg))
		r.Patch("/items/{itemId}", cartcontrollers.UpdateQuantity(sessions, logg))
		r.Post("/items/{itemId}/toggle", cartcontrollers.ToggleItem(sessions, logg))
		r.Post("/shops/{shopId}/toggle", cartcontrollers.ToggleShop(sessions, logg))
	})

	return r
}
