package httpx

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/ariefcatur/go-takeout/internal/address"
	"github.com/ariefcatur/go-takeout/internal/cart"
	"github.com/ariefcatur/go-takeout/internal/catalog"
	"github.com/ariefcatur/go-takeout/internal/logx"
	"github.com/ariefcatur/go-takeout/internal/orders"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

// API bundles the services behind the HTTP surface. Customer routes need
// X-User-Id, staff routes under /admin need X-Employee-Id.
type API struct {
	Cart      *cart.Service
	Orders    *orders.Service
	Menu      *catalog.Cache
	Addresses *address.Service
	Catalog   *catalog.Service
	Log       *slog.Logger
}

func (a *API) Register(r chi.Router) {
	log := logx.OrDiscard(a.Log)
	r.Group(func(r chi.Router) {
		r.Use(RequireUser)
		(&CartHandler{Service: a.Cart, Log: log}).Register(r)
		(&OrdersHandler{Service: a.Orders, Log: log}).Register(r)
		menu := &MenuHandler{Cache: a.Menu, Log: log}
		if a.Catalog != nil {
			menu.Setmeals = a.Catalog
		}
		menu.Register(r)
		(&AddressHandler{Service: a.Addresses, Log: log}).Register(r)
	})
	r.Route("/admin", func(r chi.Router) {
		r.Use(RequireEmployee)
		(&CatalogHandler{Service: a.Catalog, Log: log}).Register(r)
		(&OrdersHandler{Service: a.Orders, Log: log}).RegisterAdmin(r)
	})
}
