package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ariefcatur/go-takeout/internal/catalog"
	"github.com/go-chi/chi/v5"
)

// SetmealReader is satisfied by *catalog.Service.
type SetmealReader interface {
	GetSetmeal(ctx context.Context, id int64) (catalog.SetmealView, error)
}

// MenuHandler serves the customer menu through the catalog cache. The
// listing status defaults to on sale.
type MenuHandler struct {
	Cache    *catalog.Cache
	Setmeals SetmealReader
	Log      *slog.Logger
}

func (h *MenuHandler) Register(r chi.Router) {
	r.Get("/dish/list", h.dishes)
	r.Get("/setmeal/list", h.setmeals)
	r.Get("/setmeal/dish/{id}", h.setmealDishes)
}

func (h *MenuHandler) dishes(w http.ResponseWriter, r *http.Request) {
	categoryID, status, ok := listQuery(w, r)
	if !ok {
		return
	}
	ctx, cancel := withTimeout(r, readTimeout)
	defer cancel()

	out, err := h.Cache.AvailableDishes(ctx, categoryID, status)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *MenuHandler) setmeals(w http.ResponseWriter, r *http.Request) {
	categoryID, status, ok := listQuery(w, r)
	if !ok {
		return
	}
	ctx, cancel := withTimeout(r, readTimeout)
	defer cancel()

	out, err := h.Cache.AvailableSetmeals(ctx, categoryID, status)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// setmealDishes lists the components of one setmeal.
func (h *MenuHandler) setmealDishes(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	ctx, cancel := withTimeout(r, readTimeout)
	defer cancel()

	v, err := h.Setmeals.GetSetmeal(ctx, id)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, v.Dishes)
}

// listQuery reads categoryId and status (default on sale).
func listQuery(w http.ResponseWriter, r *http.Request) (int64, catalog.Status, bool) {
	categoryID := queryInt64(r, "categoryId")
	if categoryID <= 0 {
		badRequest(w, "invalid categoryId")
		return 0, 0, false
	}
	status := catalog.StatusOnSale
	if raw := r.URL.Query().Get("status"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || !catalog.Status(n).Valid() {
			badRequest(w, "invalid status")
			return 0, 0, false
		}
		status = catalog.Status(n)
	}
	return categoryID, status, true
}
