package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ariefcatur/go-takeout/internal/catalog"
	"github.com/go-chi/chi/v5"
)

// CatalogHandler is the staff catalog management surface.
type CatalogHandler struct {
	Service *catalog.Service
	Log     *slog.Logger
}

type idsReq struct {
	IDs []int64 `json:"ids"`
}

func (h *CatalogHandler) Register(r chi.Router) {
	r.Route("/category", func(r chi.Router) {
		r.Get("/page", h.pageCategories)
		r.Get("/list", h.listCategories)
		r.Post("/", h.createCategory)
		r.Put("/{id}", h.updateCategory)
		r.Delete("/{id}", h.deleteCategory)
	})
	r.Route("/dish", func(r chi.Router) {
		r.Get("/page", h.pageDishes)
		r.Get("/{id}", h.getDish)
		r.Post("/", h.createDish)
		r.Put("/{id}", h.updateDish)
		r.Post("/status/{status}", h.dishStatus)
		r.Delete("/", h.deleteDishes)
	})
	r.Route("/setmeal", func(r chi.Router) {
		r.Get("/page", h.pageSetmeals)
		r.Get("/{id}", h.getSetmeal)
		r.Post("/", h.createSetmeal)
		r.Put("/{id}", h.updateSetmeal)
		r.Post("/status/{status}", h.setmealStatus)
		r.Delete("/", h.deleteSetmeals)
	})
}

// ---- categories ----

func (h *CatalogHandler) pageCategories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r, readTimeout)
	defer cancel()

	page, err := h.Service.PageCategories(ctx, queryInt(r, "page", 1), queryInt(r, "pageSize", 0))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *CatalogHandler) listCategories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r, readTimeout)
	defer cancel()

	out, err := h.Service.ListCategories(ctx, catalog.CategoryType(queryInt(r, "type", 0)))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *CatalogHandler) createCategory(w http.ResponseWriter, r *http.Request) {
	var in catalog.CategoryInput
	if !decode(w, r, &in) {
		return
	}
	ctx, cancel := withTimeout(r, writeTimeout)
	defer cancel()

	id, err := h.Service.CreateCategory(ctx, in)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (h *CatalogHandler) updateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in catalog.CategoryInput
	if !decode(w, r, &in) {
		return
	}
	h.noContent(w, r, func(ctx context.Context) error { return h.Service.UpdateCategory(ctx, id, in) })
}

func (h *CatalogHandler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	h.noContent(w, r, func(ctx context.Context) error { return h.Service.DeleteCategory(ctx, id) })
}

// ---- dishes ----

func (h *CatalogHandler) pageDishes(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r, readTimeout)
	defer cancel()

	page, err := h.Service.PageDishes(ctx, r.URL.Query().Get("name"), queryInt(r, "page", 1), queryInt(r, "pageSize", 0))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *CatalogHandler) getDish(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	ctx, cancel := withTimeout(r, readTimeout)
	defer cancel()

	v, err := h.Service.GetDish(ctx, id)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *CatalogHandler) createDish(w http.ResponseWriter, r *http.Request) {
	var in catalog.DishInput
	if !decode(w, r, &in) {
		return
	}
	ctx, cancel := withTimeout(r, writeTimeout)
	defer cancel()

	id, err := h.Service.CreateDish(ctx, in)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (h *CatalogHandler) updateDish(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in catalog.DishInput
	if !decode(w, r, &in) {
		return
	}
	h.noContent(w, r, func(ctx context.Context) error { return h.Service.UpdateDish(ctx, id, in) })
}

func (h *CatalogHandler) dishStatus(w http.ResponseWriter, r *http.Request) {
	status, req, ok := statusAndIDs(w, r)
	if !ok {
		return
	}
	h.noContent(w, r, func(ctx context.Context) error { return h.Service.SetDishStatus(ctx, status, req.IDs...) })
}

func (h *CatalogHandler) deleteDishes(w http.ResponseWriter, r *http.Request) {
	ids, ok := queryIDs(r)
	if !ok {
		badRequest(w, "invalid ids")
		return
	}
	h.noContent(w, r, func(ctx context.Context) error { return h.Service.DeleteDishes(ctx, ids...) })
}

// ---- setmeals ----

func (h *CatalogHandler) pageSetmeals(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r, readTimeout)
	defer cancel()

	page, err := h.Service.PageSetmeals(ctx, r.URL.Query().Get("name"), queryInt(r, "page", 1), queryInt(r, "pageSize", 0))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *CatalogHandler) getSetmeal(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	ctx, cancel := withTimeout(r, readTimeout)
	defer cancel()

	v, err := h.Service.GetSetmeal(ctx, id)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *CatalogHandler) createSetmeal(w http.ResponseWriter, r *http.Request) {
	var in catalog.SetmealInput
	if !decode(w, r, &in) {
		return
	}
	ctx, cancel := withTimeout(r, writeTimeout)
	defer cancel()

	id, err := h.Service.CreateSetmeal(ctx, in)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (h *CatalogHandler) updateSetmeal(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in catalog.SetmealInput
	if !decode(w, r, &in) {
		return
	}
	h.noContent(w, r, func(ctx context.Context) error { return h.Service.UpdateSetmeal(ctx, id, in) })
}

func (h *CatalogHandler) setmealStatus(w http.ResponseWriter, r *http.Request) {
	status, req, ok := statusAndIDs(w, r)
	if !ok {
		return
	}
	h.noContent(w, r, func(ctx context.Context) error { return h.Service.SetSetmealStatus(ctx, status, req.IDs...) })
}

func (h *CatalogHandler) deleteSetmeals(w http.ResponseWriter, r *http.Request) {
	ids, ok := queryIDs(r)
	if !ok {
		badRequest(w, "invalid ids")
		return
	}
	h.noContent(w, r, func(ctx context.Context) error { return h.Service.DeleteSetmeals(ctx, ids...) })
}

// noContent runs a write and answers 204 on success.
func (h *CatalogHandler) noContent(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context) error) {
	ctx, cancel := withTimeout(r, writeTimeout)
	defer cancel()

	if err := fn(ctx); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	h.Log.Info("catalog changed", "action", "admin_catalog", "employee_id", employeeID(r), "method", r.Method, "path", r.URL.Path)
	w.WriteHeader(http.StatusNoContent)
}

func statusAndIDs(w http.ResponseWriter, r *http.Request) (catalog.Status, idsReq, bool) {
	n, err := strconv.Atoi(chi.URLParam(r, "status"))
	if err != nil {
		badRequest(w, "invalid status")
		return 0, idsReq{}, false
	}
	var req idsReq
	if !decode(w, r, &req) {
		return 0, idsReq{}, false
	}
	return catalog.Status(n), req, true
}
