package httpx

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/ariefcatur/go-takeout/internal/orders"
	"github.com/go-chi/chi/v5"
)

type OrdersHandler struct {
	Service *orders.Service
	Log     *slog.Logger
}

type reorderReq struct {
	OrderID int64 `json:"order_id"`
}

type statusReq struct {
	OrderID int64         `json:"order_id"`
	Status  orders.Status `json:"status"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Post("/order/submit", h.submit)
	r.Get("/order/userPage", h.userPage)
	r.Post("/order/again", h.again)
	r.Get("/order/{id}", h.get)
	r.Get("/order/{id}/status", h.status)
	r.Put("/order/{id}/cancel", h.cancelOrder)
}

func (h *OrdersHandler) RegisterAdmin(r chi.Router) {
	r.Get("/order/page", h.adminPage)
	r.Put("/order/status", h.updateStatus)
}

func (h *OrdersHandler) submit(w http.ResponseWriter, r *http.Request) {
	var req orders.SubmitRequest
	if !decode(w, r, &req) {
		return
	}
	ctx, cancel := withTimeout(r, writeTimeout)
	defer cancel()

	res, err := h.Service.Submit(ctx, userID(r), req)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *OrdersHandler) userPage(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r, readTimeout)
	defer cancel()

	page, err := h.Service.Page(ctx, userID(r), queryInt(r, "page", 1), queryInt(r, "pageSize", 0))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *OrdersHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	ctx, cancel := withTimeout(r, readTimeout)
	defer cancel()

	v, err := h.Service.Get(ctx, userID(r), id)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *OrdersHandler) status(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	ctx, cancel := withTimeout(r, readTimeout)
	defer cancel()

	snap, err := h.Service.Status(ctx, userID(r), id)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"order_id":   snap.OrderID,
		"status":     snap.Status,
		"name":       snap.Status.String(),
		"updated_at": snap.UpdatedAt,
	})
}

func (h *OrdersHandler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	ctx, cancel := withTimeout(r, writeTimeout)
	defer cancel()

	if err := h.Service.Cancel(ctx, userID(r), id); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *OrdersHandler) again(w http.ResponseWriter, r *http.Request) {
	var req reorderReq
	if !decode(w, r, &req) {
		return
	}
	ctx, cancel := withTimeout(r, writeTimeout)
	defer cancel()

	n, err := h.Service.Reorder(ctx, userID(r), req.OrderID)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"lines": n})
}

// adminPage filters by number, status and an order_time window given as
// RFC 3339 from/to.
func (h *OrdersHandler) adminPage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := orders.Filter{Number: q.Get("number"), Status: orders.Status(queryInt(r, "status", 0))}
	for name, dst := range map[string]*time.Time{"from": &f.From, "to": &f.To} {
		if v := q.Get(name); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				badRequest(w, "invalid "+name)
				return
			}
			*dst = t
		}
	}
	ctx, cancel := withTimeout(r, readTimeout)
	defer cancel()

	page, err := h.Service.AdminPage(ctx, f, queryInt(r, "page", 1), queryInt(r, "pageSize", 0))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusReq
	if !decode(w, r, &req) {
		return
	}
	ctx, cancel := withTimeout(r, writeTimeout)
	defer cancel()

	if err := h.Service.UpdateStatus(ctx, req.OrderID, req.Status); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	h.Log.Info("order status set by staff", "action", "admin_order_status", "employee_id", employeeID(r),
		"order_id", req.OrderID, "status", req.Status.String())
	w.WriteHeader(http.StatusNoContent)
}
