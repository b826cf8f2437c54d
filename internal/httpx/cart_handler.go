package httpx

import (
	"log/slog"
	"net/http"

	"github.com/ariefcatur/go-takeout/internal/cart"
	"github.com/go-chi/chi/v5"
)

type CartHandler struct {
	Service *cart.Service
	Log     *slog.Logger
}

func (h *CartHandler) Register(r chi.Router) {
	r.Get("/shoppingCart/list", h.list)
	r.Post("/shoppingCart/add", h.add)
	r.Post("/shoppingCart/sub", h.sub)
	r.Delete("/shoppingCart/clean", h.clean)
}

func (h *CartHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r, readTimeout)
	defer cancel()

	lines, err := h.Service.List(ctx, userID(r))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, lines)
}

func (h *CartHandler) add(w http.ResponseWriter, r *http.Request) {
	var req cart.AddRequest
	if !decode(w, r, &req) {
		return
	}
	ctx, cancel := withTimeout(r, writeTimeout)
	defer cancel()

	line, err := h.Service.Add(ctx, userID(r), req)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, line)
}

func (h *CartHandler) sub(w http.ResponseWriter, r *http.Request) {
	var item cart.ItemRef
	if !decode(w, r, &item) {
		return
	}
	ctx, cancel := withTimeout(r, writeTimeout)
	defer cancel()

	line, err := h.Service.Reduce(ctx, userID(r), item)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, line)
}

func (h *CartHandler) clean(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r, writeTimeout)
	defer cancel()

	if err := h.Service.Clear(ctx, userID(r)); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
