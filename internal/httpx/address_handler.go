package httpx

import (
	"log/slog"
	"net/http"

	"github.com/ariefcatur/go-takeout/internal/address"
	"github.com/go-chi/chi/v5"
)

type AddressHandler struct {
	Service *address.Service
	Log     *slog.Logger
}

type defaultReq struct {
	ID int64 `json:"id"`
}

func (h *AddressHandler) Register(r chi.Router) {
	r.Route("/addressBook", func(r chi.Router) {
		r.Get("/list", h.list)
		r.Post("/", h.create)
		r.Get("/default", h.getDefault)
		r.Put("/default", h.setDefault)
		r.Get("/{id}", h.get)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.delete)
	})
}

func (h *AddressHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r, readTimeout)
	defer cancel()

	out, err := h.Service.List(ctx, userID(r))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *AddressHandler) create(w http.ResponseWriter, r *http.Request) {
	var in address.Input
	if !decode(w, r, &in) {
		return
	}
	ctx, cancel := withTimeout(r, writeTimeout)
	defer cancel()

	id, err := h.Service.Create(ctx, userID(r), in)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (h *AddressHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	ctx, cancel := withTimeout(r, readTimeout)
	defer cancel()

	e, err := h.Service.Get(ctx, userID(r), id)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *AddressHandler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in address.Input
	if !decode(w, r, &in) {
		return
	}
	ctx, cancel := withTimeout(r, writeTimeout)
	defer cancel()

	if err := h.Service.Update(ctx, userID(r), id, in); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AddressHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	ctx, cancel := withTimeout(r, writeTimeout)
	defer cancel()

	if err := h.Service.Delete(ctx, userID(r), id); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AddressHandler) getDefault(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r, readTimeout)
	defer cancel()

	e, err := h.Service.Default(ctx, userID(r))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *AddressHandler) setDefault(w http.ResponseWriter, r *http.Request) {
	var req defaultReq
	if !decode(w, r, &req) {
		return
	}
	ctx, cancel := withTimeout(r, writeTimeout)
	defer cancel()

	if err := h.Service.SetDefault(ctx, userID(r), req.ID); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
