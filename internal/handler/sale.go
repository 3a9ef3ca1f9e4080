package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"
)

func (h *Handler) createSale(w http.ResponseWriter, r *http.Request) {
	body, ok := h.readBody(w, r)
	if !ok {
		return
	}
	draft, res := h.checker.DecodeDraft(body)
	if !res.OK() {
		h.writeValidation(w, r, res)
		return
	}

	s, err := h.sales.Create(r.Context(), draft)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/sales/"+formatID(s.ID))
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeSale(e, s) })
}

func (h *Handler) listSales(w http.ResponseWriter, r *http.Request) {
	f, res := h.checker.DecodeFilter(r.URL.Query())
	if !res.OK() {
		h.writeValidation(w, r, res)
		return
	}

	list, err := h.sales.List(r.Context(), f)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeList(e, list) })
}

func (h *Handler) getSale(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	s, err := h.sales.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeSale(e, s) })
}

func (h *Handler) updateSale(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	body, ok := h.readBody(w, r)
	if !ok {
		return
	}
	patch, res := h.checker.DecodePatch(body)
	if !res.OK() {
		h.writeValidation(w, r, res)
		return
	}

	s, err := h.sales.Update(r.Context(), id, patch)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeSale(e, s) })
}

func (h *Handler) deleteSale(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.sales.Delete(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
