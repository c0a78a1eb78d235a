package api

import (
	"maps"
	"net/http"
	"slices"

	"github.com/gorilla/mux"

	"github.com/punchamoorthee/sellerdash/internal/domain"
	"github.com/punchamoorthee/sellerdash/internal/session"
)

func (h *Handler) CategoriesHandler(w http.ResponseWriter, r *http.Request, s *session.Session) {
	cats, err := s.Catalog.Categories(r.Context())
	if err != nil {
		h.fail(w, r, s, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"categories": cats})
}

func (h *Handler) ProductsHandler(w http.ResponseWriter, r *http.Request, s *session.Session) {
	products, err := s.Catalog.Products(r.Context(), domain.ID(mux.Vars(r)["id"]))
	if err != nil {
		h.fail(w, r, s, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"products": products})
}

func (h *Handler) VariantsHandler(w http.ResponseWriter, r *http.Request, s *session.Session) {
	variants, err := s.Catalog.Variants(r.Context(), domain.ID(mux.Vars(r)["id"]))
	if err != nil {
		h.fail(w, r, s, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"variants": variants})
}

func (h *Handler) OrdersHandler(w http.ResponseWriter, r *http.Request, s *session.Session) {
	q := r.URL.Query()
	page, err := s.Client.Orders(r.Context(), domain.OrderFilter{
		Status:   q.Get("status"),
		FromDate: q.Get("from_date"),
		ToDate:   q.Get("to_date"),
		Page:     queryInt(r, "page"),
		PerPage:  queryInt(r, "per_page"),
	})
	if err != nil {
		h.fail(w, r, s, err)
		return
	}
	respondWithJSON(w, http.StatusOK, page)
}

func (h *Handler) OrderHandler(w http.ResponseWriter, r *http.Request, s *session.Session) {
	order, err := s.Client.Order(r.Context(), domain.ID(mux.Vars(r)["id"]))
	if err != nil {
		h.fail(w, r, s, err)
		return
	}
	respondWithJSON(w, http.StatusOK, order)
}

func (h *Handler) GetOrderFormHandler(w http.ResponseWriter, r *http.Request, s *session.Session) {
	respondWithJSON(w, http.StatusOK, s.Order.Snapshot())
}

func (h *Handler) ChooseVariantHandler(w http.ResponseWriter, r *http.Request, s *session.Session) {
	var req struct {
		ProductID domain.ID `json:"product_id"`
		VariantID domain.ID `json:"variant_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.Order.Choose(r.Context(), req.ProductID, req.VariantID); err != nil {
		h.fail(w, r, s, err)
		return
	}
	respondWithJSON(w, http.StatusOK, s.Order.Snapshot())
}

func (h *Handler) SetOrderQuantityHandler(w http.ResponseWriter, r *http.Request, s *session.Session) {
	var req struct {
		Quantity int64 `json:"quantity"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.Order.SetQuantity(req.Quantity); err != nil {
		h.fail(w, r, s, err)
		return
	}
	respondWithJSON(w, http.StatusOK, s.Order.Snapshot())
}

// SetOrderFieldsHandler fills delivery fields in key order and stops at the
// first one the variant does not ask for.
func (h *Handler) SetOrderFieldsHandler(w http.ResponseWriter, r *http.Request, s *session.Session) {
	var req struct {
		Fields map[string]string `json:"fields"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	for _, key := range slices.Sorted(maps.Keys(req.Fields)) {
		if err := s.Order.SetField(key, req.Fields[key]); err != nil {
			h.fail(w, r, s, err)
			return
		}
	}
	respondWithJSON(w, http.StatusOK, s.Order.Snapshot())
}

func (h *Handler) SubmitOrderHandler(w http.ResponseWriter, r *http.Request, s *session.Session) {
	receipt, err := s.Order.Submit(r.Context())
	if err != nil {
		h.fail(w, r, s, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{
		"message": receipt.Message,
		"form":    s.Order.Snapshot(),
	})
}

func (h *Handler) CancelOrderHandler(w http.ResponseWriter, r *http.Request, s *session.Session) {
	if err := s.Order.Cancel(); err != nil {
		h.fail(w, r, s, err)
		return
	}
	respondWithJSON(w, http.StatusOK, s.Order.Snapshot())
}
