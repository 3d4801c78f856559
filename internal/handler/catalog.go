package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"stylehub/internal/model"
)

type productsResponse struct {
	Products []model.CatalogItem `json:"products"`
	Count    int                 `json:"count"`
}

type categoriesResponse struct {
	Categories []string `json:"categories"`
}

// handleListProducts loads a product listing into the session's Products view.
// GET /products?category=Men&limit=8
func (h *Handler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}

	q := model.ProductQuery{Category: r.URL.Query().Get("category")}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			h.writeError(w, model.NewValidationError("limit", "must be a non-negative integer"))
			return
		}
		q.Limit = limit
	}

	products, err := s.BrowseProducts(r.Context(), q)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if products == nil {
		products = []model.CatalogItem{}
	}

	h.writeJSON(w, http.StatusOK, productsResponse{Products: products, Count: len(products)})
}

// handleGetProduct loads one product into the session's Product view.
// GET /products/{id}
func (h *Handler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}

	id := r.PathValue("id")
	h.logger.DebugContext(r.Context(), "viewing product",
		slog.String("session_id", s.ID),
		slog.String("product_id", id),
	)

	product, err := s.ViewProduct(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, product)
}

// handleListCategories proxies the product service's category list.
// GET /categories
func (h *Handler) handleListCategories(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}

	categories, err := s.Categories(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	if categories == nil {
		categories = []string{}
	}

	h.writeJSON(w, http.StatusOK, categoriesResponse{Categories: categories})
}
