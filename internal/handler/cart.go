package handler

import (
	"log/slog"
	"net/http"

	"stylehub/internal/model"
)

// addCartItemRequest names a product either by id, which the gateway
// fetches from the product service, or as a full catalog record the client
// already holds.
type addCartItemRequest struct {
	ProductID string             `json:"product_id,omitempty"`
	Item      *model.CatalogItem `json:"item,omitempty"`
}

type updateCartItemRequest struct {
	Quantity *int `json:"quantity"`
}

// handleGetCart returns the session's cart snapshot.
// GET /cart
func (h *Handler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	h.writeJSON(w, http.StatusOK, s.Cart.Snapshot())
}

// handleAddCartItem adds one unit of a product.
// POST /cart/items
func (h *Handler) handleAddCartItem(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}

	var req addCartItemRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	switch {
	case req.Item != nil:
		snap, err := s.AddItem(*req.Item)
		if err != nil {
			h.writeError(w, err)
			return
		}
		h.writeJSON(w, http.StatusOK, snap)
	case req.ProductID != "":
		snap, err := s.AddProduct(r.Context(), req.ProductID)
		if err != nil {
			h.writeError(w, err)
			return
		}
		h.writeJSON(w, http.StatusOK, snap)
	default:
		h.writeError(w, model.NewValidationError("body", "product_id or item required"))
	}
}

// handleUpdateCartItem sets a line's quantity; zero or less removes it.
// PUT /cart/items/{id}
func (h *Handler) handleUpdateCartItem(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	id := r.PathValue("id")

	var req updateCartItemRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if req.Quantity == nil {
		h.writeError(w, model.NewValidationError("quantity", "required"))
		return
	}

	h.logger.DebugContext(r.Context(), "updating cart line",
		slog.String("session_id", s.ID),
		slog.String("product_id", id),
		slog.Int("quantity", *req.Quantity),
	)

	h.writeJSON(w, http.StatusOK, s.Cart.UpdateQuantity(id, *req.Quantity))
}

// handleRemoveCartItem drops a line. Removing an absent line is not an error.
// DELETE /cart/items/{id}
func (h *Handler) handleRemoveCartItem(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	h.writeJSON(w, http.StatusOK, s.Cart.RemoveItem(r.PathValue("id")))
}

// handleClearCart empties the cart.
// DELETE /cart
func (h *Handler) handleClearCart(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	h.writeJSON(w, http.StatusOK, s.Cart.Clear())
}
