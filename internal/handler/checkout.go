package handler

import (
	"log/slog"
	"net/http"

	"stylehub/internal/model"
	"stylehub/internal/session"
)

type ordersResponse struct {
	Orders []model.Order `json:"orders"`
}

// handleCheckout places an order for the session's cart.
// POST /checkout
func (h *Handler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s := h.session(w, r)
	if s == nil {
		return
	}

	var req session.CheckoutRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	snap := s.Cart.Snapshot()
	h.logger.InfoContext(ctx, "checking out",
		slog.String("session_id", s.ID),
		slog.Int("lines", snap.Len()),
		slog.Int("items", snap.ItemCount()),
		slog.Bool("explicit_payment", req.PaymentMethod != ""),
	)

	conf, err := s.Checkout(ctx, req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, conf)
}

// handleListOrders lists the signed-in user's orders.
// GET /orders
func (h *Handler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}

	orders, err := s.Orders(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	if orders == nil {
		orders = []model.Order{}
	}

	h.writeJSON(w, http.StatusOK, ordersResponse{Orders: orders})
}

// handleGetOrder returns one of the signed-in user's orders.
// GET /orders/{id}
func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}

	order, err := s.Order(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, order)
}
