package session

import (
	"context"
	"fmt"
	"log/slog"

	"stylehub/internal/cart"
	"stylehub/internal/model"
	"stylehub/internal/reconcile"
)

// CheckoutRequest carries the shopper's order choices. Empty fields take
// the manager's defaults.
type CheckoutRequest struct {
	PaymentMethod   string `json:"paymentMethod,omitempty"`
	ShippingAddress string `json:"shippingAddress,omitempty"`
}

// Checkout places an order for the current cart.
//
// The remote cart service is first brought in line with the local cart,
// since the order service builds the order from it. The local cart is
// cleared only once the order exists; any failure leaves it untouched.
func (s *Session) Checkout(ctx context.Context, req CheckoutRequest) (*model.OrderConfirmation, error) {
	s.checkoutMu.Lock()
	defer s.checkoutMu.Unlock()

	user := s.Auth.User()
	if user == nil {
		return nil, model.NewUnauthorizedError("Please login to checkout")
	}

	snap, version := s.Cart.State()
	if snap.IsEmpty() {
		return nil, model.NewBadRequestError("Cart is empty")
	}

	order := model.OrderRequest{
		UserID:          model.UserKey(user.ID),
		PaymentMethod:   req.PaymentMethod,
		ShippingAddress: req.ShippingAddress,
	}
	if order.PaymentMethod == "" {
		order.PaymentMethod = s.defaults.PaymentMethod
	}
	if order.ShippingAddress == "" {
		order.ShippingAddress = s.defaults.ShippingAddress
	}
	if err := order.Validate(); err != nil {
		return nil, err
	}

	if err := s.pushCart(ctx, order.UserID, snap); err != nil {
		return nil, err
	}

	conf, err := s.backend.CreateOrder(ctx, s.Auth.Token(), order)
	if err != nil {
		s.logger.Warn("order failed", slog.String("error", err.Error()))
		return nil, err
	}

	s.settle(snap, version)
	s.logger.Info("order placed",
		slog.String("order_id", conf.Order.ID),
		slog.Int64("total", int64(conf.Order.TotalAmount)))
	return conf, nil
}

// pushCart makes the remote cart match snap.
func (s *Session) pushCart(ctx context.Context, userID string, snap cart.Snapshot) error {
	remote, err := s.backend.GetRemoteCart(ctx, userID)
	if err != nil {
		return fmt.Errorf("fetching remote cart: %w", err)
	}

	current := make([]reconcile.CurrentItem, 0, len(remote.Items))
	for _, row := range remote.Items {
		current = append(current, reconcile.CurrentItem{
			ProductID: row.Product.ID,
			BackendID: row.ID,
			Quantity:  row.Quantity,
		})
	}
	desired := make([]reconcile.DesiredItem, 0, snap.Len())
	for _, li := range snap.Items() {
		desired = append(desired, reconcile.DesiredItem{ProductID: li.ID, Quantity: li.Quantity})
	}

	diff := reconcile.DiffLineItems(current, desired)
	if diff.IsEmpty() {
		return nil
	}
	s.logger.Debug("syncing remote cart",
		slog.Int("remove", len(diff.ToRemove)),
		slog.Int("update", len(diff.ToUpdate)),
		slog.Int("add", len(diff.ToAdd)))

	for _, r := range diff.ToRemove {
		if err := s.backend.RemoveRemoteCartItem(ctx, userID, r.BackendID); err != nil {
			return fmt.Errorf("removing %s from remote cart: %w", r.ProductID, err)
		}
	}
	for _, u := range diff.ToUpdate {
		if err := s.backend.UpdateRemoteCartItem(ctx, userID, u.BackendID, u.NewQuantity); err != nil {
			return fmt.Errorf("updating %s in remote cart: %w", u.ProductID, err)
		}
	}
	for _, a := range diff.ToAdd {
		if err := s.backend.AddRemoteCartItem(ctx, userID, a.ProductID, a.Quantity); err != nil {
			return fmt.Errorf("adding %s to remote cart: %w", a.ProductID, err)
		}
	}
	return nil
}

// settle removes the ordered quantities from the local cart. If nothing
// changed since the order snapshot the cart is simply cleared; otherwise
// only what was ordered is taken out, so lines added meanwhile survive.
func (s *Session) settle(ordered cart.Snapshot, version uint64) {
	if _, ok := s.Cart.DispatchIf(version, cart.Clear()); ok {
		return
	}
	for _, li := range ordered.Items() {
		s.Cart.Dispatch(cart.SubtractQuantity(li.ID, li.Quantity))
	}
}
