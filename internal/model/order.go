package model

import "strconv"

// OrderRequest is the POST /orders body. The order service reads the
// cart contents for UserID from the cart service itself.
type OrderRequest struct {
	UserID          string `json:"userId"`
	PaymentMethod   string `json:"paymentMethod"`
	ShippingAddress string `json:"shippingAddress"`
}

// Validate mirrors the order service's required field check.
func (r *OrderRequest) Validate() error {
	switch {
	case r.UserID == "":
		return NewBadRequestError("userId is required")
	case r.PaymentMethod == "":
		return NewBadRequestError("paymentMethod is required")
	case r.ShippingAddress == "":
		return NewBadRequestError("shippingAddress is required")
	}
	return nil
}

// Order is an order record as stored by the order service.
type Order struct {
	ID              string      `json:"id"`
	UserID          string      `json:"userId"`
	TotalAmount     Amount      `json:"totalAmount"`
	Status          string      `json:"status"`
	PaymentMethod   string      `json:"paymentMethod"`
	ShippingAddress string      `json:"shippingAddress"`
	CreatedAt       string      `json:"createdAt,omitempty"`
	UpdatedAt       string      `json:"updatedAt,omitempty"`
	Items           []OrderItem `json:"items,omitempty"`
}

// OrderItem is one product line frozen into an order.
type OrderItem struct {
	ID           int    `json:"id"`
	OrderID      string `json:"orderId"`
	ProductID    string `json:"productId"`
	ProductName  string `json:"productName"`
	ProductPrice Amount `json:"productPrice"`
	Quantity     int    `json:"quantity"`
	ItemTotal    Amount `json:"itemTotal"`
}

// OrderConfirmation is the 201 body of POST /orders.
type OrderConfirmation struct {
	Message string `json:"message"`
	Order   Order  `json:"order"`
}

// RemoteCart is the cart service view of a user's cart.
type RemoteCart struct {
	Items     []RemoteCartItem `json:"items"`
	Total     Amount           `json:"total"`
	ItemCount int              `json:"itemCount"`
}

// RemoteCartItem is a cart service row enriched with its product.
type RemoteCartItem struct {
	ID        int         `json:"id"` // cart row id, used for update/remove
	Product   CatalogItem `json:"product"`
	Quantity  int         `json:"quantity"`
	ItemTotal Amount      `json:"itemTotal"`
	AddedAt   string      `json:"addedAt,omitempty"`
}

// UserKey formats a user id the way the cart and order services key carts.
func UserKey(id int) string {
	return strconv.Itoa(id)
}
