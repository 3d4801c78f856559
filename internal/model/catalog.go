// Package model defines the storefront data structures shared by the gateway,
// the session layer, and the remote service clients.
package model

// CatalogItem is a product record as served by the product service.
// The cart never mutates it; line items carry a copy.
type CatalogItem struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Brand         string  `json:"brand"`
	Price         Amount  `json:"price"`
	OriginalPrice *Amount `json:"originalPrice,omitempty"` // pre-discount price
	Image         string  `json:"image"`
	Rating        float64 `json:"rating"`
	RatingCount   int     `json:"ratingCount"`
	Discount      *int    `json:"discount,omitempty"` // percentage off OriginalPrice
	Category      string  `json:"category"`
	Description   string  `json:"description"`

	// Stock is reported by the product service but never enforced here.
	Stock *int `json:"stock,omitempty"`
}

// Validate checks the fields the cart relies on.
func (c *CatalogItem) Validate() error {
	if c.ID == "" {
		return NewValidationError("id", "catalog item id required")
	}
	if c.Price < 0 {
		return NewValidationError("price", "must not be negative")
	}
	if c.Price > MaxAmount {
		return NewValidationError("price", "exceeds the maximum amount")
	}
	if c.RatingCount < 0 {
		return NewValidationError("ratingCount", "must not be negative")
	}
	return nil
}

// ProductQuery filters a product listing. Zero values mean "no filter".
type ProductQuery struct {
	Category string
	Limit    int
}
