// Package cart implements the shopping cart state machine.
//
// A cart is a Snapshot: an ordered list of line items plus the subtotal and
// unit count derived from them. Snapshots are immutable values; every
// Command applied through Apply produces a fresh Snapshot and leaves its
// input untouched. Store serializes commands from concurrent callers so each
// one is applied to the latest snapshot.
package cart

import (
	"encoding/json"

	"stylehub/internal/model"
)

// LineItem is a catalog item held in the cart with a quantity of at least 1.
type LineItem struct {
	model.CatalogItem
	Quantity int `json:"quantity"`
}

// Total is the line's contribution to the subtotal.
func (l LineItem) Total() model.Amount {
	return l.Price.Times(l.Quantity)
}

// Snapshot is a read-only view of the cart.
// The zero value is the empty cart.
type Snapshot struct {
	items     []LineItem
	subtotal  model.Amount
	itemCount int
}

// Empty returns the snapshot every session starts with.
func Empty() Snapshot {
	return Snapshot{}
}

// newSnapshot takes ownership of items and derives the aggregates from them.
// It is the only constructor, so aggregates can never drift from items.
func newSnapshot(items []LineItem) Snapshot {
	s := Snapshot{items: items}
	for _, item := range items {
		s.subtotal = s.subtotal.Plus(item.Total())
		s.itemCount += item.Quantity
	}
	return s
}

// FromItems rebuilds a snapshot from a decoded item list.
// Lines with quantity <= 0 are dropped; repeated ids are merged into the
// first occurrence, keeping its metadata. Quantities are held at MaxQuantity.
func FromItems(items []LineItem) Snapshot {
	out := make([]LineItem, 0, len(items))
	pos := make(map[string]int, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		qty := min(item.Quantity, MaxQuantity)
		if i, ok := pos[item.ID]; ok {
			out[i].Quantity = min(out[i].Quantity+qty, MaxQuantity)
			continue
		}
		pos[item.ID] = len(out)
		out = append(out, LineItem{CatalogItem: cloneItem(item.CatalogItem), Quantity: qty})
	}
	return newSnapshot(out)
}

// Items returns a copy of the line items in insertion order.
func (s Snapshot) Items() []LineItem {
	out := make([]LineItem, len(s.items))
	for i, item := range s.items {
		out[i] = LineItem{CatalogItem: cloneItem(item.CatalogItem), Quantity: item.Quantity}
	}
	return out
}

// Subtotal is Σ price × quantity over the current unit prices.
func (s Snapshot) Subtotal() model.Amount { return s.subtotal }

// ItemCount is the number of units in the cart, not distinct lines.
func (s Snapshot) ItemCount() int { return s.itemCount }

// Len is the number of distinct lines.
func (s Snapshot) Len() int { return len(s.items) }

// IsEmpty reports whether the cart has no lines.
func (s Snapshot) IsEmpty() bool { return len(s.items) == 0 }

// Find returns the line for id, if present.
func (s Snapshot) Find(id string) (LineItem, bool) {
	if i := s.indexOf(id); i >= 0 {
		item := s.items[i]
		return LineItem{CatalogItem: cloneItem(item.CatalogItem), Quantity: item.Quantity}, true
	}
	return LineItem{}, false
}

func (s Snapshot) indexOf(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

type snapshotJSON struct {
	Items     []LineItem   `json:"items"`
	Subtotal  model.Amount `json:"subtotal"`
	ItemCount int          `json:"itemCount"`
}

// MarshalJSON encodes {items, subtotal, itemCount}. Items is never null.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	items := s.items
	if items == nil {
		items = []LineItem{}
	}
	return json.Marshal(snapshotJSON{Items: items, Subtotal: s.subtotal, ItemCount: s.itemCount})
}

// UnmarshalJSON decodes the items and recomputes the aggregates;
// any subtotal or itemCount in the payload is ignored.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var raw snapshotJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = FromItems(raw.Items)
	return nil
}

// cloneItem copies the optional fields so no two snapshots share pointers.
func cloneItem(c model.CatalogItem) model.CatalogItem {
	if c.OriginalPrice != nil {
		v := *c.OriginalPrice
		c.OriginalPrice = &v
	}
	if c.Discount != nil {
		v := *c.Discount
		c.Discount = &v
	}
	if c.Stock != nil {
		v := *c.Stock
		c.Stock = &v
	}
	return c
}
