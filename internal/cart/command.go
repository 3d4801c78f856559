package cart

import (
	"fmt"

	"stylehub/internal/model"
)

// Kind enumerates the cart commands.
type Kind int

const (
	KindAddItem Kind = iota + 1
	KindRemoveItem
	KindUpdateQuantity
	KindClear
	KindSubtractQuantity
)

// MaxQuantity caps a single line. Adds and updates beyond it hold the line
// at the cap.
const MaxQuantity = 9999

func (k Kind) String() string {
	switch k {
	case KindAddItem:
		return "add_item"
	case KindRemoveItem:
		return "remove_item"
	case KindUpdateQuantity:
		return "update_quantity"
	case KindClear:
		return "clear"
	case KindSubtractQuantity:
		return "subtract_quantity"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Command is a tagged cart mutation. Build one with the constructors below;
// only the fields relevant to Kind are read.
type Command struct {
	Kind     Kind
	Item     model.CatalogItem // KindAddItem
	ID       string            // KindRemoveItem, KindUpdateQuantity, KindSubtractQuantity
	Quantity int               // KindUpdateQuantity, KindSubtractQuantity
}

// AddItem adds one unit of item.
func AddItem(item model.CatalogItem) Command {
	return Command{Kind: KindAddItem, Item: item}
}

// RemoveItem drops the line for id.
func RemoveItem(id string) Command {
	return Command{Kind: KindRemoveItem, ID: id}
}

// UpdateQuantity sets the quantity for id; quantity <= 0 removes the line.
func UpdateQuantity(id string, quantity int) Command {
	return Command{Kind: KindUpdateQuantity, ID: id, Quantity: quantity}
}

// SubtractQuantity takes n units off the line for id, as read at the time
// the command is applied. A line left with no units is removed.
func SubtractQuantity(id string, n int) Command {
	return Command{Kind: KindSubtractQuantity, ID: id, Quantity: n}
}

// Clear empties the cart.
func Clear() Command {
	return Command{Kind: KindClear}
}

// Apply returns the snapshot that results from applying cmd to s.
// It is total: unknown ids are no-ops, non-positive quantities are
// removals, and quantities are held at MaxQuantity. s is never modified.
func Apply(s Snapshot, cmd Command) Snapshot {
	switch cmd.Kind {
	case KindAddItem:
		return addItem(s, cmd.Item)
	case KindRemoveItem:
		return removeItem(s, cmd.ID)
	case KindUpdateQuantity:
		return updateQuantity(s, cmd.ID, cmd.Quantity)
	case KindSubtractQuantity:
		return subtractQuantity(s, cmd.ID, cmd.Quantity)
	case KindClear:
		return Empty()
	default:
		return s
	}
}

// addItem keeps the first-seen metadata of an existing line and only bumps
// its quantity.
func addItem(s Snapshot, item model.CatalogItem) Snapshot {
	items := copyItems(s.items, 1)
	if i := s.indexOf(item.ID); i >= 0 {
		if items[i].Quantity < MaxQuantity {
			items[i].Quantity++
		}
		return newSnapshot(items)
	}
	items = append(items, LineItem{CatalogItem: cloneItem(item), Quantity: 1})
	return newSnapshot(items)
}

func removeItem(s Snapshot, id string) Snapshot {
	items := make([]LineItem, 0, len(s.items))
	for _, item := range s.items {
		if item.ID != id {
			items = append(items, item)
		}
	}
	return newSnapshot(items)
}

func updateQuantity(s Snapshot, id string, quantity int) Snapshot {
	if quantity <= 0 {
		return removeItem(s, id)
	}
	items := copyItems(s.items, 0)
	if i := s.indexOf(id); i >= 0 {
		items[i].Quantity = min(quantity, MaxQuantity)
	}
	return newSnapshot(items)
}

func subtractQuantity(s Snapshot, id string, n int) Snapshot {
	i := s.indexOf(id)
	if i < 0 || n <= 0 {
		return newSnapshot(copyItems(s.items, 0))
	}
	return updateQuantity(s, id, s.items[i].Quantity-min(n, MaxQuantity))
}

// copyItems returns a fresh slice with room for extra more lines.
// Pointer fields are shared with s; nothing writes through them after cloneItem.
func copyItems(items []LineItem, extra int) []LineItem {
	out := make([]LineItem, len(items), len(items)+extra)
	copy(out, items)
	return out
}
