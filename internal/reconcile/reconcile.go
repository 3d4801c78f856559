// Package reconcile computes the mutations that bring the remote cart
// service in line with a session's local cart.
//
// The gateway fetches the remote cart, diffs it against the local snapshot,
// and issues only the calls needed. Apply the result in order
// Remove → Update → Add so an update never targets a row about to go away.
package reconcile

// LineItemDiff describes the mutations needed to reconcile line items.
type LineItemDiff struct {
	ToRemove []ItemToRemove // remote rows whose product is not in the local cart
	ToUpdate []ItemToUpdate // rows present on both sides with different quantities
	ToAdd    []ItemToAdd    // local lines with no remote row
}

// ItemToAdd is a local line missing remotely.
type ItemToAdd struct {
	ProductID string
	Quantity  int
}

// ItemToRemove is a remote row to delete.
type ItemToRemove struct {
	ProductID string
	BackendID int // cart service row id
}

// ItemToUpdate is a quantity change on an existing remote row.
type ItemToUpdate struct {
	ProductID   string
	BackendID   int
	OldQuantity int
	NewQuantity int
}

// IsEmpty returns true if no line item changes are needed.
func (d *LineItemDiff) IsEmpty() bool {
	return len(d.ToAdd) == 0 && len(d.ToRemove) == 0 && len(d.ToUpdate) == 0
}

// Len is the number of remote calls the diff will take.
func (d *LineItemDiff) Len() int {
	return len(d.ToAdd) + len(d.ToRemove) + len(d.ToUpdate)
}

// CurrentItem is a row in the remote cart.
type CurrentItem struct {
	ProductID string
	BackendID int
	Quantity  int
}

// DesiredItem is a line in the local cart snapshot.
type DesiredItem struct {
	ProductID string
	Quantity  int
}

// DiffLineItems computes the delta between the remote rows and the local lines.
// Matching is by ProductID.
//
// Output order is deterministic: removals follow current order, updates and
// additions follow desired order. If the remote cart holds several rows for
// one product the first is kept and the rest are removed. Desired items with
// quantity ≤ 0 are treated as absent.
func DiffLineItems(current []CurrentItem, desired []DesiredItem) *LineItemDiff {
	diff := &LineItemDiff{}

	want := make(map[string]int, len(desired))
	for _, item := range desired {
		if item.Quantity > 0 {
			want[item.ProductID] += item.Quantity
		}
	}

	matched := make(map[string]CurrentItem, len(current))
	for _, item := range current {
		if _, ok := want[item.ProductID]; !ok {
			diff.ToRemove = append(diff.ToRemove, ItemToRemove{ProductID: item.ProductID, BackendID: item.BackendID})
			continue
		}
		if _, dup := matched[item.ProductID]; dup {
			diff.ToRemove = append(diff.ToRemove, ItemToRemove{ProductID: item.ProductID, BackendID: item.BackendID})
			continue
		}
		matched[item.ProductID] = item
	}

	seen := make(map[string]bool, len(desired))
	for _, item := range desired {
		qty, ok := want[item.ProductID]
		if !ok || seen[item.ProductID] {
			continue
		}
		seen[item.ProductID] = true

		cur, exists := matched[item.ProductID]
		switch {
		case !exists:
			diff.ToAdd = append(diff.ToAdd, ItemToAdd{ProductID: item.ProductID, Quantity: qty})
		case cur.Quantity != qty:
			diff.ToUpdate = append(diff.ToUpdate, ItemToUpdate{
				ProductID:   item.ProductID,
				BackendID:   cur.BackendID,
				OldQuantity: cur.Quantity,
				NewQuantity: qty,
			})
		}
	}

	return diff
}
