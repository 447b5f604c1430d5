package orders

// PlannedItem is a fully validated line item with its price captured and, for
// preorder items, the wave it was admitted to.
type PlannedItem struct {
	ProductID   int64
	ProductName string
	Size        Size
	Quantity    int
	PriceCents  int
	IsPreorder  bool
	Wave        int
}

// SplitByFulfillment partitions validated items into the two fulfillment
// groups. Each non-empty group becomes its own order.
func SplitByFulfillment(items []PlannedItem) (immediate, preorder []PlannedItem) {
	for _, it := range items {
		if it.IsPreorder {
			preorder = append(preorder, it)
		} else {
			immediate = append(immediate, it)
		}
	}
	return immediate, preorder
}

// SubtotalCents sums quantity times captured unit price over a group.
func SubtotalCents(items []PlannedItem) int {
	total := 0
	for _, it := range items {
		total += it.PriceCents * it.Quantity
	}
	return total
}
