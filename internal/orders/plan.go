package orders

import "fmt"

// ProductMutation is the net effect one placement call has on a product.
// Stock decrements are deltas so the storage layer can guard against
// underflow on write; the wave transition is the absolute next state.
type ProductMutation struct {
	OkiDec   int
	BigDec   int
	WaveNext *WaveState
}

// Plan is everything one placeOrder call will commit: the two fulfillment
// groups and the per-product mutations backing them. A plan is only ever
// built from product rows the caller holds exclusive locks on.
type Plan struct {
	Immediate []PlannedItem
	Preorder  []PlannedItem
	Products  map[int64]*ProductMutation
}

// BuildPlan validates every requested line against the locked product rows
// and produces the mutation plan. Any failure rejects the whole request:
// no partial plans, no partial orders.
//
// Requests against the same product accumulate: two lines for the same
// bucket must fit the remaining stock combined, and consecutive preorder
// lines run the wave machine forward within the call.
func BuildPlan(products map[int64]*Product, reqs []ItemRequest) (*Plan, error) {
	if len(reqs) == 0 {
		return nil, fmt.Errorf("%w: empty item list", ErrInvalidRequest)
	}

	plan := &Plan{Products: make(map[int64]*ProductMutation)}
	var items []PlannedItem

	for _, rq := range reqs {
		if rq.Quantity < 1 {
			return nil, fmt.Errorf("%w: quantity %d for product %d", ErrInvalidRequest, rq.Quantity, rq.ProductID)
		}
		p, ok := products[rq.ProductID]
		if !ok {
			return nil, fmt.Errorf("%w: product %d", ErrProductNotFound, rq.ProductID)
		}
		if !p.IsActive {
			return nil, fmt.Errorf("%w: product %q", ErrProductInactive, p.Name)
		}

		mut := plan.Products[p.ID]
		if mut == nil {
			mut = &ProductMutation{}
			plan.Products[p.ID] = mut
		}

		if !rq.Size.Valid() {
			return nil, fmt.Errorf("%w: unknown size %q", ErrInvalidRequest, rq.Size)
		}

		switch p.Mode {
		case ModeWaiting:
			return nil, fmt.Errorf("%w: product %q", ErrWaveExhausted, p.Name)

		case ModePreorder:
			state := p.WaveState()
			if mut.WaveNext != nil {
				state = *mut.WaveNext
			}
			wave, next, err := state.Admit(rq.Quantity)
			if err != nil {
				return nil, fmt.Errorf("%w: product %q", ErrWaveExhausted, p.Name)
			}
			mut.WaveNext = &next
			items = append(items, PlannedItem{
				ProductID:   p.ID,
				ProductName: p.Name,
				Size:        rq.Size,
				Quantity:    rq.Quantity,
				PriceCents:  p.PriceCents,
				IsPreorder:  true,
				Wave:        wave,
			})

		case ModeImmediate:
			taken := mut.OkiDec
			if rq.Size == SizeBIG {
				taken = mut.BigDec
			}
			if p.StockFor(rq.Size)-taken < rq.Quantity {
				return nil, fmt.Errorf("%w: product %q size %s", ErrInsufficientStock, p.Name, rq.Size)
			}
			if rq.Size == SizeBIG {
				mut.BigDec += rq.Quantity
			} else {
				mut.OkiDec += rq.Quantity
			}
			items = append(items, PlannedItem{
				ProductID:   p.ID,
				ProductName: p.Name,
				Size:        rq.Size,
				Quantity:    rq.Quantity,
				PriceCents:  p.PriceCents,
			})

		default:
			return nil, fmt.Errorf("%w: product %q has unknown fulfillment mode %q", ErrInvalidRequest, p.Name, p.Mode)
		}
	}

	plan.Immediate, plan.Preorder = SplitByFulfillment(items)
	return plan, nil
}
