package orders

import "fmt"

// WaveState is the preorder progress of a product made explicit, instead of
// reading ad hoc counter fields at every call site. Wave is 1-based; the
// state is terminal once Wave passes TotalWaves.
type WaveState struct {
	TotalWaves int
	Capacity   int
	Wave       int
	Fill       int
}

func (p *Product) WaveState() WaveState {
	return WaveState{
		TotalWaves: p.TotalWaves,
		Capacity:   p.WaveCapacity,
		Wave:       p.CurrentWave,
		Fill:       p.CurrentFill,
	}
}

func (s WaveState) Exhausted() bool { return s.Wave > s.TotalWaves }

// Mode is the fulfillment mode this state implies for a preorder product.
func (s WaveState) Mode() FulfillmentMode {
	if s.Exhausted() {
		return ModeWaiting
	}
	return ModePreorder
}

// Admit places quantity units of demand into the current wave and returns the
// wave the admission is attributed to (the wave current when it began) along
// with the resulting state.
//
// Rollover: an admission that lands exactly on capacity closes the wave
// (next wave, fill 0). An admission that overshoots spills wave by wave, each
// spilled wave consuming exactly Capacity units; a trailing wave left exactly
// at capacity stays open and closes on the next admission. Fill therefore
// never exceeds Capacity. Rolling past TotalWaves leaves the terminal
// exhausted state with fill 0.
func (s WaveState) Admit(quantity int) (assigned int, next WaveState, err error) {
	if quantity < 1 {
		return 0, s, fmt.Errorf("%w: quantity must be positive", ErrInvalidRequest)
	}
	if s.Exhausted() {
		return 0, s, ErrWaveExhausted
	}

	assigned = s.Wave
	next = s

	if s.Capacity <= 0 {
		// Degenerate wave config: every admission closes the current wave.
		next.Wave++
		next.Fill = 0
		return assigned, next.clamp(), nil
	}

	fill := s.Fill + quantity
	if fill == s.Capacity {
		next.Wave++
		next.Fill = 0
		return assigned, next.clamp(), nil
	}
	for fill > s.Capacity {
		fill -= s.Capacity
		next.Wave++
		if next.Wave > next.TotalWaves {
			next.Fill = 0
			return assigned, next.clamp(), nil
		}
	}
	next.Fill = fill
	return assigned, next, nil
}

// clamp normalizes a terminal state so exhausted products compare equal
// regardless of how far a cascade overshot.
func (s WaveState) clamp() WaveState {
	if s.Wave > s.TotalWaves {
		s.Wave = s.TotalWaves + 1
		s.Fill = 0
	}
	return s
}
