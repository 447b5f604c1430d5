package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaveAdmit(t *testing.T) {
	tests := []struct {
		name     string
		state    WaveState
		quantity int
		assigned int
		next     WaveState
	}{
		{
			name:     "partial fill stays in wave",
			state:    WaveState{TotalWaves: 3, Capacity: 5, Wave: 1, Fill: 3},
			quantity: 1,
			assigned: 1,
			next:     WaveState{TotalWaves: 3, Capacity: 5, Wave: 1, Fill: 4},
		},
		{
			name:     "exact fill closes the wave",
			state:    WaveState{TotalWaves: 3, Capacity: 5, Wave: 1, Fill: 3},
			quantity: 2,
			assigned: 1,
			next:     WaveState{TotalWaves: 3, Capacity: 5, Wave: 2, Fill: 0},
		},
		{
			name:     "overflow spills residual into the next wave",
			state:    WaveState{TotalWaves: 3, Capacity: 5, Wave: 1, Fill: 3},
			quantity: 7,
			assigned: 1,
			next:     WaveState{TotalWaves: 3, Capacity: 5, Wave: 2, Fill: 5},
		},
		{
			name:     "large quantity cascades through multiple waves",
			state:    WaveState{TotalWaves: 5, Capacity: 5, Wave: 1, Fill: 3},
			quantity: 12,
			assigned: 1,
			next:     WaveState{TotalWaves: 5, Capacity: 5, Wave: 3, Fill: 5},
		},
		{
			name:     "full-but-open wave closes on the next admission",
			state:    WaveState{TotalWaves: 3, Capacity: 5, Wave: 2, Fill: 5},
			quantity: 1,
			assigned: 2,
			next:     WaveState{TotalWaves: 3, Capacity: 5, Wave: 3, Fill: 1},
		},
		{
			name:     "closing the last wave exhausts the product",
			state:    WaveState{TotalWaves: 1, Capacity: 5, Wave: 1, Fill: 3},
			quantity: 2,
			assigned: 1,
			next:     WaveState{TotalWaves: 1, Capacity: 5, Wave: 2, Fill: 0},
		},
		{
			name:     "cascade past the last wave exhausts with fill zero",
			state:    WaveState{TotalWaves: 1, Capacity: 5, Wave: 1, Fill: 3},
			quantity: 9,
			assigned: 1,
			next:     WaveState{TotalWaves: 1, Capacity: 5, Wave: 2, Fill: 0},
		},
		{
			name:     "zero capacity closes one wave per admission",
			state:    WaveState{TotalWaves: 2, Capacity: 0, Wave: 1, Fill: 0},
			quantity: 3,
			assigned: 1,
			next:     WaveState{TotalWaves: 2, Capacity: 0, Wave: 2, Fill: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assigned, next, err := tt.state.Admit(tt.quantity)
			require.NoError(t, err)
			assert.Equal(t, tt.assigned, assigned)
			assert.Equal(t, tt.next, next)
			if next.Capacity > 0 {
				assert.LessOrEqual(t, next.Fill, next.Capacity)
			}
		})
	}
}

func TestWaveAdmitExhausted(t *testing.T) {
	s := WaveState{TotalWaves: 3, Capacity: 5, Wave: 4, Fill: 0}
	require.True(t, s.Exhausted())
	assert.Equal(t, ModeWaiting, s.Mode())

	_, _, err := s.Admit(1)
	assert.ErrorIs(t, err, ErrWaveExhausted)
}

func TestWaveAdmitRejectsNonPositiveQuantity(t *testing.T) {
	s := WaveState{TotalWaves: 3, Capacity: 5, Wave: 1, Fill: 0}
	_, _, err := s.Admit(0)
	assert.ErrorIs(t, err, ErrInvalidRequest)
	_, _, err = s.Admit(-2)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestWaveSequentialAdmissions(t *testing.T) {
	// Drain a 2x3 wave config one unit at a time and check attribution.
	s := WaveState{TotalWaves: 2, Capacity: 3, Wave: 1, Fill: 0}
	var assignedWaves []int
	for i := 0; i < 6; i++ {
		assigned, next, err := s.Admit(1)
		require.NoError(t, err)
		assignedWaves = append(assignedWaves, assigned)
		s = next
	}
	assert.Equal(t, []int{1, 1, 1, 2, 2, 2}, assignedWaves)
	assert.True(t, s.Exhausted())

	_, _, err := s.Admit(1)
	assert.ErrorIs(t, err, ErrWaveExhausted)
}
