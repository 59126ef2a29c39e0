package correlation

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/correlation/internal/tensor"
)

// reversed runs items last to first and has no grid entry point.
type reversed struct{}

func (reversed) Run(n int, fn func(i int)) {
	for i := n - 1; i >= 0; i-- {
		fn(i)
	}
}

func TestRunGrid_VisitsEveryCellOnce(t *testing.T) {
	schedulers := []Scheduler{Sequential{}, eagerParallel, reversed{}}

	for _, s := range schedulers {
		t.Run(schedulerName(s), func(t *testing.T) {
			const outer, inner = 3, 7
			var mu sync.Mutex
			hits := make(map[[2]int]int)

			runGrid(s, outer, inner, func(o, i int) {
				mu.Lock()
				hits[[2]int{o, i}]++
				mu.Unlock()
			})

			require.Len(t, hits, outer*inner)
			for cell, n := range hits {
				assert.Equal(t, 1, n, "cell %v", cell)
			}
		})
	}
}

func TestRunGrid_EmptyInner(t *testing.T) {
	for _, s := range []Scheduler{Sequential{}, eagerParallel, reversed{}} {
		called := false
		runGrid(s, 4, 0, func(_, _ int) { called = true })
		assert.False(t, called, "%s", schedulerName(s))
	}
}

func TestSequential_RunGridOrder(t *testing.T) {
	var order [][2]int
	Sequential{}.RunGrid(2, 3, func(o, i int) {
		order = append(order, [2]int{o, i})
	})
	assert.Equal(t, [][2]int{{0, 0}, {0, 1}, {0, 2}, {1, 0}, {1, 1}, {1, 2}}, order)
}

// A scheduler without RunGrid takes the flattened path and must agree bitwise.
func TestBackward_RunOnlySchedulerMatches(t *testing.T) {
	shape := tensor.Shape{2, 3, 6, 5}
	in1 := randTensor(t, shape, tensor.Float64, 11)
	in2 := randTensor(t, shape, tensor.Float64, 12)
	p := params(3, 3, 1, 1, 1, 2)

	out, err := OutputShape(shape, p)
	require.NoError(t, err)
	grad := randTensor(t, out, tensor.Float64, 13)

	w1, w2, err := Backward(Sequential{}, in1, in2, grad, p)
	require.NoError(t, err)
	g1, g2, err := Backward(reversed{}, in1, in2, grad, p)
	require.NoError(t, err)

	assert.Equal(t, w1.AsFloat64(), g1.AsFloat64())
	assert.Equal(t, w2.AsFloat64(), g2.AsFloat64())
}
