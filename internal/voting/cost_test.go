package voting

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCost(t *testing.T) {
	assert.Equal(t, 0, Cost(0))
	assert.Equal(t, 1, Cost(1))
	assert.Equal(t, 9, Cost(3))
	// Cost is quadratic in magnitude, so a negative count prices the same
	// as its absolute value.
	assert.Equal(t, 9, Cost(-3))
}

func TestTotalCost(t *testing.T) {
	assert.Equal(t, 0, TotalCost(nil))
	assert.Equal(t, 0, TotalCost([]int{}))
	assert.Equal(t, 14, TotalCost([]int{3, 2, 1}))
	assert.Equal(t, 4, TotalCost([]int{0, 2, 0}))
}

func TestRemaining(t *testing.T) {
	assert.Equal(t, 5, Remaining(5, nil))
	assert.Equal(t, 1, Remaining(5, []int{2}))
	assert.Equal(t, 0, Remaining(14, []int{3, 2, 1}))
}
