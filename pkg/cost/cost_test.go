package cost

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimate_Sentinels(t *testing.T) {
	assert.Equal(t, Estimate{}, Zero())
	assert.False(t, Zero().IsUnknown())
	assert.False(t, Zero().IsInfinite())

	assert.True(t, Unknown().IsUnknown())
	assert.False(t, Unknown().IsInfinite())

	assert.True(t, Infinite().IsInfinite())
	assert.False(t, Infinite().IsUnknown())
}

func TestEstimate_Add(t *testing.T) {
	sum := Estimate{CPU: 1, Memory: 2, Network: 3}.Add(Estimate{CPU: 10, Memory: 20, Network: 30})
	assert.Equal(t, Estimate{CPU: 11, Memory: 22, Network: 33}, sum)

	// Unknown poisons sums.
	assert.True(t, sum.Add(Unknown()).IsUnknown())
	assert.True(t, sum.Add(Infinite()).IsInfinite())
}

func TestEstimate_String(t *testing.T) {
	assert.Equal(t, "{unknown}", Unknown().String())
	assert.Equal(t, "{infinite}", Infinite().String())
	assert.Equal(t, "{cpu: 1.00, memory: 2.00, network: 3.00}", Estimate{CPU: 1, Memory: 2, Network: 3}.String())
}

func TestComparator_Ordering(t *testing.T) {
	c := DefaultComparator()

	cheap := Estimate{CPU: 10, Memory: 10, Network: 10}
	costly := Estimate{CPU: 100, Memory: 10, Network: 10}

	assert.True(t, c.Less(cheap, costly))
	assert.False(t, c.Less(costly, cheap))
	assert.Equal(t, -1, c.Compare(cheap, costly))
	assert.Equal(t, 1, c.Compare(costly, cheap))
	assert.Equal(t, 0, c.Compare(cheap, cheap))

	assert.True(t, c.Less(cheap, Infinite()))
	assert.Equal(t, 0, c.Compare(Infinite(), Infinite()))
}

func TestComparator_UnknownSortsLast(t *testing.T) {
	c := DefaultComparator()
	known := Estimate{CPU: 1}

	assert.Equal(t, 1, c.Compare(Unknown(), known))
	assert.Equal(t, -1, c.Compare(known, Unknown()))
	assert.Equal(t, 0, c.Compare(Unknown(), Unknown()))
	assert.True(t, math.IsNaN(c.Total(Unknown())))
}

func TestComparator_Weights(t *testing.T) {
	// All-cpu candidate versus all-network candidate: equal under default
	// weights, separated once network is weighted down.
	a := Estimate{CPU: 100}
	b := Estimate{Network: 100}

	assert.Equal(t, 0, DefaultComparator().Compare(a, b))

	networkCheap := NewComparator(Weights{CPU: 1, Memory: 1, Network: 0.5})
	assert.True(t, networkCheap.Less(b, a))
}
