package track

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFreshness_AgeIsMonotonic(t *testing.T) {
	f := NewFreshness(NewMemoryPresenter())
	f.Touch("bus-A", 1000)

	prev := int64(-1)
	for i := int64(0); i < 30; i++ {
		age, ok := f.Age("bus-A", time.Unix(1000+i, 0))
		require.True(t, ok)
		assert.Equal(t, i, age)
		assert.GreaterOrEqual(t, age, prev)
		prev = age
	}
}

func TestFreshness_SubSecondQueriesDoNotDecrease(t *testing.T) {
	f := NewFreshness(NewMemoryPresenter())
	f.Touch("k", 1000)

	base := time.Unix(1004, 0)
	var last int64
	for ms := 0; ms < 3000; ms += 250 {
		age, _ := f.Age("k", base.Add(time.Duration(ms)*time.Millisecond))
		assert.GreaterOrEqual(t, age, last)
		last = age
	}
	assert.Equal(t, int64(6), last)
}

func TestFreshness_FutureTimestampClampsToZero(t *testing.T) {
	f := NewFreshness(NewMemoryPresenter())
	f.Touch("k", 2000)

	age, ok := f.Age("k", time.Unix(1990, 0))
	require.True(t, ok)
	assert.Zero(t, age)
}

func TestFreshness_TickPushesLabels(t *testing.T) {
	p := NewMemoryPresenter()
	f := NewFreshness(p)
	f.Touch("bus-A", 1000)
	f.Touch("train-X", 1010)

	f.Tick(time.Unix(1012, 0))
	age, ok := p.Age("bus-A")
	require.True(t, ok)
	assert.Equal(t, int64(12), age)
	age, _ = p.Age("train-X")
	assert.Equal(t, int64(2), age)

	f.Touch("bus-A", 1012)
	f.Tick(time.Unix(1013, 0))
	age, _ = p.Age("bus-A")
	assert.Equal(t, int64(1), age)
}

func TestFreshness_RemoveStopsUpdates(t *testing.T) {
	p := NewMemoryPresenter()
	f := NewFreshness(p)
	f.Touch("bus-A", 1000)
	f.Tick(time.Unix(1001, 0))
	f.Remove("bus-A")
	f.Tick(time.Unix(1005, 0))

	age, _ := p.Age("bus-A")
	assert.Equal(t, int64(1), age)
	assert.Zero(t, f.Len())
	_, ok := f.Age("bus-A", time.Unix(1005, 0))
	assert.False(t, ok)
}

func TestFreshness_NeverExpiresOnItsOwn(t *testing.T) {
	f := NewFreshness(NewMemoryPresenter())
	f.Touch("k", 0)
	f.Tick(time.Unix(365*24*3600, 0))
	assert.Equal(t, 1, f.Len())
}
