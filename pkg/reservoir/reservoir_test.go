package reservoir_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/wreservoir/pkg/blobstore"
	"github.com/calvinalkan/wreservoir/pkg/reservoir"
	"github.com/calvinalkan/wreservoir/pkg/rng"
)

func newTestReservoir(seed uint64) *reservoir.Reservoir {
	return reservoir.New(4, 1.0, rng.NewSource(seed))
}

func TestNew_PanicsOnInvalidArgs(t *testing.T) {
	assert.Panics(t, func() { reservoir.New(0, 1.0, rng.NewSource(1)) })
	assert.Panics(t, func() { reservoir.New(4, -1.0, rng.NewSource(1)) })
	assert.Panics(t, func() { reservoir.New(4, 1.0, nil) })
}

func TestEmpty_TrueOnlyBeforeFirstIngestion(t *testing.T) {
	r := newTestReservoir(1)
	assert.True(t, r.Empty())
	r.KeepNAppend(1)
	assert.False(t, r.Empty())
}

func TestKeepNAppend_PanicsOnZeroBatch(t *testing.T) {
	r := newTestReservoir(1)
	assert.Panics(t, func() { r.KeepNAppend(0) })
}

func TestRemoveNInject_PanicsOnZeroBatch(t *testing.T) {
	r := newTestReservoir(1)
	assert.Panics(t, func() { r.RemoveNInject(0) })
}

// S1: empty reservoir, keep_n_append(3): size=3, G=3, chosen_times = {0,1,2}.
func TestScenario_S1(t *testing.T) {
	r := newTestReservoir(42)
	r.KeepNAppend(3)

	assert.Equal(t, 3, r.Size())
	assert.Equal(t, uint64(3), r.GrandTotal())
	assert.ElementsMatch(t, []uint64{0, 1, 2}, r.Current())
	assert.Equal(t, reservoir.ModeKeepAppend, r.Mode())
	assert.Equal(t, []int{}, r.Kept())
	assert.Equal(t, []uint64{0, 1, 2}, r.Appended())
}

// S2: after S1, keep_n_append(2): size_old+n_provided=5 > K=4.
func TestScenario_S2(t *testing.T) {
	r := newTestReservoir(42)
	r.KeepNAppend(3)
	r.KeepNAppend(2)

	require.Equal(t, 4, r.Size())
	assert.Equal(t, uint64(5), r.GrandTotal())

	kept := r.Kept()
	appended := r.Appended()
	assert.Equal(t, 4, len(kept)+len(appended))
	for _, k := range kept {
		assert.Less(t, k, 3)
	}
	for _, a := range appended {
		assert.Less(t, a, uint64(2))
	}

	times := r.Current()
	seen := map[uint64]bool{}
	for _, t64 := range times {
		assert.False(t, seen[t64], "chosen_times must be distinct")
		seen[t64] = true
		assert.True(t, t64 <= 4)
	}
}

// S3: fresh reservoir, remove_n_inject(10): removed empty (size_old=0).
func TestScenario_S3(t *testing.T) {
	r := newTestReservoir(7)
	r.RemoveNInject(10)

	assert.Equal(t, 4, r.Size())
	assert.Equal(t, uint64(10), r.GrandTotal())
	assert.Equal(t, reservoir.ModeRemoveInject, r.Mode())
	assert.Empty(t, r.Removed())
	require.Len(t, r.Injected(), 4)
	for _, off := range r.Injected() {
		assert.Less(t, off, uint64(10))
	}
}

// S4: after S3, remove_n_inject(10): every evicted slot keeps its slot
// position but holds a new arrival time.
func TestScenario_S4(t *testing.T) {
	r := newTestReservoir(7)
	r.RemoveNInject(10)
	before := append([]uint64{}, r.Current()...)

	r.RemoveNInject(10)

	assert.Equal(t, 4, r.Size())
	assert.Equal(t, uint64(20), r.GrandTotal())

	removed := r.Removed()
	injected := r.Injected()
	assert.Equal(t, len(removed), len(injected))

	after := r.Current()
	for _, slot := range removed {
		assert.NotEqual(t, before[slot], after[slot])
	}
}

func TestInvariant_CapacityBound(t *testing.T) {
	r := newTestReservoir(3)
	for i := 0; i < 20; i++ {
		r.KeepNAppend(uint64(i + 1))
		assert.LessOrEqual(t, r.Size(), int(r.Capacity()))
	}
}

func TestInvariant_KeyRangeAndUniqueness(t *testing.T) {
	r := newTestReservoir(99)
	for i := 0; i < 10; i++ {
		r.RemoveNInject(uint64(i + 1))
		seen := map[uint64]bool{}
		for _, t64 := range r.Current() {
			require.False(t, seen[t64])
			seen[t64] = true
		}

		store := blobstore.New()
		r.Export(store, blobstore.RootGroup)
		us, err := store.Group(blobstore.RootGroup).Float64s("chosen_u")
		require.NoError(t, err)
		for _, u := range us[:r.Size()] {
			require.GreaterOrEqual(t, u, 0.0)
			require.Less(t, u, 1.0)
		}
	}
}

func TestInvariant_ModeExclusivity(t *testing.T) {
	r := newTestReservoir(5)
	r.KeepNAppend(2)
	assert.Nil(t, r.Removed())
	assert.Nil(t, r.Injected())
	r.RemoveNInject(2)
	assert.Nil(t, r.Kept())
	assert.Nil(t, r.Appended())
}

func TestDeterminism_SameSeedSameSequence(t *testing.T) {
	a := reservoir.New(4, 1.0, rng.NewSource(123))
	b := reservoir.New(4, 1.0, rng.NewSource(123))

	for _, n := range []uint64{3, 7, 5} {
		a.KeepNAppend(n)
		b.KeepNAppend(n)
	}

	assert.Equal(t, a.Current(), b.Current())
}

func TestClear_ResetsCountersNotCapacity(t *testing.T) {
	r := newTestReservoir(1)
	r.KeepNAppend(3)
	r.Clear()

	assert.True(t, r.Empty())
	assert.Equal(t, uint64(4), r.Capacity())
	assert.Equal(t, 0, r.Size())
	assert.Equal(t, reservoir.ModeNone, r.Mode())
}

func TestFastPathIdentity(t *testing.T) {
	r := newTestReservoir(2)
	r.KeepNAppend(2)
	assert.Equal(t, []int{}, r.Kept())
	assert.Equal(t, []uint64{0, 1}, r.Appended())
}
