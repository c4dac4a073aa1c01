package reservoir

import (
	"math"

	"github.com/calvinalkan/wreservoir/pkg/kernel"
	"github.com/calvinalkan/wreservoir/pkg/rng"
)

// Reservoir is a fixed-capacity weighted reservoir. It owns its
// retained arrays exclusively; callers get read-only views. A
// Reservoir is not goroutine-safe.
type Reservoir struct {
	alpha    float64
	capacity uint64

	size       int
	grandTotal uint64
	refL       uint64

	chosenTimes []uint64
	chosenU     []float64

	diff Diff

	src *rng.Source
	ws  []kernel.Entry // reused ingestion scratch, grown never shrunk
}

// New constructs an empty reservoir with the given capacity and
// power-law exponent, drawing all randomness from src.
//
// Panics if capacity == 0, alpha < 0, or src == nil.
func New(capacity uint64, alpha float64, src *rng.Source) *Reservoir {
	if capacity == 0 {
		panic(ErrZeroCapacity)
	}
	if alpha < 0 {
		panic(ErrNegativeAlpha)
	}
	if src == nil {
		panic(ErrNilSource)
	}
	return &Reservoir{
		alpha:       alpha,
		capacity:    capacity,
		chosenTimes: make([]uint64, capacity),
		chosenU:     make([]float64, capacity),
		src:         src,
	}
}

// NewForImport constructs a placeholder reservoir with capacity 1,
// suitable only as the target of an immediately following
// [Reservoir.Import] (which replaces capacity, alpha, and the
// retained arrays with whatever the checkpoint held).
//
// Panics if src == nil.
func NewForImport(src *rng.Source) *Reservoir {
	return New(1, 0, src)
}

// Capacity returns K.
func (r *Reservoir) Capacity() uint64 { return r.capacity }

// Alpha returns the power-law exponent.
func (r *Reservoir) Alpha() float64 { return r.alpha }

// Size returns the number of items currently retained.
func (r *Reservoir) Size() int { return r.size }

// GrandTotal returns the total number of items ever presented.
func (r *Reservoir) GrandTotal() uint64 { return r.grandTotal }

// Empty reports whether the reservoir has never been ingested into,
// regardless of whether its arrays have been allocated.
func (r *Reservoir) Empty() bool {
	return r.size == 0 && r.grandTotal == 0 && r.refL == 0
}

// Clear resets size, grand total, the reference L, and the diff
// record without changing capacity or alpha and without reallocating.
func (r *Reservoir) Clear() {
	r.size = 0
	r.grandTotal = 0
	r.refL = 0
	r.diff = Diff{}
}

// Current returns a read-only view of the arrival indices of the
// currently retained items, or nil when empty. The returned slice
// aliases reservoir-owned storage and is invalidated by the next
// ingestion call.
func (r *Reservoir) Current() []uint64 {
	if r.size == 0 {
		return nil
	}
	return r.chosenTimes[:r.size:r.size]
}

// Kept returns, valid only immediately after a KeepAppend-mode
// ingestion, the pre-ingestion slot indices that survived.
func (r *Reservoir) Kept() []int {
	if r.diff.Mode != ModeKeepAppend {
		return nil
	}
	return r.diff.Kept
}

// Appended returns, valid only immediately after a KeepAppend-mode
// ingestion, the batch offsets of newly admitted items.
func (r *Reservoir) Appended() []uint64 {
	if r.diff.Mode != ModeKeepAppend {
		return nil
	}
	return r.diff.Appended
}

// Removed returns, valid only immediately after a RemoveInject-mode
// ingestion, the pre-ingestion slot indices that were evicted.
func (r *Reservoir) Removed() []int {
	if r.diff.Mode != ModeRemoveInject {
		return nil
	}
	return r.diff.Removed
}

// Injected returns, valid only immediately after a RemoveInject-mode
// ingestion, the batch offsets of the items admitted into evicted
// slots (and any surplus appended past the old tail).
func (r *Reservoir) Injected() []uint64 {
	if r.diff.Mode != ModeRemoveInject {
		return nil
	}
	return r.diff.Injected
}

// Mode returns the tag of the most recent ingestion, or ModeNone if
// none has occurred since construction or the last Clear/Import.
func (r *Reservoir) Mode() Mode { return r.diff.Mode }

func (r *Reservoir) checkIngestPreconditions(nProvided uint64) {
	if nProvided == 0 {
		panic(ErrZeroBatch)
	}
	if r.grandTotal > math.MaxUint64-nProvided {
		panic(ErrOverflow)
	}
}

// KeepNAppend absorbs nProvided new arrivals. Survivors keep their
// slot positions; newly admitted items are logically appended after
// the kept block. See [Reservoir.Kept] and [Reservoir.Appended] for
// the resulting diff.
//
// Panics if nProvided == 0 or if grandTotal+nProvided overflows.
func (r *Reservoir) KeepNAppend(nProvided uint64) {
	r.checkIngestPreconditions(nProvided)

	sizeOld := r.size
	grandTotalOld := r.grandTotal

	if uint64(sizeOld)+nProvided <= r.capacity {
		entries := kernel.Direct(grandTotalOld, nProvided, r.src)
		for i, e := range entries {
			r.chosenTimes[sizeOld+i] = e.ArrivalTime
			r.chosenU[sizeOld+i] = e.UKey
		}
		r.size = sizeOld + len(entries)
		r.diff = Diff{
			Mode:     ModeKeepAppend,
			Kept:     identityInts(sizeOld),
			Appended: identityUint64s(nProvided),
		}
		r.grandTotal += nProvided
		return
	}

	var result []kernel.Entry
	result, r.ws = kernel.Select(r.chosenTimes[:sizeOld], r.chosenU[:sizeOld], sizeOld, int(r.capacity), grandTotalOld, nProvided, r.alpha, &r.refL, r.src, r.ws)

	kept := make([]int, 0, sizeOld)
	appended := make([]uint64, 0, int(r.capacity)-sizeOld)
	idx := 0
	for _, e := range result {
		if e.ArrivalTime < grandTotalOld {
			kept = append(kept, int(e.OriginalIndex))
			r.chosenTimes[idx] = e.ArrivalTime
			r.chosenU[idx] = e.UKey
			idx++
		}
	}
	for _, e := range result {
		if e.ArrivalTime >= grandTotalOld {
			appended = append(appended, e.OriginalIndex)
			r.chosenTimes[idx] = e.ArrivalTime
			r.chosenU[idx] = e.UKey
			idx++
		}
	}

	r.size = int(r.capacity)
	r.diff = Diff{Mode: ModeKeepAppend, Kept: kept, Appended: appended}
	r.grandTotal += nProvided
}

// RemoveNInject absorbs nProvided new arrivals. Survivors keep their
// slot positions unchanged; evicted slots are overwritten in place by
// admitted items, and any surplus admissions beyond the number of
// vacancies are appended past the old tail. See [Reservoir.Removed]
// and [Reservoir.Injected] for the resulting diff.
//
// Panics if nProvided == 0 or if grandTotal+nProvided overflows.
func (r *Reservoir) RemoveNInject(nProvided uint64) {
	r.checkIngestPreconditions(nProvided)

	sizeOld := r.size
	grandTotalOld := r.grandTotal

	if uint64(sizeOld)+nProvided <= r.capacity {
		entries := kernel.Direct(grandTotalOld, nProvided, r.src)
		for i, e := range entries {
			r.chosenTimes[sizeOld+i] = e.ArrivalTime
			r.chosenU[sizeOld+i] = e.UKey
		}
		r.size = sizeOld + len(entries)
		r.diff = Diff{
			Mode:     ModeRemoveInject,
			Removed:  []int{},
			Injected: identityUint64s(nProvided),
		}
		r.grandTotal += nProvided
		return
	}

	var result []kernel.Entry
	result, r.ws = kernel.Select(r.chosenTimes[:sizeOld], r.chosenU[:sizeOld], sizeOld, int(r.capacity), grandTotalOld, nProvided, r.alpha, &r.refL, r.src, r.ws)

	survivorAtSlot := make(map[int]kernel.Entry, sizeOld)
	var admitted []kernel.Entry
	for _, e := range result {
		if e.ArrivalTime < grandTotalOld {
			survivorAtSlot[int(e.OriginalIndex)] = e
		} else {
			admitted = append(admitted, e)
		}
	}

	removed := make([]int, 0, sizeOld-len(survivorAtSlot))
	for slot := 0; slot < sizeOld; slot++ {
		if _, ok := survivorAtSlot[slot]; !ok {
			removed = append(removed, slot)
		}
	}

	injected := make([]uint64, 0, len(admitted))
	admittedIdx := 0
	for _, slot := range removed {
		e := admitted[admittedIdx]
		r.chosenTimes[slot] = e.ArrivalTime
		r.chosenU[slot] = e.UKey
		injected = append(injected, e.OriginalIndex)
		admittedIdx++
	}
	tail := sizeOld
	for ; admittedIdx < len(admitted); admittedIdx++ {
		e := admitted[admittedIdx]
		r.chosenTimes[tail] = e.ArrivalTime
		r.chosenU[tail] = e.UKey
		injected = append(injected, e.OriginalIndex)
		tail++
	}

	r.size = int(r.capacity)
	r.diff = Diff{Mode: ModeRemoveInject, Removed: removed, Injected: injected}
	r.grandTotal += nProvided
}

func identityInts(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func identityUint64s(n uint64) []uint64 {
	out := make([]uint64, n)
	for i := range out {
		out[i] = uint64(i)
	}
	return out
}
