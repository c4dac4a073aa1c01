package kernel

import (
	"math"
	"sort"

	"golang.org/x/exp/constraints"

	"github.com/calvinalkan/wreservoir/pkg/rng"
)

// Entry is a single workspace slot: either a currently-retained item or
// a newly-arrived candidate, carrying whatever is needed to rank it.
//
// For a retained item, OriginalIndex is its slot in the caller's
// retained arrays. For a new arrival, OriginalIndex is its offset
// within the batch being ingested (0-based). Callers distinguish the
// two cases by comparing ArrivalTime against the grand total observed
// before this ingestion: retained items have ArrivalTime strictly less
// than it, new admissions have ArrivalTime greater than or equal to
// it.
type Entry struct {
	OriginalIndex uint64
	ArrivalTime   uint64
	UKey          float64
	Priority      float64
}

// Direct is the fast-path admission: every item in the batch is
// accepted unconditionally, assigned sequential arrival times starting
// at grandTotal and a fresh uniform key. No priority is computed since
// nothing competes for eviction.
func Direct(grandTotal uint64, nProvided uint64, src *rng.Source) []Entry {
	out := make([]Entry, nProvided)
	for i := uint64(0); i < nProvided; i++ {
		out[i] = Entry{
			OriginalIndex: i,
			ArrivalTime:   grandTotal + i,
			UKey:          src.UniformReal(0, 1),
		}
	}
	return out
}

// Select runs the general (eviction-possible) path: it ranks the
// current retained items against nProvided new arrivals and returns a
// workspace whose first capacity entries are exactly the survivors.
//
// chosenTimes and chosenU describe the size currently-retained items.
// refL is read and, if size > 0, overwritten with the new reference
// used for this invocation (and for nothing after it — the reference
// is a cached value the fast path never touches). grandTotal is the
// arrival count observed before this batch.
//
// scratch is a reusable buffer from a prior call (nil is fine on the
// first call); Select grows it in place when it is too small and never
// shrinks it, so a caller that keeps reusing the returned buf avoids a
// fresh allocation on every ingestion once the buffer has grown to its
// steady-state size. result aliases buf's first capacity entries and
// is only valid until the next call that reuses buf.
//
// Select assumes size+nProvided > capacity; callers route the
// no-eviction-possible case through Direct instead.
func Select(chosenTimes []uint64, chosenU []float64, size int, capacity int, grandTotal uint64, nProvided uint64, alpha float64, refL *uint64, src *rng.Source, scratch []Entry) (result []Entry, buf []Entry) {
	if size > 0 {
		*refL = minOf(chosenTimes[:size])
	}
	L := *refL
	f := 1.0 / float64(grandTotal-L+nProvided)

	total := uint64(size) + nProvided
	bufLen := total
	if bufLen > uint64(3*capacity) {
		bufLen = uint64(3 * capacity)
	}

	ws := scratch
	if uint64(cap(ws)) < bufLen {
		ws = make([]Entry, bufLen)
	} else {
		ws = ws[:bufLen]
	}

	live := size
	for i := 0; i < size; i++ {
		t := chosenTimes[i]
		ws[i] = Entry{
			OriginalIndex: uint64(i),
			ArrivalTime:   t,
			UKey:          chosenU[i],
			Priority:      priority(t, L, chosenU[i], f, alpha),
		}
	}

	remaining := nProvided
	for remaining > 0 {
		chunk := capacity
		if remaining < uint64(chunk) {
			chunk = int(remaining)
		}
		base := nProvided - remaining
		for c := 0; c < chunk; c++ {
			i := base + uint64(c)
			t := grandTotal + i
			u := src.UniformReal(0, 1)
			ws[live] = Entry{
				OriginalIndex: i,
				ArrivalTime:   t,
				UKey:          u,
				Priority:      priority(t, L, u, f, alpha),
			}
			live++
		}
		remaining -= uint64(chunk)

		if live > capacity {
			selectTopK(ws[:live], capacity)
			live = capacity
		}
	}

	return ws[:capacity], ws
}

// minOf returns the smallest element of s. Panics if s is empty.
func minOf[T constraints.Ordered](s []T) T {
	m := s[0]
	for _, v := range s[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

// priority computes p(t,u) = ((t-L)*f)^alpha / u.
func priority(t, l uint64, u, f, alpha float64) float64 {
	diff := float64(t - l)
	return math.Pow(diff*f, alpha) / u
}

// selectTopK partitions entries so the k entries with the largest
// priority occupy entries[:k]; the order among the remaining entries
// is unspecified and safe to overwrite.
func selectTopK(entries []Entry, k int) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Priority > entries[j].Priority
	})
}
