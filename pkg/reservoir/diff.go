package reservoir

// Mode tags which ingestion operation produced the current [Diff].
type Mode int

const (
	// ModeNone is the mode of a reservoir that has never been
	// ingested into (or was just [Reservoir.Clear]ed / imported).
	ModeNone Mode = iota
	ModeKeepAppend
	ModeRemoveInject
)

func (m Mode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModeKeepAppend:
		return "keep_append"
	case ModeRemoveInject:
		return "remove_inject"
	default:
		return "unknown"
	}
}

// Diff is the per-ingestion report of which slots and batch offsets
// changed. Exactly one of (Kept, Appended) or (Removed, Injected) is
// populated, selected by Mode; the other pair is always nil.
type Diff struct {
	Mode Mode

	// Kept holds, in scanned order, the pre-ingestion slot indices
	// that survived a KeepAppend ingestion. Appended holds the batch
	// offsets of newly admitted items, in the order they were placed
	// after the kept block.
	Kept     []int
	Appended []uint64

	// Removed holds, ascending, the pre-ingestion slot indices evicted
	// by a RemoveInject ingestion. Injected holds the batch offsets of
	// the items that filled those slots (and any surplus appended past
	// the old tail), in the order they were written.
	Removed  []int
	Injected []uint64
}
