package reservoir

import (
	"fmt"

	"github.com/calvinalkan/wreservoir/pkg/blobstore"
	"github.com/calvinalkan/wreservoir/pkg/fs"
)

const (
	dsAlpha       = "alpha"
	dsCapacity    = "capacity"
	dsCurrentSize = "current_size"
	dsGrandTotal  = "grand_total"
	dsRefL        = "ref_L"
	dsChosenTimes = "chosen_times"
	dsChosenU     = "chosen_u"
)

// Export writes the reservoir's full state into the named group of
// store (group == [blobstore.RootGroup] to use the store's root
// directly). Full-capacity arrays are written even when size < K, so
// that repeated exports of an unchanged reservoir are byte-identical.
func (r *Reservoir) Export(store *blobstore.Store, group string) {
	g := store.Group(group)
	g.SetFloat64s(dsAlpha, []float64{r.alpha})
	g.SetUint64s(dsCapacity, []uint64{r.capacity})
	g.SetUint64s(dsCurrentSize, []uint64{uint64(r.size)})
	g.SetUint64s(dsGrandTotal, []uint64{r.grandTotal})
	g.SetUint64s(dsRefL, []uint64{r.refL})
	g.SetUint64s(dsChosenTimes, r.chosenTimes)
	g.SetFloat64s(dsChosenU, r.chosenU)
}

// ExportFile is a convenience wrapper around [Reservoir.Export] that
// writes a standalone file, durably, via the real filesystem.
func (r *Reservoir) ExportFile(path string) error {
	store := blobstore.New()
	r.Export(store, blobstore.RootGroup)
	if err := store.SaveFile(path); err != nil {
		return fmt.Errorf("reservoir: export %q: %w", path, err)
	}
	return nil
}

// ExportTo writes a standalone file through fsys, so tests can exercise
// I/O-failure handling with a fault-injecting [fs.FS].
func (r *Reservoir) ExportTo(fsys fs.FS, path string) error {
	store := blobstore.New()
	r.Export(store, blobstore.RootGroup)
	if err := store.Save(fsys, path); err != nil {
		return fmt.Errorf("reservoir: export %q: %w", path, err)
	}
	return nil
}

// Import reloads state from the named group of store. It requires
// [Reservoir.Empty] as a precondition (panics otherwise) and
// reallocates the retained arrays only if capacity changed.
//
// Panics if the group is missing a dataset, or reports zero capacity
// (a corrupted checkpoint).
func (r *Reservoir) Import(store *blobstore.Store, group string) {
	if !r.Empty() {
		panic(ErrImportNotEmpty)
	}

	g := store.Group(group)

	alpha, err := g.Float64s(dsAlpha)
	mustNoCheckpointErr(err)
	capacity, err := g.Uint64s(dsCapacity)
	mustNoCheckpointErr(err)
	size, err := g.Uint64s(dsCurrentSize)
	mustNoCheckpointErr(err)
	grandTotal, err := g.Uint64s(dsGrandTotal)
	mustNoCheckpointErr(err)
	refL, err := g.Uint64s(dsRefL)
	mustNoCheckpointErr(err)
	chosenTimes, err := g.Uint64s(dsChosenTimes)
	mustNoCheckpointErr(err)
	chosenU, err := g.Float64s(dsChosenU)
	mustNoCheckpointErr(err)

	if len(alpha) == 0 || len(capacity) == 0 || capacity[0] == 0 || len(size) == 0 ||
		len(grandTotal) == 0 || len(refL) == 0 {
		panic(ErrCorruptSnapshot)
	}
	if size[0] > capacity[0] || uint64(len(chosenTimes)) > capacity[0] || uint64(len(chosenU)) > capacity[0] {
		panic(ErrCorruptSnapshot)
	}

	if capacity[0] != r.capacity {
		r.chosenTimes = make([]uint64, capacity[0])
		r.chosenU = make([]float64, capacity[0])
	}
	copy(r.chosenTimes, chosenTimes)
	copy(r.chosenU, chosenU)

	r.alpha = alpha[0]
	r.capacity = capacity[0]
	r.size = int(size[0])
	r.grandTotal = grandTotal[0]
	r.refL = refL[0]
	r.diff = Diff{}
	r.ws = nil
}

// ImportFile is a convenience wrapper around [Reservoir.Import] that
// reads a standalone file via the real filesystem.
func (r *Reservoir) ImportFile(path string) error {
	store, err := blobstore.LoadFile(path)
	if err != nil {
		return fmt.Errorf("reservoir: import %q: %w", path, err)
	}
	r.Import(store, blobstore.RootGroup)
	return nil
}

// ImportFrom reads a standalone file through fsys.
func (r *Reservoir) ImportFrom(fsys fs.FS, path string) error {
	store, err := blobstore.Load(fsys, path)
	if err != nil {
		return fmt.Errorf("reservoir: import %q: %w", path, err)
	}
	r.Import(store, blobstore.RootGroup)
	return nil
}

func mustNoCheckpointErr(err error) {
	if err != nil {
		panic(ErrCorruptSnapshot)
	}
}
