// Package blobstore implements WRV1, a small hierarchical key/value
// binary file format: a file holds named groups, each holding named
// uint64 or float64 array datasets.
//
// It exists to back reservoir checkpoints without depending on a full
// HDF5 binding: the group/dataset shape matches what a checkpoint
// needs (a handful of scalars plus two parallel arrays) without the
// generality a hashed slot index would add.
//
//	s := blobstore.New()
//	s.Group(blobstore.RootGroup).SetUint64s("chosen_times", times)
//	err := s.Save(fs.NewReal(), "checkpoint.wrv")
//
// The file header and every dataset's data are checksummed
// independently (CRC32-C), so a truncated file or a bit flip in those
// bytes is detected as [ErrCorrupt] on load rather than silently
// misread. Group and dataset names and counts carry no checksum.
package blobstore
