package blobstore

import "errors"

var (
	// ErrCorrupt is returned when a file's magic bytes, header
	// checksum, or a dataset checksum fails to validate.
	ErrCorrupt = errors.New("blobstore: corrupt file")
	// ErrIncompatible is returned when a file's format version is not
	// one this package understands.
	ErrIncompatible = errors.New("blobstore: incompatible version")
	// ErrDatasetNotFound is returned by Group.Uint64s/Group.Float64s
	// when no dataset of that name exists.
	ErrDatasetNotFound = errors.New("blobstore: dataset not found")
	// ErrDatasetKind is returned when a dataset is read back with the
	// wrong accessor for the kind it was written as.
	ErrDatasetKind = errors.New("blobstore: dataset kind mismatch")
)
