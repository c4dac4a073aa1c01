package blobstore

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/natefinch/atomic"

	"github.com/calvinalkan/wreservoir/pkg/fs"
)

// RootGroup is the sentinel group name meaning "use the store's root
// directly" rather than a named subgroup.
const RootGroup = rootGroupName

// Store is an in-memory hierarchical key/value blob store: named
// groups, each holding named uint64 or float64 array datasets. It is
// the unit of (de)serialization to and from a single WRV1 file.
type Store struct {
	groups map[string]*Group
}

// Group is a named collection of datasets.
type Group struct {
	name     string
	datasets map[string]decodedDataset
}

// New returns an empty store.
func New() *Store {
	return &Store{groups: map[string]*Group{}}
}

// Group returns the named group, creating it if it does not yet
// exist. name == RootGroup refers to the store's root group.
func (s *Store) Group(name string) *Group {
	if g, ok := s.groups[name]; ok {
		return g
	}
	g := &Group{name: name, datasets: map[string]decodedDataset{}}
	s.groups[name] = g
	return g
}

// SetUint64s writes a uint64 array dataset into the group.
func (g *Group) SetUint64s(name string, vs []uint64) {
	g.datasets[name] = decodedDataset{name: name, kind: kindUint64, raw: encodeUint64s(vs)}
}

// SetFloat64s writes a float64 array dataset into the group.
func (g *Group) SetFloat64s(name string, vs []float64) {
	g.datasets[name] = decodedDataset{name: name, kind: kindFloat64, raw: encodeFloat64s(vs)}
}

// Uint64s reads back a uint64 array dataset.
func (g *Group) Uint64s(name string) ([]uint64, error) {
	ds, ok := g.datasets[name]
	if !ok {
		return nil, fmt.Errorf("blobstore: dataset %q: %w", name, ErrDatasetNotFound)
	}
	if ds.kind != kindUint64 {
		return nil, fmt.Errorf("blobstore: dataset %q: %w", name, ErrDatasetKind)
	}
	return decodeUint64s(ds.raw), nil
}

// Float64s reads back a float64 array dataset.
func (g *Group) Float64s(name string) ([]float64, error) {
	ds, ok := g.datasets[name]
	if !ok {
		return nil, fmt.Errorf("blobstore: dataset %q: %w", name, ErrDatasetNotFound)
	}
	if ds.kind != kindFloat64 {
		return nil, fmt.Errorf("blobstore: dataset %q: %w", name, ErrDatasetKind)
	}
	return decodeFloat64s(ds.raw), nil
}

// Encode serializes the store to its WRV1 byte representation. Group
// and dataset iteration order is sorted by name so that two stores
// with identical content always encode to identical bytes.
func (s *Store) Encode() []byte {
	names := make([]string, 0, len(s.groups))
	for name := range s.groups {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	buf.Write(encodeHeader(uint32(len(names))))

	for _, name := range names {
		g := s.groups[name]
		dsNames := make([]string, 0, len(g.datasets))
		for dsName := range g.datasets {
			dsNames = append(dsNames, dsName)
		}
		sort.Strings(dsNames)

		group := encodeString(nil, name)
		var countBuf [4]byte
		binary.LittleEndian.PutUint32(countBuf[:], uint32(len(dsNames)))
		group = append(group, countBuf[:]...)
		for _, dsName := range dsNames {
			ds := g.datasets[dsName]
			group = encodeDataset(group, ds.name, ds.kind, ds.raw)
		}
		buf.Write(group)
	}

	return buf.Bytes()
}

// Decode parses a WRV1 byte representation into a fresh store.
func Decode(buf []byte) (*Store, error) {
	if len(buf) < headerSize {
		return nil, ErrCorrupt
	}
	groupCount, err := decodeHeader(buf[:headerSize])
	if err != nil {
		return nil, err
	}

	s := New()
	pos := headerSize
	for i := uint32(0); i < groupCount; i++ {
		name, next, err := decodeString(buf, pos)
		if err != nil {
			return nil, err
		}
		pos = next
		if pos+4 > len(buf) {
			return nil, ErrCorrupt
		}
		dsCount := binary.LittleEndian.Uint32(buf[pos : pos+4])
		pos += 4

		g := s.Group(name)
		for j := uint32(0); j < dsCount; j++ {
			ds, next, err := decodeDataset(buf, pos)
			if err != nil {
				return nil, err
			}
			pos = next
			g.datasets[ds.name] = ds
		}
	}
	return s, nil
}

// Save durably writes the store to path through fsys, using an
// atomic temp-file-then-rename so a crash or I/O failure mid-write
// never leaves a partially-written file at path.
func (s *Store) Save(fsys fs.FS, path string) error {
	w := fs.NewAtomicWriter(fsys)
	if err := w.WriteWithDefaults(path, bytes.NewReader(s.Encode())); err != nil {
		return fmt.Errorf("blobstore: save %q: %w", path, err)
	}
	return nil
}

// Load reads and parses a store from path through fsys.
func Load(fsys fs.FS, path string) (*Store, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("blobstore: load %q: %w", path, err)
	}
	s, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("blobstore: load %q: %w", path, err)
	}
	return s, nil
}

// SaveFile durably writes the store directly to a real filesystem
// path, bypassing the fs.FS abstraction, for callers that have no
// need for fault-injection testability.
func (s *Store) SaveFile(path string) error {
	if err := atomic.WriteFile(path, bytes.NewReader(s.Encode())); err != nil {
		return fmt.Errorf("blobstore: save file %q: %w", path, err)
	}
	return nil
}

// LoadFile reads and parses a store directly from a real filesystem
// path, memory-mapping it to avoid a full-file heap copy before
// validation.
func LoadFile(path string) (*Store, error) {
	data, closeFn, err := mmapReadOnly(path)
	if err != nil {
		return nil, fmt.Errorf("blobstore: load file %q: %w", path, err)
	}
	defer closeFn()

	s, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("blobstore: load file %q: %w", path, err)
	}
	return s, nil
}

