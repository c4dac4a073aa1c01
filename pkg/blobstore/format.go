package blobstore

import (
	"encoding/binary"
	"hash/crc32"
	"math"
)

// WRV1 file format.
//
// [ header (16 bytes) ]
// [ group 0 ] [ group 1 ] ...
//
// header: Magic[4]="WRV1", Version uint32, GroupCount uint32, CRC32C uint32
//         (CRC computed over the preceding 12 bytes).
//
// group: NameLen uint32, Name[NameLen], DatasetCount uint32,
//        dataset 0, dataset 1, ...
//
// dataset: NameLen uint32, Name[NameLen], Kind uint8, Count uint64,
//          Data[Count*8], CRC32C uint32 (computed over Data only).
const (
	magic         = "WRV1"
	formatVersion = 1
	headerSize    = 16
	kindUint64    = uint8(0)
	kindFloat64   = uint8(1)
	rootGroupName = "."
)

var crcTable = crc32.MakeTable(crc32.Castagnoli)

func encodeHeader(groupCount uint32) []byte {
	buf := make([]byte, headerSize)
	copy(buf[0:4], magic)
	binary.LittleEndian.PutUint32(buf[4:8], formatVersion)
	binary.LittleEndian.PutUint32(buf[8:12], groupCount)
	crc := crc32.Checksum(buf[0:12], crcTable)
	binary.LittleEndian.PutUint32(buf[12:16], crc)
	return buf
}

func decodeHeader(buf []byte) (groupCount uint32, err error) {
	if len(buf) < headerSize || string(buf[0:4]) != magic {
		return 0, ErrCorrupt
	}
	version := binary.LittleEndian.Uint32(buf[4:8])
	if version != formatVersion {
		return 0, ErrIncompatible
	}
	groupCount = binary.LittleEndian.Uint32(buf[8:12])
	storedCRC := binary.LittleEndian.Uint32(buf[12:16])
	if crc32.Checksum(buf[0:12], crcTable) != storedCRC {
		return 0, ErrCorrupt
	}
	return groupCount, nil
}

func encodeString(dst []byte, s string) []byte {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(s)))
	dst = append(dst, lenBuf[:]...)
	dst = append(dst, s...)
	return dst
}

func decodeString(buf []byte, pos int) (s string, next int, err error) {
	if pos+4 > len(buf) {
		return "", 0, ErrCorrupt
	}
	n := int(binary.LittleEndian.Uint32(buf[pos : pos+4]))
	pos += 4
	if n < 0 || pos+n > len(buf) {
		return "", 0, ErrCorrupt
	}
	return string(buf[pos : pos+n]), pos + n, nil
}

func encodeDataset(dst []byte, name string, kind uint8, raw []byte) []byte {
	dst = encodeString(dst, name)
	dst = append(dst, kind)
	var countBuf [8]byte
	binary.LittleEndian.PutUint64(countBuf[:], uint64(len(raw)/8))
	dst = append(dst, countBuf[:]...)
	dst = append(dst, raw...)
	var crcBuf [4]byte
	binary.LittleEndian.PutUint32(crcBuf[:], crc32.Checksum(raw, crcTable))
	dst = append(dst, crcBuf[:]...)
	return dst
}

type decodedDataset struct {
	name string
	kind uint8
	raw  []byte
}

func decodeDataset(buf []byte, pos int) (ds decodedDataset, next int, err error) {
	name, pos, err := decodeString(buf, pos)
	if err != nil {
		return decodedDataset{}, 0, err
	}
	if pos+1+8 > len(buf) {
		return decodedDataset{}, 0, ErrCorrupt
	}
	kind := buf[pos]
	pos++
	count := binary.LittleEndian.Uint64(buf[pos : pos+8])
	pos += 8
	if count > uint64(len(buf)/8) {
		return decodedDataset{}, 0, ErrCorrupt
	}
	rawLen := int(count) * 8
	if pos+rawLen+4 > len(buf) {
		return decodedDataset{}, 0, ErrCorrupt
	}
	raw := buf[pos : pos+rawLen]
	pos += rawLen
	storedCRC := binary.LittleEndian.Uint32(buf[pos : pos+4])
	pos += 4
	if crc32.Checksum(raw, crcTable) != storedCRC {
		return decodedDataset{}, 0, ErrCorrupt
	}
	// Copied rather than aliased: callers such as LoadFile unmap or
	// discard the source buffer once Decode returns.
	owned := make([]byte, rawLen)
	copy(owned, raw)
	return decodedDataset{name: name, kind: kind, raw: owned}, pos, nil
}

func encodeUint64s(vs []uint64) []byte {
	raw := make([]byte, len(vs)*8)
	for i, v := range vs {
		binary.LittleEndian.PutUint64(raw[i*8:], v)
	}
	return raw
}

func decodeUint64s(raw []byte) []uint64 {
	out := make([]uint64, len(raw)/8)
	for i := range out {
		out[i] = binary.LittleEndian.Uint64(raw[i*8:])
	}
	return out
}

func encodeFloat64s(vs []float64) []byte {
	raw := make([]byte, len(vs)*8)
	for i, v := range vs {
		binary.LittleEndian.PutUint64(raw[i*8:], math.Float64bits(v))
	}
	return raw
}

func decodeFloat64s(raw []byte) []float64 {
	out := make([]float64, len(raw)/8)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[i*8:]))
	}
	return out
}
