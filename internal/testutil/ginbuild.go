package testutil

import (
	"bytes"
	"encoding/binary"

	"github.com/DataDog/zstd"
	"github.com/pierrec/lz4/v4"
)

// BinWriter builds little-endian byte sequences for synthetic test
// fixtures.
type BinWriter struct {
	buf bytes.Buffer
}

func (w *BinWriter) U8(v uint8) *BinWriter    { w.buf.WriteByte(v); return w }
func (w *BinWriter) U16(v uint16) *BinWriter  { return w.le(v) }
func (w *BinWriter) U32(v uint32) *BinWriter  { return w.le(v) }
func (w *BinWriter) U64(v uint64) *BinWriter  { return w.le(v) }
func (w *BinWriter) F32(v float32) *BinWriter { return w.le(v) }
func (w *BinWriter) F64(v float64) *BinWriter { return w.le(v) }

func (w *BinWriter) Raw(p []byte) *BinWriter {
	w.buf.Write(p)
	return w
}

// Str writes a u16 length prefix followed by the UTF-8 bytes.
func (w *BinWriter) Str(s string) *BinWriter {
	w.U16(uint16(len(s)))
	w.buf.WriteString(s)
	return w
}

// Fixed writes s into a zero-padded field of exactly n bytes.
func (w *BinWriter) Fixed(s string, n int) *BinWriter {
	field := make([]byte, n)
	copy(field, s)
	w.buf.Write(field)
	return w
}

func (w *BinWriter) Len() int      { return w.buf.Len() }
func (w *BinWriter) Bytes() []byte { return w.buf.Bytes() }

func (w *BinWriter) le(v any) *BinWriter {
	binary.Write(&w.buf, binary.LittleEndian, v)
	return w
}

// BuildPayload assembles a section payload from pre-built record byte
// sequences: a u32 record count, payload-relative u32 offsets, then the
// records back to back.
func BuildPayload(records ...[]byte) []byte {
	var w BinWriter
	w.U32(uint32(len(records)))
	off := 4 + 4*len(records)
	for _, r := range records {
		w.U32(uint32(off))
		off += len(r)
	}
	for _, r := range records {
		w.Raw(r)
	}
	return w.Bytes()
}

// SectionSpec describes one section of a synthetic container.
type SectionSpec struct {
	Name     string
	Payload  []byte
	Compress string // "", "zstd" or "lz4"
}

// GinSpec describes a synthetic container for BuildGin.
type GinSpec struct {
	Path     string
	FileID   [16]byte
	Sections []SectionSpec
}

// Flag bits and sizes mirrored from the container layout so fixtures do
// not import the package under test.
const (
	ginMagic          = 0x004E4947
	mainHeaderSize    = 312
	sectionHeaderSize = 136
	flagZstd          = 1 << 0
	flagLZ4           = 1 << 1
)

// BuildGin serializes a complete, well-formed .gin container.
func BuildGin(spec GinSpec) []byte {
	type stored struct {
		data  []byte
		flags uint32
	}
	payloads := make([]stored, len(spec.Sections))
	for i, s := range spec.Sections {
		switch s.Compress {
		case "zstd":
			data, err := zstd.Compress(nil, s.Payload)
			if err != nil {
				panic(err)
			}
			payloads[i] = stored{data: data, flags: flagZstd}
		case "lz4":
			dst := make([]byte, lz4.CompressBlockBound(len(s.Payload)))
			n, err := lz4.CompressBlock(s.Payload, dst, nil)
			if err != nil {
				panic(err)
			}
			if n == 0 {
				// Incompressible payload: store it raw.
				payloads[i] = stored{data: s.Payload}
				break
			}
			payloads[i] = stored{data: dst[:n], flags: flagLZ4}
		default:
			payloads[i] = stored{data: s.Payload}
		}
	}

	var w BinWriter
	w.U32(ginMagic)
	w.U32(1)
	w.Raw(make([]byte, 8))
	w.Raw(spec.FileID[:])
	w.U32(0)
	w.Fixed(spec.Path, 256)
	w.U32(uint32(len(spec.Sections)))
	w.Raw(make([]byte, 16))

	offset := mainHeaderSize + sectionHeaderSize*len(spec.Sections)
	for i, s := range spec.Sections {
		p := payloads[i]
		w.Fixed(s.Name, 64)
		w.U64(uint64(offset))
		w.U32(uint32(len(s.Payload)))
		if p.flags == 0 {
			w.U32(0)
		} else {
			w.U32(uint32(len(p.data)))
		}
		w.U32(p.flags)
		w.Raw(make([]byte, 16)) // params
		w.U32(1)
		w.Raw(make([]byte, 16)) // section id
		w.Raw(make([]byte, 16)) // checksum
		offset += len(p.data)
	}
	for _, p := range payloads {
		w.Raw(p.data)
	}
	return w.Bytes()
}
