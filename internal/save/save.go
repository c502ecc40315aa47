package save

import (
	"encoding/binary"
	"fmt"

	"github.com/specialistvlad/gindecomp/internal/bincur"
)

// Magic is the little-endian "GSV\0" prefix of a save file.
const Magic = 0x00565347

// Value type tags of the save stream.
const (
	tagI32   = 1
	tagU32   = 2
	tagU64   = 3
	tagF32   = 4
	tagF64   = 5
	tagBool  = 6
	tagStr   = 7
	tagF32x2 = 8
	tagF32x3 = 9
	tagEnum  = 10
	tagFlags = 11
	tagMap   = 12
	tagArray = 13
)

// Item flag bits carried by flags values.
const (
	FlagAcquired = 1 << 0
	FlagEquipped = 1 << 1
)

// IsSave reports whether data begins with the save magic number.
func IsSave(data []byte) bool {
	return len(data) >= 4 && binary.LittleEndian.Uint32(data) == Magic
}

// DecodeSave reads a binary save file into an ordered document.
// Truncation and out-of-bounds reads fail the decode; an unknown value
// tag instead becomes an Unsupported placeholder and stops the scan at
// that point, since the tag's payload width cannot be known.
func DecodeSave(data []byte) (*Document, error) {
	c := bincur.New(data)
	magic, err := c.ReadU32()
	if err != nil {
		return nil, err
	}
	if magic != Magic {
		return nil, fmt.Errorf("not a save file: magic 0x%08x", magic)
	}
	version, err := c.ReadU32()
	if err != nil {
		return nil, err
	}

	d := &decoder{c: c}
	doc, err := d.mapping()
	if err != nil {
		return nil, err
	}
	doc.Version = version
	doc.root = true
	return doc, nil
}

type decoder struct {
	c *bincur.Cursor

	// halted is set when an unsupported tag is hit: nothing past it can
	// be framed, so every enclosing mapping and array stops collecting.
	halted bool
}

func (d *decoder) mapping() (*Document, error) {
	count, err := d.c.ReadU32()
	if err != nil {
		return nil, err
	}
	doc := &Document{}
	for i := 0; i < int(count) && !d.halted; i++ {
		key, err := d.c.ReadString(2)
		if err != nil {
			return nil, fmt.Errorf("pair %d key: %w", i, err)
		}
		value, err := d.value()
		if err != nil {
			return nil, fmt.Errorf("pair %q value: %w", key, err)
		}
		doc.Pairs = append(doc.Pairs, Pair{Key: key, Value: value})
	}
	return doc, nil
}

func (d *decoder) value() (any, error) {
	off := d.c.Pos()
	tag, err := d.c.ReadU8()
	if err != nil {
		return nil, err
	}
	switch tag {
	case tagI32:
		v, err := d.c.ReadU32()
		return int32(v), err
	case tagU32:
		return d.c.ReadU32()
	case tagU64:
		return d.c.ReadU64()
	case tagF32:
		return d.c.ReadF32()
	case tagF64:
		return d.c.ReadF64()
	case tagBool:
		v, err := d.c.ReadU8()
		return v != 0, err
	case tagStr:
		return d.c.ReadString(2)
	case tagF32x2:
		var v [2]float32
		for i := range v {
			if v[i], err = d.c.ReadF32(); err != nil {
				return nil, err
			}
		}
		return v, nil
	case tagF32x3:
		var v [3]float32
		for i := range v {
			if v[i], err = d.c.ReadF32(); err != nil {
				return nil, err
			}
		}
		return v, nil
	case tagEnum:
		name, err := d.c.ReadString(2)
		return Enum(name), err
	case tagFlags:
		v, err := d.c.ReadU32()
		if err != nil {
			return nil, err
		}
		return newFlags(v), nil
	case tagMap:
		return d.mapping()
	case tagArray:
		count, err := d.c.ReadU32()
		if err != nil {
			return nil, err
		}
		// Every element carries at least a one-byte tag, so a count past
		// the remaining bytes cannot be honest. Checking here keeps a
		// corrupt count from driving the allocation below.
		if int64(count) > d.c.Remaining() {
			return nil, fmt.Errorf("array count %d exceeds remaining %d bytes", count, d.c.Remaining())
		}
		elems := make([]any, 0, count)
		for i := 0; i < int(count) && !d.halted; i++ {
			el, err := d.value()
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			elems = append(elems, el)
		}
		return elems, nil
	default:
		d.halted = true
		return Unsupported{Tag: tag, Offset: off}, nil
	}
}
