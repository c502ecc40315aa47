package container

import (
	"context"
	"fmt"
	"sort"

	"github.com/specialistvlad/gindecomp/internal/bincur"
	"github.com/specialistvlad/gindecomp/internal/ctxlog"
	"github.com/specialistvlad/gindecomp/internal/schema"
)

// maxDepth bounds record nesting. Offset fields can be self-referential
// in corrupted files; past this depth the subtree degrades to an error
// node instead of recursing forever.
const maxDepth = 64

// Decode walks a whole .gin container held in memory and produces its
// decoded tree. Decoding is best-effort: an unknown tag or a corrupt
// record degrades to a raw or error node and the rest of the file is
// still decoded. Only a failure to read the main header or the section
// table fails the file as a whole. Cancellation is honored between
// sections and between top-level records, never mid-record.
func Decode(ctx context.Context, data []byte, reg *schema.Registry) (*DecodedFile, error) {
	logger := ctxlog.FromContext(ctx)

	c := bincur.New(data)
	main, err := parseMainHeader(c)
	if err != nil {
		return nil, err
	}
	logger.Debug("Decoded main header.", "path", main.Path, "sections", main.SectionCount)

	if int64(main.SectionCount) > c.Remaining()/SectionHeaderSize {
		return nil, fmt.Errorf("section count %d exceeds file size %d", main.SectionCount, len(data))
	}
	headers := make([]*SectionHeader, 0, main.SectionCount)
	for i := 0; i < int(main.SectionCount); i++ {
		h, err := parseSectionHeader(c, i)
		if err != nil {
			return nil, err
		}
		headers = append(headers, h)
	}

	file := &DecodedFile{Main: main, Path: main.Path}
	for i, h := range headers {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("decode canceled before section %d: %w", i, err)
		}
		sec := decodeSection(ctx, data, h, i, reg, file)
		file.Sections = append(file.Sections, sec)
	}
	return file, nil
}

// decodeSection extracts, decompresses and decodes one section. Failures
// are attached to the section root; they never propagate.
func decodeSection(ctx context.Context, data []byte, h *SectionHeader, index int, reg *schema.Registry, file *DecodedFile) *Section {
	logger := ctxlog.FromContext(ctx)
	sec := &Section{Index: index, Header: h}

	fail := func(reason string) *Section {
		logger.Warn("Section not understood.", "section", h.Name, "reason", reason)
		sec.Root = &Node{Kind: KindError, Err: reason}
		file.Unknown = append(file.Unknown, ByteRange{
			Section: h.Name,
			Start:   int64(h.Offset),
			End:     int64(h.Offset) + int64(storedSize(h)),
			Reason:  reason,
		})
		return sec
	}

	start := int64(h.Offset)
	size := int64(storedSize(h))
	if start < 0 || size < 0 || start+size > int64(len(data)) {
		return fail(fmt.Sprintf("section data [0x%x, 0x%x) out of bounds (file size %d)", start, start+size, len(data)))
	}

	// A zero compressed size means the payload is stored raw even when
	// a compression flag is set.
	flags := h.Flags
	if h.CompressedSize == 0 {
		flags = 0
	}
	payload, err := decompressSection(data[start:start+size], flags, h.Size)
	if err != nil {
		return fail(fmt.Sprintf("decompression failed: %v", err))
	}

	d := &payloadDecoder{
		section: h.Name,
		payload: payload,
		reg:     reg,
	}
	root, err := d.decode(ctx)
	if err != nil {
		// Cancellation is the only error decode lets escape.
		return fail(fmt.Sprintf("decode aborted: %v", err))
	}
	sec.Root = root
	file.Unknown = append(file.Unknown, d.unknown...)
	return sec
}

func storedSize(h *SectionHeader) uint32 {
	if h.CompressedSize > 0 {
		return h.CompressedSize
	}
	return h.Size
}

// payloadDecoder decodes the record structure of one decompressed section
// payload: a u32 record count, that many payload-relative u32 offsets,
// and a tagged record at each offset.
type payloadDecoder struct {
	section string
	payload []byte
	reg     *schema.Registry
	unknown []ByteRange
}

func (d *payloadDecoder) decode(ctx context.Context) (*Node, error) {
	c := bincur.New(d.payload)
	count, err := c.ReadU32()
	if err != nil {
		return d.errorNode(0, fmt.Sprintf("record count: %v", err)), nil
	}

	// Declared counts come from the input; without this check a corrupt
	// count could demand an allocation far beyond the payload.
	if int64(count) > c.Remaining()/4 {
		return d.errorNode(0, fmt.Sprintf("record count %d exceeds payload size %d", count, len(d.payload))), nil
	}
	offsets := make([]int64, 0, count)
	for i := 0; i < int(count); i++ {
		target, err := c.ReadOffset32(0)
		if err != nil {
			return d.errorNode(c.Pos(), fmt.Sprintf("offset table entry %d: %v", i, err)), nil
		}
		offsets = append(offsets, target)
	}

	b := sortedBounds(offsets, int64(len(d.payload)))
	root := &Node{Kind: KindTable, Offset: 0, Length: int64(len(d.payload))}
	for i, off := range offsets {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("canceled at record %d: %w", i, err)
		}
		// Offsets reused by multiple entries are decoded independently
		// per occurrence; aliasing is semantically distinct per context.
		root.Elems = append(root.Elems, d.record(off, b.next(off), 0))
	}
	return root, nil
}

// record decodes the tagged record at the given payload offset. bound is
// the first byte past which an undecodable record cannot extend, used to
// size raw nodes for unknown tags.
func (d *payloadDecoder) record(off, bound int64, depth int) *Node {
	if depth > maxDepth {
		return d.errorNode(off, fmt.Sprintf("record nesting exceeds %d levels", maxDepth))
	}

	c := bincur.New(d.payload)
	if err := c.Seek(off); err != nil {
		return d.errorNode(off, fmt.Sprintf("record offset: %v", err))
	}
	tag, err := c.ReadU32()
	if err != nil {
		return d.errorNode(off, fmt.Sprintf("record tag: %v", err))
	}

	entry, ok := d.reg.Lookup(tag)
	if !ok {
		// Best-effort policy: preserve the undecoded range instead of
		// aborting the file.
		raw := d.payload[off:bound]
		d.unknown = append(d.unknown, ByteRange{
			Section: d.section,
			Start:   off,
			End:     bound,
			Reason:  fmt.Sprintf("unknown type tag 0x%04x", tag),
		})
		return &Node{Kind: KindRaw, Tag: tag, Offset: off, Length: bound - off, Bytes: raw}
	}

	node := &Node{Kind: KindRecord, Tag: tag, Name: entry.Name, Offset: off}
	for _, field := range entry.Fields {
		child, err := d.field(c, field, depth)
		if err != nil {
			// A bounds violation inside the record's own fields aborts
			// this subtree only; the error replaces the content.
			return d.errorNode(off, fmt.Sprintf("record %s field %q: %v", entry.Name, field.Name, err))
		}
		node.Fields = append(node.Fields, FieldValue{Name: field.Name, Node: child})
	}
	node.Length = c.Pos() - off
	return node
}

// field decodes one schema field at the cursor's current position.
// Returned errors are bounds or truncation failures in the record's own
// layout; nested record failures are already degraded to error nodes.
func (d *payloadDecoder) field(c *bincur.Cursor, field schema.Field, depth int) (*Node, error) {
	start := c.Pos()
	scalar := func(v any) *Node {
		return &Node{Kind: KindScalar, Offset: start, Length: c.Pos() - start, Value: v}
	}

	switch field.Kind {
	case schema.KindU8:
		v, err := c.ReadU8()
		if err != nil {
			return nil, err
		}
		return scalar(uint64(v)), nil
	case schema.KindU16:
		v, err := c.ReadU16()
		if err != nil {
			return nil, err
		}
		return scalar(uint64(v)), nil
	case schema.KindU32:
		v, err := c.ReadU32()
		if err != nil {
			return nil, err
		}
		return scalar(uint64(v)), nil
	case schema.KindU64:
		v, err := c.ReadU64()
		if err != nil {
			return nil, err
		}
		return scalar(v), nil
	case schema.KindF32:
		v, err := c.ReadF32()
		if err != nil {
			return nil, err
		}
		return scalar(float64(v)), nil
	case schema.KindF64:
		v, err := c.ReadF64()
		if err != nil {
			return nil, err
		}
		return scalar(v), nil
	case schema.KindStr:
		v, err := c.ReadString(2)
		if err != nil {
			return nil, err
		}
		return scalar(v), nil
	case schema.KindBytes:
		v, err := c.ReadBytes(field.Size)
		if err != nil {
			return nil, err
		}
		return scalar(v), nil
	case schema.KindOffset:
		target, err := c.ReadOffset32(0)
		if err != nil {
			return nil, err
		}
		return d.record(target, int64(len(d.payload)), depth+1), nil
	case schema.KindTable:
		count, err := c.ReadU32()
		if err != nil {
			return nil, err
		}
		if int64(count) > c.Remaining()/4 {
			return nil, fmt.Errorf("table count %d exceeds payload size %d", count, len(d.payload))
		}
		offsets := make([]int64, 0, count)
		for i := 0; i < int(count); i++ {
			target, err := c.ReadOffset32(0)
			if err != nil {
				return nil, err
			}
			offsets = append(offsets, target)
		}
		b := sortedBounds(offsets, int64(len(d.payload)))
		table := &Node{Kind: KindTable, Offset: start, Length: c.Pos() - start}
		for _, off := range offsets {
			table.Elems = append(table.Elems, d.record(off, b.next(off), depth+1))
		}
		return table, nil
	case schema.KindCode:
		length, err := c.ReadU32()
		if err != nil {
			return nil, err
		}
		codeStart := c.Pos()
		code, err := c.ReadBytes(int64(length))
		if err != nil {
			return nil, err
		}
		return &Node{Kind: KindInstructions, Offset: codeStart, Length: int64(length), Bytes: code}, nil
	default:
		panic(fmt.Sprintf("container: unhandled field kind %v", field.Kind))
	}
}

func (d *payloadDecoder) errorNode(off int64, reason string) *Node {
	d.unknown = append(d.unknown, ByteRange{
		Section: d.section,
		Start:   off,
		End:     int64(len(d.payload)),
		Reason:  reason,
	})
	return &Node{Kind: KindError, Offset: off, Err: reason}
}

// bounds answers "where may the record starting at off end, at the
// latest" using the sorted sibling offsets of its table.
type bounds struct {
	sorted []int64
	limit  int64
}

func sortedBounds(offsets []int64, limit int64) bounds {
	s := make([]int64, len(offsets))
	copy(s, offsets)
	sort.Slice(s, func(i, j int) bool { return s[i] < s[j] })
	return bounds{sorted: s, limit: limit}
}

func (b bounds) next(off int64) int64 {
	i := sort.Search(len(b.sorted), func(i int) bool { return b.sorted[i] > off })
	if i < len(b.sorted) {
		return b.sorted[i]
	}
	return b.limit
}
