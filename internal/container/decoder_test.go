package container

import (
	"context"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/gindecomp/internal/schema"
	"github.com/specialistvlad/gindecomp/internal/script"
	"github.com/specialistvlad/gindecomp/internal/testutil"
)

const tagPair = 0x0501

// pairRegistry registers a minimal two-integer record layout.
func pairRegistry() *schema.Registry {
	r := schema.New()
	r.Register(schema.Entry{
		Tag:  tagPair,
		Name: "pair",
		Fields: []schema.Field{
			{Name: "a", Kind: schema.KindU32},
			{Name: "b", Kind: schema.KindU32},
		},
	})
	r.Seal()
	return r
}

func pairRecord(a, b uint32) []byte {
	var w testutil.BinWriter
	return w.U32(tagPair).U32(a).U32(b).Bytes()
}

func singleSectionGin(name string, payload []byte) []byte {
	return testutil.BuildGin(testutil.GinSpec{
		Path:     "data/scenes/harbor.gin",
		Sections: []testutil.SectionSpec{{Name: name, Payload: payload}},
	})
}

func TestDecode_TwoFieldRecord(t *testing.T) {
	data := singleSectionGin("objects", testutil.BuildPayload(pairRecord(7, 1024)))

	file, err := Decode(context.Background(), data, pairRegistry())
	require.NoError(t, err)

	require.Equal(t, "data/scenes/harbor.gin", file.Path)
	require.Len(t, file.Sections, 1)
	assert.Equal(t, "objects", file.Sections[0].Header.Name)

	root := file.Sections[0].Root
	require.Equal(t, KindTable, root.Kind)
	require.Len(t, root.Elems, 1)

	rec := root.Elems[0]
	require.Equal(t, KindRecord, rec.Kind)
	assert.Equal(t, "pair", rec.Name)
	require.Len(t, rec.Fields, 2)
	assert.Equal(t, "a", rec.Fields[0].Name)
	assert.Equal(t, uint64(7), rec.Fields[0].Node.Value)
	assert.Equal(t, "b", rec.Fields[1].Name)
	assert.Equal(t, uint64(1024), rec.Fields[1].Node.Value)
	assert.False(t, file.Partial())
}

func TestDecode_EntityWithNestedRecords(t *testing.T) {
	// Hand-assembled payload so the offset and table fields point at
	// known positions: entity at 8, transform at 34, property at 66.
	var w testutil.BinWriter
	w.U32(1).U32(8)
	w.U32(schema.TagEntity).Str("door").U32(3).U32(34).U32(1).U32(66)
	w.U32(schema.TagTransform)
	for i := 0; i < 6; i++ {
		w.F32(0)
	}
	w.F32(2.5)
	w.U32(schema.TagProperty).Str("hp").U8(1).U64(250)

	data := singleSectionGin("scene", w.Bytes())
	file, err := Decode(context.Background(), data, schema.Builtin())
	require.NoError(t, err)
	require.False(t, file.Partial())

	root := file.Sections[0].Root
	require.Len(t, root.Elems, 1)
	entity := root.Elems[0]
	require.Equal(t, "entity", entity.Name)
	require.Len(t, entity.Fields, 4)
	assert.Equal(t, "door", entity.Fields[0].Node.Value)
	assert.Equal(t, uint64(3), entity.Fields[1].Node.Value)

	transform := entity.Fields[2].Node
	require.Equal(t, KindRecord, transform.Kind)
	assert.Equal(t, "transform", transform.Name)
	assert.Equal(t, float64(float32(2.5)), transform.Fields[6].Node.Value)

	props := entity.Fields[3].Node
	require.Equal(t, KindTable, props.Kind)
	require.Len(t, props.Elems, 1)
	prop := props.Elems[0]
	assert.Equal(t, "property", prop.Name)
	assert.Equal(t, "hp", prop.Fields[0].Node.Value)
	assert.Equal(t, uint64(250), prop.Fields[2].Node.Value)
}

func TestDecode_UnknownTagBecomesRaw(t *testing.T) {
	unknown := (&testutil.BinWriter{}).U32(0x9999).U32(0xdeadbeef).Bytes()
	payload := testutil.BuildPayload(unknown, pairRecord(1, 2))

	file, err := Decode(context.Background(), singleSectionGin("objects", payload), pairRegistry())
	require.NoError(t, err)

	root := file.Sections[0].Root
	require.Len(t, root.Elems, 2)

	raw := root.Elems[0]
	require.Equal(t, KindRaw, raw.Kind)
	assert.Equal(t, uint32(0x9999), raw.Tag)
	// The raw span is bounded by the next sibling's offset.
	assert.Equal(t, int64(8), raw.Length)

	assert.Equal(t, KindRecord, root.Elems[1].Kind)

	require.True(t, file.Partial())
	require.Len(t, file.Unknown, 1)
	assert.Contains(t, file.Unknown[0].Reason, "unknown type tag 0x9999")
	assert.Equal(t, "objects", file.Unknown[0].Section)
}

func TestDecode_OffsetPastEndDegrades(t *testing.T) {
	var w testutil.BinWriter
	w.U32(1).U32(9999)

	file, err := Decode(context.Background(), singleSectionGin("objects", w.Bytes()), pairRegistry())
	require.NoError(t, err)

	root := file.Sections[0].Root
	require.Equal(t, KindError, root.Kind)
	assert.Contains(t, root.Err, "offset table entry 0")
	assert.True(t, file.Partial())
}

func TestDecode_RecordFieldTruncationBecomesErrorNode(t *testing.T) {
	// A pair record cut short after its first field.
	short := (&testutil.BinWriter{}).U32(tagPair).U32(7).Bytes()
	payload := testutil.BuildPayload(short)

	file, err := Decode(context.Background(), singleSectionGin("objects", payload), pairRegistry())
	require.NoError(t, err)

	rec := file.Sections[0].Root.Elems[0]
	require.Equal(t, KindError, rec.Kind)
	assert.Contains(t, rec.Err, `field "b"`)
	assert.True(t, file.Partial())
}

func TestDecode_Idempotent(t *testing.T) {
	payload := testutil.BuildPayload(pairRecord(7, 1024), pairRecord(3, 9))
	data := singleSectionGin("objects", payload)

	first, err := Decode(context.Background(), data, pairRegistry())
	require.NoError(t, err)
	second, err := Decode(context.Background(), data, pairRegistry())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestDecode_CompressedSections(t *testing.T) {
	// Repetitive records so both codecs actually shrink the payload.
	records := make([][]byte, 16)
	for i := range records {
		records[i] = pairRecord(42, 99)
	}
	payload := testutil.BuildPayload(records...)
	want, err := Decode(context.Background(), singleSectionGin("objects", payload), pairRegistry())
	require.NoError(t, err)

	for _, codec := range []string{"zstd", "lz4"} {
		t.Run(codec, func(t *testing.T) {
			data := testutil.BuildGin(testutil.GinSpec{
				Path:     "data/scenes/harbor.gin",
				Sections: []testutil.SectionSpec{{Name: "objects", Payload: payload, Compress: codec}},
			})
			got, err := Decode(context.Background(), data, pairRegistry())
			require.NoError(t, err)
			assert.Equal(t, want.Sections[0].Root, got.Sections[0].Root)
		})
	}
}

func TestDecode_NotAGinFile(t *testing.T) {
	data := []byte(strings.Repeat("x", 512))
	assert.False(t, IsGin(data))

	_, err := Decode(context.Background(), data, pairRegistry())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a .gin file")
}

func TestDecode_TruncatedSectionData(t *testing.T) {
	data := singleSectionGin("objects", testutil.BuildPayload(pairRecord(1, 2)))
	truncated := data[:MainHeaderSize+SectionHeaderSize+2]

	file, err := Decode(context.Background(), truncated, pairRegistry())
	require.NoError(t, err)
	require.Equal(t, KindError, file.Sections[0].Root.Kind)
	assert.Contains(t, file.Sections[0].Root.Err, "out of bounds")
	assert.True(t, file.Partial())
}

func TestDecode_HugeRecordCountBecomesErrorNode(t *testing.T) {
	// A corrupt count must degrade before it drives any allocation.
	payload := (&testutil.BinWriter{}).U32(0xFFFFFFFF).U32(8).Bytes()

	file, err := Decode(context.Background(), singleSectionGin("objects", payload), pairRegistry())
	require.NoError(t, err)
	require.Equal(t, KindError, file.Sections[0].Root.Kind)
	assert.Contains(t, file.Sections[0].Root.Err, "record count 4294967295 exceeds payload size")
	assert.True(t, file.Partial())
}

func TestDecode_HugeTableCountBecomesErrorNode(t *testing.T) {
	// entity whose property table claims more entries than the payload
	// could hold.
	var w testutil.BinWriter
	w.U32(1).U32(8)
	w.U32(schema.TagEntity).Str("door").U32(0).U32(30).U32(0xFFFFFFF0)
	w.U32(schema.TagTransform)
	for i := 0; i < 7; i++ {
		w.F32(0)
	}

	file, err := Decode(context.Background(), singleSectionGin("scene", w.Bytes()), schema.Builtin())
	require.NoError(t, err)

	root := file.Sections[0].Root
	require.Len(t, root.Elems, 1)
	require.Equal(t, KindError, root.Elems[0].Kind)
	assert.Contains(t, root.Elems[0].Err, "table count")
	assert.True(t, file.Partial())
}

func TestDecode_HugeSectionCountFailsFile(t *testing.T) {
	data := singleSectionGin("objects", testutil.BuildPayload(pairRecord(1, 2)))
	// section_count sits after magic, version, reserved, file id,
	// reserved_2 and the path field.
	binary.LittleEndian.PutUint32(data[292:], 0xFFFFFFFF)

	_, err := Decode(context.Background(), data, pairRegistry())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "section count 4294967295 exceeds file size")
}

func TestDecode_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	data := singleSectionGin("objects", testutil.BuildPayload(pairRecord(1, 2)))
	_, err := Decode(ctx, data, pairRegistry())
	require.ErrorIs(t, err, context.Canceled)
}

func TestRefineScripts_StructuresCode(t *testing.T) {
	// push 1; jz -> 15; push 2; ret
	code := (&testutil.BinWriter{}).
		U8(0x01).U32(1).
		U8(0x11).U32(15).
		U8(0x01).U32(2).
		U8(0x13).
		Bytes()

	var rec testutil.BinWriter
	rec.U32(schema.TagScript).Str("init").U16(0).U32(0).U32(uint32(len(code))).Raw(code)
	data := singleSectionGin("scripts", testutil.BuildPayload(rec.Bytes()))

	ctx := context.Background()
	file, err := Decode(ctx, data, schema.Builtin())
	require.NoError(t, err)

	codeNode := file.Sections[0].Root.Elems[0].Fields[3].Node
	require.Equal(t, KindInstructions, codeNode.Kind)
	require.Nil(t, codeNode.Block)

	RefineScripts(ctx, file)
	require.Equal(t, KindStructured, codeNode.Kind)
	require.NotNil(t, codeNode.Block)
	require.Len(t, codeNode.Block.Instructions, 4)

	total := 0
	for _, s := range codeNode.Block.Statements {
		total += s.InstructionCount()
	}
	assert.Equal(t, 4, total)

	var cond *script.CondStmt
	for _, s := range codeNode.Block.Statements {
		if c, ok := s.(*script.CondStmt); ok {
			cond = c
		}
	}
	require.NotNil(t, cond)
	assert.Len(t, cond.Then, 1)
	assert.Empty(t, cond.Else)
}

func TestRefineScripts_UnstructurableStaysFlat(t *testing.T) {
	// Branch into the middle of the push operand.
	code := (&testutil.BinWriter{}).
		U8(0x01).U32(1).
		U8(0x10).U32(2).
		Bytes()

	var rec testutil.BinWriter
	rec.U32(schema.TagScript).Str("broken").U16(0).U32(0).U32(uint32(len(code))).Raw(code)
	data := singleSectionGin("scripts", testutil.BuildPayload(rec.Bytes()))

	ctx := context.Background()
	file, err := Decode(ctx, data, schema.Builtin())
	require.NoError(t, err)
	RefineScripts(ctx, file)

	codeNode := file.Sections[0].Root.Elems[0].Fields[3].Node
	assert.Equal(t, KindInstructions, codeNode.Kind)
	require.NotNil(t, codeNode.Block)
	assert.Len(t, codeNode.Block.Instructions, 2)
	assert.Empty(t, codeNode.Block.Statements)
}
