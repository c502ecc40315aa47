package save

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/gindecomp/internal/bincur"
	"github.com/specialistvlad/gindecomp/internal/testutil"
)

func saveHeader(w *testutil.BinWriter) *testutil.BinWriter {
	return w.U32(Magic).U32(2)
}

func TestDecodeSave_Scalars(t *testing.T) {
	var w testutil.BinWriter
	saveHeader(&w).U32(6)
	w.Str("gold").U8(tagU32).U32(1500)
	w.Str("depth").U8(tagI32).U32(0xFFFFFFFF) // -1
	w.Str("playtime").U8(tagF64).F64(12.5)
	w.Str("hardcore").U8(tagBool).U8(1)
	w.Str("ship_name").U8(tagStr).Str("Siren's Call")
	w.Str("heading").U8(tagF32x2).F32(0.5).F32(-1)

	doc, err := DecodeSave(w.Bytes())
	require.NoError(t, err)
	assert.Equal(t, uint32(2), doc.Version)
	require.Len(t, doc.Pairs, 6)

	v, ok := doc.Get("gold")
	require.True(t, ok)
	assert.Equal(t, uint32(1500), v)

	v, _ = doc.Get("depth")
	assert.Equal(t, int32(-1), v)

	v, _ = doc.Get("playtime")
	assert.Equal(t, float64(12.5), v)

	v, _ = doc.Get("hardcore")
	assert.Equal(t, true, v)

	v, _ = doc.Get("ship_name")
	assert.Equal(t, "Siren's Call", v)

	v, _ = doc.Get("heading")
	assert.Equal(t, [2]float32{0.5, -1}, v)
}

func TestDecodeSave_GroupsAndCollections(t *testing.T) {
	var w testutil.BinWriter
	saveHeader(&w).U32(2)

	w.Str("Save").U8(tagMap).U32(2)
	w.Str("slot").U8(tagU32).U32(3)
	w.Str("position").U8(tagF32x3).F32(1).F32(2).F32(3)

	w.Str("SavedEntries").U8(tagMap).U32(1)
	w.Str("cutlass").U8(tagMap).U32(2)
	w.Str("state").U8(tagFlags).U32(FlagAcquired | FlagEquipped)
	w.Str("mods").U8(tagArray).U32(2)
	w.U8(tagEnum).Str("Sharpened")
	w.U8(tagEnum).Str("Balanced")

	doc, err := DecodeSave(w.Bytes())
	require.NoError(t, err)
	require.Len(t, doc.Pairs, 2)
	assert.Equal(t, "Save", doc.Pairs[0].Key)
	assert.Equal(t, "SavedEntries", doc.Pairs[1].Key)

	group := doc.Pairs[0].Value.(*Document)
	v, _ := group.Get("position")
	assert.Equal(t, [3]float32{1, 2, 3}, v)

	entries := doc.Pairs[1].Value.(*Document)
	cutlass := entries.Pairs[0].Value.(*Document)

	state, _ := cutlass.Get("state")
	flags := state.(Flags)
	assert.Equal(t, uint32(3), flags.Raw)
	assert.Equal(t, []string{"Acquired", "Equipped"}, flags.Names)

	mods, _ := cutlass.Get("mods")
	assert.Equal(t, []any{Enum("Sharpened"), Enum("Balanced")}, mods)
}

func TestDecodeSave_OrderPreservedInJSON(t *testing.T) {
	var w testutil.BinWriter
	saveHeader(&w).U32(3)
	w.Str("zeta").U8(tagU32).U32(1)
	w.Str("alpha").U8(tagU32).U32(2)
	w.Str("mid").U8(tagU32).U32(3)

	doc, err := DecodeSave(w.Bytes())
	require.NoError(t, err)

	out, err := EncodeJSON(doc)
	require.NoError(t, err)
	text := string(out)
	assert.Less(t, strings.Index(text, `"$version"`), strings.Index(text, `"zeta"`))
	assert.Less(t, strings.Index(text, `"zeta"`), strings.Index(text, `"alpha"`))
	assert.Less(t, strings.Index(text, `"alpha"`), strings.Index(text, `"mid"`))

	var round map[string]any
	require.NoError(t, json.Unmarshal(out, &round))
	assert.Equal(t, float64(2), round["$version"])
	assert.Equal(t, float64(2), round["alpha"])
}

func TestDecodeSave_UnknownTagPlaceholder(t *testing.T) {
	var w testutil.BinWriter
	saveHeader(&w).U32(2)
	w.Str("weird").U8(200).U32(0xabcd)
	w.Str("after").U8(tagU32).U32(1)

	doc, err := DecodeSave(w.Bytes())
	require.NoError(t, err)

	// The scan stops at the unframeable value; later pairs are dropped.
	require.Len(t, doc.Pairs, 1)
	u := doc.Pairs[0].Value.(Unsupported)
	assert.Equal(t, uint8(200), u.Tag)
	assert.Equal(t, int64(19), u.Offset)
}

func TestDecodeSave_Truncated(t *testing.T) {
	var w testutil.BinWriter
	saveHeader(&w).U32(1)
	w.Str("gold").U8(tagU64).U32(1) // u64 payload cut to four bytes

	_, err := DecodeSave(w.Bytes())
	require.ErrorIs(t, err, bincur.ErrTruncated)
	assert.Contains(t, err.Error(), `pair "gold"`)
}

func TestDecodeSave_HugeArrayCount(t *testing.T) {
	// A corrupt element count must fail the decode before it can drive
	// an allocation of that size.
	var w testutil.BinWriter
	saveHeader(&w).U32(1)
	w.Str("visited").U8(tagArray).U32(0xFFFFFFFF)

	_, err := DecodeSave(w.Bytes())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "array count 4294967295 exceeds remaining")
	assert.Contains(t, err.Error(), `pair "visited"`)
}

func TestDecodeSave_BadMagic(t *testing.T) {
	var w testutil.BinWriter
	w.U32(0x12345678).U32(1).U32(0)

	_, err := DecodeSave(w.Bytes())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a save file")

	assert.False(t, IsSave(w.Bytes()))
	assert.True(t, IsSave((&testutil.BinWriter{}).U32(Magic).Bytes()))
}

func TestDecodeSave_EmptyBuffer(t *testing.T) {
	_, err := DecodeSave(nil)
	require.ErrorIs(t, err, bincur.ErrTruncated)
}
