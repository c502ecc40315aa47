package writer

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/gindecomp/internal/container"
	"github.com/specialistvlad/gindecomp/internal/schema"
	"github.com/specialistvlad/gindecomp/internal/testutil"
)

const tagPair = 0x0501

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

func decodedFixture(t *testing.T, declaredPath string) *container.DecodedFile {
	t.Helper()
	rec := (&testutil.BinWriter{}).U32(tagPair).U32(7).U32(1024).Bytes()
	data := testutil.BuildGin(testutil.GinSpec{
		Path:     declaredPath,
		Sections: []testutil.SectionSpec{{Name: "objects", Payload: testutil.BuildPayload(rec)}},
	})
	file, err := container.Decode(context.Background(), data, pairRegistry())
	require.NoError(t, err)
	return file
}

func TestWrite_FlatMode(t *testing.T) {
	dest := t.TempDir()
	file := decodedFixture(t, "data/scenes/harbor.gin")

	rep, err := Write(context.Background(), file, dest, Options{Mode: ModeFlat, Ordinal: 7})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dest, "0007_harbor.json"), rep.Output)
	assert.False(t, rep.Partial)

	raw, err := os.ReadFile(rep.Output)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "data/scenes/harbor.gin", doc["path"])

	sections := doc["sections"].([]any)
	require.Len(t, sections, 1)
	root := sections[0].(map[string]any)["root"].([]any)
	rec := root[0].(map[string]any)
	assert.Equal(t, "pair", rec["$type"])
	assert.Equal(t, float64(7), rec["a"])
	assert.Equal(t, float64(1024), rec["b"])

	// Field order in the artifact is the decode order.
	text := string(raw)
	assert.Less(t, strings.Index(text, `"a"`), strings.Index(text, `"b"`))
}

func TestWrite_StructureModeMirrorsDeclaredPath(t *testing.T) {
	dest := t.TempDir()
	file := decodedFixture(t, "data/scenes/harbor.gin")

	rep, err := Write(context.Background(), file, dest, Options{Mode: ModeStructure})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dest, "ship", "data", "scenes", "harbor.json"), rep.Output)
	assert.FileExists(t, rep.Output)
}

func TestWrite_PathlessFallsBackToDecompAssets(t *testing.T) {
	dest := t.TempDir()
	file := decodedFixture(t, "")

	rep, err := Write(context.Background(), file, dest, Options{
		Mode:   ModeStructure,
		Source: "/game/install/assets.gin",
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dest, "ship", "decomp_assets", "assets.json"), rep.Output)
}

func TestWrite_EscapingDeclaredPathIsTreatedAsPathless(t *testing.T) {
	dest := t.TempDir()
	file := decodedFixture(t, "../../etc/passwd")

	rep, err := Write(context.Background(), file, dest, Options{
		Mode:   ModeStructure,
		Source: "evil.gin",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(rep.Output, filepath.Join(dest, "ship", "decomp_assets")))
}

func TestWrite_Sidecar(t *testing.T) {
	dest := t.TempDir()
	file := decodedFixture(t, "data/scenes/harbor.gin")

	rep, err := Write(context.Background(), file, dest, Options{Mode: ModeFlat, Sidecar: true})
	require.NoError(t, err)
	require.NotEmpty(t, rep.Sidecar)
	assert.True(t, strings.HasSuffix(rep.Sidecar, ".header.json"))

	raw, err := os.ReadFile(rep.Sidecar)
	require.NoError(t, err)

	var sc struct {
		Main struct {
			Path         string `json:"path"`
			SectionCount uint32 `json:"section_count"`
		} `json:"main_header"`
		Sections []struct {
			Name string `json:"name"`
		} `json:"section_table"`
	}
	require.NoError(t, json.Unmarshal(raw, &sc))
	assert.Equal(t, "data/scenes/harbor.gin", sc.Main.Path)
	assert.Equal(t, uint32(1), sc.Main.SectionCount)
	require.Len(t, sc.Sections, 1)
	assert.Equal(t, "objects", sc.Sections[0].Name)
}

func TestWrite_RoundTripScalars(t *testing.T) {
	dest := t.TempDir()
	file := decodedFixture(t, "data/tables/loot.gin")

	rep, err := Write(context.Background(), file, dest, Options{Mode: ModeFlat})
	require.NoError(t, err)

	first, err := os.ReadFile(rep.Output)
	require.NoError(t, err)

	rep2, err := Write(context.Background(), file, t.TempDir(), Options{Mode: ModeFlat})
	require.NoError(t, err)
	second, err := os.ReadFile(rep2.Output)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestWrite_FilesystemFailure(t *testing.T) {
	dest := t.TempDir()
	// Occupy the destination path component with a regular file.
	blocked := filepath.Join(dest, "out")
	require.NoError(t, os.WriteFile(blocked, []byte("x"), 0o644))

	file := decodedFixture(t, "data/scenes/harbor.gin")
	_, err := Write(context.Background(), file, filepath.Join(blocked, "nested"), Options{Mode: ModeFlat})
	require.Error(t, err)

	var werr *WriteError
	require.ErrorAs(t, err, &werr)
	assert.NotEmpty(t, werr.Path)
}

func TestWrite_StructuredCodeRenders(t *testing.T) {
	dest := t.TempDir()

	code := (&testutil.BinWriter{}).
		U8(0x01).U32(1).
		U8(0x11).U32(15).
		U8(0x01).U32(2).
		U8(0x13).
		Bytes()
	var rec testutil.BinWriter
	rec.U32(schema.TagScript).Str("init").U16(0).U32(0).U32(uint32(len(code))).Raw(code)
	data := testutil.BuildGin(testutil.GinSpec{
		Path:     "data/scripts/init.gin",
		Sections: []testutil.SectionSpec{{Name: "scripts", Payload: testutil.BuildPayload(rec.Bytes())}},
	})

	ctx := context.Background()
	file, err := container.Decode(ctx, data, schema.Builtin())
	require.NoError(t, err)
	container.RefineScripts(ctx, file)

	rep, err := Write(ctx, file, dest, Options{Mode: ModeFlat})
	require.NoError(t, err)

	raw, err := os.ReadFile(rep.Output)
	require.NoError(t, err)
	text := string(raw)
	assert.Contains(t, text, `"$statements"`)
	assert.Contains(t, text, `"$if"`)
	assert.Contains(t, text, "push 1")

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
}
