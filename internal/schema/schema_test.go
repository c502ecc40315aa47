package schema

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinRegistry(t *testing.T) {
	reg := Builtin()

	entry, ok := reg.Lookup(TagScript)
	require.True(t, ok)
	assert.Equal(t, "script", entry.Name)
	assert.True(t, entry.Executable)

	entry, ok = reg.Lookup(TagStringEntry)
	require.True(t, ok)
	assert.False(t, entry.Executable)
	require.Len(t, entry.Fields, 2)
	assert.Equal(t, "id", entry.Fields[0].Name)
	assert.Equal(t, KindU32, entry.Fields[0].Kind)

	_, ok = reg.Lookup(0xDEAD)
	assert.False(t, ok)
}

func TestRegisterOnSealedPanics(t *testing.T) {
	reg := Builtin()
	assert.Panics(t, func() {
		reg.Register(Entry{Tag: 0x9999, Name: "late"})
	})
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("f32")
	require.NoError(t, err)
	assert.Equal(t, KindF32, k)

	_, err = ParseKind("quaternion")
	assert.Error(t, err)
}

func TestLoadSchemaFiles(t *testing.T) {
	dir := t.TempDir()
	src := `
schema "waypoint" {
  tag = "0x0501"

  field "name" {
    kind = "str"
  }
  field "link" {
    kind = "offset"
    elem = "waypoint"
  }
}

schema "entity" {
  tag        = 257
  container  = true

  field "name" {
    kind = "str"
  }
  field "guid" {
    kind = "bytes"
    size = 16
  }
}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "custom.hcl"), []byte(src), 0644))

	reg, err := Load(context.Background(), dir)
	require.NoError(t, err)

	// New entry from the file.
	wp, ok := reg.Lookup(0x0501)
	require.True(t, ok)
	assert.Equal(t, "waypoint", wp.Name)
	require.Len(t, wp.Fields, 2)
	assert.Equal(t, KindOffset, wp.Fields[1].Kind)
	assert.Equal(t, uint32(0x0501), wp.Fields[1].Elem, "elem may reference the schema's own name")

	// The file's entity entry replaces the builtin one for tag 0x0101.
	ent, ok := reg.Lookup(0x0101)
	require.True(t, ok)
	require.Len(t, ent.Fields, 2)
	assert.Equal(t, "guid", ent.Fields[1].Name)
	assert.Equal(t, int64(16), ent.Fields[1].Size)
}

func TestLoadRejectsBadSchema(t *testing.T) {
	dir := t.TempDir()
	src := `
schema "broken" {
  tag = "0x0601"

  field "blob" {
    kind = "bytes"
  }
}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.hcl"), []byte(src), 0644))

	_, err := Load(context.Background(), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "positive size")
}

func TestLoadEmptyPathIsBuiltinOnly(t *testing.T) {
	reg, err := Load(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, Builtin().Len(), reg.Len())
}
