package schema

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/specialistvlad/gindecomp/internal/ctxlog"
	"github.com/specialistvlad/gindecomp/internal/fsutil"
)

// schemaFile mirrors the top-level structure of a user schema file.
type schemaFile struct {
	Schemas []*schemaBlock `hcl:"schema,block"`
}

// schemaBlock represents one `schema "name" { ... }` block.
type schemaBlock struct {
	Name       string         `hcl:"name,label"`
	Tag        hcl.Expression `hcl:"tag"`
	Container  *bool          `hcl:"container,optional"`
	Executable *bool          `hcl:"executable,optional"`
	Fields     []*fieldBlock  `hcl:"field,block"`
}

// fieldBlock represents one `field "name" { ... }` block.
type fieldBlock struct {
	Name string         `hcl:"name,label"`
	Kind string         `hcl:"kind"`
	Size *int64         `hcl:"size,optional"`
	Elem hcl.Expression `hcl:"elem,optional"`
}

// Load builds a registry from the compiled-in table plus every .hcl schema
// file found under schemaPath, then seals it. An empty schemaPath yields
// the builtin table alone. Schema files describe record layouts the same
// way the builtin table does, so the format knowledge can evolve without a
// rebuild; a schema block whose tag is already known replaces the builtin
// entry.
func Load(ctx context.Context, schemaPath string) (*Registry, error) {
	logger := ctxlog.FromContext(ctx)
	reg := New()
	registerBuiltin(reg)

	if schemaPath == "" {
		reg.Seal()
		return reg, nil
	}

	filePaths, err := fsutil.FindFilesByExtension(schemaPath, ".hcl")
	if err != nil {
		return nil, fmt.Errorf("failed to walk schema directory %s: %w", schemaPath, err)
	}
	if len(filePaths) == 0 {
		logger.Warn("No .hcl schema files found in path.", "path", schemaPath)
		reg.Seal()
		return reg, nil
	}
	logger.Debug("Found schema files to load.", "files", filePaths)

	parser := hclparse.NewParser()
	for _, filePath := range filePaths {
		hclFile, diags := parser.ParseHCLFile(filePath)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse schema file %s: %w", filePath, diags)
		}
		var parsed schemaFile
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &parsed); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode schema file %s: %w", filePath, diags)
		}
		for _, block := range parsed.Schemas {
			entry, err := buildEntry(block, reg)
			if err != nil {
				return nil, fmt.Errorf("schema %q in %s: %w", block.Name, filePath, err)
			}
			logger.Debug("Registering schema entry from file.", "name", entry.Name, "tag", fmt.Sprintf("0x%04x", entry.Tag))
			reg.Register(entry)
		}
	}

	reg.Seal()
	logger.Debug("Schema registry sealed.", "entries", reg.Len())
	return reg, nil
}

// buildEntry translates a decoded schema block into a registry entry.
func buildEntry(block *schemaBlock, reg *Registry) (Entry, error) {
	tag, err := evalTag(block.Tag)
	if err != nil {
		return Entry{}, fmt.Errorf("tag: %w", err)
	}

	entry := Entry{Tag: tag, Name: block.Name}
	if block.Container != nil {
		entry.Container = *block.Container
	}
	if block.Executable != nil {
		entry.Executable = *block.Executable
	}

	for _, fb := range block.Fields {
		kind, err := ParseKind(fb.Kind)
		if err != nil {
			return Entry{}, fmt.Errorf("field %q: %w", fb.Name, err)
		}
		field := Field{Name: fb.Name, Kind: kind}
		if fb.Size != nil {
			if kind != KindBytes {
				return Entry{}, fmt.Errorf("field %q: size is only valid for bytes fields", fb.Name)
			}
			field.Size = *fb.Size
		}
		if kind == KindBytes && field.Size <= 0 {
			return Entry{}, fmt.Errorf("field %q: bytes fields require a positive size", fb.Name)
		}
		if fb.Elem != nil {
			elem, err := evalElem(fb.Elem, reg, entry)
			if err != nil {
				return Entry{}, fmt.Errorf("field %q: elem: %w", fb.Name, err)
			}
			field.Elem = elem
		}
		entry.Fields = append(entry.Fields, field)
	}
	return entry, nil
}

// evalTag evaluates a tag expression. Tags may be written as numbers or as
// strings in any base strconv accepts ("257", "0x0101").
func evalTag(expr hcl.Expression) (uint32, error) {
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return 0, diags
	}
	return ctyToTag(val)
}

// evalElem evaluates an elem expression: either a tag (as for evalTag) or
// the name of an already-registered schema. The entry being built resolves
// by name too, so a schema may reference itself.
func evalElem(expr hcl.Expression, reg *Registry, self Entry) (uint32, error) {
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return 0, diags
	}
	if val.IsNull() {
		return 0, nil
	}
	if val.Type() == cty.String {
		s := val.AsString()
		if !strings.HasPrefix(s, "0x") {
			if s == self.Name {
				return self.Tag, nil
			}
			if e, ok := reg.LookupName(s); ok {
				return e.Tag, nil
			}
		}
	}
	return ctyToTag(val)
}

func ctyToTag(val cty.Value) (uint32, error) {
	if val.Type() == cty.String {
		n, err := strconv.ParseUint(val.AsString(), 0, 32)
		if err != nil {
			return 0, fmt.Errorf("cannot parse %q as a type tag: %w", val.AsString(), err)
		}
		return uint32(n), nil
	}
	converted, err := convert.Convert(val, cty.Number)
	if err != nil {
		return 0, fmt.Errorf("cannot convert %s to a type tag: %w", val.Type().FriendlyName(), err)
	}
	n, _ := converted.AsBigFloat().Uint64()
	if n > 0xFFFFFFFF {
		return 0, fmt.Errorf("type tag %d does not fit in 32 bits", n)
	}
	return uint32(n), nil
}
