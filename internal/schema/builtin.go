package schema

// Record type tags recovered so far. The numbering groups tags by family:
// 0x00xx strings, 0x01xx scene data, 0x02xx data tables, 0x03xx scripts,
// 0x04xx asset references.
const (
	TagStringTable uint32 = 0x0001
	TagStringEntry uint32 = 0x0002
	TagEntity      uint32 = 0x0101
	TagTransform   uint32 = 0x0102
	TagProperty    uint32 = 0x0103
	TagDataTable   uint32 = 0x0201
	TagDataRow     uint32 = 0x0202
	TagScript      uint32 = 0x0301
	TagScriptConst uint32 = 0x0302
	TagAssetRef    uint32 = 0x0401
)

// registerBuiltin installs the compiled-in layout table: the accumulated
// reverse-engineering knowledge of the .gin record family. User schema
// files loaded on top of this may replace individual entries.
func registerBuiltin(r *Registry) {
	r.Register(Entry{
		Tag:       TagStringTable,
		Name:      "string_table",
		Container: true,
		Fields: []Field{
			{Name: "name", Kind: KindStr},
			{Name: "entries", Kind: KindTable, Elem: TagStringEntry},
		},
	})
	r.Register(Entry{
		Tag:  TagStringEntry,
		Name: "string_entry",
		Fields: []Field{
			{Name: "id", Kind: KindU32},
			{Name: "text", Kind: KindStr},
		},
	})
	r.Register(Entry{
		Tag:       TagEntity,
		Name:      "entity",
		Container: true,
		Fields: []Field{
			{Name: "name", Kind: KindStr},
			{Name: "flags", Kind: KindU32},
			{Name: "transform", Kind: KindOffset, Elem: TagTransform},
			{Name: "properties", Kind: KindTable, Elem: TagProperty},
		},
	})
	r.Register(Entry{
		Tag:  TagTransform,
		Name: "transform",
		Fields: []Field{
			{Name: "px", Kind: KindF32},
			{Name: "py", Kind: KindF32},
			{Name: "pz", Kind: KindF32},
			{Name: "rx", Kind: KindF32},
			{Name: "ry", Kind: KindF32},
			{Name: "rz", Kind: KindF32},
			{Name: "scale", Kind: KindF32},
		},
	})
	r.Register(Entry{
		Tag:  TagProperty,
		Name: "property",
		Fields: []Field{
			{Name: "key", Kind: KindStr},
			{Name: "kind", Kind: KindU8},
			{Name: "value", Kind: KindU64},
		},
	})
	r.Register(Entry{
		Tag:       TagDataTable,
		Name:      "data_table",
		Container: true,
		Fields: []Field{
			{Name: "name", Kind: KindStr},
			{Name: "rows", Kind: KindTable, Elem: TagDataRow},
		},
	})
	r.Register(Entry{
		Tag:  TagDataRow,
		Name: "data_row",
		Fields: []Field{
			{Name: "id", Kind: KindU32},
			{Name: "a", Kind: KindU32},
			{Name: "b", Kind: KindU32},
			{Name: "weight", Kind: KindF32},
		},
	})
	r.Register(Entry{
		Tag:        TagScript,
		Name:       "script",
		Executable: true,
		Fields: []Field{
			{Name: "name", Kind: KindStr},
			{Name: "locals", Kind: KindU16},
			{Name: "consts", Kind: KindTable, Elem: TagScriptConst},
			{Name: "code", Kind: KindCode},
		},
	})
	r.Register(Entry{
		Tag:  TagScriptConst,
		Name: "script_const",
		Fields: []Field{
			{Name: "kind", Kind: KindU8},
			{Name: "value", Kind: KindU64},
		},
	})
	r.Register(Entry{
		Tag:  TagAssetRef,
		Name: "asset_ref",
		Fields: []Field{
			{Name: "path", Kind: KindStr},
			{Name: "kind", Kind: KindU32},
			{Name: "id", Kind: KindBytes, Size: 16},
		},
	})
}
