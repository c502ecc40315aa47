// Package container decodes .gin game binary containers into a typed
// node tree.
//
// A container carries a fixed main header, a table of section headers,
// and per-section payloads that may be ZSTD or LZ4 compressed. Each
// payload holds an offset table of tagged records whose layouts come
// from a schema.Registry. Decoding is best-effort: content the registry
// does not know, and records whose offsets fall outside the payload,
// become raw or error nodes while the rest of the file still decodes.
package container
