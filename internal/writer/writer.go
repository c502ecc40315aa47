package writer

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/gindecomp/internal/container"
	"github.com/specialistvlad/gindecomp/internal/ctxlog"
)

// Mode selects where artifacts land under the destination directory.
type Mode int

const (
	// ModeFlat writes every artifact directly into the destination,
	// prefixed with a batch ordinal to disambiguate duplicate names.
	ModeFlat Mode = iota
	// ModeStructure mirrors each file's declared in-game path under
	// ship/, with ship/decomp_assets as the fallback for path-less
	// asset bundles.
	ModeStructure
)

// fallbackDir receives path-less files in structure mode.
const fallbackDir = "decomp_assets"

// Options control artifact naming for one file.
type Options struct {
	Mode    Mode
	Source  string // input file path; names path-less files without a file id
	Ordinal int    // flat-mode filename prefix, carried across a batch
	Sidecar bool   // also emit the raw header tables as a JSON sidecar
}

// Report describes what Write produced for one file.
type Report struct {
	Output  string
	Sidecar string
	Partial bool
	Unknown []container.ByteRange
}

// WriteError is a filesystem-level failure. It is fatal for the file
// being written, never for the batch.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string { return fmt.Sprintf("write %s: %v", e.Path, e.Err) }
func (e *WriteError) Unwrap() error { return e.Err }

// Write serializes a decoded file under dest and returns where it
// landed. Field order in the artifact is exactly the decode order; node
// content never fails a write, only the filesystem does.
func Write(ctx context.Context, file *container.DecodedFile, dest string, opts Options) (*Report, error) {
	logger := ctxlog.FromContext(ctx)

	out := outputPath(file, dest, opts)
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return nil, &WriteError{Path: out, Err: err}
	}
	if err := os.WriteFile(out, encodeFile(file), 0o644); err != nil {
		return nil, &WriteError{Path: out, Err: err}
	}

	rep := &Report{Output: out, Partial: file.Partial(), Unknown: file.Unknown}
	if opts.Sidecar {
		sidecar, err := writeSidecar(file, out)
		if err != nil {
			return nil, err
		}
		rep.Sidecar = sidecar
	}
	logger.Debug("Wrote artifact.", "output", out, "partial", rep.Partial)
	return rep, nil
}

func outputPath(file *container.DecodedFile, dest string, opts Options) string {
	if opts.Mode == ModeFlat {
		name := fmt.Sprintf("%04d_%s.json", opts.Ordinal, identifier(file, opts))
		return filepath.Join(dest, name)
	}

	rel := sanitizeDeclared(file.Path)
	if rel == "" {
		rel = path.Join(fallbackDir, identifier(file, opts))
	} else if ext := path.Ext(rel); ext != "" {
		rel = strings.TrimSuffix(rel, ext)
	}
	return filepath.Join(dest, "ship", filepath.FromSlash(rel)+".json")
}

// sanitizeDeclared keeps a declared in-game path from escaping the
// destination. Anything that still points upward after cleaning is
// treated as path-less.
func sanitizeDeclared(declared string) string {
	if declared == "" {
		return ""
	}
	clean := path.Clean(strings.TrimPrefix(declared, "/"))
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return ""
	}
	return clean
}

// identifier names a file that has no usable declared path: the file id
// when the container carries one, else the input file's stem.
func identifier(file *container.DecodedFile, opts Options) string {
	if p := sanitizeDeclared(file.Path); p != "" {
		base := path.Base(p)
		if ext := path.Ext(base); ext != "" {
			base = strings.TrimSuffix(base, ext)
		}
		return base
	}
	if file.Main != nil && !bytes.Equal(file.Main.FileID, make([]byte, len(file.Main.FileID))) {
		return hex.EncodeToString(file.Main.FileID)
	}
	if opts.Source != "" {
		base := filepath.Base(opts.Source)
		if ext := filepath.Ext(base); ext != "" {
			base = strings.TrimSuffix(base, ext)
		}
		return base
	}
	return "unnamed"
}

// writeSidecar emits the raw main header and section table next to the
// artifact so the undecoded container metadata stays inspectable.
func writeSidecar(file *container.DecodedFile, out string) (string, error) {
	type sidecar struct {
		Main     *container.MainHeader      `json:"main_header"`
		Sections []*container.SectionHeader `json:"section_table"`
	}
	sc := sidecar{Main: file.Main}
	for _, s := range file.Sections {
		sc.Sections = append(sc.Sections, s.Header)
	}
	data, err := json.MarshalIndent(sc, "", "  ")
	if err != nil {
		return "", &WriteError{Path: out, Err: err}
	}

	p := strings.TrimSuffix(out, ".json") + ".header.json"
	if err := os.WriteFile(p, append(data, '\n'), 0o644); err != nil {
		return "", &WriteError{Path: p, Err: err}
	}
	return p, nil
}
