package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/specialistvlad/gindecomp/internal/batch"
	"github.com/specialistvlad/gindecomp/internal/container"
	"github.com/specialistvlad/gindecomp/internal/ctxlog"
	"github.com/specialistvlad/gindecomp/internal/fsutil"
	"github.com/specialistvlad/gindecomp/internal/mapstore"
	"github.com/specialistvlad/gindecomp/internal/save"
	"github.com/specialistvlad/gindecomp/internal/writer"
)

// Run executes the configured command.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.", "command", a.config.Command)

	switch a.config.Command {
	case CommandDecompile:
		return a.runDecompile(ctx)
	case CommandParse:
		return a.runParse(ctx)
	default:
		return fmt.Errorf("unknown command %q", a.config.Command)
	}
}

func (a *App) runDecompile(ctx context.Context) error {
	sources, err := a.collectInputs(ctx)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		a.logger.Warn("No .gin files found, nothing to do.")
		return nil
	}
	a.logger.Info("Starting decompile batch.", "files", len(sources), "workers", a.config.WorkerCount)

	var store *mapstore.Store
	if a.config.IndexPath != "" {
		store, err = mapstore.Open(a.config.IndexPath)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	// Flat-mode filename ordinals follow batch input order so a re-run
	// over the same inputs names artifacts identically.
	ordinals := make(map[string]int, len(sources))
	for i, s := range sources {
		ordinals[s] = i
	}

	rep := batch.Run(ctx, sources, a.config.WorkerCount, func(ctx context.Context, source string) batch.Result {
		return a.processFile(ctx, source, ordinals[source], store)
	})

	a.printReport(rep)
	if rep.Failed() {
		return fmt.Errorf("batch finished with %d failed file(s)", rep.Count(batch.StatusFailed))
	}
	return nil
}

// processFile takes one input from raw bytes to a written artifact. Every
// failure is contained in the returned result.
func (a *App) processFile(ctx context.Context, source string, ordinal int, store *mapstore.Store) batch.Result {
	logger := ctxlog.FromContext(ctx)

	data, err := os.ReadFile(source)
	if err != nil {
		return batch.Result{Source: source, Status: batch.StatusFailed, Err: err}
	}
	if !container.IsGin(data) {
		logger.Debug("Skipping non-container file.", "source", source)
		return batch.Result{Source: source, Status: batch.StatusSkipped, Err: fmt.Errorf("not a .gin file")}
	}

	if store != nil && !a.config.Force {
		unchanged, err := store.Unchanged(source, data)
		if err != nil {
			return batch.Result{Source: source, Status: batch.StatusFailed, Err: err}
		}
		if unchanged {
			prev, _, _ := store.Get(source)
			logger.Debug("Skipping unchanged input.", "source", source, "output", prev.Output)
			return batch.Result{Source: source, Status: batch.StatusSkipped, Output: prev.Output}
		}
	}

	file, err := container.Decode(ctx, data, a.registry)
	if err != nil {
		return batch.Result{Source: source, Status: batch.StatusFailed, Err: err}
	}
	container.RefineScripts(ctx, file)

	mode := writer.ModeFlat
	if a.config.Structure {
		mode = writer.ModeStructure
	}
	wrep, err := writer.Write(ctx, file, a.config.OutputDir, writer.Options{
		Mode:    mode,
		Source:  source,
		Ordinal: ordinal,
		Sidecar: a.config.Sidecar,
	})
	if err != nil {
		return batch.Result{Source: source, Status: batch.StatusFailed, Err: err}
	}

	if store != nil {
		err = store.Put(mapstore.Entry{
			Source:    source,
			Output:    wrep.Output,
			Sidecar:   wrep.Sidecar,
			Hash:      mapstore.Hash(data),
			Partial:   wrep.Partial,
			DecodedAt: time.Now().UTC(),
		})
		if err != nil {
			logger.Warn("Failed to record mapping.", "source", source, "error", err)
		}
	}

	status := batch.StatusOK
	if wrep.Partial {
		status = batch.StatusPartial
	}
	return batch.Result{
		Source:  source,
		Status:  status,
		Output:  wrep.Output,
		Sidecar: wrep.Sidecar,
		Unknown: wrep.Unknown,
	}
}

// collectInputs expands the configured inputs into a list of candidate
// files. Directories are scanned recursively for .gin files; explicit
// file paths are taken as-is. With no inputs the game directory is
// scanned instead.
func (a *App) collectInputs(ctx context.Context) ([]string, error) {
	paths := a.config.Inputs
	if len(paths) == 0 {
		paths = []string{a.config.GameDir}
	}

	var sources []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("input %s: %w", p, err)
		}
		if !info.IsDir() {
			sources = append(sources, p)
			continue
		}
		found, err := fsutil.FindFilesByExtension(p, ".gin")
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", p, err)
		}
		// Scanned candidates are sniffed up front so a directory full of
		// misnamed files does not clutter the report; explicit inputs
		// are reported instead of silently dropped.
		for _, f := range found {
			ok, err := fsutil.SniffMagic(f, container.Magic)
			if err != nil {
				return nil, fmt.Errorf("sniffing %s: %w", f, err)
			}
			if !ok {
				ctxlog.FromContext(ctx).Debug("Ignoring file without container magic.", "path", f)
				continue
			}
			sources = append(sources, f)
		}
	}
	return sources, nil
}

func (a *App) printReport(rep *batch.Report) {
	fmt.Fprintf(a.outW, "decompiled %d file(s): %d ok, %d partial, %d skipped, %d failed\n",
		len(rep.Results),
		rep.Count(batch.StatusOK),
		rep.Count(batch.StatusPartial),
		rep.Count(batch.StatusSkipped),
		rep.Count(batch.StatusFailed))
	for _, r := range rep.Results {
		switch r.Status {
		case batch.StatusFailed:
			fmt.Fprintf(a.outW, "  failed  %s: %v\n", r.Source, r.Err)
		case batch.StatusPartial:
			fmt.Fprintf(a.outW, "  partial %s -> %s (%d range(s) not understood)\n", r.Source, r.Output, len(r.Unknown))
		}
	}
}

func (a *App) runParse(ctx context.Context) error {
	source := a.config.Inputs[0]
	data, err := os.ReadFile(source)
	if err != nil {
		return err
	}

	doc, err := save.DecodeSave(data)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", source, err)
	}
	out, err := save.EncodeJSON(doc)
	if err != nil {
		return err
	}

	dest := a.config.OutputFile
	if dest == "" {
		dest = strings.TrimSuffix(source, filepath.Ext(source)) + ".json"
	}
	if dir := filepath.Dir(dest); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := os.WriteFile(dest, out, 0o644); err != nil {
		return err
	}

	a.logger.Info("Save file parsed.", "source", source, "output", dest)
	fmt.Fprintf(a.outW, "parsed %s -> %s\n", source, dest)
	return nil
}
