package container

import (
	"context"
	"log/slog"

	"github.com/specialistvlad/gindecomp/internal/ctxlog"
	"github.com/specialistvlad/gindecomp/internal/script"
)

// RefineScripts runs structure reconstruction over every instruction
// block in the decoded tree. Blocks that reconstruct become structured
// nodes; blocks that do not stay as flat instruction listings, or as raw
// bytes when even linear decoding fails. The walk is a second pass so a
// pathological script never blocks container decoding.
func RefineScripts(ctx context.Context, file *DecodedFile) {
	logger := ctxlog.FromContext(ctx)
	for _, sec := range file.Sections {
		if ctx.Err() != nil {
			return
		}
		refineNode(ctx, sec.Root, sec.Header.Name, logger)
	}
}

func refineNode(ctx context.Context, n *Node, section string, logger *slog.Logger) {
	if n == nil {
		return
	}
	if n.Kind == KindInstructions {
		block, err := script.Reconstruct(n.Bytes)
		if err == nil {
			n.Kind = KindStructured
			n.Block = block
			return
		}
		// Degrade to a flat listing when the byte stream decodes but the
		// control flow does not reduce.
		ins, derr := script.DecodeStream(n.Bytes)
		if derr == nil {
			n.Block = &script.Block{Instructions: ins}
			logger.Warn("Script kept as flat listing.", "section", section, "offset", n.Offset, "reason", err)
		} else {
			logger.Warn("Script kept as raw bytes.", "section", section, "offset", n.Offset, "reason", derr)
		}
		return
	}
	for i := range n.Fields {
		refineNode(ctx, n.Fields[i].Node, section, logger)
	}
	for _, e := range n.Elems {
		refineNode(ctx, e, section, logger)
	}
}
