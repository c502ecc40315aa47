// Package mapstore keeps the persistent decompile index: which input
// produced which artifact, and a content hash per input for skipping
// unchanged files across runs.
package mapstore
