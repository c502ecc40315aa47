// Package batch runs per-file decompile jobs on a fixed worker pool and
// aggregates their outcomes into a report.
package batch
