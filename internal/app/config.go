package app

import (
	"errors"
	"fmt"
)

// Commands the application can run.
const (
	CommandDecompile = "decompile"
	CommandParse     = "parse"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	Command string

	Inputs     []string // .gin files or directories to scan (decompile); one save file (parse)
	OutputDir  string   // decompile destination directory
	OutputFile string   // parse destination file; derived from the input when empty
	GameDir    string   // game install dir; default input location for decompile
	SchemaPath string   // optional directory of .hcl schema overrides
	IndexPath  string   // decompile index file; empty disables skip-unchanged
	Structure  bool     // mirror declared in-game paths instead of flat output
	Sidecar    bool     // emit raw header sidecars
	Force      bool     // re-decompile even when the index says unchanged

	LogFormat   string
	LogLevel    string
	WorkerCount int
}

func NewConfig(cfg Config) (*Config, error) {
	switch cfg.Command {
	case CommandDecompile:
		if len(cfg.Inputs) == 0 && cfg.GameDir == "" {
			return nil, errors.New("decompile requires at least one input path or a game directory")
		}
		if cfg.OutputDir == "" {
			return nil, errors.New("decompile requires an output directory")
		}
	case CommandParse:
		if len(cfg.Inputs) != 1 {
			return nil, errors.New("parse requires exactly one save file")
		}
	default:
		return nil, fmt.Errorf("unknown command %q", cfg.Command)
	}

	if cfg.WorkerCount < 1 {
		cfg.WorkerCount = 1
	}

	return &cfg, nil
}
