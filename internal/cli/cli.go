package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/specialistvlad/gindecomp/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")

	if len(args) == 0 {
		printUsage(output)
		return nil, true, nil
	}

	command := args[0]
	switch command {
	case app.CommandDecompile, app.CommandParse:
		// known subcommand
	case "-h", "--help", "help":
		printUsage(output)
		return nil, true, nil
	default:
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("unknown command %q; expected 'decompile' or 'parse'", command)}
	}

	flagSet := flag.NewFlagSet("gindecomp "+command, flag.ContinueOnError)
	flagSet.SetOutput(output)
	flagSet.Usage = func() {
		printUsage(output)
		fmt.Fprintf(output, "\nOptions for %s:\n", command)
		flagSet.PrintDefaults()
	}

	outDirFlag := flagSet.String("out", "decomp", "Output directory for decompiled artifacts.")
	outFileFlag := flagSet.String("o", "", "Output file for the parsed save document.")
	gameDirFlag := flagSet.String("game-dir", "", "Game install directory to scan when no inputs are given.")
	schemaFlag := flagSet.String("schema", "", "Directory of .hcl schema files layered over the builtin table.")
	indexFlag := flagSet.String("index", "", "Path to the decompile index database. Empty disables skipping.")
	structureFlag := flagSet.Bool("structure", false, "Mirror declared in-game paths under ship/ instead of flat output.")
	sidecarFlag := flagSet.Bool("headers", false, "Also write raw header sidecar files.")
	forceFlag := flagSet.Bool("force", false, "Re-decompile inputs the index reports as unchanged.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	workersFlag := flagSet.Int("workers", 4, "Number of concurrent decode workers.")

	if err := flagSet.Parse(args[1:]); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		Command:     command,
		Inputs:      flagSet.Args(),
		OutputDir:   *outDirFlag,
		OutputFile:  *outFileFlag,
		GameDir:     *gameDirFlag,
		SchemaPath:  *schemaFlag,
		IndexPath:   *indexFlag,
		Structure:   *structureFlag,
		Sidecar:     *sidecarFlag,
		Force:       *forceFlag,
		LogFormat:   logFormat,
		LogLevel:    logLevel,
		WorkerCount: *workersFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "command", command)
	return config, false, nil
}

func printUsage(output io.Writer) {
	fmt.Fprint(output, `gindecomp - a decompiler for .gin game containers and save files.

Usage:
  gindecomp decompile [options] [INPUT...]
  gindecomp parse [options] SAVE_FILE

Commands:
  decompile
    Decode .gin containers into structured JSON artifacts. Inputs are
    files or directories; with none given, -game-dir is scanned.
  parse
    Convert a binary save file into a JSON document.

Run 'gindecomp <command> -h' for the command's options.
`)
}
