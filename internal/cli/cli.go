package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/optalg/internal/app"
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
	flagSet := flag.NewFlagSet("optalg", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
optalg - algebraic model data tool.

Loads model data from HCL files or a binary container file, then dumps
the engine statement listing or converts between the two formats.

Usage:
  optalg [options] [DATA_PATH]

Arguments:
  DATA_PATH
    Path to a single .hcl data file or a directory containing .hcl files.

Options:
`)
		flagSet.PrintDefaults()
	}

	dataFlag := flagSet.String("data", "", "Path to the data file or directory.")
	dFlag := flagSet.String("d", "", "Path to the data file or directory (shorthand).")
	gtxInFlag := flagSet.String("gtx-in", "", "Binary container file to import before loading data.")
	gtxOutFlag := flagSet.String("gtx-out", "", "Write the container to this file instead of dumping a listing.")
	maxLenFlag := flagSet.Int("max-stmt-len", 0, "Statement length budget for the listing. 0 disables splitting.")
	logFormatFlag := flagSet.String("log-format", "json", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := ""
	if *dataFlag != "" {
		path = *dataFlag
	} else if *dFlag != "" {
		path = *dFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	slog.Debug("Data path determined.", "path", path)

	if path == "" && *gtxInFlag == "" {
		slog.Debug("No input provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

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
		DataPath:        path,
		GTXIn:           *gtxInFlag,
		GTXOut:          *gtxOutFlag,
		MaxStatementLen: *maxLenFlag,
		LogFormat:       logFormat,
		LogLevel:        logLevel,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.")
	return config, false, nil
}
