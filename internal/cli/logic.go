package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/idelchi/dirspace/internal/dirspace"
	"github.com/idelchi/dirspace/internal/logging"
)

func logic(ctx context.Context, s settings, out, errOut io.Writer) error {
	enableProgress := s.output == OutputTable &&
		!s.debug &&
		errOut == os.Stderr &&
		isatty.IsTerminal(os.Stderr.Fd())

	if ctx == nil {
		ctx = context.Background()
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	log := logging.NewConsoleTo(errOut, s.debug)

	options := s.options
	options.Logger = log

	// Simple progress callback that prints directly to stderr
	var progressHook func(files int64, bytes uint64)

	if enableProgress {
		// Hide cursor for in-place updates; restore on exit.
		fmt.Fprint(errOut, "\033[?25l")
		defer fmt.Fprint(errOut, "\033[?25h")

		progressHook = func(files int64, bytes uint64) {
			msg := fmt.Sprintf("Scanning… %d files, %s", files, humanize.IBytes(bytes))
			fmt.Fprintf(errOut, "\r\033[2K%s\r", msg)
		}
	}

	result, err := dirspace.Run(ctx, options, progressHook)

	// Clear the status line
	if enableProgress {
		fmt.Fprint(errOut, "\r\033[2K\r")
	}

	if result == nil {
		return err
	}

	if result.Truncated {
		log.Infof("results are partial: a depth or entry limit was reached")
	}

	if printErr := render(s.output, result, out); printErr != nil {
		return printErr
	}

	return err
}

func render(output string, result *dirspace.Result, out io.Writer) error {
	switch output {
	case OutputJSON:
		return PrintJSON(result, out)
	case OutputYAML:
		return PrintYAML(result, out)
	case OutputTree:
		return PrintTree(result, out)
	case OutputTable:
		return PrintTable(result, out)
	default:
		return fmt.Errorf("unknown output format: %s", output)
	}
}
