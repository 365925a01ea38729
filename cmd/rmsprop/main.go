// Package main provides the rmsprop CLI: it trains a toy quadratic model with
// the RMSProp optimizer and can persist optimizer state between runs.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

const version = "v0.1.0-dev"

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "version":
		fmt.Fprintf(out, "rmsprop %s\n", version)
		return nil
	case "train":
		return runTrain(ctx, args[1:], out)
	case "checkpoints":
		return runCheckpoints(ctx, args[1:], out)
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: rmsprop <version|train|checkpoints> [flags]", msg)
}

func newLogger(out io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
}
