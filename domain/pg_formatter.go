package domain

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
)

const DefaultFormatter = "pg_format"

// RunFormatter normalizes a DDL file with pg_format, numbering statements so
// Walk can split them.
func RunFormatter(ctx context.Context, binary, filename string, logger *slog.Logger) (string, error) {
	if _, err := os.Stat(filename); err != nil {
		return "", fmt.Errorf("cannot read file %s: %w", filename, err)
	}
	if binary == "" {
		binary = DefaultFormatter
	}

	cmd := exec.CommandContext(ctx, binary, "-N", filename)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if logger != nil {
			logger.Error("pg_format failed", slog.String("stderr", stderr.String()))
		}
		return "", fmt.Errorf("cannot run %s: %w", binary, err)
	}

	return stdout.String(), nil
}

// ReadDDL returns the script at filename, formatted when formatter is set.
func ReadDDL(ctx context.Context, formatter, filename string, logger *slog.Logger) (string, error) {
	if formatter != "" {
		return RunFormatter(ctx, formatter, filename, logger)
	}

	b, err := os.ReadFile(filename)
	if err != nil {
		return "", fmt.Errorf("cannot read file %s: %w", filename, err)
	}

	return string(b), nil
}
