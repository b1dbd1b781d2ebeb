package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
)

// ErrNoSource is returned by Build for a strategy without a C source.
var ErrNoSource = errors.New("strategy has no source to build")

const defaultCompiler = "mpicc"

// ResolveBinary returns the expected executable path for a strategy
// given the source directory.
func ResolveBinary(srcDir string, s Strategy) string {
	name := s.Binary
	if name == "" {
		name = s.Name
	}

	return filepath.Join(srcDir, name)
}

// Build compiles the strategy's C source in srcDir and returns the path of
// the produced executable.
func Build(
	ctx context.Context,
	logger *slog.Logger,
	srcDir string,
	s Strategy,
) (string, error) {
	if s.Source == "" {
		return "", fmt.Errorf("build %s: %w", s.Name, ErrNoSource)
	}

	// The compiler runs inside srcDir, so the output path must not be
	// relative to the caller's working directory.
	binPath, err := filepath.Abs(ResolveBinary(srcDir, s))
	if err != nil {
		return "", fmt.Errorf("build %s: %w", s.Name, err)
	}

	compiler := s.Compiler
	if compiler == "" {
		compiler = defaultCompiler
	}

	args := make([]string, 0, len(s.CFlags)+4)
	args = append(args, "-O2")
	args = append(args, s.CFlags...)
	args = append(args, "-o", binPath, s.Source)

	logger.InfoContext(ctx, "building benchmark",
		slog.String("strategy", s.Name),
		slog.String("source_dir", srcDir),
		slog.String("compiler", compiler),
	)

	cmd := exec.CommandContext(ctx, compiler, args...)
	cmd.Dir = srcDir
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("build %s: %w", s.Name, err)
	}

	if _, err := os.Stat(binPath); err != nil {
		return "", fmt.Errorf(
			"build %s: binary not found at %s", s.Name, binPath,
		)
	}

	logger.InfoContext(ctx, "benchmark built",
		slog.String("strategy", s.Name),
		slog.String("binary", binPath),
	)

	return binPath, nil
}
