package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"time"
)

// stderrLogLimit caps how much of a failing tool's stderr lands in the log.
const stderrLogLimit = 4 << 10

// Runner executes an external recognition tool (tesseract, pdftotext,
// zbarimg) and returns its raw output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, name string, args ...string) ([]byte, []byte, error)

func (f RunnerFunc) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	return f(ctx, name, args...)
}

// ExecRunner runs tools on the host. A missing binary is reported as
// ErrEngineUnavailable; a run cut short by ctx reports ctx's error.
type ExecRunner struct {
	Logger *slog.Logger
}

func (r ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	log := r.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With("tool", name, "argc", len(args))

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout, cmd.Stderr = &stdout, &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start).Milliseconds()

	switch {
	case err == nil:
		log.Debug("ocr.exec.ok", "duration_ms", elapsed, "stdout_bytes", stdout.Len())
		return stdout.Bytes(), stderr.Bytes(), nil
	case errors.Is(err, exec.ErrNotFound):
		log.Error("ocr.exec.missing", "error", err)
		return nil, nil, fmt.Errorf("%s: %w", name, ErrEngineUnavailable)
	case ctx.Err() != nil:
		log.Warn("ocr.exec.cancelled", "duration_ms", elapsed, "error", ctx.Err())
		return stdout.Bytes(), stderr.Bytes(), fmt.Errorf("%s: %w", name, ctx.Err())
	}
	tail := stderr.Bytes()
	if len(tail) > stderrLogLimit {
		tail = tail[len(tail)-stderrLogLimit:]
	}
	log.Error("ocr.exec.failed", "duration_ms", elapsed, "error", err, "stderr", string(tail))
	return stdout.Bytes(), stderr.Bytes(), err
}
