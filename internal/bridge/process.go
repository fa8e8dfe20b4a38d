package bridge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/vk/optalg/internal/ctxlog"
	"github.com/vk/optalg/internal/moderr"
)

// ProcessTransport runs the engine as a child process. The statement batch
// is written to a job file in a scratch directory, the engine is invoked
// with the job and result paths, and the result file is parsed back.
type ProcessTransport struct {
	// EnginePath is the engine executable. Required.
	EnginePath string
	// WorkDir holds job and result files. Defaults to a fresh temp dir
	// per submission.
	WorkDir string
	// ExtraArgs are appended after the job and result paths.
	ExtraArgs []string
	// KeepFiles leaves the scratch files in place for inspection.
	KeepFiles bool
}

// Submit writes the batch, runs the engine and parses the result file.
func (t *ProcessTransport) Submit(ctx context.Context, batch Batch) (*Result, error) {
	log := ctxlog.Maybe(ctx)
	if t.EnginePath == "" {
		return nil, &moderr.EngineExecutionError{Fatal: true, Detail: "no engine executable configured"}
	}

	dir := t.WorkDir
	if dir == "" {
		tmp, err := os.MkdirTemp("", "optalg-job-")
		if err != nil {
			return nil, fmt.Errorf("creating scratch dir: %w", err)
		}
		dir = tmp
		if !t.KeepFiles {
			defer os.RemoveAll(tmp)
		}
	}

	jobPath := filepath.Join(dir, "job.txt")
	resultPath := filepath.Join(dir, "result.txt")
	payload := strings.Join(batch.Statements, "\n") + "\n"
	if err := os.WriteFile(jobPath, []byte(payload), 0o644); err != nil {
		return nil, fmt.Errorf("writing job file: %w", err)
	}
	log.Debug("submitting job to engine process",
		slog.String("engine", t.EnginePath),
		slog.String("job", jobPath),
		slog.Int("statements", len(batch.Statements)))

	args := append([]string{jobPath, resultPath}, t.ExtraArgs...)
	cmd := exec.CommandContext(ctx, t.EnginePath, args...)
	cmd.Dir = dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	runErr := cmd.Run()
	if ctx.Err() != nil {
		return nil, &moderr.EngineExecutionError{
			Fatal:  false,
			Detail: "engine run cancelled",
			Err:    ctx.Err(),
		}
	}
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			// Nonzero exit with a result file present is a solver-level
			// failure the caller can recover from. No result file means
			// the engine itself broke.
			rc := exitErr.ExitCode()
			if _, statErr := os.Stat(resultPath); statErr == nil {
				res, perr := t.readResult(resultPath, out.String())
				if perr == nil {
					res.ReturnCode = rc
					return res, nil
				}
			}
			return nil, &moderr.EngineExecutionError{
				ReturnCode: rc,
				Fatal:      true,
				Detail:     firstLogLine(out.String()),
				Err:        runErr,
			}
		}
		return nil, &moderr.EngineExecutionError{Fatal: true, Detail: "engine failed to start", Err: runErr}
	}

	return t.readResult(resultPath, out.String())
}

func (t *ProcessTransport) readResult(path, engineLog string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &moderr.EngineExecutionError{Fatal: true, Detail: "engine produced no result file", Err: err}
	}
	defer f.Close()
	res, err := parseResult(f)
	if err != nil {
		return nil, &moderr.EngineExecutionError{Fatal: true, Detail: "malformed result file", Err: err}
	}
	res.Log = engineLog
	return res, nil
}

// Close is a no-op; every submission owns its own scratch state.
func (t *ProcessTransport) Close() error { return nil }

func firstLogLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if s == "" {
		return "engine exited with an error"
	}
	return s
}
