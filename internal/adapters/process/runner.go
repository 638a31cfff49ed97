// Package process runs external commands synchronously and keeps their
// combined output in dated log files.
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/satishbabariya/kmigrator/internal/debug"
	"github.com/satishbabariya/kmigrator/internal/kerrors"
)

// Command is one external invocation.
type Command struct {
	// Tool names the log file: "<tool>.<unix-nanos>.log".
	Tool string
	Name string
	Args []string
	Dir  string
	// Env is appended to the runner's environment.
	Env []string
	// Stream receives the output while the command runs.
	Stream io.Writer
}

// Result is the outcome of a successful command.
type Result struct {
	// Stdout holds the standard output only.
	Stdout []byte
	// Output holds stdout and stderr interleaved, as written to the log.
	Output  []byte
	LogPath string
}

// Runner executes commands. Log files are written through fs.
type Runner struct {
	fs     afero.Fs
	logDir string
	env    []string
	now    func() time.Time
}

// NewRunner creates a runner logging into logDir.
func NewRunner(fs afero.Fs, logDir string) *Runner {
	return &Runner{fs: fs, logDir: logDir, env: os.Environ(), now: time.Now}
}

// WithEnv replaces the base environment passed to every command.
func (r *Runner) WithEnv(env []string) *Runner {
	r.env = env
	return r
}

// LogPath returns the path of a new dated log file for tool.
func (r *Runner) LogPath(tool string) string {
	return filepath.Join(r.logDir, fmt.Sprintf("%s.%d.log", tool, r.now().UnixNano()))
}

// Run executes cmd and blocks until it exits. A non-zero exit yields a
// *kerrors.SubprocessError carrying the output and the log path; a missing
// executable yields a *kerrors.ConfigurationError.
func (r *Runner) Run(ctx context.Context, cmd Command) (*Result, error) {
	argv := append([]string{cmd.Name}, cmd.Args...)
	log := debug.With("tool", cmd.Tool)
	log.Debug("exec", "command", strings.Join(argv, " "), "dir", cmd.Dir)

	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	c.Env = append(append([]string{}, r.env...), cmd.Env...)
	var out, stdout bytes.Buffer
	var w io.Writer = &out
	if cmd.Stream != nil {
		w = io.MultiWriter(&out, cmd.Stream)
	}
	var mu sync.Mutex
	c.Stdout = &syncWriter{mu: &mu, w: io.MultiWriter(&stdout, w)}
	c.Stderr = &syncWriter{mu: &mu, w: w}

	runErr := c.Run()
	if errors.Is(runErr, exec.ErrNotFound) {
		return nil, kerrors.NewConfigurationError(cmd.Name+" is not installed", runErr)
	}

	logPath := r.LogPath(cmd.Tool)
	if err := r.writeLog(logPath, out.Bytes()); err != nil {
		return nil, err
	}

	if runErr != nil {
		code := -1
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			code = exitErr.ExitCode()
		}
		log.Debug("exit", "code", code, "logfile", logPath)
		return nil, &kerrors.SubprocessError{
			Command:  argv,
			ExitCode: code,
			LogPath:  logPath,
			Output:   out.Bytes(),
			Cause:    runErr,
		}
	}
	return &Result{Stdout: stdout.Bytes(), Output: out.Bytes(), LogPath: logPath}, nil
}

func (r *Runner) writeLog(path string, data []byte) error {
	if err := r.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	if err := afero.WriteFile(r.fs, path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write log %s: %w", path, err)
	}
	return nil
}

// syncWriter serializes writes from the stdout and stderr copiers.
type syncWriter struct {
	mu *sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
