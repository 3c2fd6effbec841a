package ytdlp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/alessio/shellescape"
)

// Launcher spawns the yt-dlp binary.
type Launcher struct {
	Binary string
	Rules  []SiteRule
}

func NewLauncher(binary string) *Launcher {
	if binary == "" {
		binary = "yt-dlp"
	}
	return &Launcher{Binary: binary, Rules: DefaultSiteRules}
}

// Plan builds the download invocation for url into dir.
func (l *Launcher) Plan(url, format, dir string) DownloadPlan {
	return BuildDownloadArgs(url, format, dir, l.Rules)
}

// CommandLine renders the invocation as a shell-quoted string for logs.
func (l *Launcher) CommandLine(args []string) string {
	return shellescape.QuoteCommand(append([]string{l.Binary}, args...))
}

// Process is a running yt-dlp invocation with separate output streams.
type Process struct {
	cmd    *exec.Cmd
	Stdout io.ReadCloser
	Stderr io.ReadCloser
}

// Pid of the child process.
func (p *Process) Pid() int {
	return p.cmd.Process.Pid
}

// OS returns the process for ownership by a task.Handle.
func (p *Process) OS() *os.Process {
	return p.cmd.Process
}

// Wait blocks until the process exits. Both output streams must be drained
// first. The exit code is -1 when the process did not exit normally.
func (p *Process) Wait() (int, error) {
	err := p.cmd.Wait()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), err
	}
	return -1, err
}

// Start spawns yt-dlp with args. ctx cancellation kills the process.
func (l *Launcher) Start(ctx context.Context, args []string) (*Process, error) {
	cmd := exec.CommandContext(ctx, l.Binary, args...)
	cmd.Stdin = nil

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start yt-dlp: %w", err)
	}
	return &Process{cmd: cmd, Stdout: stdout, Stderr: stderr}, nil
}

// ExitError is returned by synchronous calls when yt-dlp exits non-zero.
type ExitError struct {
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	if msg := strings.TrimSpace(e.Stderr); msg != "" {
		return msg
	}
	return fmt.Sprintf("yt-dlp exited with code %d", e.Code)
}

// Run executes yt-dlp to completion and returns its stdout.
func (l *Launcher) Run(ctx context.Context, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, l.Binary, args...)

	var out bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return out.Bytes(), &ExitError{Code: exitErr.ExitCode(), Stderr: stderr.String()}
		}
		return out.Bytes(), fmt.Errorf("yt-dlp failed: %w", err)
	}
	return out.Bytes(), nil
}
