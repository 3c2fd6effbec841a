// Package download orchestrates yt-dlp download tasks: it validates requests,
// spawns the process, feeds its output into the task registry and finalises
// the task when the process exits.
package download

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"ytdlp-panel/internal/logstore"
	"ytdlp-panel/internal/task"
	"ytdlp-panel/internal/ytdlp"
)

var ErrMissingURL = errors.New("video url is required")

// maxLineSize bounds a single output line; yt-dlp lines are short.
const maxLineSize = 1024 * 1024

type Request struct {
	URL        string `json:"url"`
	Format     string `json:"format"`
	OutputPath string `json:"outputPath"`
}

type Service struct {
	registry  *task.Registry
	launcher  *ytdlp.Launcher
	resolver  *ytdlp.PathResolver
	parser    *ytdlp.Parser
	logs      *logstore.Store
	history   *task.Repository
	sessionID string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	now    func() time.Time
}

// Options carries optional collaborators. Zero values select defaults;
// a nil History disables persistence.
type Options struct {
	Resolver  *ytdlp.PathResolver
	Parser    *ytdlp.Parser
	History   *task.Repository
	SessionID string
}

func NewService(registry *task.Registry, launcher *ytdlp.Launcher, logs *logstore.Store, opts Options) *Service {
	if opts.Resolver == nil {
		opts.Resolver = ytdlp.NewPathResolver()
	}
	if opts.Parser == nil {
		opts.Parser = ytdlp.NewParser()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		registry:  registry,
		launcher:  launcher,
		resolver:  opts.Resolver,
		parser:    opts.Parser,
		logs:      logs,
		history:   opts.History,
		sessionID: opts.SessionID,
		ctx:       ctx,
		cancel:    cancel,
		now:       time.Now,
	}
}

// Start validates req, prepares the output directory and spawns yt-dlp.
// It returns as soon as the process is started. A spawn failure is not an
// error to the caller: the task is registered and immediately failed.
func (s *Service) Start(req Request) (int64, error) {
	url := strings.TrimSpace(req.URL)
	if url == "" {
		return 0, ErrMissingURL
	}

	dir, kind, created, err := s.resolver.Ensure(req.OutputPath)
	if err != nil {
		details := ""
		var pathErr *ytdlp.PathError
		if errors.As(err, &pathErr) {
			details = pathErr.Details()
		}
		s.logs.Errorf(logstore.SourceAPI, details, "Download directory is not usable: %v", err)
		return 0, err
	}
	s.logs.Infof(logstore.SourceAPI, "Using %s download path: %s", kind, dir)
	if created {
		s.logs.Infof(logstore.SourceAPI, "Created download directory: %s", dir)
	}

	id := s.registry.Create(url, req.Format)
	s.registry.SetOutputDir(id, dir)

	plan := s.launcher.Plan(url, req.Format, dir)
	s.logFormatChoice(req.Format, plan)
	s.logs.Infof(logstore.SourceYtDlp, "Executing: %s", s.launcher.CommandLine(plan.Args))

	proc, err := s.launcher.Start(s.ctx, plan.Args)
	if err != nil {
		s.registry.Fail(id, err.Error(), s.now())
		s.logs.Errorf(logstore.SourceYtDlp, err.Error(), "Failed to start yt-dlp process for task %d", id)
		s.persist(id)
		return id, nil
	}

	h := task.NewHandle(proc.OS())
	s.registry.Attach(id, h)
	// a shutdown may have cancelled the task before the handle was attached
	if snap, ok := s.registry.Get(id); ok && snap.Status == task.StatusCancelled {
		h.Release()
	}
	s.persist(id)

	s.wg.Add(1)
	go s.watch(id, proc, h)

	s.logs.Infof(logstore.SourceAPI, "Download task %d started for %s (pid %d)", id, url, proc.Pid())
	return id, nil
}

func (s *Service) logFormatChoice(requested string, plan ytdlp.DownloadPlan) {
	switch {
	case !ytdlp.IsAutoFormat(requested):
		s.logs.Infof(logstore.SourceYtDlp, "Using format: %s", plan.Format)
	case plan.Format != "":
		s.logs.Infof(logstore.SourceYtDlp, "Using %s format: %s", plan.Site, plan.Format)
	case plan.Site != "":
		s.logs.Infof(logstore.SourceYtDlp, "Using %s auto format selection", plan.Site)
	default:
		s.logs.Infof(logstore.SourceYtDlp, "Using auto format selection")
	}
}

// watch drains both output streams, waits for exit and records the outcome.
func (s *Service) watch(id int64, proc *ytdlp.Process, h *task.Handle) {
	defer s.wg.Done()

	var streams sync.WaitGroup
	streams.Add(2)
	go func() {
		defer streams.Done()
		s.pumpStdout(id, proc.Stdout)
	}()
	go func() {
		defer streams.Done()
		s.pumpStderr(id, proc.Stderr)
	}()
	streams.Wait()

	code, err := proc.Wait()
	h.Reap()
	s.logs.Infof(logstore.SourceYtDlp, "Task %d finished with code: %d", id, code)

	if err == nil {
		s.complete(id)
	} else {
		s.fail(id, code, err)
	}
	s.persist(id)
}

// chunkWriter appends raw process output to a task.
type chunkWriter func(id int64, text string)

type taskSink struct {
	id    int64
	write chunkWriter
}

func (w taskSink) Write(p []byte) (int, error) {
	w.write(w.id, string(p))
	return len(p), nil
}

func newScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	sc.Split(ytdlp.ScanLines)
	return sc
}

func (s *Service) pumpStdout(id int64, r io.Reader) {
	sc := newScanner(io.TeeReader(r, taskSink{id: id, write: s.registry.AppendOutput}))
	for sc.Scan() {
		res := s.parser.ParseLine(sc.Text())
		if res.Destination != "" {
			s.registry.SetDestination(id, res.Destination)
			continue
		}
		if !res.HasProgress {
			continue
		}
		s.registry.UpdateProgress(id, res.Progress)
		if res.Primary {
			s.logs.Debugf(logstore.SourceYtDlp, "Task %d progress: %.1f%%", id, res.Progress.Percent)
		}
	}
	// keep draining so the process never blocks on a full pipe
	io.Copy(io.Discard, r)
}

func (s *Service) pumpStderr(id int64, r io.Reader) {
	sc := newScanner(io.TeeReader(r, taskSink{id: id, write: s.registry.AppendError}))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		s.logs.Warnf(logstore.SourceYtDlp, "", "Task %d stderr: %s", id, line)
	}
	io.Copy(io.Discard, r)
}

func (s *Service) complete(id int64) {
	snap, ok := s.registry.Get(id)
	if !ok {
		return
	}
	file := ytdlp.LocateOutput(snap.OutputDir, snap.Destination, snap.StartTime)
	if !s.registry.Complete(id, file, s.now()) {
		return
	}
	if file == nil {
		s.logs.Warnf(logstore.SourceYtDlp, "", "Task %d completed but no output file found in %s", id, snap.OutputDir)
		return
	}
	s.logs.Infof(logstore.SourceYtDlp, "Task %d completed successfully in %s. File: %s, Size: %s",
		id, snap.Elapsed(s.now()).Round(time.Second), file.Name, humanize.Bytes(uint64(file.Size)))
}

func (s *Service) fail(id int64, code int, err error) {
	msg := fmt.Sprintf("yt-dlp exited with code %d", code)
	if code < 0 {
		msg = fmt.Sprintf("yt-dlp terminated: %v", err)
	}
	if !s.registry.Fail(id, msg, s.now()) {
		return
	}
	snap, _ := s.registry.Get(id)
	s.logs.Errorf(logstore.SourceYtDlp, strings.TrimSpace(snap.Error), "Task %d failed with code %d", id, code)
}

func (s *Service) persist(id int64) {
	if s.history == nil {
		return
	}
	snap, ok := s.registry.Get(id)
	if !ok {
		return
	}
	if err := s.history.Save(s.sessionID, snap); err != nil {
		s.logs.Warnf(logstore.SourceServer, err.Error(), "Failed to save history for task %d", id)
	}
}

func (s *Service) Get(id int64) (task.Snapshot, bool) {
	return s.registry.Get(id)
}

func (s *Service) List() []task.Snapshot {
	return s.registry.List()
}

// Active counts downloads still running.
func (s *Service) Active() int {
	return s.registry.Active()
}

// Cancel stops a running task. Cancelling a finished task succeeds without
// changing it.
func (s *Service) Cancel(id int64) error {
	changed, err := s.registry.Cancel(id)
	if errors.Is(err, task.ErrNotFound) {
		return err
	}
	if err != nil {
		s.logs.Warnf(logstore.SourceAPI, err.Error(), "Failed to kill process for task %d", id)
	}
	if changed {
		s.logs.Infof(logstore.SourceAPI, "Task %d cancelled", id)
		s.persist(id)
	}
	return nil
}

// Shutdown cancels every running task and waits for their watchers.
func (s *Service) Shutdown(ctx context.Context) error {
	ids := s.registry.CancelAll()
	for _, id := range ids {
		s.persist(id)
	}
	if len(ids) > 0 {
		s.logs.Infof(logstore.SourceServer, "Cancelled %d running downloads", len(ids))
	}
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
