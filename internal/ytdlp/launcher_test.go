package ytdlp

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

// fakeBinary writes an executable shell script standing in for yt-dlp.
func fakeBinary(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fakes need a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "yt-dlp")
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

const sampleInfoJSON = `{"title":"Sample","duration":12.5,"uploader":"someone","thumbnail":"https://i.example/t.jpg",
"formats":[{"format_id":"18","ext":"mp4","quality":1,"filesize":1024,"format_note":"360p","height":360,"width":640,"protocol":"https"},
{"format_id":"sb0","ext":"mhtml","quality":null,"filesize":null,"format_note":"storyboard","height":null,"width":null}]}`

func TestVideoInfo(t *testing.T) {
	bin := fakeBinary(t, "cat <<'EOF'\n"+sampleInfoJSON+"\nEOF")
	l := NewLauncher(bin)

	info, err := l.VideoInfo(context.Background(), "https://example.com/v")
	if err != nil {
		t.Fatalf("VideoInfo failed: %v", err)
	}
	if info.Title != "Sample" || info.Uploader != "someone" {
		t.Errorf("unexpected info: %+v", info)
	}
	if info.Duration == nil || *info.Duration != 12.5 {
		t.Errorf("unexpected duration: %v", info.Duration)
	}
	if len(info.Formats) != 2 {
		t.Fatalf("expected 2 formats, got %d", len(info.Formats))
	}
	if info.Formats[0].Height == nil || *info.Formats[0].Height != 360 {
		t.Errorf("unexpected height: %v", info.Formats[0].Height)
	}
	if info.Formats[1].Filesize != nil || info.Formats[1].Height != nil {
		t.Errorf("null fields should stay nil: %+v", info.Formats[1])
	}
}

func TestVideoInfoInvalidJSON(t *testing.T) {
	bin := fakeBinary(t, "echo 'not json'")
	l := NewLauncher(bin)
	if _, err := l.VideoInfo(context.Background(), "https://example.com/v"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestRunExitError(t *testing.T) {
	bin := fakeBinary(t, "echo 'ERROR: Unsupported URL' >&2\nexit 2")
	l := NewLauncher(bin)

	_, err := l.ListFormats(context.Background(), "https://example.com/v")
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected *ExitError, got %v", err)
	}
	if exitErr.Code != 2 {
		t.Errorf("expected exit code 2, got %d", exitErr.Code)
	}
	if !strings.Contains(exitErr.Error(), "Unsupported URL") {
		t.Errorf("error should carry stderr, got %q", exitErr.Error())
	}
}

func TestListFormats(t *testing.T) {
	bin := fakeBinary(t, `echo "ID  EXT   RESOLUTION"; echo "18  mp4   640x360"`)
	l := NewLauncher(bin)

	out, err := l.ListFormats(context.Background(), "https://example.com/v")
	if err != nil {
		t.Fatalf("ListFormats failed: %v", err)
	}
	if !strings.Contains(out, "640x360") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestStartMissingBinary(t *testing.T) {
	l := NewLauncher(filepath.Join(t.TempDir(), "does-not-exist"))
	if _, err := l.Start(context.Background(), []string{"https://a"}); err == nil {
		t.Fatal("expected spawn error for missing binary")
	}
}

func TestStartSeparatesStreams(t *testing.T) {
	bin := fakeBinary(t, "echo out-line\necho err-line >&2\nexit 3")
	l := NewLauncher(bin)

	proc, err := l.Start(context.Background(), nil)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	stdout, _ := io.ReadAll(proc.Stdout)
	stderr, _ := io.ReadAll(proc.Stderr)
	code, err := proc.Wait()
	if err == nil || code != 3 {
		t.Fatalf("expected exit code 3, got %d (%v)", code, err)
	}
	if strings.TrimSpace(string(stdout)) != "out-line" || strings.TrimSpace(string(stderr)) != "err-line" {
		t.Errorf("streams mixed up: stdout=%q stderr=%q", stdout, stderr)
	}
}

func TestStartKilledByContext(t *testing.T) {
	bin := fakeBinary(t, "exec sleep 30")
	l := NewLauncher(bin)

	ctx, cancel := context.WithCancel(context.Background())
	proc, err := l.Start(ctx, nil)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	cancel()

	done := make(chan struct{})
	go func() {
		io.Copy(io.Discard, proc.Stdout)
		io.Copy(io.Discard, proc.Stderr)
		proc.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("process was not killed by context cancellation")
	}
}
