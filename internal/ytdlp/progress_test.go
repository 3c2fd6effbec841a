package ytdlp

import (
	"bufio"
	"strings"
	"testing"

	"ytdlp-panel/internal/task"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name        string
		line        string
		wantPrimary bool
		wantMatch   bool
		percent     float64
		hasPercent  bool
		speed       string
		eta         string
		size        string
	}{
		{
			name:        "full progress line",
			line:        "[download]  42.0% of 10.00MiB at 512.00KiB/s ETA 00:20",
			wantPrimary: true, wantMatch: true,
			percent: 42.0, hasPercent: true, speed: "512.00KiB/s", eta: "00:20", size: "10.00MiB",
		},
		{
			name:        "estimated size",
			line:        "[download]   5.3% of ~ 120.50MiB at  2.10MiB/s ETA 01:02:03",
			wantPrimary: true, wantMatch: true,
			percent: 5.3, hasPercent: true, speed: "2.10MiB/s", eta: "01:02:03", size: "120.50MiB",
		},
		{
			name:      "finished line falls back",
			line:      "[download] 100% of 10.00MiB in 00:00:05 at 2.00MiB/s",
			wantMatch: true,
			percent:   100, hasPercent: true, speed: "2.00MiB/s",
		},
		{
			name:      "unknown speed and eta",
			line:      "[download]  12.5% of 45.6MiB at Unknown B/s ETA Unknown",
			wantMatch: true,
			percent:   12.5, hasPercent: true,
		},
		{
			name:      "bare eta",
			line:      "frag 3/10 ETA 00:45",
			wantMatch: true,
			eta:       "00:45",
		},
		{
			name: "no progress",
			line: "[youtube] X: Downloading webpage",
		},
	}

	p := NewParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := p.ParseLine(tt.line)
			if res.HasProgress != tt.wantMatch {
				t.Fatalf("HasProgress = %v, want %v", res.HasProgress, tt.wantMatch)
			}
			if res.Primary != tt.wantPrimary {
				t.Errorf("Primary = %v, want %v", res.Primary, tt.wantPrimary)
			}
			if res.Progress.HasPercent != tt.hasPercent || res.Progress.Percent != tt.percent {
				t.Errorf("percent = %v (%v), want %v (%v)", res.Progress.Percent, res.Progress.HasPercent, tt.percent, tt.hasPercent)
			}
			if res.Progress.Speed != tt.speed {
				t.Errorf("speed = %q, want %q", res.Progress.Speed, tt.speed)
			}
			if res.Progress.ETA != tt.eta {
				t.Errorf("eta = %q, want %q", res.Progress.ETA, tt.eta)
			}
			if res.Progress.TotalSize != tt.size {
				t.Errorf("size = %q, want %q", res.Progress.TotalSize, tt.size)
			}
		})
	}
}

func TestParseLineDestination(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"[download] Destination: /dl/Clip 50% off.f137.mp4", "/dl/Clip 50% off.f137.mp4"},
		{`[Merger] Merging formats into "/dl/Clip.mp4"`, "/dl/Clip.mp4"},
		{"[download] /dl/Clip.mp4 has already been downloaded", "/dl/Clip.mp4"},
		{"[ExtractAudio] Destination: /dl/Clip.mp3", "/dl/Clip.mp3"},
		{`[MoveFiles] Moving file "/tmp/Clip.mkv" to "/dl/Clip.mkv"`, "/dl/Clip.mkv"},
	}
	p := NewParser()
	for _, tt := range tests {
		res := p.ParseLine(tt.line)
		if res.Destination != tt.want {
			t.Errorf("ParseLine(%q) destination = %q, want %q", tt.line, res.Destination, tt.want)
		}
		if res.HasProgress {
			t.Errorf("destination line %q must not produce progress", tt.line)
		}
	}
}

type fixedMatcher struct{ eta string }

func (m fixedMatcher) Match(line string) (task.Progress, bool) {
	return task.Progress{ETA: m.eta}, strings.HasPrefix(line, "custom")
}

func TestParserIsPluggable(t *testing.T) {
	p := &Parser{Primary: fixedMatcher{eta: "99:99"}}
	res := p.ParseLine("custom output format 10%")
	if !res.Primary || res.Progress.ETA != "99:99" {
		t.Fatalf("custom primary matcher not used: %+v", res)
	}
	if res := p.ParseLine("[download]  42.0% of 10.00MiB at 512.00KiB/s ETA 00:20"); res.HasProgress {
		t.Errorf("parser without fallbacks should ignore other lines, got %+v", res)
	}
}

func TestParseChunkSplitsLines(t *testing.T) {
	p := NewParser()
	chunk := "[download]  10.0% of 1.00MiB at 1.00KiB/s ETA 00:10\r[download]  20.0% of 1.00MiB at 2.00KiB/s ETA 00:05\n[info] done\n"
	got := p.ParseChunk(chunk)
	if len(got) != 2 {
		t.Fatalf("expected 2 progress results, got %d", len(got))
	}
	if got[1].Progress.Percent != 20 {
		t.Errorf("expected later line to carry 20%%, got %v", got[1].Progress.Percent)
	}
}

func TestScanLines(t *testing.T) {
	sc := bufio.NewScanner(strings.NewReader("a\rb\nc\r\nd"))
	sc.Split(ScanLines)
	var lines []string
	for sc.Scan() {
		if sc.Text() != "" {
			lines = append(lines, sc.Text())
		}
	}
	if strings.Join(lines, ",") != "a,b,c,d" {
		t.Errorf("unexpected lines %v", lines)
	}
}
