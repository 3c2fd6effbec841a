package ytdlp

import (
	"path/filepath"
	"strings"
	"testing"
)

func flagValue(args []string, flag string) (string, bool) {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1], true
		}
	}
	return "", false
}

func TestBuildDownloadArgsYouTubeDefaultFormat(t *testing.T) {
	plan := BuildDownloadArgs("https://youtube.com/watch?v=X", "", "/dl", DefaultSiteRules)

	f, ok := flagValue(plan.Args, "-f")
	if !ok || f != YouTubeFormat {
		t.Fatalf("expected -f %s, got %q (present=%v)", YouTubeFormat, f, ok)
	}
	if plan.Site != "youtube" {
		t.Errorf("expected youtube rule, got %q", plan.Site)
	}
	if o, _ := flagValue(plan.Args, "-o"); o != filepath.Join("/dl", OutputTemplate) {
		t.Errorf("unexpected output template %q", o)
	}
	if plan.Args[len(plan.Args)-1] != "https://youtube.com/watch?v=X" {
		t.Errorf("url must be the last argument: %v", plan.Args)
	}
	for _, want := range []string{"--progress", "--newline", "--no-warnings"} {
		if !contains(plan.Args, want) {
			t.Errorf("missing %s in %v", want, plan.Args)
		}
	}
}

func TestBuildDownloadArgsYoutuBe(t *testing.T) {
	plan := BuildDownloadArgs("https://youtu.be/X", "auto", "/dl", DefaultSiteRules)
	if f, _ := flagValue(plan.Args, "-f"); f != YouTubeFormat {
		t.Errorf("expected youtube default format for youtu.be, got %q", f)
	}
}

func TestBuildDownloadArgsBilibili(t *testing.T) {
	plan := BuildDownloadArgs("https://bilibili.com/video/Y", "", "/dl", DefaultSiteRules)

	if _, ok := flagValue(plan.Args, "-f"); ok {
		t.Errorf("bilibili should not get a format flag: %v", plan.Args)
	}
	if ua, _ := flagValue(plan.Args, "--user-agent"); ua != BilibiliUserAgent {
		t.Errorf("unexpected user agent %q", ua)
	}
	if ref, _ := flagValue(plan.Args, "--referer"); ref != BilibiliReferer {
		t.Errorf("unexpected referer %q", ref)
	}
}

func TestBuildDownloadArgsExplicitFormat(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"youtube", "https://youtube.com/watch?v=X"},
		{"bilibili", "https://www.bilibili.com/video/BV1xx"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := BuildDownloadArgs(tt.url, "137+140", "/dl", DefaultSiteRules)
			if f, _ := flagValue(plan.Args, "-f"); f != "137+140" {
				t.Errorf("explicit format must win, got %q", f)
			}
			joined := strings.Join(plan.Args, " ")
			if strings.Count(joined, " -f ") != 1 {
				t.Errorf("expected exactly one -f flag: %v", plan.Args)
			}
			if strings.Contains(joined, "--user-agent") || strings.Contains(joined, "--referer") {
				t.Errorf("explicit format must not get site flags: %v", plan.Args)
			}
			if len(plan.Args) != 8 {
				t.Errorf("expected base flags, -f and url, got %v", plan.Args)
			}
		})
	}
}

func TestBuildDownloadArgsUnknownSite(t *testing.T) {
	plan := BuildDownloadArgs("https://example.org/clip", "", "/dl", DefaultSiteRules)
	if _, ok := flagValue(plan.Args, "-f"); ok {
		t.Errorf("unknown site should not get a format flag: %v", plan.Args)
	}
	if plan.Site != "" {
		t.Errorf("unexpected site %q", plan.Site)
	}
	if len(plan.Args) != 6 {
		t.Errorf("expected only base flags and url, got %v", plan.Args)
	}
}

func TestIsAutoFormat(t *testing.T) {
	for _, f := range []string{"", " ", "auto", "AUTO"} {
		if !IsAutoFormat(f) {
			t.Errorf("IsAutoFormat(%q) should be true", f)
		}
	}
	if IsAutoFormat("best") {
		t.Error("best is not auto")
	}
}

func TestCommandLineQuotes(t *testing.T) {
	l := NewLauncher("yt-dlp")
	got := l.CommandLine([]string{"-o", "/tmp/My Videos/%(title)s.%(ext)s", "https://a"})
	if !strings.Contains(got, "'/tmp/My Videos/%(title)s.%(ext)s'") {
		t.Errorf("expected quoted template, got %s", got)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
