package ytdlp

import (
	"path/filepath"
	"strings"
)

// OutputTemplate is appended to the resolved directory for -o.
const OutputTemplate = "%(title)s.%(ext)s"

// FormatAuto means "let the site rules or yt-dlp decide".
const FormatAuto = "auto"

// SiteRule adjusts the argument vector for URLs containing one of Domains.
type SiteRule struct {
	Name    string
	Domains []string
	// ExtraArgs are appended for matching URLs when the format is auto.
	ExtraArgs []string
	// DefaultFormat replaces an auto format selector when non-empty.
	DefaultFormat string
}

func (r SiteRule) Matches(url string) bool {
	for _, d := range r.Domains {
		if strings.Contains(url, d) {
			return true
		}
	}
	return false
}

const (
	BilibiliUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	BilibiliReferer   = "https://www.bilibili.com/"
	YouTubeFormat     = "best[ext=mp4]/best[ext=webm]/best"
)

// DefaultSiteRules are checked in order; the first match applies.
var DefaultSiteRules = []SiteRule{
	{
		Name:      "bilibili",
		Domains:   []string{"bilibili.com"},
		ExtraArgs: []string{"--user-agent", BilibiliUserAgent, "--referer", BilibiliReferer},
	},
	{
		Name:          "youtube",
		Domains:       []string{"youtube.com", "youtu.be"},
		DefaultFormat: YouTubeFormat,
	},
}

// MatchSite returns the first rule matching url.
func MatchSite(rules []SiteRule, url string) (SiteRule, bool) {
	for _, r := range rules {
		if r.Matches(url) {
			return r, true
		}
	}
	return SiteRule{}, false
}

// IsAutoFormat reports whether format leaves the choice to the site rules.
func IsAutoFormat(format string) bool {
	f := strings.TrimSpace(format)
	return f == "" || strings.EqualFold(f, FormatAuto)
}

// DownloadPlan is the fully built invocation for one download.
type DownloadPlan struct {
	Args []string
	// Format is the -f value passed, empty when none.
	Format string
	// Site is the matched rule name, empty for unrecognised sites.
	Site string
}

// BuildDownloadArgs assembles the yt-dlp arguments for url into dir.
func BuildDownloadArgs(url, format, dir string, rules []SiteRule) DownloadPlan {
	args := []string{
		"--progress",
		"--newline",
		"--no-warnings",
		"-o", filepath.Join(dir, OutputTemplate),
	}

	plan := DownloadPlan{}
	site, matched := MatchSite(rules, url)
	if matched {
		plan.Site = site.Name
	}

	if !IsAutoFormat(format) {
		plan.Format = strings.TrimSpace(format)
		args = append(args, "-f", plan.Format)
	} else if matched {
		if site.DefaultFormat != "" {
			plan.Format = site.DefaultFormat
			args = append(args, "-f", plan.Format)
		}
		args = append(args, site.ExtraArgs...)
	}

	plan.Args = append(args, url)
	return plan
}

// InfoArgs dumps metadata for a single video as JSON.
func InfoArgs(url string) []string {
	return []string{"--dump-json", "--no-playlist", "--no-warnings", "--ignore-errors", url}
}

// ListFormatsArgs prints the human readable format table.
func ListFormatsArgs(url string) []string {
	return []string{"--list-formats", "--no-warnings", url}
}
