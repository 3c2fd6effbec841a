package ytdlp

import (
	"bufio"
	"bytes"
	"regexp"
	"strconv"
	"strings"

	"ytdlp-panel/internal/task"
)

// LineMatcher extracts progress fields from a single line of output.
type LineMatcher interface {
	Match(line string) (task.Progress, bool)
}

// RegexMatcher maps capture groups of Pattern onto progress fields. A group
// index of zero means the field is not captured.
type RegexMatcher struct {
	Pattern   *regexp.Regexp
	Percent   int
	TotalSize int
	Speed     int
	ETA       int
}

func (m RegexMatcher) Match(line string) (task.Progress, bool) {
	sub := m.Pattern.FindStringSubmatch(line)
	if sub == nil {
		return task.Progress{}, false
	}
	var p task.Progress
	if m.Percent > 0 {
		v, err := strconv.ParseFloat(sub[m.Percent], 64)
		if err != nil {
			return task.Progress{}, false
		}
		p.Percent = v
		p.HasPercent = true
	}
	if m.TotalSize > 0 {
		p.TotalSize = sub[m.TotalSize]
	}
	if m.Speed > 0 {
		p.Speed = sub[m.Speed]
	}
	if m.ETA > 0 {
		p.ETA = sub[m.ETA]
	}
	return p, true
}

// [download]  42.0% of 10.00MiB at 512.00KiB/s ETA 00:20
var (
	fullProgressPattern = regexp.MustCompile(`\[download\]\s+(\d+\.?\d*)%\s+of\s+~?\s*([\d.]+\w+)\s+at\s+([\d.]+\w+/s)\s+ETA\s+(\d+:\d+(?::\d+)?)`)
	percentPattern      = regexp.MustCompile(`(\d+\.?\d*)%`)
	speedPattern        = regexp.MustCompile(`([\d.]+\w+/s)`)
	etaPattern          = regexp.MustCompile(`ETA\s+(\d+:\d+(?::\d+)?)`)
)

// DefaultPrimary captures percentage, total size, speed and ETA together.
var DefaultPrimary LineMatcher = RegexMatcher{Pattern: fullProgressPattern, Percent: 1, TotalSize: 2, Speed: 3, ETA: 4}

// DefaultFallbacks are tried independently when the primary pattern fails.
var DefaultFallbacks = []LineMatcher{
	RegexMatcher{Pattern: percentPattern, Percent: 1},
	RegexMatcher{Pattern: speedPattern, Speed: 1},
	RegexMatcher{Pattern: etaPattern, ETA: 1},
}

var destinationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\[download\] Destination: (.+)$`),
	regexp.MustCompile(`^\[Merger\] Merging formats into "(.+)"$`),
	regexp.MustCompile(`^\[download\] (.+) has already been downloaded`),
	regexp.MustCompile(`^\[ExtractAudio\] Destination: (.+)$`),
	regexp.MustCompile(`^\[MoveFiles\] Moving file ".+" to "(.+)"$`),
}

// LineResult is what one output line contributed.
type LineResult struct {
	Progress    task.Progress
	HasProgress bool
	// Primary is set when the full structured pattern matched.
	Primary     bool
	Destination string
}

// Parser scrapes yt-dlp's human readable output. It is best effort and makes
// no attempt to reject regressing or out-of-order values.
type Parser struct {
	Primary   LineMatcher
	Fallbacks []LineMatcher
}

func NewParser() *Parser {
	return &Parser{Primary: DefaultPrimary, Fallbacks: DefaultFallbacks}
}

// ParseLine applies the primary matcher, then every fallback when it fails.
// Lines announcing a destination file only yield the destination.
func (p *Parser) ParseLine(line string) LineResult {
	line = strings.TrimSpace(line)
	if line == "" {
		return LineResult{}
	}
	if dest, ok := MatchDestination(line); ok {
		return LineResult{Destination: dest}
	}
	if p.Primary != nil {
		if prog, ok := p.Primary.Match(line); ok {
			return LineResult{Progress: prog, HasProgress: true, Primary: true}
		}
	}

	var res LineResult
	for _, m := range p.Fallbacks {
		prog, ok := m.Match(line)
		if !ok {
			continue
		}
		res.HasProgress = true
		if prog.HasPercent {
			res.Progress.Percent = prog.Percent
			res.Progress.HasPercent = true
		}
		if prog.TotalSize != "" {
			res.Progress.TotalSize = prog.TotalSize
		}
		if prog.Speed != "" {
			res.Progress.Speed = prog.Speed
		}
		if prog.ETA != "" {
			res.Progress.ETA = prog.ETA
		}
	}
	return res
}

// ParseChunk splits a chunk of output into lines and parses each.
func (p *Parser) ParseChunk(chunk string) []LineResult {
	var out []LineResult
	for _, line := range strings.FieldsFunc(chunk, func(r rune) bool { return r == '\n' || r == '\r' }) {
		if res := p.ParseLine(line); res.HasProgress || res.Destination != "" {
			out = append(out, res)
		}
	}
	return out
}

// MatchDestination returns the output file a line announces, if any.
func MatchDestination(line string) (string, bool) {
	for _, re := range destinationPatterns {
		if sub := re.FindStringSubmatch(line); sub != nil {
			return strings.TrimSpace(sub[1]), true
		}
	}
	return "", false
}

// ScanLines is a bufio.SplitFunc that treats both '\n' and '\r' as line
// terminators, so carriage-return progress redraws become separate lines.
func ScanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

var _ bufio.SplitFunc = ScanLines
