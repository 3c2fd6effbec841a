package logstore

import (
	"io"
	"os"
	"strings"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

const ansiReset = "\x1b[0m"

var levelColors = map[Level]string{
	LevelError: "\x1b[31m",
	LevelWarn:  "\x1b[33m",
	LevelInfo:  "\x1b[36m",
	LevelDebug: "\x1b[90m",
}

// Console returns a stdout writer that understands ANSI colours on every
// platform, and whether stdout is an interactive terminal.
func Console() (io.Writer, bool) {
	fd := os.Stdout.Fd()
	tty := isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	return colorable.NewColorableStdout(), tty
}

// mirror prints e as "[15:04:05] [SOURCE] [LEVEL] message details".
// Write errors are dropped so logging can never fail a caller.
func (s *Store) mirror(e Entry) {
	level := strings.ToUpper(string(e.Level))
	if s.color {
		if c, ok := levelColors[e.Level]; ok {
			level = c + level + ansiReset
		}
	}
	line := "[" + e.Timestamp.Local().Format("15:04:05") + "] [" + e.Source + "] [" + level + "] " + e.Message
	if e.Details != "" {
		line += " " + e.Details
	}
	_ = s.console.Output(2, line)
}
