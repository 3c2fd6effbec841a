package logstore

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"
)

type ExportFormat string

const (
	ExportText ExportFormat = "text"
	ExportCSV  ExportFormat = "csv"
)

// Export writes every entry matching f (Limit is ignored) oldest first.
func (s *Store) Export(w io.Writer, format ExportFormat, f Filter) error {
	f.Limit = s.max
	entries := s.Query(f)

	switch format {
	case ExportCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write([]string{"timestamp", "level", "source", "message", "details"}); err != nil {
			return err
		}
		for _, e := range entries {
			row := []string{e.Timestamp.Format(time.RFC3339Nano), string(e.Level), e.Source, e.Message, e.Details}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	case ExportText, "":
		for _, e := range entries {
			line := fmt.Sprintf("[%s] [%s] [%s] %s", e.Timestamp.Format(time.RFC3339Nano), strings.ToUpper(string(e.Level)), e.Source, e.Message)
			if e.Details != "" {
				line += "\n  " + e.Details
			}
			if _, err := io.WriteString(w, line+"\n"); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}
