package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// VideoFormat is the subset of a yt-dlp format entry the UI needs.
// Nullable fields stay nil when yt-dlp reports null or omits them.
type VideoFormat struct {
	FormatID   string   `json:"format_id"`
	Ext        string   `json:"ext"`
	Quality    *float64 `json:"quality"`
	Filesize   *int64   `json:"filesize"`
	FormatNote string   `json:"format_note"`
	Height     *int     `json:"height"`
	Width      *int     `json:"width"`
	Protocol   string   `json:"protocol,omitempty"`
}

type VideoInfo struct {
	Title     string        `json:"title"`
	Duration  *float64      `json:"duration"`
	Uploader  string        `json:"uploader"`
	Thumbnail string        `json:"thumbnail"`
	Formats   []VideoFormat `json:"formats"`
}

// ParseVideoInfo decodes the first JSON document in the output of --dump-json.
func ParseVideoInfo(data []byte) (*VideoInfo, error) {
	var info VideoInfo
	if err := json.NewDecoder(bytes.NewReader(data)).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to parse video info: %w", err)
	}
	if info.Formats == nil {
		info.Formats = []VideoFormat{}
	}
	return &info, nil
}

// VideoInfo fetches metadata for url without downloading.
func (l *Launcher) VideoInfo(ctx context.Context, url string) (*VideoInfo, error) {
	out, err := l.Run(ctx, InfoArgs(url))
	if err != nil {
		return nil, err
	}
	return ParseVideoInfo(out)
}

// ListFormats returns yt-dlp's raw format table for url.
func (l *Launcher) ListFormats(ctx context.Context, url string) (string, error) {
	out, err := l.Run(ctx, ListFormatsArgs(url))
	if err != nil {
		return "", err
	}
	return string(out), nil
}
