// Package m3u8 inspects HLS playlists so the UI can show which stream
// variants a URL offers before handing it to yt-dlp.
package m3u8

import (
	"fmt"
	"io"
	"net/url"

	"github.com/grafov/m3u8"
)

type PlaylistType int

const (
	Master PlaylistType = iota
	Variant
	Unknown
)

func (t PlaylistType) String() string {
	switch t {
	case Master:
		return "master"
	case Variant:
		return "media"
	default:
		return "unknown"
	}
}

// Parse checks the content and returns the type and parsed object
func Parse(content io.Reader) (m3u8.Playlist, PlaylistType, error) {
	p, listType, err := m3u8.DecodeFrom(content, true)
	if err != nil {
		return nil, Unknown, err
	}

	switch listType {
	case m3u8.MASTER:
		return p, Master, nil
	case m3u8.MEDIA:
		return p, Variant, nil
	default:
		return nil, Unknown, fmt.Errorf("unknown playlist type")
	}
}

// ResolveURL resolves a relative reference against a base URL
func ResolveURL(base *url.URL, ref string) string {
	if base == nil {
		return ref
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref // fallback
	}
	return base.ResolveReference(refURL).String()
}

// StreamVariant is one entry of a master playlist.
type StreamVariant struct {
	URL        string  `json:"url"`
	Bandwidth  uint32  `json:"bandwidth"`
	Resolution string  `json:"resolution,omitempty"`
	Codecs     string  `json:"codecs,omitempty"`
	FrameRate  float64 `json:"frameRate,omitempty"`
}

// Summary describes a playlist without its segment list.
type Summary struct {
	Type           string          `json:"type"`
	Variants       []StreamVariant `json:"variants,omitempty"`
	Best           string          `json:"best,omitempty"`
	Segments       int             `json:"segments,omitempty"`
	TargetDuration float64         `json:"targetDuration,omitempty"`
	Duration       float64         `json:"duration,omitempty"`
	Encrypted      bool            `json:"encrypted,omitempty"`
	Live           bool            `json:"live"`
}

// Inspect parses a playlist fetched from base and summarises it. Variant
// and segment URIs are resolved against base.
func Inspect(content io.Reader, base *url.URL) (*Summary, error) {
	pl, listType, err := Parse(content)
	if err != nil {
		return nil, err
	}

	if listType == Master {
		masterPl := pl.(*m3u8.MasterPlaylist)
		s := &Summary{Type: Master.String(), Variants: []StreamVariant{}}
		var best *m3u8.Variant
		for _, v := range masterPl.Variants {
			if v == nil {
				continue
			}
			s.Variants = append(s.Variants, StreamVariant{
				URL:        ResolveURL(base, v.URI),
				Bandwidth:  v.Bandwidth,
				Resolution: v.Resolution,
				Codecs:     v.Codecs,
				FrameRate:  v.FrameRate,
			})
			if best == nil || v.Bandwidth > best.Bandwidth {
				best = v
			}
		}
		if best != nil {
			s.Best = ResolveURL(base, best.URI)
		}
		return s, nil
	}

	mediaPl := pl.(*m3u8.MediaPlaylist)
	s := &Summary{
		Type:           Variant.String(),
		TargetDuration: mediaPl.TargetDuration,
		Live:           !mediaPl.Closed,
	}
	if mediaPl.Key != nil && mediaPl.Key.Method != "" && mediaPl.Key.Method != "NONE" {
		s.Encrypted = true
	}
	for _, seg := range mediaPl.Segments {
		if seg == nil || seg.URI == "" {
			continue
		}
		s.Segments++
		s.Duration += seg.Duration
		if seg.Key != nil && seg.Key.Method != "" && seg.Key.Method != "NONE" {
			s.Encrypted = true
		}
	}
	return s, nil
}
