package proxy

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/dustin/go-humanize"

	"ytdlp-panel/internal/logstore"
	playlist "ytdlp-panel/internal/m3u8"
	"ytdlp-panel/internal/ytdlp"
)

const defaultImageType = "image/jpeg"

type urlRequest struct {
	URL string `json:"url"`
}

type formatsResponse struct {
	Formats string `json:"formats"`
}

// toolError turns a synchronous yt-dlp failure into a client message.
// yt-dlp's own stderr is preferred because it names the actual problem.
func toolError(err error, fallback string) string {
	var exitErr *ytdlp.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Error()
	}
	return fallback
}

func (s *Server) handleVideoInfo(w http.ResponseWriter, r *http.Request) {
	var req urlRequest
	if err := decodeBody(r, &req); err != nil || strings.TrimSpace(req.URL) == "" {
		s.logs.Warnf(logstore.SourceAPI, "", "Video info request missing URL")
		writeError(w, http.StatusBadRequest, "video url is required")
		return
	}

	s.logs.Infof(logstore.SourceAPI, "Fetching video info for %s", req.URL)
	info, err := s.launcher.VideoInfo(r.Context(), req.URL)
	if err != nil {
		s.logs.Errorf(logstore.SourceYtDlp, err.Error(), "Failed to get video info for %s", req.URL)
		writeError(w, http.StatusInternalServerError, toolError(err, "failed to get video info"))
		return
	}
	s.logs.Infof(logstore.SourceYtDlp, "Video info retrieved: %s (%d formats)", info.Title, len(info.Formats))
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleListFormats(w http.ResponseWriter, r *http.Request) {
	var req urlRequest
	if err := decodeBody(r, &req); err != nil || strings.TrimSpace(req.URL) == "" {
		s.logs.Warnf(logstore.SourceAPI, "", "List formats request missing URL")
		writeError(w, http.StatusBadRequest, "video url is required")
		return
	}

	out, err := s.launcher.ListFormats(r.Context(), req.URL)
	if err != nil {
		s.logs.Errorf(logstore.SourceYtDlp, err.Error(), "Failed to list formats for %s", req.URL)
		writeError(w, http.StatusInternalServerError, toolError(err, "failed to list formats"))
		return
	}
	writeJSON(w, http.StatusOK, formatsResponse{Formats: out})
}

// upstreamURL validates the url query parameter.
func upstreamURL(r *http.Request) (*url.URL, error) {
	raw := r.URL.Query().Get("url")
	if raw == "" {
		return nil, errors.New("url parameter is required")
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid url: %s", raw)
	}
	return u, nil
}

// fetch GETs target with the configured upstream headers. Non-2xx answers
// are returned as errors.
func (s *Server) fetch(r *http.Request, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range s.cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("bad status code: %d", resp.StatusCode)
	}
	return resp, nil
}

func (s *Server) handleProxyImage(w http.ResponseWriter, r *http.Request) {
	u, err := upstreamURL(r)
	if err != nil {
		s.logs.Warnf(logstore.SourceAPI, "", "Rejected upstream url: %v", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	target := u.String()

	// Check Cache
	if path, contentType, ok := s.images.Lookup(target); ok {
		s.serveImage(w, r, path, contentType)
		return
	}

	resp, err := s.fetch(r, target)
	if err != nil {
		s.logs.Errorf(logstore.SourceServer, err.Error(), "Image proxy error")
		writeError(w, http.StatusBadGateway, "failed to load image")
		return
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = defaultImageType
	}
	n, err := s.images.Store(target, contentType, resp.Body)
	if err != nil {
		s.logs.Errorf(logstore.SourceServer, err.Error(), "Image proxy error")
		writeError(w, http.StatusBadGateway, "failed to load image")
		return
	}
	s.logs.Debugf(logstore.SourceServer, "Cached image %s (%s)", target, humanize.Bytes(uint64(n)))
	s.serveImage(w, r, s.images.FilePath(target), contentType)
}

func (s *Server) serveImage(w http.ResponseWriter, r *http.Request, path, contentType string) {
	if contentType == "" {
		contentType = defaultImageType
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	http.ServeFile(w, r, path)
}

func (s *Server) handleHLSVariants(w http.ResponseWriter, r *http.Request) {
	u, err := upstreamURL(r)
	if err != nil {
		s.logs.Warnf(logstore.SourceAPI, "", "Rejected upstream url: %v", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := s.fetch(r, u.String())
	if err != nil {
		s.logs.Warnf(logstore.SourceServer, err.Error(), "Failed to fetch playlist %s", u)
		writeError(w, http.StatusBadGateway, "failed to fetch upstream")
		return
	}
	defer resp.Body.Close()

	// redirects change the base for relative URIs
	base := resp.Request.URL
	summary, err := playlist.Inspect(resp.Body, base)
	if err != nil {
		s.logs.Warnf(logstore.SourceServer, err.Error(), "Failed to parse playlist %s", u)
		writeError(w, http.StatusBadGateway, "failed to parse m3u8")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
