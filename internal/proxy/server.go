// Package proxy serves the panel's JSON API and the static web UI.
package proxy

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"ytdlp-panel/internal/cache"
	"ytdlp-panel/internal/config"
	"ytdlp-panel/internal/database"
	"ytdlp-panel/internal/download"
	"ytdlp-panel/internal/logstore"
	"ytdlp-panel/internal/platform"
	"ytdlp-panel/internal/task"
	"ytdlp-panel/internal/ytdlp"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	cfg       config.Config
	addr      string
	logs      *logstore.Store
	launcher  *ytdlp.Launcher
	downloads *download.Service
	history   *task.Repository
	images    *cache.Manager
	revealer  *platform.Revealer
	client    *http.Client
	db        *sql.DB
	sessionID string
}

// NewServer wires every component from cfg. History is optional: when the
// database cannot be opened the server runs without it.
func NewServer(cfg config.Config, logs *logstore.Store) (*Server, error) {
	sessionID := uuid.NewString()

	var (
		db      *sql.DB
		history *task.Repository
	)
	if cfg.HistoryEnabled {
		var err error
		db, err = database.Init(cfg.DataDir)
		if err != nil {
			logs.Warnf(logstore.SourceServer, err.Error(), "Download history disabled: failed to open database")
		} else if history, err = task.NewRepository(db); err != nil {
			db.Close()
			db = nil
			logs.Warnf(logstore.SourceServer, err.Error(), "Download history disabled: failed to init table")
		}
	}

	images, err := cache.New(filepath.Join(cfg.DataDir, "images"))
	if err != nil {
		if db != nil {
			db.Close()
		}
		return nil, fmt.Errorf("failed to init image cache: %w", err)
	}
	logs.Debugf(logstore.SourceServer, "Image cache directory: %s", images.Dir())

	launcher := ytdlp.NewLauncher(cfg.Binary())
	registry := task.NewRegistry()
	svc := download.NewService(registry, launcher, logs, download.Options{
		History:   history,
		SessionID: sessionID,
	})

	timeout := time.Duration(cfg.ProxyTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Server{
		cfg:       cfg,
		addr:      cfg.Addr(),
		logs:      logs,
		launcher:  launcher,
		downloads: svc,
		history:   history,
		images:    images,
		revealer:  platform.NewRevealer(),
		client:    &http.Client{Timeout: timeout},
		db:        db,
		sessionID: sessionID,
	}, nil
}

// Handler returns the routed API and static file handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Static Files (Web UI)
	mux.Handle("/", http.FileServer(http.Dir(s.cfg.StaticDir)))

	// Video metadata
	mux.HandleFunc("POST /api/video-info", s.handleVideoInfo)
	mux.HandleFunc("POST /api/list-formats", s.handleListFormats)

	// Downloads
	mux.HandleFunc("POST /api/download", s.handleStartDownload)
	mux.HandleFunc("GET /api/download/{taskId}", s.handleGetDownload)
	mux.HandleFunc("DELETE /api/download/{taskId}", s.handleCancelDownload)
	mux.HandleFunc("GET /api/downloads", s.handleListDownloads)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("DELETE /api/history", s.handleClearHistory)

	// Logs
	mux.HandleFunc("GET /api/logs", s.handleGetLogs)
	mux.HandleFunc("POST /api/logs", s.handleAddLog)
	mux.HandleFunc("DELETE /api/logs", s.handleClearLogs)
	mux.HandleFunc("GET /api/logs/stats", s.handleLogStats)
	mux.HandleFunc("GET /api/logs/export", s.handleExportLogs)

	// System and media helpers
	mux.HandleFunc("GET /api/system-paths", s.handleSystemPaths)
	mux.HandleFunc("GET /api/proxy-image", s.handleProxyImage)
	mux.HandleFunc("GET /api/hls-variants", s.handleHLSVariants)
	mux.HandleFunc("POST /api/open-file-location", s.handleOpenFileLocation)
	mux.HandleFunc("GET /api/health", s.handleHealth)

	return withCORS(mux)
}

// Start serves until ctx is cancelled, then stops accepting requests and
// cancels running downloads.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logs.Infof(logstore.SourceServer, "Server running at http://localhost%s", s.addr)

	select {
	case err := <-errCh:
		s.close()
		return err
	case <-ctx.Done():
	}

	s.logs.Infof(logstore.SourceServer, "Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	if derr := s.downloads.Shutdown(shutdownCtx); derr != nil {
		s.logs.Warnf(logstore.SourceServer, derr.Error(), "Downloads did not stop in time")
	}
	s.close()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) close() {
	if s.db != nil {
		s.db.Close()
	}
}

// withCORS allows the UI to be served from a different origin during development.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type messageResponse struct {
	Success bool   `json:"success,omitempty"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// decodeBody reads a JSON request body into v. An empty body leaves v zero.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
