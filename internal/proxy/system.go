package proxy

import (
	"errors"
	"net/http"
	"strings"

	"ytdlp-panel/internal/logstore"
	"ytdlp-panel/internal/platform"
)

type openFileRequest struct {
	FilePath string `json:"filePath"`
}

type healthResponse struct {
	Status        string `json:"status"`
	Message       string `json:"message"`
	ActiveTasks   int    `json:"activeTasks"`
	HistoryStored bool   `json:"historyStored"`
	Session       string `json:"session"`
}

func (s *Server) handleSystemPaths(w http.ResponseWriter, r *http.Request) {
	paths, err := platform.GetSystemPaths()
	if err != nil {
		s.logs.Errorf(logstore.SourceServer, err.Error(), "Failed to get system paths")
		writeError(w, http.StatusInternalServerError, "failed to get system paths")
		return
	}
	writeJSON(w, http.StatusOK, paths)
}

func (s *Server) handleOpenFileLocation(w http.ResponseWriter, r *http.Request) {
	var req openFileRequest
	if err := decodeBody(r, &req); err != nil || strings.TrimSpace(req.FilePath) == "" {
		s.logs.Warnf(logstore.SourceAPI, "", "Open file location request missing file path")
		writeError(w, http.StatusBadRequest, "file path is required")
		return
	}

	if err := s.revealer.Reveal(req.FilePath); err != nil {
		if errors.Is(err, platform.ErrFileNotFound) {
			s.logs.Warnf(logstore.SourceServer, err.Error(), "File not found: %s", req.FilePath)
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.logs.Errorf(logstore.SourceServer, err.Error(), "Failed to open file location")
		writeError(w, http.StatusInternalServerError, "failed to open file location")
		return
	}
	s.logs.Infof(logstore.SourceServer, "Opened file location: %s", req.FilePath)
	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "File location opened"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:        "ok",
		Message:       "yt-dlp panel server is running",
		ActiveTasks:   s.downloads.Active(),
		HistoryStored: s.history != nil,
		Session:       s.sessionID,
	})
}
