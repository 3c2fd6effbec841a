package proxy

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"ytdlp-panel/internal/download"
	"ytdlp-panel/internal/logstore"
	"ytdlp-panel/internal/task"
	"ytdlp-panel/internal/ytdlp"
)

type startResponse struct {
	TaskID  int64  `json:"taskId"`
	Message string `json:"message"`
}

// taskStatus is the polling view of a task.
type taskStatus struct {
	ID       int64       `json:"id"`
	Status   task.Status `json:"status"`
	Progress float64     `json:"progress"`
	Speed    string      `json:"speed"`
	ETA      string      `json:"eta"`
	Error    string      `json:"error"`
}

// taskSummary is the list view of a task.
type taskSummary struct {
	ID        int64       `json:"id"`
	URL       string      `json:"url"`
	Format    string      `json:"format"`
	Status    task.Status `json:"status"`
	Progress  float64     `json:"progress"`
	Speed     string      `json:"speed"`
	ETA       string      `json:"eta"`
	FileName  string      `json:"fileName,omitempty"`
	FileSize  int64       `json:"fileSize,omitempty"`
	FilePath  string      `json:"filePath,omitempty"`
	StartTime time.Time   `json:"startTime"`
	EndTime   *time.Time  `json:"endTime,omitempty"`
}

func newTaskSummary(s task.Snapshot) taskSummary {
	out := taskSummary{
		ID:        s.ID,
		URL:       s.URL,
		Format:    s.Format,
		Status:    s.Status,
		Progress:  s.Progress,
		Speed:     s.Speed,
		ETA:       s.ETA,
		StartTime: s.StartTime.UTC(),
	}
	if s.File != nil {
		out.FileName = s.File.Name
		out.FileSize = s.File.Size
		out.FilePath = s.File.Path
	}
	if !s.EndTime.IsZero() {
		end := s.EndTime.UTC()
		out.EndTime = &end
	}
	return out
}

func (s *Server) handleStartDownload(w http.ResponseWriter, r *http.Request) {
	var req download.Request
	if err := decodeBody(r, &req); err != nil {
		s.logs.Warnf(logstore.SourceAPI, err.Error(), "Download request rejected: invalid body")
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, err := s.downloads.Start(req)
	if err != nil {
		var pathErr *ytdlp.PathError
		switch {
		case errors.Is(err, download.ErrMissingURL):
			s.logs.Warnf(logstore.SourceAPI, "", "Download request missing URL")
			writeError(w, http.StatusBadRequest, "video url is required")
		case errors.As(err, &pathErr):
			writeJSON(w, http.StatusInternalServerError, errorResponse{
				Error:   pathErr.Error(),
				Details: pathErr.Details(),
			})
		default:
			s.logs.Errorf(logstore.SourceAPI, err.Error(), "Failed to start download")
			writeError(w, http.StatusInternalServerError, "failed to start download")
		}
		return
	}

	writeJSON(w, http.StatusOK, startResponse{TaskID: id, Message: "Download task started"})
}

// taskID parses the {taskId} path value; it writes the error response itself.
func (s *Server) taskID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("taskId"), 10, 64)
	if err != nil {
		s.logs.Warnf(logstore.SourceAPI, err.Error(), "Invalid task id: %s", r.PathValue("taskId"))
		writeError(w, http.StatusBadRequest, "invalid task id")
		return 0, false
	}
	return id, true
}

func (s *Server) handleGetDownload(w http.ResponseWriter, r *http.Request) {
	id, ok := s.taskID(w, r)
	if !ok {
		return
	}
	snap, found := s.downloads.Get(id)
	if !found {
		s.logs.Warnf(logstore.SourceAPI, "", "Task %d not found", id)
		writeError(w, http.StatusNotFound, task.ErrNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, taskStatus{
		ID:       snap.ID,
		Status:   snap.Status,
		Progress: snap.Progress,
		Speed:    snap.Speed,
		ETA:      snap.ETA,
		Error:    snap.Error,
	})
}

func (s *Server) handleListDownloads(w http.ResponseWriter, r *http.Request) {
	snaps := s.downloads.List()
	out := make([]taskSummary, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, newTaskSummary(snap))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCancelDownload(w http.ResponseWriter, r *http.Request) {
	id, ok := s.taskID(w, r)
	if !ok {
		return
	}
	if err := s.downloads.Cancel(id); err != nil {
		s.logs.Warnf(logstore.SourceAPI, err.Error(), "Cannot cancel task %d", id)
		writeError(w, http.StatusNotFound, task.ErrNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Task cancelled"})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSON(w, http.StatusOK, []task.HistoryRecord{})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	records, err := s.history.List(limit)
	if err != nil {
		s.logs.Errorf(logstore.SourceAPI, err.Error(), "Failed to read download history")
		writeError(w, http.StatusInternalServerError, "failed to read download history")
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if s.history != nil {
		if err := s.history.Clear(); err != nil {
			s.logs.Errorf(logstore.SourceAPI, err.Error(), "Failed to clear download history")
			writeError(w, http.StatusInternalServerError, "failed to clear download history")
			return
		}
	}
	s.logs.Infof(logstore.SourceAPI, "Download history cleared")
	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "History cleared"})
}
