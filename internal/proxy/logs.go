package proxy

import (
	"net/http"
	"strconv"
	"strings"

	"ytdlp-panel/internal/logstore"
)

type addLogRequest struct {
	Level   string `json:"level"`
	Message string `json:"message"`
	Source  string `json:"source"`
	Details string `json:"details"`
}

type addLogResponse struct {
	Success bool   `json:"success"`
	LogID   string `json:"logId"`
}

func logFilter(r *http.Request) logstore.Filter {
	q := r.URL.Query()
	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil || limit <= 0 {
		limit = logstore.DefaultQueryLimit
	}
	return logstore.Filter{
		Level:  q.Get("level"),
		Search: q.Get("search"),
		Limit:  limit,
	}
}

func (s *Server) handleGetLogs(w http.ResponseWriter, r *http.Request) {
	// an explicit zero asks for nothing
	if r.URL.Query().Get("limit") == "0" {
		writeJSON(w, http.StatusOK, []logstore.Entry{})
		return
	}
	writeJSON(w, http.StatusOK, s.logs.Query(logFilter(r)))
}

func (s *Server) handleAddLog(w http.ResponseWriter, r *http.Request) {
	var req addLogRequest
	if err := decodeBody(r, &req); err != nil {
		s.logs.Warnf(logstore.SourceAPI, err.Error(), "Log request rejected: invalid body")
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Level) == "" || strings.TrimSpace(req.Message) == "" {
		s.logs.Warnf(logstore.SourceAPI, "", "Log request missing level or message")
		writeError(w, http.StatusBadRequest, logstore.ErrMissingMessage.Error())
		return
	}
	level, err := logstore.ParseLevel(req.Level)
	if err != nil {
		s.logs.Warnf(logstore.SourceAPI, "", "Log request rejected: %v", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	source := req.Source
	if source == "" {
		source = logstore.SourceClient
	}

	entry := s.logs.Append(level, req.Message, source, req.Details)
	writeJSON(w, http.StatusOK, addLogResponse{Success: true, LogID: entry.ID})
}

func (s *Server) handleClearLogs(w http.ResponseWriter, r *http.Request) {
	s.logs.Clear()
	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "Logs cleared"})
}

func (s *Server) handleLogStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.logs.Stats())
}

func (s *Server) handleExportLogs(w http.ResponseWriter, r *http.Request) {
	format := logstore.ExportFormat(r.URL.Query().Get("format"))
	switch format {
	case "", logstore.ExportText:
		format = logstore.ExportText
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="logs.txt"`)
	case logstore.ExportCSV:
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="logs.csv"`)
	default:
		s.logs.Warnf(logstore.SourceAPI, "", "Unsupported log export format: %s", format)
		writeError(w, http.StatusBadRequest, "unsupported export format")
		return
	}

	if err := s.logs.Export(w, format, logFilter(r)); err != nil {
		s.logs.Warnf(logstore.SourceAPI, err.Error(), "Log export interrupted")
	}
}
