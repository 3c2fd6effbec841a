package task

import (
	"database/sql"
	"time"
)

// Repository persists task snapshots so finished downloads stay visible
// after a restart. The in-memory Registry remains authoritative for live tasks.
type Repository struct {
	db *sql.DB
}

// HistoryRecord is one persisted task snapshot.
type HistoryRecord struct {
	SessionID string     `json:"sessionId"`
	TaskID    int64      `json:"taskId"`
	URL       string     `json:"url"`
	Format    string     `json:"format"`
	Status    Status     `json:"status"`
	Progress  float64    `json:"progress"`
	Error     string     `json:"error,omitempty"`
	OutputDir string     `json:"outputDir,omitempty"`
	FileName  string     `json:"fileName,omitempty"`
	FileSize  int64      `json:"fileSize,omitempty"`
	FilePath  string     `json:"filePath,omitempty"`
	StartTime time.Time  `json:"startTime"`
	EndTime   *time.Time `json:"endTime,omitempty"`
}

func NewRepository(db *sql.DB) (*Repository, error) {
	r := &Repository{db: db}
	if err := r.InitTable(); err != nil {
		return nil, err
	}
	return r, nil
}

// InitTable creates the download_history table if it doesn't exist
func (r *Repository) InitTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS download_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		task_id INTEGER NOT NULL,
		url TEXT NOT NULL,
		format TEXT,
		status TEXT NOT NULL,
		progress REAL,
		error TEXT,
		output_dir TEXT,
		file_name TEXT,
		file_size INTEGER,
		file_path TEXT,
		start_time DATETIME,
		end_time DATETIME,
		UNIQUE(session_id, task_id)
	);

	CREATE INDEX IF NOT EXISTS idx_download_history_start ON download_history(start_time);
	`
	_, err := r.db.Exec(query)
	return err
}

// Save inserts or updates the row for (sessionID, s.ID).
func (r *Repository) Save(sessionID string, s Snapshot) error {
	query := `
	INSERT INTO download_history
		(session_id, task_id, url, format, status, progress, error, output_dir, file_name, file_size, file_path, start_time, end_time)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(session_id, task_id) DO UPDATE SET
		status = excluded.status,
		progress = excluded.progress,
		error = excluded.error,
		output_dir = excluded.output_dir,
		file_name = excluded.file_name,
		file_size = excluded.file_size,
		file_path = excluded.file_path,
		end_time = excluded.end_time`

	var fileName, filePath sql.NullString
	var fileSize sql.NullInt64
	if s.File != nil {
		fileName = sql.NullString{String: s.File.Name, Valid: true}
		filePath = sql.NullString{String: s.File.Path, Valid: true}
		fileSize = sql.NullInt64{Int64: s.File.Size, Valid: true}
	}
	var endTime sql.NullTime
	if !s.EndTime.IsZero() {
		endTime = sql.NullTime{Time: s.EndTime.UTC(), Valid: true}
	}

	_, err := r.db.Exec(query,
		sessionID, s.ID, s.URL, s.Format, string(s.Status), s.Progress, s.Error, s.OutputDir,
		fileName, fileSize, filePath, s.StartTime.UTC(), endTime)
	return err
}

// List returns up to limit records, newest first.
func (r *Repository) List(limit int) ([]HistoryRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
	SELECT session_id, task_id, url, format, status, progress, error, output_dir,
		file_name, file_size, file_path, start_time, end_time
	FROM download_history ORDER BY start_time DESC, id DESC LIMIT ?`
	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []HistoryRecord{}
	for rows.Next() {
		var rec HistoryRecord
		var format, errText, outputDir, fileName, filePath sql.NullString
		var progress sql.NullFloat64
		var fileSize sql.NullInt64
		var endTime sql.NullTime
		var status string
		if err := rows.Scan(&rec.SessionID, &rec.TaskID, &rec.URL, &format, &status, &progress, &errText, &outputDir,
			&fileName, &fileSize, &filePath, &rec.StartTime, &endTime); err != nil {
			return nil, err
		}
		rec.Status = Status(status)
		rec.Format = format.String
		rec.Progress = progress.Float64
		rec.Error = errText.String
		rec.OutputDir = outputDir.String
		rec.FileName = fileName.String
		rec.FileSize = fileSize.Int64
		rec.FilePath = filePath.String
		if endTime.Valid {
			t := endTime.Time
			rec.EndTime = &t
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Clear removes every history row.
func (r *Repository) Clear() error {
	_, err := r.db.Exec(`DELETE FROM download_history`)
	return err
}
