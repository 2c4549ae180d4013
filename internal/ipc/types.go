package ipc

import (
	"time"

	"vox/internal/queue"
)

// Job is the wire representation of a synthesis job.
type Job struct {
	ID           int64      `json:"id"`
	JobKey       string     `json:"job_key"`
	Text         string     `json:"text"`
	OutputPath   string     `json:"output_path"`
	Format       string     `json:"format"`
	ReferenceID  string     `json:"reference_id,omitempty"`
	Status       string     `json:"status"`
	ErrorMessage string     `json:"error_message,omitempty"`
	AudioBytes   int64      `json:"audio_bytes"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// FromJob converts a queue job into its wire representation.
func FromJob(job *queue.Job) Job {
	if job == nil {
		return Job{}
	}
	return Job{
		ID:           job.ID,
		JobKey:       job.JobKey,
		Text:         job.Text,
		OutputPath:   job.OutputPath,
		Format:       job.Format,
		ReferenceID:  job.ReferenceID,
		Status:       string(job.Status),
		ErrorMessage: job.ErrorMessage,
		AudioBytes:   job.AudioBytes,
		CreatedAt:    job.CreatedAt,
		UpdatedAt:    job.UpdatedAt,
		CompletedAt:  job.CompletedAt,
	}
}

// ServerState mirrors the supervisor snapshot for status output.
type ServerState struct {
	State    string `json:"state"`
	PID      int    `json:"pid"`
	Restarts int    `json:"restarts"`
	LastExit string `json:"last_exit,omitempty"`
}

// StopRequest stops the daemon. FailPending additionally fails queued and
// in-flight jobs instead of leaving them for the next start.
type StopRequest struct {
	FailPending bool `json:"fail_pending"`
}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped    bool  `json:"stopped"`
	FailedJobs int64 `json:"failed_jobs"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents combined daemon/server/queue status information.
type StatusResponse struct {
	Running     bool           `json:"running"`
	Server      ServerState    `json:"server"`
	QueueStats  map[string]int `json:"queue_stats"`
	LastError   string         `json:"last_error"`
	LastJob     *Job           `json:"last_job"`
	LockPath    string         `json:"lock_path"`
	QueueDBPath string         `json:"queue_db_path"`
	LogPath     string         `json:"log_path"`
	PID         int            `json:"pid"`
}

// ServerRestartRequest cycles the inference server process.
type ServerRestartRequest struct{}

// ServerRestartResponse reports restart outcome.
type ServerRestartResponse struct {
	Restarted bool   `json:"restarted"`
	Message   string `json:"message"`
}

// QueueAddRequest enqueues a synthesis job.
type QueueAddRequest struct {
	Text           string `json:"text"`
	OutputPath     string `json:"output_path"`
	Format         string `json:"format"`
	ReferenceID    string `json:"reference_id"`
	ReferenceAudio string `json:"reference_audio"`
	ReferenceText  string `json:"reference_text"`
	Seed           *int64 `json:"seed"`
}

// QueueAddResponse contains the queued job.
type QueueAddResponse struct {
	Job Job `json:"job"`
}

// QueueListRequest filters queue listing by status.
type QueueListRequest struct {
	Statuses []string `json:"statuses"`
}

// QueueListResponse contains queue entries.
type QueueListResponse struct {
	Jobs []Job `json:"jobs"`
}

// QueueDescribeRequest fetches a single job by id, or by job key when Key
// is set.
type QueueDescribeRequest struct {
	ID  int64  `json:"id"`
	Key string `json:"key,omitempty"`
}

// QueueDescribeResponse contains a single job.
type QueueDescribeResponse struct {
	Job Job `json:"job"`
}

// QueueRemoveRequest removes specific jobs by ID.
type QueueRemoveRequest struct {
	IDs []int64 `json:"ids"`
}

// QueueRemoveResponse reports number of removed entries.
type QueueRemoveResponse struct {
	Removed int64 `json:"removed"`
}

// QueueClearRequest removes all jobs.
type QueueClearRequest struct{}

// QueueClearResponse reports number of removed entries.
type QueueClearResponse struct {
	Removed int64 `json:"removed"`
}

// QueueClearCompletedRequest removes completed jobs.
type QueueClearCompletedRequest struct{}

// QueueClearCompletedResponse reports number of removed entries.
type QueueClearCompletedResponse struct {
	Removed int64 `json:"removed"`
}

// QueueClearFailedRequest removes failed jobs.
type QueueClearFailedRequest struct{}

// QueueClearFailedResponse reports number of removed entries.
type QueueClearFailedResponse struct {
	Removed int64 `json:"removed"`
}

// QueueResetRequest resets in-flight jobs.
type QueueResetRequest struct{}

// QueueResetResponse reports number of jobs reset.
type QueueResetResponse struct {
	Updated int64 `json:"updated"`
}

// QueueRetryRequest retries failed jobs. Empty list means all failed jobs.
type QueueRetryRequest struct {
	IDs []int64 `json:"ids"`
}

// QueueRetryResponse reports number of retried jobs.
type QueueRetryResponse struct {
	Updated int64 `json:"updated"`
}

// QueueHealthRequest fetches aggregate diagnostics.
type QueueHealthRequest struct{}

// QueueHealthResponse reports queue health information.
type QueueHealthResponse struct {
	Total        int `json:"total"`
	Pending      int `json:"pending"`
	Synthesizing int `json:"synthesizing"`
	Failed       int `json:"failed"`
	Completed    int `json:"completed"`
}

// DatabaseHealthRequest fetches detailed database diagnostics.
type DatabaseHealthRequest struct{}

// DatabaseHealthResponse reports database health information.
type DatabaseHealthResponse struct {
	DBPath           string   `json:"db_path"`
	DatabaseExists   bool     `json:"database_exists"`
	DatabaseReadable bool     `json:"database_readable"`
	SchemaVersion    string   `json:"schema_version"`
	TableExists      bool     `json:"table_exists"`
	ColumnsPresent   []string `json:"columns_present"`
	MissingColumns   []string `json:"missing_columns"`
	IntegrityCheck   bool     `json:"integrity_check"`
	TotalJobs        int      `json:"total_jobs"`
	Error            string   `json:"error"`
}

// LogTailRequest fetches log lines based on offset and follow semantics.
type LogTailRequest struct {
	Offset     int64 `json:"offset"`
	Limit      int   `json:"limit"`
	Follow     bool  `json:"follow"`
	WaitMillis int   `json:"wait_millis"`
}

// LogTailResponse returns log lines and the next offset.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
