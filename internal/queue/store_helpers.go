package queue

import (
	"database/sql"
	"errors"
	"time"
)

const jobColumns = "id, job_key, text, output_path, format, reference_id, reference_audio, reference_text, seed, status, error_message, audio_bytes, created_at, updated_at, started_at, completed_at, last_heartbeat"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id           int64
		jobKey       string
		text         string
		outputPath   string
		format       string
		referenceID  sql.NullString
		refAudio     sql.NullString
		refText      sql.NullString
		seed         sql.NullInt64
		statusStr    string
		errorMessage sql.NullString
		audioBytes   sql.NullInt64
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
		startedRaw   sql.NullString
		completedRaw sql.NullString
		heartbeatRaw sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&jobKey,
		&text,
		&outputPath,
		&format,
		&referenceID,
		&refAudio,
		&refText,
		&seed,
		&statusStr,
		&errorMessage,
		&audioBytes,
		&createdRaw,
		&updatedRaw,
		&startedRaw,
		&completedRaw,
		&heartbeatRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:             id,
		JobKey:         jobKey,
		Text:           text,
		OutputPath:     outputPath,
		Format:         format,
		ReferenceID:    referenceID.String,
		ReferenceAudio: refAudio.String,
		ReferenceText:  refText.String,
		Status:         Status(statusStr),
		ErrorMessage:   errorMessage.String,
		AudioBytes:     audioBytes.Int64,
	}
	if seed.Valid {
		v := seed.Int64
		job.Seed = &v
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		job.UpdatedAt = updated
	}
	job.StartedAt = parseNullableTime(startedRaw)
	job.CompletedAt = parseNullableTime(completedRaw)
	job.LastHeartbeat = parseNullableTime(heartbeatRaw)
	return job, nil
}

func parseNullableTime(raw sql.NullString) *time.Time {
	if !raw.Valid {
		return nil
	}
	t, err := parseTimeString(raw.String)
	if err != nil {
		return nil
	}
	return &t
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableInt64(value *int64) any {
	if value == nil {
		return nil
	}
	return *value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
