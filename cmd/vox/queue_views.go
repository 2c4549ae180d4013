package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"vox/internal/ipc"
)

const listTextWidth = 40

func buildQueueListRows(jobs []ipc.Job) [][]string {
	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		rows = append(rows, []string{
			strconv.FormatInt(job.ID, 10),
			truncateText(job.Text, listTextWidth),
			job.Status,
			formatTimestamp(job.CreatedAt),
			job.OutputPath,
		})
	}
	return rows
}

func truncateText(text string, width int) string {
	text = strings.Join(strings.Fields(text), " ")
	if width <= 3 || len(text) <= width {
		return text
	}
	return text[:width-3] + "..."
}

func formatTimestamp(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.Local().Format("2006-01-02 15:04:05")
}

func formatAudioBytes(size int64) string {
	switch {
	case size >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(size)/float64(1<<20))
	case size >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(size)/float64(1<<10))
	case size > 0:
		return fmt.Sprintf("%d B", size)
	default:
		return "-"
	}
}

func describeJobLines(job ipc.Job) []string {
	lines := []string{
		fmt.Sprintf("ID:          %d", job.ID),
		fmt.Sprintf("Key:         %s", job.JobKey),
		fmt.Sprintf("Status:      %s", job.Status),
		fmt.Sprintf("Format:      %s", job.Format),
		fmt.Sprintf("Output:      %s", job.OutputPath),
		fmt.Sprintf("Audio size:  %s", formatAudioBytes(job.AudioBytes)),
		fmt.Sprintf("Created:     %s", formatTimestamp(job.CreatedAt)),
		fmt.Sprintf("Updated:     %s", formatTimestamp(job.UpdatedAt)),
	}
	if job.CompletedAt != nil {
		lines = append(lines, fmt.Sprintf("Completed:   %s", formatTimestamp(*job.CompletedAt)))
	}
	if job.ReferenceID != "" {
		lines = append(lines, fmt.Sprintf("Reference:   %s", job.ReferenceID))
	}
	if job.ErrorMessage != "" {
		lines = append(lines, fmt.Sprintf("Error:       %s", job.ErrorMessage))
	}
	lines = append(lines, "Text:", "  "+job.Text)
	return lines
}
