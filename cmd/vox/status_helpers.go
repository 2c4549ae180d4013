package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"vox/internal/config"
	"vox/internal/deps"
	"vox/internal/ipc"
	"vox/internal/queue"
)

type statusLine struct {
	label  string
	kind   statusKind
	detail string
}

func buildSystemChecks(cfg *config.Config, status *ipc.StatusResponse) []statusLine {
	lines := make([]statusLine, 0, 4)

	if status.Running {
		lines = append(lines, statusLine{label: "Vox", kind: statusOK, detail: "Running"})
	} else {
		lines = append(lines, statusLine{label: "Vox", kind: statusWarn, detail: "Not running (run `vox start`)"})
	}

	lines = append(lines, serverStatusLine(status.Server))

	if cfg != nil {
		if info, err := os.Stat(cfg.Paths.OutputDir); err == nil && info.IsDir() {
			lines = append(lines, statusLine{label: "Output Dir", kind: statusOK, detail: cfg.Paths.OutputDir})
		} else {
			lines = append(lines, statusLine{label: "Output Dir", kind: statusError, detail: fmt.Sprintf("%s is not accessible", cfg.Paths.OutputDir)})
		}

		if strings.TrimSpace(cfg.Notifications.NtfyTopic) != "" {
			lines = append(lines, statusLine{label: "Notifications", kind: statusOK, detail: "Configured"})
		} else {
			lines = append(lines, statusLine{label: "Notifications", kind: statusInfo, detail: "Not configured"})
		}
	}

	return lines
}

func serverStatusLine(server ipc.ServerState) statusLine {
	line := statusLine{label: "Inference Server"}
	switch server.State {
	case "ready":
		line.kind = statusOK
		line.detail = fmt.Sprintf("Ready (pid %d)", server.PID)
	case "starting":
		line.kind = statusInfo
		line.detail = "Starting"
	case "failed":
		line.kind = statusError
		line.detail = fmt.Sprintf("Failed after %d restarts", server.Restarts)
	default:
		line.kind = statusInfo
		line.detail = "Not running"
	}
	if server.Restarts > 0 && line.kind == statusOK {
		line.detail = fmt.Sprintf("%s, %d restarts", line.detail, server.Restarts)
	}
	return line
}

func buildDependencyChecks(cfg *config.Config) []statusLine {
	if cfg == nil {
		return nil
	}
	results := deps.Check(cfg)
	lines := make([]statusLine, 0, len(results))
	missing := make([]string, 0)
	for _, dep := range results {
		if dep.Available {
			message := "Ready"
			if dep.Command != "" {
				message = fmt.Sprintf("Ready (command: %s)", dep.Command)
			}
			lines = append(lines, statusLine{label: dep.Name, kind: statusOK, detail: message})
			continue
		}
		detail := strings.TrimSpace(dep.Detail)
		if detail == "" {
			detail = "not available"
		}
		kind := statusError
		if dep.Optional {
			kind = statusWarn
		}
		lines = append(lines, statusLine{label: dep.Name, kind: kind, detail: detail})
		missing = append(missing, dep.Name)
	}
	if len(missing) > 0 {
		lines = append(lines, statusLine{
			label:  "Missing dependencies",
			kind:   statusWarn,
			detail: strings.Join(missing, ", "),
		})
	}
	return lines
}

func buildQueueStatusRows(stats map[string]int) [][]string {
	rows := make([][]string, 0, len(stats))
	for _, status := range queue.AllStatuses() {
		count, ok := stats[string(status)]
		if !ok || count == 0 {
			continue
		}
		rows = append(rows, []string{string(status), strconv.Itoa(count)})
	}
	for status, count := range stats {
		if _, known := queue.ParseStatus(status); known || count == 0 {
			continue
		}
		rows = append(rows, []string{status, strconv.Itoa(count)})
	}
	return rows
}
