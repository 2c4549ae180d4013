package main

import (
	"strings"
	"testing"

	"vox/internal/ipc"
)

func TestRenderStatusLine(t *testing.T) {
	line := renderStatusLine("Vox", statusOK, "Running", false)
	if !strings.Contains(line, "Vox:") || !strings.Contains(line, "[OK] Running") {
		t.Fatalf("unexpected line %q", line)
	}

	colored := renderStatusLine("Vox", statusError, "Down", true)
	if !strings.HasPrefix(colored, ansiRed) || !strings.HasSuffix(colored, ansiReset) {
		t.Fatalf("expected colored output, got %q", colored)
	}
}

func TestRenderSectionHeader(t *testing.T) {
	lines := renderSectionHeader("Queue Status", false)
	if len(lines) != 2 {
		t.Fatalf("expected header and rule, got %d lines", len(lines))
	}
	if lines[0] != "== Queue Status ==" {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if len(lines[1]) != len(lines[0]) {
		t.Fatalf("rule length %d does not match header length %d", len(lines[1]), len(lines[0]))
	}
}

func TestServerStatusLine(t *testing.T) {
	tests := []struct {
		name   string
		server ipc.ServerState
		kind   statusKind
		detail string
	}{
		{"ready", ipc.ServerState{State: "ready", PID: 42}, statusOK, "Ready (pid 42)"},
		{"starting", ipc.ServerState{State: "starting"}, statusInfo, "Starting"},
		{"failed", ipc.ServerState{State: "failed", Restarts: 3}, statusError, "Failed after 3 restarts"},
		{"stopped", ipc.ServerState{State: "stopped"}, statusInfo, "Not running"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			line := serverStatusLine(tc.server)
			if line.kind != tc.kind {
				t.Fatalf("expected kind %d, got %d", tc.kind, line.kind)
			}
			if line.detail != tc.detail {
				t.Fatalf("expected detail %q, got %q", tc.detail, line.detail)
			}
		})
	}
}

func TestBuildQueueStatusRows(t *testing.T) {
	stats := map[string]int{
		"completed": 2,
		"pending":   1,
		"bogus":     4,
		"failed":    0,
	}
	rows := buildQueueStatusRows(stats)
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d: %v", len(rows), rows)
	}
	if rows[0][0] != "pending" || rows[1][0] != "completed" {
		t.Fatalf("expected lifecycle ordering, got %v", rows)
	}
	if rows[2][0] != "bogus" {
		t.Fatalf("unknown statuses should sort last, got %v", rows)
	}
}

func TestTruncateText(t *testing.T) {
	if got := truncateText("short", 40); got != "short" {
		t.Fatalf("expected unchanged text, got %q", got)
	}
	long := strings.Repeat("word ", 20)
	got := truncateText(long, 20)
	if len(got) != 20 || !strings.HasSuffix(got, "...") {
		t.Fatalf("unexpected truncation %q", got)
	}
	if got := truncateText("line\none\ttwo", 40); got != "line one two" {
		t.Fatalf("expected whitespace collapsing, got %q", got)
	}
}

func TestFormatAudioBytes(t *testing.T) {
	tests := []struct {
		size int64
		want string
	}{
		{0, "-"},
		{512, "512 B"},
		{2048, "2.0 KiB"},
		{3 << 20, "3.0 MiB"},
	}
	for _, tc := range tests {
		if got := formatAudioBytes(tc.size); got != tc.want {
			t.Fatalf("formatAudioBytes(%d) = %q, want %q", tc.size, got, tc.want)
		}
	}
}
