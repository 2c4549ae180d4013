package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"vox/internal/config"
)

const userAgent = "Vox/0.1.0"

// Service defines the notification surface exposed to daemon components.
type Service interface {
	NotifyServerStarted(ctx context.Context, pid int) error
	NotifyServerReady(ctx context.Context, listen string) error
	NotifyServerRestarted(ctx context.Context, restarts int) error
	NotifyServerFailed(ctx context.Context, err error) error
	NotifyServerStopped(ctx context.Context) error
	NotifyJobCompleted(ctx context.Context, text, outputPath string) error
	NotifyJobFailed(ctx context.Context, text string, err error) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		server:   cfg.Notifications.Server,
		jobs:     cfg.Notifications.Jobs,
		errors:   cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	server   bool
	jobs     bool
	errors   bool
}

func (n *ntfyService) NotifyServerStarted(ctx context.Context, pid int) error {
	if !n.server {
		return nil
	}
	data := payload{
		title:   "Vox - Server Started",
		message: fmt.Sprintf("Inference server started (pid %d)", pid),
		tags:    []string{"vox", "server", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyServerReady(ctx context.Context, listen string) error {
	if !n.server {
		return nil
	}
	listen = strings.TrimSpace(listen)
	data := payload{
		title:   "Vox - Server Ready",
		message: fmt.Sprintf("Inference server accepting requests on %s", listen),
		tags:    []string{"vox", "server", "ready"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyServerRestarted(ctx context.Context, restarts int) error {
	if !n.server {
		return nil
	}
	data := payload{
		title:   "Vox - Server Restarted",
		message: fmt.Sprintf("Inference server crashed and was restarted (attempt %d)", restarts),
		tags:    []string{"vox", "server", "restarted"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyServerFailed(ctx context.Context, err error) error {
	if !n.errors {
		return nil
	}
	message := "Inference server stopped and will not be restarted"
	if err != nil {
		message = fmt.Sprintf("%s: %s", message, strings.TrimSpace(err.Error()))
	}
	data := payload{
		title:    "Vox - Server Failed",
		message:  message,
		tags:     []string{"vox", "server", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyServerStopped(ctx context.Context) error {
	if !n.server {
		return nil
	}
	data := payload{
		title:   "Vox - Server Stopped",
		message: "Inference server stopped",
		tags:    []string{"vox", "server", "stopped"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyJobCompleted(ctx context.Context, text, outputPath string) error {
	if !n.jobs {
		return nil
	}
	message := fmt.Sprintf("Synthesis complete: %s", summarizeText(text))
	if outputPath = strings.TrimSpace(outputPath); outputPath != "" {
		message = fmt.Sprintf("%s\nFile: %s", message, outputPath)
	}
	data := payload{
		title:   "Vox - Synthesis Complete",
		message: message,
		tags:    []string{"vox", "job", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyJobFailed(ctx context.Context, text string, err error) error {
	if !n.jobs {
		return nil
	}
	message := fmt.Sprintf("Synthesis failed: %s", summarizeText(text))
	if err != nil {
		message = fmt.Sprintf("%s\nError: %s", message, strings.TrimSpace(err.Error()))
	}
	data := payload{
		title:    "Vox - Synthesis Failed",
		message:  message,
		tags:     []string{"vox", "job", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Vox - Error",
		message:  builder.String(),
		tags:     []string{"vox", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Vox - Test",
		message:  "Notification system test",
		tags:     []string{"vox", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

// summarizeText trims synthesis text down to a notification-friendly excerpt.
func summarizeText(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	const limit = 80
	if len(text) <= limit {
		return text
	}
	cut := strings.LastIndex(text[:limit], " ")
	if cut <= 0 {
		cut = limit
	}
	return text[:cut] + "..."
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyServerStarted(context.Context, int) error           { return nil }
func (noopService) NotifyServerReady(context.Context, string) error          { return nil }
func (noopService) NotifyServerRestarted(context.Context, int) error         { return nil }
func (noopService) NotifyServerFailed(context.Context, error) error          { return nil }
func (noopService) NotifyServerStopped(context.Context) error                { return nil }
func (noopService) NotifyJobCompleted(context.Context, string, string) error { return nil }
func (noopService) NotifyJobFailed(context.Context, string, error) error     { return nil }
func (noopService) NotifyError(context.Context, error, string) error         { return nil }
func (noopService) TestNotification(context.Context) error                   { return nil }
