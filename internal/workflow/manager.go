package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"vox/internal/config"
	"vox/internal/logging"
	"vox/internal/notifications"
	"vox/internal/queue"
	"vox/internal/tts"
)

// heartbeatInterval paces the in-flight job heartbeat updates.
const heartbeatInterval = 30 * time.Second

// Synthesizer is the slice of the TTS client the workflow needs.
type Synthesizer interface {
	SynthesizeFile(ctx context.Context, req tts.Request, path string) (int64, error)
}

// Manager coordinates queue processing against the inference server.
type Manager struct {
	cfg           *config.Config
	store         *queue.Store
	logger        *slog.Logger
	notifier      notifications.Service
	synth         Synthesizer
	serverReady   func() bool
	pollInterval  time.Duration
	errorInterval time.Duration

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	lastErr error
	lastJob *queue.Job
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*Manager)

// WithSynthesizer overrides the synthesis client (used in tests).
func WithSynthesizer(synth Synthesizer) ManagerOption {
	return func(m *Manager) {
		m.synth = synth
	}
}

// WithServerReady installs a gate consulted before claiming work. When it
// reports false the loop idles instead of failing jobs against a dead server.
func WithServerReady(ready func() bool) ManagerOption {
	return func(m *Manager) {
		m.serverReady = ready
	}
}

// WithNotifier overrides the notification service (used in tests).
func WithNotifier(notifier notifications.Service) ManagerOption {
	return func(m *Manager) {
		m.notifier = notifier
	}
}

// NewManager constructs a workflow manager.
func NewManager(cfg *config.Config, store *queue.Store, logger *slog.Logger, opts ...ManagerOption) *Manager {
	pollInterval := time.Duration(cfg.Workflow.QueuePollInterval) * time.Second
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	errorInterval := time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second
	if errorInterval <= 0 {
		errorInterval = 5 * time.Second
	}

	m := &Manager{
		cfg:           cfg,
		store:         store,
		logger:        logging.WithComponent(logger, "workflow"),
		notifier:      notifications.NewService(cfg),
		pollInterval:  pollInterval,
		errorInterval: errorInterval,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.synth == nil {
		timeout := time.Duration(cfg.Client.Timeout) * time.Second
		m.synth = tts.NewClient(cfg.BaseURL(), timeout, tts.WithAPIKey(cfg.Client.APIKey))
	}
	return m
}
