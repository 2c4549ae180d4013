package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"vox/internal/config"
	"vox/internal/deps"
	"vox/internal/launcher"
	"vox/internal/logging"
	"vox/internal/notifications"
	"vox/internal/queue"
	"vox/internal/textutil"
	"vox/internal/tts"
	"vox/internal/workflow"
)

// Daemon coordinates the supervised server and queue processing, and
// enforces single-instance execution.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      *queue.Store
	supervisor *launcher.Supervisor
	workflow   *workflow.Manager
	notifier   notifications.Service
	logPath    string

	lockPath string
	lock     *flock.Flock

	running atomic.Bool

	// mu guards ctx and cancel against concurrent Stop/RestartServer.
	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Server       launcher.Snapshot
	Workflow     workflow.StatusSummary
	QueueDBPath  string
	LockFilePath string
	LogPath      string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, and logger")
	}

	d := &Daemon{
		cfg:      cfg,
		logger:   logging.WithComponent(logger, "daemon"),
		store:    store,
		notifier: notifications.NewService(cfg),
		logPath:  filepath.Join(cfg.Paths.LogDir, "vox.log"),
		lockPath: filepath.Join(cfg.Paths.LogDir, "voxd.lock"),
	}
	d.lock = flock.New(d.lockPath)

	probeClient := tts.NewClient(cfg.BaseURL(), 5*time.Second, tts.WithAPIKey(cfg.Client.APIKey))
	d.supervisor = launcher.NewSupervisor(launcher.Options{
		Command:        launcher.BuildCommand(cfg.Server),
		Probe:          probeClient.Health,
		RestartOnCrash: cfg.Supervise.RestartOnCrash,
		MaxRestarts:    cfg.Supervise.MaxRestarts,
		Backoff:        time.Duration(cfg.Supervise.RestartBackoff) * time.Second,
		BackoffMax:     time.Duration(cfg.Supervise.RestartBackoffMax) * time.Second,
		ReadyTimeout:   time.Duration(cfg.Supervise.ReadyTimeout) * time.Second,
		HealthInterval: time.Duration(cfg.Supervise.HealthInterval) * time.Second,
		StopGrace:      time.Duration(cfg.Supervise.StopGracePeriod) * time.Second,
		Logger:         logger,
		Events:         d.supervisorEvents(),
	})

	d.workflow = workflow.NewManager(cfg, store, logger,
		workflow.WithNotifier(d.notifier),
		workflow.WithServerReady(func() bool {
			return d.supervisor.Status().State == launcher.StateReady
		}))

	return d, nil
}

func (d *Daemon) supervisorEvents() launcher.Events {
	notifyCtx := func() (context.Context, context.CancelFunc) {
		return context.WithTimeout(context.Background(), 15*time.Second)
	}
	return launcher.Events{
		Started: func(pid int) {
			ctx, cancel := notifyCtx()
			defer cancel()
			if err := d.notifier.NotifyServerStarted(ctx, pid); err != nil {
				d.logger.Warn("server start notification failed", logging.Error(err))
			}
		},
		Ready: func(int) {
			ctx, cancel := notifyCtx()
			defer cancel()
			if err := d.notifier.NotifyServerReady(ctx, d.cfg.Server.Listen); err != nil {
				d.logger.Warn("server ready notification failed", logging.Error(err))
			}
		},
		Crashed: func(_ error, restarts int) {
			ctx, cancel := notifyCtx()
			defer cancel()
			if err := d.notifier.NotifyServerRestarted(ctx, restarts); err != nil {
				d.logger.Warn("server restart notification failed", logging.Error(err))
			}
		},
		Failed: func(cause error) {
			ctx, cancel := notifyCtx()
			defer cancel()
			if err := d.notifier.NotifyServerFailed(ctx, cause); err != nil {
				d.logger.Warn("server failure notification failed", logging.Error(err))
			}
		},
	}
}

// Start acquires the daemon lock, runs preflight checks, launches the
// server, and begins queue processing.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another vox daemon instance is already running")
	}

	results := deps.Check(d.cfg)
	for _, status := range results {
		if status.Available {
			continue
		}
		d.logger.Warn("dependency unavailable",
			logging.String("name", status.Name),
			logging.String("detail", status.Detail))
	}
	if missing := deps.FirstMissing(results); missing != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("required dependency %s unavailable: %s", missing.Name, missing.Detail)
	}

	if reset, err := d.store.ResetStuckSynthesizing(ctx); err != nil {
		d.logger.Warn("failed to reset orphaned jobs", logging.Error(err))
	} else if reset > 0 {
		d.logger.Info("reset orphaned jobs to pending", logging.Int64("count", reset))
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.mu.Lock()
	d.ctx, d.cancel = runCtx, cancel
	d.mu.Unlock()
	if err := d.supervisor.Start(runCtx); err != nil {
		d.teardown()
		return fmt.Errorf("start server: %w", err)
	}
	if err := d.workflow.Start(runCtx); err != nil {
		d.supervisor.Stop()
		d.teardown()
		return fmt.Errorf("start workflow: %w", err)
	}

	d.running.Store(true)
	d.logger.Info("vox daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop stops background processing, shuts the server down, and releases
// the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.workflow.Stop()
	d.supervisor.Stop()
	d.mu.Lock()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.ctx = nil
	d.mu.Unlock()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("vox daemon stopped")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := d.notifier.NotifyServerStopped(ctx); err != nil {
		d.logger.Warn("server stop notification failed", logging.Error(err))
	}
}

func (d *Daemon) teardown() {
	d.mu.Lock()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.ctx = nil
	d.mu.Unlock()
	_ = d.lock.Unlock()
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// RestartServer cycles the supervised server process.
func (d *Daemon) RestartServer() error {
	d.mu.Lock()
	ctx := d.ctx
	d.mu.Unlock()
	if !d.running.Load() || ctx == nil {
		return errors.New("daemon is not running")
	}
	d.supervisor.Stop()
	return d.supervisor.Start(ctx)
}

// ServerStatus returns the supervised process snapshot.
func (d *Daemon) ServerStatus() launcher.Snapshot {
	return d.supervisor.Status()
}

// AddJob validates and enqueues a synthesis job. An empty output path is
// derived from the output directory and the generated job key.
func (d *Daemon) AddJob(ctx context.Context, job *queue.Job) (*queue.Job, error) {
	if d.store == nil {
		return nil, errors.New("queue store unavailable")
	}
	if job == nil {
		return nil, errors.New("job is required")
	}
	if strings.TrimSpace(job.Text) == "" {
		return nil, errors.New("synthesis text is required")
	}
	if job.Format == "" {
		job.Format = d.cfg.TTS.Format
	}
	if strings.TrimSpace(job.OutputPath) == "" {
		job.OutputPath = d.defaultOutputPath(job)
	} else if !filepath.IsAbs(job.OutputPath) {
		job.OutputPath = filepath.Join(d.cfg.Paths.OutputDir, job.OutputPath)
	}

	queued, err := d.store.Add(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("enqueue job: %w", err)
	}
	d.logger.Info("job queued",
		logging.Int64(logging.FieldJobID, queued.ID),
		logging.String("output", queued.OutputPath))
	return queued, nil
}

func (d *Daemon) defaultOutputPath(job *queue.Job) string {
	name := textutil.Slug(job.Text)
	if name == "" {
		name = "vox"
	}
	suffix := job.JobKey
	if suffix == "" {
		suffix = fmt.Sprintf("%d", time.Now().UnixNano())
	} else if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	return filepath.Join(d.cfg.Paths.OutputDir, name+"-"+suffix+"."+job.Format)
}

// ListQueue returns jobs filtered by optional statuses.
func (d *Daemon) ListQueue(ctx context.Context, statuses []queue.Status) ([]*queue.Job, error) {
	if d.store == nil {
		return nil, errors.New("queue store unavailable")
	}
	if len(statuses) == 0 {
		return d.store.List(ctx)
	}
	return d.store.List(ctx, statuses...)
}

// GetJob fetches a single job by identifier.
func (d *Daemon) GetJob(ctx context.Context, id int64) (*queue.Job, error) {
	if d.store == nil {
		return nil, errors.New("queue store unavailable")
	}
	return d.store.GetByID(ctx, id)
}

// GetJobByKey fetches a single job by its correlation key.
func (d *Daemon) GetJobByKey(ctx context.Context, key string) (*queue.Job, error) {
	if d.store == nil {
		return nil, errors.New("queue store unavailable")
	}
	return d.store.GetByKey(ctx, key)
}

// RemoveJob deletes a job by identifier.
func (d *Daemon) RemoveJob(ctx context.Context, id int64) (bool, error) {
	if d.store == nil {
		return false, errors.New("queue store unavailable")
	}
	return d.store.Remove(ctx, id)
}

// ClearQueue removes all jobs.
func (d *Daemon) ClearQueue(ctx context.Context) (int64, error) {
	if d.store == nil {
		return 0, errors.New("queue store unavailable")
	}
	return d.store.Clear(ctx)
}

// ClearCompleted removes only completed jobs.
func (d *Daemon) ClearCompleted(ctx context.Context) (int64, error) {
	if d.store == nil {
		return 0, errors.New("queue store unavailable")
	}
	return d.store.ClearCompleted(ctx)
}

// ClearFailed removes only failed jobs.
func (d *Daemon) ClearFailed(ctx context.Context) (int64, error) {
	if d.store == nil {
		return 0, errors.New("queue store unavailable")
	}
	return d.store.ClearFailed(ctx)
}

// ResetStuck transitions in-flight jobs back to pending for retry.
func (d *Daemon) ResetStuck(ctx context.Context) (int64, error) {
	if d.store == nil {
		return 0, errors.New("queue store unavailable")
	}
	return d.store.ResetStuckSynthesizing(ctx)
}

// RetryFailed resets failed jobs (optionally a subset) back to pending.
func (d *Daemon) RetryFailed(ctx context.Context, ids []int64) (int64, error) {
	if d.store == nil {
		return 0, errors.New("queue store unavailable")
	}
	return d.store.RetryFailed(ctx, ids...)
}

// FailActiveJobs marks pending and in-flight jobs failed with the daemon
// stop reason. Used when stopping without draining the queue.
func (d *Daemon) FailActiveJobs(ctx context.Context) (int64, error) {
	if d.store == nil {
		return 0, errors.New("queue store unavailable")
	}
	return d.store.FailAll(ctx, queue.DaemonStopReason)
}

// QueueHealth returns aggregate queue diagnostics.
func (d *Daemon) QueueHealth(ctx context.Context) (queue.HealthSummary, error) {
	if d.store == nil {
		return queue.HealthSummary{}, errors.New("queue store unavailable")
	}
	return d.store.Health(ctx)
}

// DatabaseHealth returns detailed database diagnostics.
func (d *Daemon) DatabaseHealth(ctx context.Context) (queue.DatabaseHealth, error) {
	if d.store == nil {
		return queue.DatabaseHealth{}, errors.New("queue store unavailable")
	}
	return d.store.CheckHealth(ctx)
}

// TestNotification triggers a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if d.cfg == nil {
		return false, "configuration unavailable", errors.New("configuration unavailable")
	}
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	return Status{
		Running:      d.running.Load(),
		Server:       d.supervisor.Status(),
		Workflow:     d.workflow.Status(ctx),
		QueueDBPath:  d.store.Path(),
		LockFilePath: d.lockPath,
		LogPath:      d.logPath,
	}
}
