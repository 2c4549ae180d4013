package workflow

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"vox/internal/logging"
	"vox/internal/queue"
	"vox/internal/tts"
)

// Start begins background queue processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(1)
	m.mu.Unlock()

	go m.run(runCtx)
	return nil
}

// Stop terminates background processing and waits for completion.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

func (m *Manager) run(ctx context.Context) {
	defer m.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if m.serverReady != nil && !m.serverReady() {
			m.sleep(ctx, m.pollInterval)
			continue
		}

		job, err := m.store.NextPending(ctx)
		if err != nil {
			m.setLastError(err)
			m.logger.Error("failed to fetch next job",
				logging.Error(err),
				logging.String(logging.FieldEventType, "queue_fetch_failed"))
			m.sleep(ctx, m.errorInterval)
			continue
		}
		if job == nil {
			m.sleep(ctx, m.pollInterval)
			continue
		}

		if err := m.processJob(ctx, job); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			m.setLastError(err)
			m.sleep(ctx, m.errorInterval)
		}
	}
}

func (m *Manager) processJob(ctx context.Context, job *queue.Job) error {
	claimed, err := m.store.MarkSynthesizing(ctx, job.ID)
	if err != nil {
		return err
	}
	if !claimed {
		return nil
	}
	m.setLastJob(job)

	logger := m.logger.With(
		logging.Int64(logging.FieldJobID, job.ID),
		logging.String("job_key", job.JobKey),
	)
	logger.Info("synthesis started",
		logging.String("output", job.OutputPath),
		logging.String(logging.FieldEventType, "job_started"))

	req, err := m.buildRequest(job)
	if err != nil {
		logger.Error("invalid job", logging.Error(err))
		if markErr := m.store.MarkFailed(ctx, job.ID, err.Error()); markErr != nil {
			return markErr
		}
		m.notifyJobFailed(ctx, job, err)
		return nil
	}

	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go m.heartbeatLoop(hbCtx, &hbWG, job.ID)

	start := time.Now()
	written, synthErr := m.synth.SynthesizeFile(ctx, req, job.OutputPath)
	stopHeartbeat()
	hbWG.Wait()

	if synthErr != nil {
		if errors.Is(synthErr, context.Canceled) {
			// Shutdown mid-job: leave it claimed for the startup reset.
			return synthErr
		}
		if errors.Is(synthErr, tts.ErrServerUnavailable) {
			logger.Warn("server unavailable, returning job to queue",
				logging.Error(synthErr),
				logging.String(logging.FieldEventType, "job_requeued"))
			return m.requeue(ctx, job)
		}
		logger.Error("synthesis failed",
			logging.Error(synthErr),
			logging.String(logging.FieldEventType, "job_failed"))
		if err := m.store.MarkFailed(ctx, job.ID, synthErr.Error()); err != nil {
			return err
		}
		m.notifyJobFailed(ctx, job, synthErr)
		return nil
	}

	if err := m.store.MarkCompleted(ctx, job.ID, written); err != nil {
		return err
	}
	logger.Info("synthesis completed",
		logging.Int64("audio_bytes", written),
		logging.Duration("elapsed", time.Since(start).Round(time.Millisecond)),
		logging.String(logging.FieldEventType, "job_completed"))
	m.notifyJobCompleted(ctx, job)
	return nil
}

// buildRequest merges config synthesis defaults with per-job overrides.
func (m *Manager) buildRequest(job *queue.Job) (tts.Request, error) {
	text := job.Text
	if m.cfg.TTS.Normalize {
		text = tts.NormalizeText(text)
	}
	req := tts.NewRequest(text)
	req.Format = m.cfg.TTS.Format
	if job.Format != "" {
		req.Format = job.Format
	}
	req.ChunkLength = m.cfg.TTS.ChunkLength
	req.MaxNewTokens = m.cfg.TTS.MaxNewTokens
	req.TopP = m.cfg.TTS.TopP
	req.RepetitionPenalty = m.cfg.TTS.RepetitionPenalty
	req.Temperature = m.cfg.TTS.Temperature
	req.UseMemoryCache = m.cfg.TTS.UseMemoryCache
	req.Normalize = m.cfg.TTS.Normalize
	req.Seed = job.Seed
	req.ReferenceID = job.ReferenceID

	if job.ReferenceAudio != "" {
		refs, err := tts.LoadReferences(splitPathList(job.ReferenceAudio), splitPathList(job.ReferenceText))
		if err != nil {
			return tts.Request{}, err
		}
		req.References = refs
	}

	if err := req.Validate(); err != nil {
		return tts.Request{}, err
	}
	return req, nil
}

// splitPathList splits a newline-joined reference list as stored on the job.
func splitPathList(joined string) []string {
	parts := strings.Split(joined, "\n")
	out := parts[:0]
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// requeue returns a claimed job to pending after a transient failure.
func (m *Manager) requeue(ctx context.Context, job *queue.Job) error {
	fresh, err := m.store.GetByID(ctx, job.ID)
	if err != nil {
		return err
	}
	if fresh == nil {
		return nil
	}
	fresh.Status = queue.StatusPending
	fresh.StartedAt = nil
	fresh.LastHeartbeat = nil
	if err := m.store.Update(ctx, fresh); err != nil {
		return err
	}
	m.sleep(ctx, m.errorInterval)
	return nil
}

func (m *Manager) heartbeatLoop(ctx context.Context, wg *sync.WaitGroup, jobID int64) {
	defer wg.Done()
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.store.UpdateHeartbeat(ctx, jobID); err != nil && !errors.Is(err, context.Canceled) {
				m.logger.Warn("heartbeat update failed", logging.Error(err))
			}
		}
	}
}

func (m *Manager) notifyJobCompleted(ctx context.Context, job *queue.Job) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.NotifyJobCompleted(ctx, job.Text, job.OutputPath); err != nil {
		m.logger.Warn("job completion notification failed", logging.Error(err))
	}
}

func (m *Manager) notifyJobFailed(ctx context.Context, job *queue.Job, cause error) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.NotifyJobFailed(ctx, job.Text, cause); err != nil {
		m.logger.Warn("job failure notification failed", logging.Error(err))
	}
}

func (m *Manager) sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
