package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeServer(); err != nil {
		return err
	}
	c.normalizeSupervise()
	c.normalizeClient()
	c.normalizeTTS()
	c.normalizeWorkflow()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeServer() error {
	c.Server.Python = strings.TrimSpace(c.Server.Python)
	if c.Server.Python == "" {
		c.Server.Python = defaultPython
	}
	c.Server.Module = strings.TrimSpace(c.Server.Module)
	if c.Server.Module == "" {
		c.Server.Module = defaultServerModule
	}
	c.Server.Device = strings.TrimSpace(c.Server.Device)
	c.Server.Listen = strings.TrimSpace(c.Server.Listen)
	if c.Server.Listen == "" {
		c.Server.Listen = defaultListen
	}
	c.Server.DecoderConfigName = strings.TrimSpace(c.Server.DecoderConfigName)
	if c.Server.DecoderConfigName == "" {
		c.Server.DecoderConfigName = defaultDecoderConfigName
	}

	// Checkpoint paths stay relative when a working dir is configured; the
	// server resolves them against its own cwd, matching the launch script.
	var err error
	c.Server.WorkingDir = strings.TrimSpace(c.Server.WorkingDir)
	if c.Server.WorkingDir != "" {
		if c.Server.WorkingDir, err = expandPath(c.Server.WorkingDir); err != nil {
			return fmt.Errorf("server.working_dir: %w", err)
		}
		return nil
	}
	if strings.HasPrefix(c.Server.LlamaCheckpointPath, "~") {
		if c.Server.LlamaCheckpointPath, err = expandPath(c.Server.LlamaCheckpointPath); err != nil {
			return fmt.Errorf("server.llama_checkpoint_path: %w", err)
		}
	}
	if strings.HasPrefix(c.Server.DecoderCheckpointPath, "~") {
		if c.Server.DecoderCheckpointPath, err = expandPath(c.Server.DecoderCheckpointPath); err != nil {
			return fmt.Errorf("server.decoder_checkpoint_path: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeSupervise() {
	if c.Supervise.MaxRestarts < 0 {
		c.Supervise.MaxRestarts = defaultMaxRestarts
	}
	if c.Supervise.RestartBackoff <= 0 {
		c.Supervise.RestartBackoff = defaultRestartBackoff
	}
	if c.Supervise.RestartBackoffMax < c.Supervise.RestartBackoff {
		c.Supervise.RestartBackoffMax = defaultRestartBackoffMax
	}
	if c.Supervise.ReadyTimeout <= 0 {
		c.Supervise.ReadyTimeout = defaultReadyTimeout
	}
	if c.Supervise.HealthInterval <= 0 {
		c.Supervise.HealthInterval = defaultHealthInterval
	}
	if c.Supervise.StopGracePeriod <= 0 {
		c.Supervise.StopGracePeriod = defaultStopGracePeriod
	}
}

func (c *Config) normalizeClient() {
	c.Client.BaseURL = strings.TrimSpace(c.Client.BaseURL)
	c.Client.APIKey = strings.TrimSpace(c.Client.APIKey)
	if c.Client.APIKey == "" {
		if value, ok := os.LookupEnv("VOX_API_KEY"); ok {
			c.Client.APIKey = strings.TrimSpace(value)
		}
	}
	if c.Client.Timeout <= 0 {
		c.Client.Timeout = defaultClientTimeout
	}
}

func (c *Config) normalizeTTS() {
	c.TTS.Format = strings.ToLower(strings.TrimSpace(c.TTS.Format))
	if c.TTS.Format == "" {
		c.TTS.Format = defaultFormat
	}
	if c.TTS.ChunkLength == 0 {
		c.TTS.ChunkLength = defaultChunkLength
	}
	if c.TTS.MaxNewTokens == 0 {
		c.TTS.MaxNewTokens = defaultMaxNewTokens
	}
	if c.TTS.TopP == 0 {
		c.TTS.TopP = defaultTopP
	}
	if c.TTS.RepetitionPenalty == 0 {
		c.TTS.RepetitionPenalty = defaultRepetitionPenalty
	}
	if c.TTS.Temperature == 0 {
		c.TTS.Temperature = defaultTemperature
	}
	c.TTS.UseMemoryCache = strings.ToLower(strings.TrimSpace(c.TTS.UseMemoryCache))
	if c.TTS.UseMemoryCache == "" {
		c.TTS.UseMemoryCache = defaultUseMemoryCache
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.QueuePollInterval <= 0 {
		c.Workflow.QueuePollInterval = defaultQueuePollInterval
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		c.Workflow.ErrorRetryInterval = defaultErrorRetryInterval
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNtfyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays <= 0 {
		c.Logging.RetentionDays = defaultLogRetentionDays
	}
}
