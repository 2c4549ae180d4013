package config

const (
	defaultLogDir    = "~/.local/share/vox/logs"
	defaultOutputDir = "~/.local/share/vox/audio"

	defaultPython                = "python"
	defaultServerModule          = "tools.api_server"
	defaultDevice                = "1"
	defaultListen                = "0.0.0.0:8080"
	defaultLlamaCheckpointPath   = "checkpoints/openaudio-s1-mini"
	defaultDecoderCheckpointPath = "checkpoints/openaudio-s1-mini/codec.pth"
	defaultDecoderConfigName     = "modded_dac_vq"

	defaultMaxRestarts       = 5
	defaultRestartBackoff    = 2
	defaultRestartBackoffMax = 60
	defaultReadyTimeout      = 300
	defaultHealthInterval    = 15
	defaultStopGracePeriod   = 10

	defaultClientTimeout = 180

	defaultFormat            = "wav"
	defaultChunkLength       = 200
	defaultMaxNewTokens      = 1024
	defaultTopP              = 0.8
	defaultRepetitionPenalty = 1.1
	defaultTemperature       = 0.8
	defaultUseMemoryCache    = "off"

	defaultQueuePollInterval  = 2
	defaultErrorRetryInterval = 10

	defaultNtfyRequestTimeout = 10

	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLogRetentionDays = 30
)

// Default returns a Config populated with repository defaults. The server
// section mirrors the upstream launch script for the openaudio-s1-mini
// checkpoints, torch compilation included.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:    defaultLogDir,
			OutputDir: defaultOutputDir,
		},
		Server: Server{
			Python:                defaultPython,
			Module:                defaultServerModule,
			Device:                defaultDevice,
			Listen:                defaultListen,
			LlamaCheckpointPath:   defaultLlamaCheckpointPath,
			DecoderCheckpointPath: defaultDecoderCheckpointPath,
			DecoderConfigName:     defaultDecoderConfigName,
			Compile:               true,
		},
		Supervise: Supervise{
			RestartOnCrash:    true,
			MaxRestarts:       defaultMaxRestarts,
			RestartBackoff:    defaultRestartBackoff,
			RestartBackoffMax: defaultRestartBackoffMax,
			ReadyTimeout:      defaultReadyTimeout,
			HealthInterval:    defaultHealthInterval,
			StopGracePeriod:   defaultStopGracePeriod,
		},
		Client: Client{
			Timeout: defaultClientTimeout,
		},
		TTS: TTS{
			Format:            defaultFormat,
			ChunkLength:       defaultChunkLength,
			MaxNewTokens:      defaultMaxNewTokens,
			TopP:              defaultTopP,
			RepetitionPenalty: defaultRepetitionPenalty,
			Temperature:       defaultTemperature,
			UseMemoryCache:    defaultUseMemoryCache,
			Normalize:         true,
		},
		Workflow: Workflow{
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyRequestTimeout,
			Server:         true,
			Jobs:           true,
			Errors:         true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
