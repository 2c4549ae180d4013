package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"vox/internal/config"
)

func TestLoadDefaultsMatchLaunchScript(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("VOX_API_KEY", "")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	if cfg.Server.Python != "python" {
		t.Fatalf("unexpected python binary: %q", cfg.Server.Python)
	}
	if cfg.Server.Module != "tools.api_server" {
		t.Fatalf("unexpected server module: %q", cfg.Server.Module)
	}
	if cfg.Server.Device != "1" {
		t.Fatalf("unexpected device: %q", cfg.Server.Device)
	}
	if cfg.Server.Listen != "0.0.0.0:8080" {
		t.Fatalf("unexpected listen address: %q", cfg.Server.Listen)
	}
	if cfg.Server.LlamaCheckpointPath != "checkpoints/openaudio-s1-mini" {
		t.Fatalf("unexpected llama checkpoint: %q", cfg.Server.LlamaCheckpointPath)
	}
	if cfg.Server.DecoderCheckpointPath != "checkpoints/openaudio-s1-mini/codec.pth" {
		t.Fatalf("unexpected decoder checkpoint: %q", cfg.Server.DecoderCheckpointPath)
	}
	if cfg.Server.DecoderConfigName != "modded_dac_vq" {
		t.Fatalf("unexpected decoder config name: %q", cfg.Server.DecoderConfigName)
	}
	if !cfg.Server.Compile {
		t.Fatal("expected compile enabled by default")
	}

	wantLogs := filepath.Join(tempHome, ".local", "share", "vox", "logs")
	if cfg.Paths.LogDir != wantLogs {
		t.Fatalf("unexpected log dir: got %q want %q", cfg.Paths.LogDir, wantLogs)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.LogDir, cfg.Paths.OutputDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadParsesConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[server]
device = "0"
listen = "127.0.0.1:9000"
compile = false
extra_args = ["--half"]

[tts]
format = "mp3"
chunk_length = 120

[client]
api_key = "secret"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if resolved != path {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if cfg.Server.Device != "0" {
		t.Fatalf("unexpected device: %q", cfg.Server.Device)
	}
	if cfg.Server.Listen != "127.0.0.1:9000" {
		t.Fatalf("unexpected listen: %q", cfg.Server.Listen)
	}
	if cfg.Server.Compile {
		t.Fatal("expected compile disabled")
	}
	if len(cfg.Server.ExtraArgs) != 1 || cfg.Server.ExtraArgs[0] != "--half" {
		t.Fatalf("unexpected extra args: %v", cfg.Server.ExtraArgs)
	}
	if cfg.TTS.Format != "mp3" {
		t.Fatalf("unexpected format: %q", cfg.TTS.Format)
	}
	if cfg.TTS.ChunkLength != 120 {
		t.Fatalf("unexpected chunk length: %d", cfg.TTS.ChunkLength)
	}
	if cfg.Client.APIKey != "secret" {
		t.Fatalf("unexpected api key: %q", cfg.Client.APIKey)
	}
	// Remaining defaults are preserved.
	if cfg.TTS.TopP != 0.8 {
		t.Fatalf("unexpected top_p: %v", cfg.TTS.TopP)
	}
}

func TestValidateRejectsOutOfRangeSampling(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"chunk length too small", func(c *config.Config) { c.TTS.ChunkLength = 50 }},
		{"chunk length too large", func(c *config.Config) { c.TTS.ChunkLength = 400 }},
		{"top_p too small", func(c *config.Config) { c.TTS.TopP = 0.05 }},
		{"temperature too large", func(c *config.Config) { c.TTS.Temperature = 1.5 }},
		{"repetition penalty too small", func(c *config.Config) { c.TTS.RepetitionPenalty = 0.5 }},
		{"bad format", func(c *config.Config) { c.TTS.Format = "flac" }},
		{"bad memory cache", func(c *config.Config) { c.TTS.UseMemoryCache = "maybe" }},
		{"bad listen", func(c *config.Config) { c.Server.Listen = "not-an-address" }},
		{"missing llama checkpoint", func(c *config.Config) { c.Server.LlamaCheckpointPath = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestBaseURLDerivedFromListen(t *testing.T) {
	cfg := config.Default()
	if got := cfg.BaseURL(); got != "http://127.0.0.1:8080" {
		t.Fatalf("unexpected derived base url: %q", got)
	}

	cfg.Server.Listen = "192.168.1.5:9090"
	if got := cfg.BaseURL(); got != "http://192.168.1.5:9090" {
		t.Fatalf("unexpected base url for explicit host: %q", got)
	}

	cfg.Client.BaseURL = "https://tts.example.com/"
	if got := cfg.BaseURL(); got != "https://tts.example.com" {
		t.Fatalf("explicit client URL should win: %q", got)
	}
}

func TestCreateSampleWritesParseableConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config failed to load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	if cfg.Server.DecoderConfigName != "modded_dac_vq" {
		t.Fatalf("unexpected decoder config name in sample: %q", cfg.Server.DecoderConfigName)
	}
}
