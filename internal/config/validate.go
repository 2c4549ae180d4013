package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// Bounds for sampling parameters, matching the server's request schema.
const (
	MinChunkLength = 100
	MaxChunkLength = 300

	MinTopP = 0.1
	MaxTopP = 1.0

	MinRepetitionPenalty = 0.9
	MaxRepetitionPenalty = 2.0

	MinTemperature = 0.1
	MaxTemperature = 1.0
)

var validFormats = map[string]struct{}{
	"wav": {},
	"pcm": {},
	"mp3": {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateTTS(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateServer() error {
	if _, _, err := net.SplitHostPort(c.Server.Listen); err != nil {
		return fmt.Errorf("server.listen %q is not a valid host:port address", c.Server.Listen)
	}
	if strings.TrimSpace(c.Server.LlamaCheckpointPath) == "" {
		return errors.New("server.llama_checkpoint_path must be set")
	}
	if strings.TrimSpace(c.Server.DecoderCheckpointPath) == "" {
		return errors.New("server.decoder_checkpoint_path must be set")
	}
	return nil
}

func (c *Config) validateTTS() error {
	if _, ok := validFormats[c.TTS.Format]; !ok {
		return fmt.Errorf("tts.format must be one of wav, pcm, mp3 (got %q)", c.TTS.Format)
	}
	if c.TTS.ChunkLength < MinChunkLength || c.TTS.ChunkLength > MaxChunkLength {
		return fmt.Errorf("tts.chunk_length must be between %d and %d", MinChunkLength, MaxChunkLength)
	}
	if c.TTS.TopP < MinTopP || c.TTS.TopP > MaxTopP {
		return fmt.Errorf("tts.top_p must be between %.1f and %.1f", MinTopP, MaxTopP)
	}
	if c.TTS.RepetitionPenalty < MinRepetitionPenalty || c.TTS.RepetitionPenalty > MaxRepetitionPenalty {
		return fmt.Errorf("tts.repetition_penalty must be between %.1f and %.1f", MinRepetitionPenalty, MaxRepetitionPenalty)
	}
	if c.TTS.Temperature < MinTemperature || c.TTS.Temperature > MaxTemperature {
		return fmt.Errorf("tts.temperature must be between %.1f and %.1f", MinTemperature, MaxTemperature)
	}
	if c.TTS.MaxNewTokens < 0 {
		return errors.New("tts.max_new_tokens must not be negative")
	}
	switch c.TTS.UseMemoryCache {
	case "on", "off":
	default:
		return fmt.Errorf("tts.use_memory_cache must be \"on\" or \"off\" (got %q)", c.TTS.UseMemoryCache)
	}
	return nil
}
