package tts

import (
	"fmt"
	"strings"
)

// Sampling bounds enforced by the server's request schema.
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

// Audio output formats accepted by the server.
const (
	FormatWAV = "wav"
	FormatPCM = "pcm"
	FormatMP3 = "mp3"
)

// ReferenceAudio pairs a sample recording with its transcript for
// in-context voice cloning.
type ReferenceAudio struct {
	Audio []byte `msgpack:"audio"`
	Text  string `msgpack:"text"`
}

// Request is the synthesis request submitted to /v1/tts.
type Request struct {
	Text        string           `msgpack:"text"`
	ChunkLength int              `msgpack:"chunk_length"`
	Format      string           `msgpack:"format"`
	References  []ReferenceAudio `msgpack:"references"`
	// ReferenceID selects a server-side voice by id; it takes priority
	// over inline references.
	ReferenceID       string  `msgpack:"reference_id,omitempty"`
	Seed              *int64  `msgpack:"seed,omitempty"`
	UseMemoryCache    string  `msgpack:"use_memory_cache"`
	Normalize         bool    `msgpack:"normalize"`
	Streaming         bool    `msgpack:"streaming"`
	MaxNewTokens      int     `msgpack:"max_new_tokens"`
	TopP              float64 `msgpack:"top_p"`
	RepetitionPenalty float64 `msgpack:"repetition_penalty"`
	Temperature       float64 `msgpack:"temperature"`
}

// NewRequest returns a request for text with the server's schema defaults.
func NewRequest(text string) Request {
	return Request{
		Text:              text,
		ChunkLength:       200,
		Format:            FormatWAV,
		References:        []ReferenceAudio{},
		UseMemoryCache:    "off",
		Normalize:         true,
		MaxNewTokens:      1024,
		TopP:              0.8,
		RepetitionPenalty: 1.1,
		Temperature:       0.8,
	}
}

// Validate checks the request against the server's schema bounds so bad
// values fail locally instead of as an opaque 422.
func (r *Request) Validate() error {
	if strings.TrimSpace(r.Text) == "" {
		return fmt.Errorf("tts request: text is required")
	}
	switch r.Format {
	case FormatWAV, FormatPCM, FormatMP3:
	default:
		return fmt.Errorf("tts request: format must be wav, pcm, or mp3 (got %q)", r.Format)
	}
	if r.ChunkLength < MinChunkLength || r.ChunkLength > MaxChunkLength {
		return fmt.Errorf("tts request: chunk_length %d outside [%d, %d]", r.ChunkLength, MinChunkLength, MaxChunkLength)
	}
	if r.TopP < MinTopP || r.TopP > MaxTopP {
		return fmt.Errorf("tts request: top_p %.2f outside [%.1f, %.1f]", r.TopP, MinTopP, MaxTopP)
	}
	if r.RepetitionPenalty < MinRepetitionPenalty || r.RepetitionPenalty > MaxRepetitionPenalty {
		return fmt.Errorf("tts request: repetition_penalty %.2f outside [%.1f, %.1f]", r.RepetitionPenalty, MinRepetitionPenalty, MaxRepetitionPenalty)
	}
	if r.Temperature < MinTemperature || r.Temperature > MaxTemperature {
		return fmt.Errorf("tts request: temperature %.2f outside [%.1f, %.1f]", r.Temperature, MinTemperature, MaxTemperature)
	}
	if r.MaxNewTokens < 0 {
		return fmt.Errorf("tts request: max_new_tokens must not be negative")
	}
	switch r.UseMemoryCache {
	case "on", "off":
	default:
		return fmt.Errorf("tts request: use_memory_cache must be \"on\" or \"off\" (got %q)", r.UseMemoryCache)
	}
	return nil
}
