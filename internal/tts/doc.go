// Package tts talks to the OpenAudio inference server's HTTP API.
//
// Requests mirror the server's msgpack schema: synthesis text, sampling
// parameters, and optional reference audio for in-context voice cloning.
// Responses are raw audio bytes (wav/mp3 containers, or a PCM stream when
// streaming is enabled) which the client copies to a caller-supplied writer.
package tts
