package tts

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadReference reads a reference audio file and resolves its transcript.
// The transcript argument may be literal text or a path to a text file;
// when empty, a sidecar file next to the audio (same stem, .txt or .lab
// extension) is used.
func LoadReference(audioPath, transcript string) (ReferenceAudio, error) {
	audio, err := os.ReadFile(audioPath)
	if err != nil {
		return ReferenceAudio{}, fmt.Errorf("read reference audio: %w", err)
	}

	text, err := resolveTranscript(audioPath, transcript)
	if err != nil {
		return ReferenceAudio{}, err
	}
	return ReferenceAudio{Audio: audio, Text: text}, nil
}

// LoadReferences pairs audio paths with transcripts positionally. Missing
// transcripts fall back to sidecar files.
func LoadReferences(audioPaths, transcripts []string) ([]ReferenceAudio, error) {
	if len(transcripts) > len(audioPaths) {
		return nil, fmt.Errorf("more transcripts (%d) than reference audio files (%d)", len(transcripts), len(audioPaths))
	}
	references := make([]ReferenceAudio, 0, len(audioPaths))
	for i, audioPath := range audioPaths {
		transcript := ""
		if i < len(transcripts) {
			transcript = transcripts[i]
		}
		ref, err := LoadReference(audioPath, transcript)
		if err != nil {
			return nil, err
		}
		references = append(references, ref)
	}
	return references, nil
}

func resolveTranscript(audioPath, transcript string) (string, error) {
	trimmed := strings.TrimSpace(transcript)
	if trimmed != "" {
		// A transcript argument that names an existing file is read from disk.
		if info, err := os.Stat(trimmed); err == nil && !info.IsDir() {
			data, err := os.ReadFile(trimmed)
			if err != nil {
				return "", fmt.Errorf("read transcript file: %w", err)
			}
			return strings.TrimSpace(string(data)), nil
		}
		return trimmed, nil
	}

	stem := strings.TrimSuffix(audioPath, filepath.Ext(audioPath))
	for _, ext := range []string{".txt", ".lab"} {
		sidecar := stem + ext
		data, err := os.ReadFile(sidecar)
		if err == nil {
			return strings.TrimSpace(string(data)), nil
		}
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("read transcript sidecar %s: %w", sidecar, err)
		}
	}
	return "", fmt.Errorf("no transcript for reference audio %s: pass text or add a .txt/.lab sidecar", audioPath)
}
