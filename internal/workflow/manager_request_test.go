package workflow

import (
	"os"
	"path/filepath"
	"testing"

	"vox/internal/logging"
	"vox/internal/queue"
	"vox/internal/testsupport"
)

func TestBuildRequestNormalizesTextWhenEnabled(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.TTS.Normalize = true
	store := testsupport.MustOpenStore(t, cfg)
	m := NewManager(cfg, store, logging.NewNop())

	req, err := m.buildRequest(&queue.Job{Text: "ｆｕｌｌｗｉｄｔｈ　ﬁle", Format: "wav"})
	if err != nil {
		t.Fatalf("buildRequest failed: %v", err)
	}
	if req.Text != "fullwidth file" {
		t.Fatalf("expected NFKC-normalized text, got %q", req.Text)
	}
	if !req.Normalize {
		t.Fatal("expected normalize flag to carry through to the request")
	}

	cfg.TTS.Normalize = false
	req, err = m.buildRequest(&queue.Job{Text: "ｆｕｌｌｗｉｄｔｈ　ﬁle", Format: "wav"})
	if err != nil {
		t.Fatalf("buildRequest failed: %v", err)
	}
	if req.Text != "ｆｕｌｌｗｉｄｔｈ　ﬁle" {
		t.Fatalf("expected raw text when normalization is disabled, got %q", req.Text)
	}
}

func TestBuildRequestLoadsMultipleReferences(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	m := NewManager(cfg, store, logging.NewNop())

	dir := t.TempDir()
	first := filepath.Join(dir, "calm.wav")
	second := filepath.Join(dir, "bright.wav")
	for _, path := range []string{first, second} {
		if err := os.WriteFile(path, []byte("RIFFref"), 0o644); err != nil {
			t.Fatalf("write reference audio: %v", err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "bright.txt"), []byte("a bright greeting"), 0o644); err != nil {
		t.Fatalf("write sidecar transcript: %v", err)
	}

	job := &queue.Job{
		Text:           "hello",
		Format:         "wav",
		ReferenceAudio: first + "\n" + second,
		ReferenceText:  "a calm greeting",
	}
	req, err := m.buildRequest(job)
	if err != nil {
		t.Fatalf("buildRequest failed: %v", err)
	}
	if len(req.References) != 2 {
		t.Fatalf("expected 2 references, got %d", len(req.References))
	}
	if req.References[0].Text != "a calm greeting" {
		t.Fatalf("unexpected first transcript %q", req.References[0].Text)
	}
	if req.References[1].Text != "a bright greeting" {
		t.Fatalf("expected sidecar transcript for second reference, got %q", req.References[1].Text)
	}
}
