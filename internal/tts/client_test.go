package tts_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"vox/internal/tts"
)

func TestSynthesizeSendsMsgpackAndCopiesAudio(t *testing.T) {
	t.Parallel()

	audio := []byte("RIFF-fake-wav-bytes")
	var gotContentType, gotAuth, gotPath string
	var decoded tts.Request

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		gotAuth = r.Header.Get("Authorization")
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read request body: %v", err)
		}
		if err := msgpack.Unmarshal(body, &decoded); err != nil {
			t.Errorf("decode msgpack request: %v", err)
		}
		_, _ = w.Write(audio)
	}))
	defer srv.Close()

	client := tts.NewClient(srv.URL, 5*time.Second, tts.WithAPIKey("secret"))
	req := tts.NewRequest("hello world")
	req.References = []tts.ReferenceAudio{{Audio: []byte{1, 2, 3}, Text: "sample"}}

	var out bytes.Buffer
	written, err := client.Synthesize(context.Background(), req, &out)
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}

	if gotPath != "/v1/tts" {
		t.Fatalf("unexpected request path: %q", gotPath)
	}
	if gotContentType != "application/msgpack" {
		t.Fatalf("unexpected content type: %q", gotContentType)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("unexpected authorization header: %q", gotAuth)
	}
	if written != int64(len(audio)) || !bytes.Equal(out.Bytes(), audio) {
		t.Fatalf("audio mismatch: wrote %d bytes", written)
	}
	if decoded.Text != "hello world" {
		t.Fatalf("unexpected decoded text: %q", decoded.Text)
	}
	if decoded.ChunkLength != 200 || decoded.TopP != 0.8 || decoded.Temperature != 0.8 {
		t.Fatalf("defaults not carried on the wire: %+v", decoded)
	}
	if len(decoded.References) != 1 || decoded.References[0].Text != "sample" {
		t.Fatalf("references not carried: %+v", decoded.References)
	}
}

func TestSynthesizeRejectsInvalidRequestLocally(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("server should not be contacted for invalid requests")
	}))
	defer srv.Close()

	client := tts.NewClient(srv.URL, time.Second)
	req := tts.NewRequest("hi")
	req.ChunkLength = 50

	if _, err := client.Synthesize(context.Background(), req, io.Discard); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestSynthesizeDecodesServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"text too long"}`))
	}))
	defer srv.Close()

	client := tts.NewClient(srv.URL, time.Second)
	_, err := client.Synthesize(context.Background(), tts.NewRequest("hi"), io.Discard)

	var statusErr *tts.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("unexpected status: %d", statusErr.StatusCode)
	}
	if statusErr.Message != "text too long" {
		t.Fatalf("unexpected message: %q", statusErr.Message)
	}
}

func TestSynthesizeUnreachableServer(t *testing.T) {
	t.Parallel()

	client := tts.NewClient("http://127.0.0.1:1", time.Second)
	_, err := client.Synthesize(context.Background(), tts.NewRequest("hi"), io.Discard)
	if !errors.Is(err, tts.ErrServerUnavailable) {
		t.Fatalf("expected ErrServerUnavailable, got %v", err)
	}
}

func TestSynthesizeFileRemovesPartialOutputOnFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "out", "speech.wav")
	client := tts.NewClient(srv.URL, time.Second)

	if _, err := client.SynthesizeFile(context.Background(), tts.NewRequest("hi"), path); err == nil {
		t.Fatal("expected synthesis error")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("expected partial output to be removed")
	}
}

func TestSynthesizeFileWritesAudio(t *testing.T) {
	t.Parallel()

	audio := []byte("audio-bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(audio)
	}))
	defer srv.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "speech.wav")
	client := tts.NewClient(srv.URL, time.Second)

	written, err := client.SynthesizeFile(context.Background(), tts.NewRequest("hi"), path)
	if err != nil {
		t.Fatalf("SynthesizeFile returned error: %v", err)
	}
	if written != int64(len(audio)) {
		t.Fatalf("unexpected byte count: %d", written)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !bytes.Equal(data, audio) {
		t.Fatal("output file content mismatch")
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/health" {
			t.Errorf("unexpected health path: %q", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer healthy.Close()

	if err := tts.NewClient(healthy.URL, time.Second).Health(context.Background()); err != nil {
		t.Fatalf("expected healthy server, got %v", err)
	}

	unhealthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer unhealthy.Close()

	err := tts.NewClient(unhealthy.URL, time.Second).Health(context.Background())
	var statusErr *tts.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 StatusError, got %v", err)
	}

	if err := tts.NewClient("http://127.0.0.1:1", time.Second).Health(context.Background()); !errors.Is(err, tts.ErrServerUnavailable) {
		t.Fatalf("expected ErrServerUnavailable, got %v", err)
	}
}
