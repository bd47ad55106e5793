package transcription

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errx "github.com/zenai/agentcore/internal/core/error"
)

func newServer(t *testing.T, handler http.HandlerFunc) openai.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return openai.NewClient(
		option.WithAPIKey("test"),
		option.WithBaseURL(srv.URL+"/v1/"),
		option.WithMaxRetries(0),
	)
}

func writeAudio(t *testing.T, name string, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o600))
	return path
}

func TestTranscribe(t *testing.T) {
	var gotPath, gotContentType string
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"ship it friday","language":"english","duration":12.5,
			"segments":[{"id":0,"start":0,"end":12.5,"text":"ship it friday"}]}`))
	})

	wh := NewWhisper(client, Config{})
	out, err := wh.Transcribe(context.Background(), writeAudio(t, "standup.mp3", 64), Options{Language: "en"})
	require.NoError(t, err)
	assert.Equal(t, "/v1/audio/transcriptions", gotPath)
	assert.True(t, strings.HasPrefix(gotContentType, "multipart/form-data"))
	assert.Equal(t, "ship it friday", out.Text)
	assert.Equal(t, 12.5, out.Duration)
	require.Len(t, out.Segments, 1)
	assert.Equal(t, 12.5, out.Segments[0].End)
}

func TestTranscribe_RejectsBeforeCalling(t *testing.T) {
	var calls atomic.Int32
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) { calls.Add(1) })
	wh := NewWhisper(client, Config{MaxFileSize: 16})

	_, err := wh.Transcribe(context.Background(), writeAudio(t, "big.wav", 17), Options{})
	assert.True(t, errx.IsKind(err, errx.KindConfiguration))

	_, err = wh.Transcribe(context.Background(), writeAudio(t, "notes.txt", 1), Options{})
	assert.True(t, errx.IsKind(err, errx.KindConfiguration))

	_, err = wh.Transcribe(context.Background(), filepath.Join(t.TempDir(), "missing.mp3"), Options{})
	assert.True(t, errx.IsKind(err, errx.KindConfiguration))

	assert.Zero(t, calls.Load())
}

func TestTranscribe_ProviderAndTimeoutErrors(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom"}}`))
	})
	wh := NewWhisper(client, Config{})
	_, err := wh.Transcribe(context.Background(), writeAudio(t, "a.m4a", 8), Options{})
	assert.True(t, errx.IsKind(err, errx.KindProvider))

	slow := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	})
	wh = NewWhisper(slow, Config{Timeout: 20 * time.Millisecond})
	_, err = wh.Transcribe(context.Background(), writeAudio(t, "a.m4a", 8), Options{})
	assert.True(t, errx.IsKind(err, errx.KindTimeout))
}

func TestTranslate(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/audio/translations", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"hello team"}`))
	})
	out, err := NewWhisper(client, Config{}).Translate(context.Background(), writeAudio(t, "th.webm", 8))
	require.NoError(t, err)
	assert.Equal(t, "hello team", out.Text)
	assert.Equal(t, "auto-detected", out.SourceLanguage)
	assert.Equal(t, "en", out.TargetLanguage)
}
