// Package transcription turns recorded audio into text with the Whisper API.
package transcription

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	errx "github.com/zenai/agentcore/internal/core/error"
	logx "github.com/zenai/agentcore/pkg/logger"
)

const (
	DefaultModel       = "whisper-1"
	DefaultLanguage    = "en"
	DefaultMaxFileSize = 25 * 1024 * 1024

	provider = "whisper"
)

// SupportedFormats are the extensions accepted without conversion.
var SupportedFormats = []string{".mp3", ".mp4", ".mpeg", ".mpga", ".m4a", ".wav", ".webm"}

type Config struct {
	Model       string
	Language    string
	MaxFileSize int64
	Timeout     time.Duration
}

// Options override the configured language; Temperature 0 lets the API decide.
type Options struct {
	Language    string
	Temperature float64
}

type Segment struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type Transcript struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
	Duration float64   `json:"duration"`
	Language string    `json:"language"`
}

type Translation struct {
	Text           string `json:"text"`
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`
}

// Transcriber is what agents need from this package.
type Transcriber interface {
	Transcribe(ctx context.Context, path string, opts Options) (*Transcript, error)
}

// Whisper calls the OpenAI audio endpoints.
type Whisper struct {
	client openai.Client
	cfg    Config
}

func NewWhisper(client openai.Client, cfg Config) *Whisper {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = DefaultMaxFileSize
	}
	return &Whisper{client: client, cfg: cfg}
}

// Transcribe uploads the file at path. Oversized or unsupported files are rejected
// before any request is made.
func (w *Whisper) Transcribe(ctx context.Context, path string, opts Options) (*Transcript, error) {
	f, err := w.open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return w.TranscribeReader(ctx, f, opts)
}

// TranscribeReader transcribes audio already in memory or on a stream. The reader
// should carry a file name (as *os.File does) so the API can infer the format.
func (w *Whisper) TranscribeReader(ctx context.Context, r io.Reader, opts Options) (*Transcript, error) {
	language := opts.Language
	if language == "" {
		language = w.cfg.Language
	}
	params := openai.AudioTranscriptionNewParams{
		File:           r,
		Model:          openai.AudioModel(w.cfg.Model),
		ResponseFormat: openai.AudioResponseFormatVerboseJSON,
		Language:       openai.String(language),
	}
	if opts.Temperature > 0 {
		params.Temperature = openai.Float(opts.Temperature)
	}

	callCtx, cancel := w.callContext(ctx)
	defer cancel()

	start := time.Now()
	var out Transcript
	if _, err := w.client.Audio.Transcriptions.New(callCtx, params, option.WithResponseBodyInto(&out)); err != nil {
		return nil, classify(ctx, callCtx, err)
	}
	if out.Segments == nil {
		out.Segments = []Segment{}
	}
	logx.Ctx(ctx).Info().
		Dur("elapsed", time.Since(start)).
		Float64("audio_seconds", out.Duration).
		Str("language", out.Language).
		Msg("audio transcribed")
	return &out, nil
}

// Translate transcribes the file into English.
func (w *Whisper) Translate(ctx context.Context, path string) (*Translation, error) {
	f, err := w.open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	callCtx, cancel := w.callContext(ctx)
	defer cancel()

	var out struct {
		Text     string `json:"text"`
		Language string `json:"language"`
	}
	params := openai.AudioTranslationNewParams{
		File:  f,
		Model: openai.AudioModel(w.cfg.Model),
	}
	if _, err := w.client.Audio.Translations.New(callCtx, params, option.WithResponseBodyInto(&out)); err != nil {
		return nil, classify(ctx, callCtx, err)
	}
	source := out.Language
	if source == "" {
		source = "auto-detected"
	}
	return &Translation{Text: out.Text, SourceLanguage: source, TargetLanguage: "en"}, nil
}

func (w *Whisper) open(path string) (*os.File, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !supported(ext) {
		return nil, errx.Configuration("unsupported audio format %q; convert to one of %s first", ext, strings.Join(SupportedFormats, ", "))
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errx.Configuration("audio file not found: %s", path)
		}
		return nil, fmt.Errorf("stat audio file: %w", err)
	}
	if info.Size() > w.cfg.MaxFileSize {
		return nil, errx.Configuration("audio file is %d bytes, limit is %d; split it before transcribing", info.Size(), w.cfg.MaxFileSize)
	}
	return os.Open(path)
}

func (w *Whisper) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if w.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, w.cfg.Timeout)
	}
	return context.WithCancel(ctx)
}

func supported(ext string) bool {
	for _, f := range SupportedFormats {
		if f == ext {
			return true
		}
	}
	return false
}

func classify(parent, call context.Context, err error) error {
	switch {
	case errors.Is(parent.Err(), context.Canceled):
		return errx.Canceled(err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(call.Err(), context.DeadlineExceeded):
		return errx.Timeout(provider, err)
	}
	return errx.Provider(provider, err)
}

var _ Transcriber = (*Whisper)(nil)
