// Package openaiasr transcribes through the OpenAI audio API. The API
// returns the whole transcript in one response; segments are replayed onto
// the window stream one at a time so consumers see the same incremental
// shape as with a streaming recognizer.
package openaiasr

import (
	"bytes"
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/tapedeck/tapedeck/internal/media"
	"github.com/tapedeck/tapedeck/internal/transcribe"
)

// Config configures the OpenAI recognizer.
type Config struct {
	APIKey string
	Model  string // default whisper-1
}

// Recognizer calls the OpenAI transcription endpoint.
type Recognizer struct {
	cfg    Config
	client *openai.Client
}

// New creates an OpenAI recognizer.
func New(cfg Config) *Recognizer {
	if cfg.Model == "" {
		cfg.Model = openai.Whisper1
	}
	return &Recognizer{cfg: cfg, client: openai.NewClient(cfg.APIKey)}
}

// Name returns the recognizer identifier.
func (r *Recognizer) Name() string {
	return "openai"
}

// WindowLength is zero: the API reports absolute timestamps.
func (r *Recognizer) WindowLength() time.Duration {
	return 0
}

// Transcribe uploads the source and replays the returned segments.
func (r *Recognizer) Transcribe(ctx context.Context, src media.Source, opts transcribe.Options) (<-chan transcribe.Window, error) {
	if r.cfg.APIKey == "" {
		return nil, fmt.Errorf("openaiasr: no API key configured")
	}

	req := openai.AudioRequest{
		Model:    r.resolveModel(opts),
		Language: opts.Language,
		Format:   openai.AudioResponseFormatVerboseJSON,
	}
	if src.IsBytes() {
		req.Reader = bytes.NewReader(src.Bytes())
		req.FilePath = "audio." + src.Ext()
	} else {
		req.FilePath = src.Path()
	}

	out := make(chan transcribe.Window)
	go func() {
		defer close(out)
		resp, err := r.client.CreateTranscription(ctx, req)
		if err != nil {
			out <- transcribe.Window{Err: fmt.Errorf("openaiasr: transcription request: %w", err)}
			return
		}
		for i, seg := range resp.Segments {
			select {
			case out <- transcribe.Window{Index: i, Chunks: []transcribe.Chunk{{
				Text:  seg.Text,
				Start: secondsToDuration(seg.Start),
				End:   secondsToDuration(seg.End),
			}}}:
			case <-ctx.Done():
				out <- transcribe.Window{Err: ctx.Err()}
				return
			}
		}
	}()
	return out, nil
}

func (r *Recognizer) resolveModel(opts transcribe.Options) string {
	if opts.Model != "" {
		return opts.Model
	}
	return r.cfg.Model
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
