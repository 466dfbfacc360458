// Package streamws transcribes through a remote recognition service over a
// WebSocket. Audio is streamed up as binary frames; the service answers
// with windowed, window-relative chunk timestamps, which is the one
// recognizer here that exercises the window-offset arithmetic in the
// pipeline.
package streamws

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tapedeck/tapedeck/internal/media"
	"github.com/tapedeck/tapedeck/internal/transcribe"
)

// Config configures the streaming recognizer.
type Config struct {
	URL            string // ws:// or wss:// endpoint
	Token          string // optional, sent as Bearer
	WindowSeconds  int    // fallback window length when the hello omits it, default 30
	TimeoutSeconds int    // dial timeout, default 30
}

// Recognizer streams audio to a remote service and relays its windows.
type Recognizer struct {
	cfg Config

	mu        sync.RWMutex
	windowLen time.Duration
}

// New creates a streaming recognizer.
func New(cfg Config) *Recognizer {
	if cfg.WindowSeconds <= 0 {
		cfg.WindowSeconds = 30
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = 30
	}
	return &Recognizer{
		cfg:       cfg,
		windowLen: time.Duration(cfg.WindowSeconds) * time.Second,
	}
}

// Name returns the recognizer identifier.
func (r *Recognizer) Name() string {
	return "stream_ws"
}

// WindowLength is the service's model window, taken from its hello message
// once connected, the configured fallback before that.
func (r *Recognizer) WindowLength() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.windowLen
}

// Wire messages.
type helloMsg struct {
	Type          string `json:"type"`
	WindowSeconds int    `json:"window_seconds"`
}

type serverMsg struct {
	Type    string `json:"type"` // "window" | "done" | "error"
	Index   int    `json:"index"`
	Message string `json:"message"`
	Chunks  []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"chunks"`
}

// Transcribe dials the service, streams the source up and relays windows
// until the service reports done or fails.
func (r *Recognizer) Transcribe(ctx context.Context, src media.Source, opts transcribe.Options) (<-chan transcribe.Window, error) {
	header := http.Header{}
	if r.cfg.Token != "" {
		header.Set("Authorization", "Bearer "+r.cfg.Token)
	}

	dialer := websocket.Dialer{HandshakeTimeout: time.Duration(r.cfg.TimeoutSeconds) * time.Second}
	conn, _, err := dialer.DialContext(ctx, r.cfg.URL, header)
	if err != nil {
		return nil, fmt.Errorf("streamws: dial %s: %w", r.cfg.URL, err)
	}

	if err := r.handshake(conn, src, opts); err != nil {
		_ = conn.Close()
		return nil, err
	}

	reader, err := src.Open()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	out := make(chan transcribe.Window)

	// Close on context cancellation so both loops unblock.
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	go r.sendAudio(conn, reader)
	go func() {
		defer close(out)
		defer close(done)
		defer func() { _ = conn.Close() }()
		r.readWindows(ctx, conn, out)
	}()

	return out, nil
}

// handshake sends the run options and consumes the hello, picking up the
// service's window length.
func (r *Recognizer) handshake(conn *websocket.Conn, src media.Source, opts transcribe.Options) error {
	start := map[string]interface{}{
		"type":       "start",
		"format":     src.Ext(),
		"language":   opts.Language,
		"model":      opts.Model,
		"timestamps": opts.Timestamps,
	}
	if err := conn.WriteJSON(start); err != nil {
		return fmt.Errorf("streamws: send start: %w", err)
	}

	var hello helloMsg
	if err := conn.ReadJSON(&hello); err != nil {
		return fmt.Errorf("streamws: read hello: %w", err)
	}
	if hello.Type != "hello" {
		return fmt.Errorf("streamws: unexpected first message %q", hello.Type)
	}
	if hello.WindowSeconds > 0 {
		r.mu.Lock()
		r.windowLen = time.Duration(hello.WindowSeconds) * time.Second
		r.mu.Unlock()
	}
	return nil
}

// sendAudio streams the source as 32KB binary frames, then an eof marker.
// Write errors are left for the read loop to surface.
func (r *Recognizer) sendAudio(conn *websocket.Conn, reader io.ReadCloser) {
	defer func() { _ = reader.Close() }()
	buf := make([]byte, 32*1024)
	for {
		n, err := reader.Read(buf)
		if n > 0 {
			if werr := conn.WriteMessage(websocket.BinaryMessage, buf[:n]); werr != nil {
				return
			}
		}
		if err != nil {
			break
		}
	}
	_ = conn.WriteJSON(map[string]string{"type": "eof"})
}

func (r *Recognizer) readWindows(ctx context.Context, conn *websocket.Conn, out chan<- transcribe.Window) {
	for {
		var msg serverMsg
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				out <- transcribe.Window{Err: ctx.Err()}
			} else {
				out <- transcribe.Window{Err: fmt.Errorf("streamws: read: %w", err)}
			}
			return
		}
		switch msg.Type {
		case "window":
			w := transcribe.Window{Index: msg.Index}
			for _, c := range msg.Chunks {
				w.Chunks = append(w.Chunks, transcribe.Chunk{
					Text:  c.Text,
					Start: time.Duration(c.Start * float64(time.Second)),
					End:   time.Duration(c.End * float64(time.Second)),
				})
			}
			out <- w
		case "done":
			return
		case "error":
			out <- transcribe.Window{Err: fmt.Errorf("streamws: service error: %s", msg.Message)}
			return
		default:
			// Unknown message types are skipped for forward compatibility.
		}
	}
}
