package streamws_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tapedeck/tapedeck/internal/media"
	"github.com/tapedeck/tapedeck/internal/transcribe"
	"github.com/tapedeck/tapedeck/internal/transcribe/streamws"
	"github.com/tapedeck/tapedeck/testutil"
)

var upgrader = websocket.Upgrader{}

type startMsg struct {
	Type       string `json:"type"`
	Format     string `json:"format"`
	Language   string `json:"language"`
	Timestamps bool   `json:"timestamps"`
}

// fakeService speaks the recognition protocol: consume start, answer
// hello, drain audio until eof, then run the script.
type fakeService struct {
	windowSeconds int
	script        []map[string]interface{}

	authHeader atomic.Value
	start      atomic.Value
	audioBytes atomic.Int64
}

func (s *fakeService) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.authHeader.Store(r.Header.Get("Authorization"))
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		var start startMsg
		if err := conn.ReadJSON(&start); err != nil {
			t.Errorf("read start: %v", err)
			return
		}
		s.start.Store(start)

		if err := conn.WriteJSON(map[string]interface{}{"type": "hello", "window_seconds": s.windowSeconds}); err != nil {
			return
		}

		for {
			kind, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if kind == websocket.BinaryMessage {
				s.audioBytes.Add(int64(len(data)))
				continue
			}
			var msg map[string]string
			if json.Unmarshal(data, &msg) == nil && msg["type"] == "eof" {
				break
			}
		}

		for _, msg := range s.script {
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		}
	}
}

func serve(t *testing.T, svc *fakeService) string {
	t.Helper()
	srv := httptest.NewServer(svc.handler(t))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func collect(t *testing.T, windows <-chan transcribe.Window) []transcribe.Window {
	t.Helper()
	var got []transcribe.Window
	timeout := time.After(5 * time.Second)
	for {
		select {
		case w, ok := <-windows:
			if !ok {
				return got
			}
			got = append(got, w)
		case <-timeout:
			t.Fatalf("window channel did not close (got %d windows)", len(got))
		}
	}
}

func TestTranscribeRelaysWindows(t *testing.T) {
	svc := &fakeService{
		windowSeconds: 20,
		script: []map[string]interface{}{
			{"type": "window", "index": 0, "chunks": []map[string]interface{}{
				{"start": 1.5, "end": 3.0, "text": "hello"},
			}},
			{"type": "window", "index": 1, "chunks": []map[string]interface{}{
				{"start": 0.5, "end": 2.0, "text": "again"},
			}},
			{"type": "done"},
		},
	}
	rec := streamws.New(streamws.Config{URL: serve(t, svc), Token: "secret", WindowSeconds: 30})

	audio := make([]byte, 100*1024) // forces multiple binary frames
	windows, err := rec.Transcribe(context.Background(), media.FromBytes(audio), transcribe.Options{Language: "en", Timestamps: true})
	testutil.AssertNoError(t, err, "transcribe")

	got := collect(t, windows)
	testutil.AssertEqual(t, 2, len(got), "window count")
	testutil.AssertEqual(t, 0, got[0].Index, "first window index")
	testutil.AssertEqual(t, 1, got[1].Index, "second window index")
	testutil.AssertEqual(t, "hello", got[0].Chunks[0].Text, "chunk text")
	testutil.AssertDuration(t, 1500*time.Millisecond, got[0].Chunks[0].Start, "chunk start seconds")
	testutil.AssertDuration(t, 3*time.Second, got[0].Chunks[0].End, "chunk end seconds")

	testutil.AssertDuration(t, 20*time.Second, rec.WindowLength(), "hello updates the window length")
	testutil.AssertEqual(t, "Bearer secret", svc.authHeader.Load(), "token sent as bearer")
	testutil.AssertEqual(t, int64(len(audio)), svc.audioBytes.Load(), "all audio streamed up")

	start := svc.start.Load().(startMsg)
	testutil.AssertEqual(t, "start", start.Type, "start message type")
	testutil.AssertEqual(t, "en", start.Language, "language forwarded")
	testutil.AssertTrue(t, start.Timestamps, "timestamps forwarded")
}

func TestTranscribeSurfacesServiceError(t *testing.T) {
	svc := &fakeService{
		windowSeconds: 30,
		script: []map[string]interface{}{
			{"type": "window", "index": 0, "chunks": []map[string]interface{}{
				{"start": 0.0, "end": 1.0, "text": "partial"},
			}},
			{"type": "error", "message": "model overloaded"},
		},
	}
	rec := streamws.New(streamws.Config{URL: serve(t, svc)})

	windows, err := rec.Transcribe(context.Background(), media.FromBytes([]byte("x")), transcribe.Options{})
	testutil.AssertNoError(t, err, "transcribe")

	got := collect(t, windows)
	testutil.AssertEqual(t, 2, len(got), "partial window plus error")
	testutil.AssertNoError(t, got[0].Err, "partial window delivered")
	testutil.AssertError(t, got[1].Err, "service error is terminal")
	testutil.AssertTrue(t, strings.Contains(got[1].Err.Error(), "model overloaded"), "error message relayed")
}

func TestTranscribeDialFailure(t *testing.T) {
	rec := streamws.New(streamws.Config{URL: "ws://127.0.0.1:1", TimeoutSeconds: 1})
	_, err := rec.Transcribe(context.Background(), media.FromBytes([]byte("x")), transcribe.Options{})
	testutil.AssertError(t, err, "unreachable service is a setup failure")
}

func TestWindowLengthFallbackBeforeConnect(t *testing.T) {
	rec := streamws.New(streamws.Config{URL: "ws://unused", WindowSeconds: 15})
	testutil.AssertDuration(t, 15*time.Second, rec.WindowLength(), "configured fallback")

	def := streamws.New(streamws.Config{URL: "ws://unused"})
	testutil.AssertDuration(t, 30*time.Second, def.WindowLength(), "default fallback")
}
