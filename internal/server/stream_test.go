package server

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeFrames serves JPEG bytes from a callback and counts watchers.
type fakeFrames struct {
	mu       sync.Mutex
	next     func() []byte
	watchers int
	watches  int
}

func (f *fakeFrames) Watch() func() {
	f.mu.Lock()
	f.watchers++
	f.watches++
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			f.watchers--
			f.mu.Unlock()
		})
	}
}

func (f *fakeFrames) LatestJPEG() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.next()
}

func serveStream(t *testing.T, frames *fakeFrames, d time.Duration) *httptest.ResponseRecorder {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/stream", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	NewStreamHandler(frames, 5*time.Millisecond).ServeHTTP(rec, req)
	return rec
}

func TestStreamHandler_SkipsUnchangedFrames(t *testing.T) {
	frames := &fakeFrames{next: func() []byte { return []byte("jpeg") }}

	rec := serveStream(t, frames, 100*time.Millisecond)

	if ct := rec.Header().Get("Content-Type"); ct != "multipart/x-mixed-replace; boundary=frame" {
		t.Errorf("unexpected Content-Type %q", ct)
	}
	body := rec.Body.String()
	if n := strings.Count(body, "--frame\r\n"); n != 1 {
		t.Errorf("expected 1 part for an unchanged frame, got %d", n)
	}
	if !strings.Contains(body, "Content-Length: 4\r\n\r\njpeg\r\n") {
		t.Errorf("malformed part %q", body)
	}
	if frames.watches != 1 || frames.watchers != 0 {
		t.Errorf("expected one released watch, got watches=%d watchers=%d", frames.watches, frames.watchers)
	}
}

func TestStreamHandler_NewFrames(t *testing.T) {
	n := 0
	frames := &fakeFrames{next: func() []byte {
		n++
		return []byte(fmt.Sprintf("jpeg-%d", n))
	}}

	rec := serveStream(t, frames, 100*time.Millisecond)

	if got := strings.Count(rec.Body.String(), "--frame\r\n"); got < 2 {
		t.Errorf("expected a part per new frame, got %d", got)
	}
}

func TestStreamHandler_NoFrames(t *testing.T) {
	frames := &fakeFrames{next: func() []byte { return nil }}

	rec := serveStream(t, frames, 50*time.Millisecond)

	if rec.Body.Len() != 0 {
		t.Errorf("expected empty body without frames, got %q", rec.Body.String())
	}
}

func TestStreamHandler_MethodNotAllowed(t *testing.T) {
	frames := &fakeFrames{next: func() []byte { return nil }}

	rec := httptest.NewRecorder()
	NewStreamHandler(frames, 0).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/stream", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
	if frames.watches != 0 {
		t.Error("rejected requests should not register a watcher")
	}
}
