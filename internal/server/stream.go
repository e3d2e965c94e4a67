package server

import (
	"bytes"
	"fmt"
	"net/http"
	"time"
)

// DefaultStreamInterval is how often the stream polls for a new frame, about 15 FPS.
const DefaultStreamInterval = 66 * time.Millisecond

// FrameSource provides the most recent JPEG-encoded camera frame. Frames are
// only encoded while at least one watcher is registered.
type FrameSource interface {
	Watch() (release func())
	LatestJPEG() []byte
}

// StreamHandler serves MJPEG frames from a FrameSource.
type StreamHandler struct {
	frames   FrameSource
	interval time.Duration
}

// NewStreamHandler creates a new StreamHandler. A non-positive interval
// uses DefaultStreamInterval.
func NewStreamHandler(frames FrameSource, interval time.Duration) *StreamHandler {
	if interval <= 0 {
		interval = DefaultStreamInterval
	}
	return &StreamHandler{frames: frames, interval: interval}
}

// ServeHTTP streams MJPEG frames to connected clients until the request ends.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	release := h.frames.Watch()
	defer release()

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	var last []byte
	for {
		if buf := h.frames.LatestJPEG(); len(buf) > 0 && !bytes.Equal(buf, last) {
			if err := writePart(w, buf); err != nil {
				return
			}
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
			last = buf
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

func writePart(w http.ResponseWriter, jpeg []byte) error {
	if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(jpeg)); err != nil {
		return err
	}
	if _, err := w.Write(jpeg); err != nil {
		return err
	}
	_, err := fmt.Fprint(w, "\r\n")
	return err
}
