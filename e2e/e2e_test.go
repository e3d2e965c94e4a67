package e2e

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/posematch/internal/app"
	"github.com/ayusman/posematch/internal/config"
	"github.com/ayusman/posematch/internal/detector"
	"github.com/ayusman/posematch/internal/pose"
	"github.com/ayusman/posematch/internal/server"
	"github.com/ayusman/posematch/internal/skeleton"
	"github.com/ayusman/posematch/internal/store"
	"github.com/ayusman/posematch/internal/timeutil"
)

type env struct {
	store  *store.Store
	app    *app.App
	clock  *timeutil.MockClock
	ts     *httptest.Server
	client *http.Client
}

func setup(t *testing.T, hooksDir string) *env {
	t.Helper()

	tmpDir := t.TempDir()
	s, err := store.New(filepath.Join(tmpDir, "data.db"), store.WithFrameCompression(true))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })

	settings := config.DefaultConfig()
	settings.Hooks.Dir = hooksDir
	clock := timeutil.NewMockClock(time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC))

	a := app.New(app.Config{Store: s, Settings: settings, Clock: clock})
	a.SetDetector(detector.NewMockDetector())
	if err := a.DiscoverHooks(); err != nil {
		t.Fatalf("DiscoverHooks() error = %v", err)
	}

	srv := server.New(server.Config{Store: s, Controller: a, Hooks: a.Hooks()})
	t.Cleanup(srv.Close)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	return &env{store: s, app: a, clock: clock, ts: ts, client: ts.Client()}
}

func (e *env) post(t *testing.T, path, body string) *http.Response {
	t.Helper()
	resp, err := e.client.Post(e.ts.URL+path, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s error = %v", path, err)
	}
	return resp
}

func (e *env) status(t *testing.T) app.Status {
	t.Helper()
	resp, err := e.client.Get(e.ts.URL + "/api/session")
	if err != nil {
		t.Fatalf("GET /api/session error = %v", err)
	}
	defer resp.Body.Close()

	var st app.Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatalf("decode status error = %v", err)
	}
	return st
}

// feed sends bodies through the app at the camera frame rate.
func (e *env) feed(bodies []skeleton.Body) {
	for i := range bodies {
		e.app.ProcessBody(&bodies[i])
		e.clock.Advance(33 * time.Millisecond)
	}
}

func sweep(n int) []skeleton.Body {
	bodies := make([]skeleton.Body, n)
	for i := range bodies {
		bodies[i] = skeleton.Blend(skeleton.StandingBody(), skeleton.TPoseBody(), float64(i)/float64(n-1))
	}
	return bodies
}

func TestE2E_RecordAndScore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}
	if runtime.GOOS == "windows" {
		t.Skip("skipping shell hook on Windows")
	}

	hooksDir := t.TempDir()
	received := filepath.Join(t.TempDir(), "finished.json")
	hookDir := filepath.Join(hooksDir, "capture")
	os.MkdirAll(hookDir, 0755)
	os.WriteFile(filepath.Join(hookDir, "run.sh"), []byte(fmt.Sprintf("#!/bin/sh\ncat > %q\necho '{\"success\":true}'\n", received)), 0755)
	os.WriteFile(filepath.Join(hookDir, "hook.json"), []byte(`{"name":"capture","version":"1.0.0","executable":"run.sh","events":["session.finished"]}`), 0644)

	e := setup(t, hooksDir)
	bodies := sweep(8)

	var routineID string
	t.Run("Record", func(t *testing.T) {
		resp := e.post(t, "/api/session/record", `{"name": "t-pose sweep"}`)
		resp.Body.Close()
		if resp.StatusCode != http.StatusAccepted {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusAccepted)
		}

		e.feed(bodies)
		if st := e.status(t); st.Recorded != len(bodies) || st.Line != "Recording frames 8" {
			t.Errorf("recorded %d (%q), want 8", st.Recorded, st.Line)
		}

		resp = e.post(t, "/api/session/stop", "")
		defer resp.Body.Close()
		var stopped struct {
			Routine struct {
				ID         string  `json:"id"`
				FrameCount int     `json:"frame_count"`
				DurationMs float64 `json:"duration_ms"`
			} `json:"routine"`
		}
		json.NewDecoder(resp.Body).Decode(&stopped)
		if stopped.Routine.FrameCount != 8 {
			t.Fatalf("frame_count = %d, want 8", stopped.Routine.FrameCount)
		}
		if stopped.Routine.DurationMs != 7*33 {
			t.Errorf("duration_ms = %v, want %v", stopped.Routine.DurationMs, 7*33)
		}
		routineID = stopped.Routine.ID
	})

	t.Run("FramesRoundTrip", func(t *testing.T) {
		loaded, elapsed, err := e.store.Frames().Load(routineID)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if len(loaded) != 8 || elapsed[1] != 33 {
			t.Fatalf("loaded %d frames, elapsed %v", len(loaded), elapsed)
		}
		if d := pose.ComputeDistance(pose.New(&bodies[3]), pose.New(&loaded[3])); d > 1e-9 {
			t.Errorf("stored frame differs from recorded body by %v", d)
		}
	})

	t.Run("PlayAndAutoStop", func(t *testing.T) {
		resp := e.post(t, "/api/session/play", fmt.Sprintf(`{"routine_id": %q}`, routineID))
		resp.Body.Close()
		if resp.StatusCode != http.StatusAccepted {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusAccepted)
		}

		e.feed(bodies)
		st := e.status(t)
		if st.Score != 800 || st.MaxScore != 800 {
			t.Errorf("score = %d of %d, want 800 of 800", st.Score, st.MaxScore)
		}

		for i := 0; i < pose.DefaultPostWindow; i++ {
			e.app.ProcessBody(nil)
		}
		if st := e.status(t); st.Mode != app.ModeIdle || st.Line != "Final score 800 of 800" {
			t.Fatalf("expected session to finish, got %s %q", st.Mode, st.Line)
		}
	})

	t.Run("HookNotified", func(t *testing.T) {
		e.app.WaitHooks()

		data, err := os.ReadFile(received)
		if err != nil {
			t.Fatalf("hook did not run: %v", err)
		}
		var req struct {
			Event   string `json:"event"`
			Session struct {
				RoutineID string `json:"routine_id"`
				Score     int    `json:"score"`
			} `json:"session"`
		}
		if err := json.Unmarshal(data, &req); err != nil {
			t.Fatalf("hook payload error = %v", err)
		}
		if req.Event != "session.finished" || req.Session.RoutineID != routineID || req.Session.Score != 800 {
			t.Errorf("unexpected hook payload %s", data)
		}
	})

	t.Run("History", func(t *testing.T) {
		resp, err := e.client.Get(e.ts.URL + "/api/routines/" + routineID + "/sessions")
		if err != nil {
			t.Fatalf("GET sessions error = %v", err)
		}
		defer resp.Body.Close()

		var history struct {
			Sessions []struct {
				Percent float64 `json:"percent"`
				Matched int     `json:"matched"`
			} `json:"sessions"`
		}
		json.NewDecoder(resp.Body).Decode(&history)
		if len(history.Sessions) != 1 || history.Sessions[0].Percent != 100 || history.Sessions[0].Matched != 8 {
			t.Errorf("unexpected history %+v", history.Sessions)
		}
	})
}

func TestE2E_Checking(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	e := setup(t, t.TempDir())

	resp := e.post(t, "/api/session/check", `{"bone": "HandRight"}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusAccepted)
	}

	standing := skeleton.StandingBody()
	raised := skeleton.ArmsRaisedBody()
	e.app.ProcessBody(&standing)
	if st := e.status(t); st.Check != nil {
		t.Fatalf("first body should become the reference, got %+v", st.Check)
	}

	e.app.ProcessBody(&raised)
	st := e.status(t)
	if st.Check == nil {
		t.Fatal("expected a bone report")
	}
	if st.Check.Bone != skeleton.HandRight || st.Check.Distance <= 0 {
		t.Errorf("unexpected report %+v", st.Check)
	}
	if !strings.Contains(st.Line, "HandRight") {
		t.Errorf("status line %q should name the bone", st.Line)
	}

	resp = e.post(t, "/api/session/stop", "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("stop status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
}
