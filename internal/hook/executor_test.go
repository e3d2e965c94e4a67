package hook

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/posematch/internal/store"
)

func scriptHook(t *testing.T, name, script string) *Hook {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, name+".sh")
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return &Hook{
		Manifest: Manifest{
			Name:       name,
			Executable: name + ".sh",
			Events:     []string{EventSessionFinished},
		},
		Path:       dir,
		Executable: path,
	}
}

func finishedRequest() *Request {
	return &Request{
		Event:   EventSessionFinished,
		Routine: &store.Routine{ID: "r1", Name: "warmup", FrameCount: 90},
		Session: &store.Session{ID: "s1", RoutineID: "r1", Score: 4200, MaxScore: 9000},
	}
}

func TestExecutor_Execute(t *testing.T) {
	h := scriptHook(t, "ok", `#!/bin/sh
cat > /dev/null
echo '{"success":true}'
`)

	resp, err := NewExecutor(5*time.Second).Execute(context.Background(), h, finishedRequest())
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}
	if !resp.Success {
		t.Error("expected success")
	}
}

func TestExecutor_Execute_ReadsStdin(t *testing.T) {
	h := scriptHook(t, "echo", `#!/bin/sh
INPUT=$(cat)
echo "$INPUT" > received.json
echo '{"success":true}'
`)

	if _, err := NewExecutor(5*time.Second).Execute(context.Background(), h, finishedRequest()); err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(h.Path, "received.json"))
	if err != nil {
		t.Fatalf("hook did not run in its own directory: %v", err)
	}
	for _, want := range []string{`"event":"session.finished"`, `"name":"warmup"`, `"score":4200`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("stdin %s does not contain %s", data, want)
		}
	}
}

func TestExecutor_Execute_Failure(t *testing.T) {
	tests := []struct {
		name    string
		script  string
		wantErr string
	}{
		{
			name: "reported failure",
			script: `#!/bin/sh
echo '{"success":false,"error":"disk full"}'
`,
			wantErr: "disk full",
		},
		{
			name: "non-zero exit",
			script: `#!/bin/sh
echo "boom" >&2
exit 1
`,
			wantErr: "boom",
		},
		{
			name: "invalid response",
			script: `#!/bin/sh
echo 'not json'
`,
			wantErr: "parse hook",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := scriptHook(t, "fail", tt.script)

			_, err := NewExecutor(5*time.Second).Execute(context.Background(), h, finishedRequest())
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestExecutor_Execute_Timeout(t *testing.T) {
	h := scriptHook(t, "slow", `#!/bin/sh
sleep 5
echo '{"success":true}'
`)

	start := time.Now()
	_, err := NewExecutor(100*time.Millisecond).Execute(context.Background(), h, finishedRequest())
	if err == nil || !strings.Contains(err.Error(), "timed out") {
		t.Fatalf("expected timeout error, got %v", err)
	}
	if time.Since(start) > 3*time.Second {
		t.Error("timeout was not enforced")
	}
}

func TestExecutor_Dispatch(t *testing.T) {
	good := scriptHook(t, "good", `#!/bin/sh
echo '{"success":true}'
`)
	bad := scriptHook(t, "bad", `#!/bin/sh
echo '{"success":false,"error":"nope"}'
`)

	exec := NewExecutor(0)
	if exec.Timeout() != DefaultTimeout {
		t.Errorf("Timeout() = %s, want %s", exec.Timeout(), DefaultTimeout)
	}

	if err := exec.Dispatch(context.Background(), []*Hook{good}, finishedRequest()); err != nil {
		t.Errorf("Dispatch(good) error = %v", err)
	}

	err := exec.Dispatch(context.Background(), []*Hook{good, bad}, finishedRequest())
	if err == nil || !strings.Contains(err.Error(), "nope") {
		t.Errorf("expected failure from bad hook, got %v", err)
	}
}
