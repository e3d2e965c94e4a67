package hook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// DefaultTimeout bounds a single hook run.
const DefaultTimeout = 5 * time.Second

// Executor runs hooks with a timeout.
type Executor struct {
	timeout time.Duration
}

// NewExecutor creates an Executor. A non-positive timeout uses DefaultTimeout.
func NewExecutor(timeout time.Duration) *Executor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Executor{timeout: timeout}
}

// Timeout returns the per-hook timeout.
func (e *Executor) Timeout() time.Duration {
	return e.timeout
}

// Execute sends req to the hook on stdin and parses its stdout as a Response.
// A response reporting failure is returned as an error.
func (e *Executor) Execute(ctx context.Context, h *Hook, req *Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	cmd := exec.CommandContext(ctx, h.Executable)
	cmd.Dir = h.Path
	cmd.WaitDelay = time.Second
	cmd.Stdin = bytes.NewReader(body)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("hook %s timed out after %s", h.Manifest.Name, e.timeout)
	}
	if err != nil {
		if s := stderr.String(); s != "" {
			return nil, fmt.Errorf("hook %s failed: %w, stderr: %s", h.Manifest.Name, err, s)
		}
		return nil, fmt.Errorf("hook %s failed: %w", h.Manifest.Name, err)
	}

	var resp Response
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("parse hook %s response: %w, stdout: %s", h.Manifest.Name, err, stdout.String())
	}
	if !resp.Success {
		return &resp, fmt.Errorf("hook %s reported failure: %s", h.Manifest.Name, resp.Error)
	}
	return &resp, nil
}

// Dispatch runs every hook in hooks with req, one after another, and returns
// the joined errors of those that failed.
func (e *Executor) Dispatch(ctx context.Context, hooks []*Hook, req *Request) error {
	var errs []error
	for _, h := range hooks {
		if _, err := e.Execute(ctx, h, req); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
