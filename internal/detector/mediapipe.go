package detector

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/posematch/internal/skeleton"
)

const (
	poseScript  = "pose_service.py"
	idleTimeout = 30 * time.Second
)

// MediaPipeDetector implements Detector using a Python MediaPipe subprocess.
//
// Frames are sent as a 4-byte big-endian length followed by JPEG data; the
// service answers with one JSON line per frame.
type MediaPipeDetector struct {
	config    Config
	script    string
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	mu        sync.Mutex
	started   bool
	idleTimer *time.Timer
}

// NewMediaPipeDetector creates a new MediaPipe detector.
// The Python process is started lazily on first detection.
func NewMediaPipeDetector(config Config) (*MediaPipeDetector, error) {
	script := findScript(poseScript)
	if script == "" {
		return nil, fmt.Errorf("%s not found", poseScript)
	}

	return &MediaPipeDetector{
		config: config,
		script: script,
	}, nil
}

// Detect sends a frame to the landmarker and converts every detected person
// to a body. Tracking ids follow detection order.
func (d *MediaPipeDetector) Detect(frame *gocv.Mat) ([]skeleton.Body, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.ensureStarted(); err != nil {
		return nil, err
	}

	buf, err := gocv.IMEncode(".jpg", *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	data := buf.GetBytes()

	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(data)))

	if _, err := d.stdin.Write(length); err != nil {
		return nil, fmt.Errorf("write length: %w", err)
	}
	if _, err := d.stdin.Write(data); err != nil {
		return nil, fmt.Errorf("write data: %w", err)
	}

	line, err := d.stdout.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	bodies, err := parseResponse(line, d.config)
	if err != nil {
		return nil, err
	}

	d.resetIdleTimer()
	return bodies, nil
}

// Close shuts down the Python process.
func (d *MediaPipeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shutdown()
}

// response is one JSON line from the pose service.
type response struct {
	Poses []PoseLandmarks `json:"poses"`
	Error string          `json:"error,omitempty"`
}

func parseResponse(line []byte, cfg Config) ([]skeleton.Body, error) {
	var resp response
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("pose service: %s", resp.Error)
	}

	bodies := make([]skeleton.Body, len(resp.Poses))
	for i := range resp.Poses {
		bodies[i] = resp.Poses[i].ToBody(i+1, cfg)
	}
	return bodies, nil
}

func (d *MediaPipeDetector) ensureStarted() error {
	if d.started {
		return nil
	}

	python := findScript("venv/bin/python")
	if python == "" {
		python = "python3"
	}

	d.cmd = exec.Command(python, d.script,
		"--min-detection-confidence", strconv.FormatFloat(d.config.MinConfidence, 'f', -1, 64),
		"--min-tracking-confidence", strconv.FormatFloat(d.config.MinTrackingConf, 'f', -1, 64),
	)

	stdin, err := d.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := d.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	d.cmd.Stderr = os.Stderr

	if err := d.cmd.Start(); err != nil {
		return fmt.Errorf("start pose service: %w", err)
	}

	d.stdin = stdin
	d.stdout = bufio.NewReader(stdout)
	d.started = true

	return nil
}

func (d *MediaPipeDetector) shutdown() error {
	if !d.started {
		return nil
	}

	if d.idleTimer != nil {
		d.idleTimer.Stop()
		d.idleTimer = nil
	}

	if d.stdin != nil {
		d.stdin.Close()
	}

	err := d.cmd.Wait()
	d.started = false
	d.cmd = nil
	d.stdin = nil
	d.stdout = nil

	return err
}

// resetIdleTimer stops the subprocess after idleTimeout without frames.
func (d *MediaPipeDetector) resetIdleTimer() {
	if d.idleTimer != nil {
		d.idleTimer.Stop()
	}
	d.idleTimer = time.AfterFunc(idleTimeout, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.shutdown()
	})
}

// findScript looks for a file under scripts/ or a venv next to the working
// directory, the executable, or ~/.posematch.
func findScript(name string) string {
	var execDir string
	if execPath, err := os.Executable(); err == nil {
		execDir = filepath.Dir(execPath)
	}

	rel := name
	if filepath.Ext(name) == ".py" {
		rel = filepath.Join("scripts", name)
	}

	candidates := []string{
		rel,
		filepath.Join("..", rel),
		filepath.Join(execDir, rel),
		filepath.Join(os.Getenv("HOME"), ".posematch", rel),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			if abs, err := filepath.Abs(path); err == nil {
				return abs
			}
			return path
		}
	}
	return ""
}
