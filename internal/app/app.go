// Package app drives posematch sessions: it records routines, scores live
// playback against them and reports per-bone diagnostics while checking.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/posematch/internal/capture"
	"github.com/ayusman/posematch/internal/config"
	"github.com/ayusman/posematch/internal/detector"
	"github.com/ayusman/posematch/internal/hook"
	"github.com/ayusman/posematch/internal/pose"
	"github.com/ayusman/posematch/internal/recorder"
	"github.com/ayusman/posematch/internal/skeleton"
	"github.com/ayusman/posematch/internal/store"
	"github.com/ayusman/posematch/internal/timeutil"
)

var (
	// ErrBusy is returned when a session is started while another is active.
	ErrBusy = errors.New("another session is active")
	// ErrNotActive is returned when stopping a session that is not running.
	ErrNotActive = errors.New("session is not active")
	// ErrNoRoutine is returned when playback has no routine to play.
	ErrNoRoutine = errors.New("no routine to play")
	// ErrEmptyName is returned when recording without a routine name.
	ErrEmptyName = errors.New("routine name is required")
	// ErrRoutineExists is returned when recording under a name already taken.
	ErrRoutineExists = errors.New("routine already exists")
)

// DefaultCheckBone is the bone reported while checking.
const DefaultCheckBone = skeleton.HandRight

// Mode is what the app is doing with incoming bodies.
type Mode int

const (
	ModeIdle Mode = iota
	ModeRecording
	ModePlaying
	ModeChecking
)

var modeNames = [...]string{"idle", "recording", "playing", "checking"}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modeNames[m]
}

// MarshalText encodes the mode by name.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText decodes a mode name.
func (m *Mode) UnmarshalText(text []byte) error {
	for i, name := range modeNames {
		if name == string(text) {
			*m = Mode(i)
			return nil
		}
	}
	return fmt.Errorf("unknown mode %q", text)
}

// Config holds the dependencies and settings of an App.
type Config struct {
	// Store persists routines and sessions. It must not be nil.
	Store *store.Store
	// Settings is the loaded configuration.
	Settings config.Config
	// Clock drives recording timestamps, the playback clock and the
	// pipeline ticker. Nil uses the real clock.
	Clock timeutil.Clock
}

// App orchestrates capture, detection and scoring.
type App struct {
	cfg      Config
	clock    timeutil.Clock
	camera   capture.Camera
	motion   *capture.MotionDetector
	detector detector.Detector
	selector *skeleton.Selector
	recorder *recorder.Recorder
	hookMgr  *hook.Manager
	hookExec *hook.Executor
	hookWG   sync.WaitGroup

	mu     sync.RWMutex
	stopCh chan struct{}
	doneCh chan struct{}

	mode       Mode
	recordName string
	routine    *store.Routine
	comparer   *pose.Comparer
	started    time.Time
	frame      int
	refIndex   int
	reference  *pose.Skeleton
	checkBone  skeleton.JointType
	report     *pose.BoneReport
	live       *pose.Skeleton
	line       string
	last       *store.Session

	viewers atomic.Int32
	jpegMu  sync.RWMutex
	jpeg    []byte
}

// New creates an App. The MediaPipe detector is used when available,
// otherwise a mock detector that never sees anyone.
func New(cfg Config) *App {
	if cfg.Clock == nil {
		cfg.Clock = timeutil.RealClock{}
	}
	s := cfg.Settings

	motion := capture.NewMotionDetector(s.Camera.MotionThreshold)
	motion.SetClock(cfg.Clock)

	a := &App{
		cfg:   cfg,
		clock: cfg.Clock,
		camera: capture.NewCamera(capture.Options{
			DeviceID: s.Camera.DeviceID,
			FPS:      s.Camera.FPS,
		}),
		motion:    motion,
		selector:  skeleton.NewSelector(),
		recorder:  recorder.New(cfg.Clock),
		hookMgr:   hook.NewManager(s.Hooks.Dir),
		hookExec:  hook.NewExecutor(time.Duration(s.Hooks.TimeoutMs) * time.Millisecond),
		checkBone: DefaultCheckBone,
		line:      "Ready",
	}

	detCfg := detector.DefaultConfig()
	if s.Detector.MinConfidence > 0 {
		detCfg.MinConfidence = s.Detector.MinConfidence
	}
	if s.Detector.MinTrackingConf > 0 {
		detCfg.MinTrackingConf = s.Detector.MinTrackingConf
	}
	if mp, err := detector.NewMediaPipeDetector(detCfg); err == nil {
		a.detector = mp
		log.Println("Using MediaPipe pose detection")
	} else {
		log.Printf("MediaPipe not available (%v), using mock detector", err)
		a.detector = detector.NewMockDetector()
	}

	return a
}

// SetDetector replaces the pose detector.
func (a *App) SetDetector(d detector.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
}

// SetCamera replaces the camera. It must be called before Start.
func (a *App) SetCamera(c capture.Camera) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.camera = c
}

// Detector returns the pose detector.
func (a *App) Detector() detector.Detector {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.detector
}

// Camera returns the camera.
func (a *App) Camera() capture.Camera {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.camera
}

// MotionDetector returns the presence gate.
func (a *App) MotionDetector() *capture.MotionDetector {
	return a.motion
}

// Hooks returns the hook manager.
func (a *App) Hooks() *hook.Manager {
	return a.hookMgr
}

// DiscoverHooks scans the hook directory.
func (a *App) DiscoverHooks() error {
	if err := a.hookMgr.Discover(); err != nil {
		return err
	}
	log.Printf("Discovered %d hooks in %s", len(a.hookMgr.List()), a.hookMgr.Dir())
	return nil
}

// Mode returns the current mode.
func (a *App) Mode() Mode {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.mode
}

// StartRecording begins recording a new routine called name.
func (a *App) StartRecording(name string) error {
	if name == "" {
		return ErrEmptyName
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.mode != ModeIdle {
		return fmt.Errorf("%w: %s", ErrBusy, a.mode)
	}

	_, err := a.cfg.Store.Routines().GetByName(name)
	switch {
	case err == nil:
		return fmt.Errorf("%w: %s", ErrRoutineExists, name)
	case !errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("look up routine: %w", err)
	}

	a.recorder.Start()
	a.recordName = name
	a.mode = ModeRecording
	a.selector.Reset()
	a.line = statusRecording(0)
	log.Printf("Recording routine %q", name)
	return nil
}

// StopRecording ends the recording and saves it as a routine.
func (a *App) StopRecording() (*store.Routine, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.mode != ModeRecording {
		return nil, fmt.Errorf("%w: not recording", ErrNotActive)
	}
	a.mode = ModeIdle
	a.line = "Ready"

	rec, err := a.recorder.Stop()
	if err != nil {
		return nil, err
	}

	routines := a.cfg.Store.Routines()
	rt := &store.Routine{ID: uuid.NewString(), Name: a.recordName}
	if err := routines.Create(rt); err != nil {
		return nil, fmt.Errorf("create routine: %w", err)
	}
	if err := a.cfg.Store.Frames().Save(rt.ID, rec.Bodies, rec.ElapsedMs); err != nil {
		routines.Delete(rt.ID)
		return nil, fmt.Errorf("save frames: %w", err)
	}
	if err := a.cfg.Store.Settings().Set(store.SettingLastRoutine, rt.ID); err != nil {
		log.Printf("Failed to remember last routine: %v", err)
	}

	saved, err := routines.GetByID(rt.ID)
	if err != nil {
		return nil, err
	}
	log.Printf("Recorded routine %q: %d frames, %.0fms", saved.Name, saved.FrameCount, saved.DurationMs)
	return saved, nil
}

// StartPlayback starts scoring the live performer against a routine. An
// empty routineID plays the last recorded or played routine.
func (a *App) StartPlayback(routineID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.mode != ModeIdle {
		return fmt.Errorf("%w: %s", ErrBusy, a.mode)
	}

	rt, err := a.resolveRoutine(routineID)
	if err != nil {
		return err
	}

	bodies, elapsed, err := a.cfg.Store.Frames().Load(rt.ID)
	if err != nil {
		return fmt.Errorf("load frames: %w", err)
	}
	if len(bodies) == 0 {
		return fmt.Errorf("%w: routine %s has no frames", ErrNoRoutine, rt.Name)
	}
	seq, err := pose.SequenceFromBodies(bodies, elapsed)
	if err != nil {
		return fmt.Errorf("build sequence: %w", err)
	}

	sc := a.cfg.Settings.Scoring
	a.comparer = pose.NewComparer(seq, pose.Options{
		UseWeights: sc.UseWeights,
		PreWindow:  sc.PreWindow,
		PostWindow: sc.PostWindow,
		Weights:    pose.NewWeightGenerator(sc.WeightWindow, sc.WeightScale),
	})
	a.routine = rt
	a.frame = 0
	a.refIndex = -1
	a.started = a.clock.Now()
	a.mode = ModePlaying
	a.selector.Reset()
	a.line = statusScore(0)

	if err := a.cfg.Store.Settings().Set(store.SettingLastRoutine, rt.ID); err != nil {
		log.Printf("Failed to remember last routine: %v", err)
	}
	log.Printf("Playing routine %q (%d frames, weights %v)", rt.Name, seq.Len(), sc.UseWeights)
	return nil
}

// resolveRoutine finds the routine to play. An empty id means the last
// routine used, falling back to the newest one.
func (a *App) resolveRoutine(id string) (*store.Routine, error) {
	routines := a.cfg.Store.Routines()

	if id != "" {
		rt, err := routines.GetByID(id)
		if err != nil {
			return nil, fmt.Errorf("routine %s: %w", id, err)
		}
		return rt, nil
	}

	if last, err := a.cfg.Store.Settings().Get(store.SettingLastRoutine); err == nil {
		if rt, err := routines.GetByID(last); err == nil {
			return rt, nil
		}
	}

	rt, err := routines.Latest()
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNoRoutine
	}
	return rt, err
}

// StopPlayback ends the playback, saves the session and notifies hooks.
func (a *App) StopPlayback() (*store.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.mode != ModePlaying {
		return nil, fmt.Errorf("%w: not playing", ErrNotActive)
	}
	return a.finishPlayback()
}

// finishPlayback must be called with a.mu held.
func (a *App) finishPlayback() (*store.Session, error) {
	summary := a.comparer.Summary()
	rt := a.routine

	a.mode = ModeIdle
	a.comparer = nil
	a.routine = nil
	a.line = fmt.Sprintf("Final score %d of %d", summary.Score, summary.MaxScore)

	sess := &store.Session{
		ID:           uuid.NewString(),
		RoutineID:    rt.ID,
		UseWeights:   a.cfg.Settings.Scoring.UseWeights,
		Score:        summary.Score,
		MaxScore:     summary.MaxScore,
		Frames:       summary.Frames,
		Matched:      summary.Matched,
		MeanDistance: summary.MeanDistance,
		StartedAt:    a.started,
		EndedAt:      a.clock.Now(),
	}
	if err := a.cfg.Store.Sessions().Create(sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	a.last = sess
	log.Printf("Session finished on %q: score %d of %d (%.1f%%)", rt.Name, summary.Score, summary.MaxScore, summary.Percent)

	a.fireHooks(&hook.Request{Event: hook.EventSessionFinished, Routine: rt, Session: sess})
	return sess, nil
}

func (a *App) fireHooks(req *hook.Request) {
	hooks := a.hookMgr.Subscribers(req.Event)
	if len(hooks) == 0 {
		return
	}

	a.hookWG.Add(1)
	go func() {
		defer a.hookWG.Done()
		if err := a.hookExec.Dispatch(context.Background(), hooks, req); err != nil {
			log.Printf("Hook error: %v", err)
		}
	}()
}

// WaitHooks blocks until hooks fired so far have finished.
func (a *App) WaitHooks() {
	a.hookWG.Wait()
}

// LastSession returns the most recently finished session, or nil.
func (a *App) LastSession() *store.Session {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.last
}

// StartChecking freezes the next body seen as the reference pose and
// reports bone on every later frame. An invalid bone uses DefaultCheckBone.
func (a *App) StartChecking(bone skeleton.JointType) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.mode != ModeIdle {
		return fmt.Errorf("%w: %s", ErrBusy, a.mode)
	}
	if !bone.Valid() {
		bone = DefaultCheckBone
	}

	a.mode = ModeChecking
	a.selector.Reset()
	a.checkBone = bone
	a.reference = nil
	a.report = nil
	a.line = "Waiting for reference pose"
	return nil
}

// StopChecking leaves checking mode.
func (a *App) StopChecking() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.mode != ModeChecking {
		return fmt.Errorf("%w: not checking", ErrNotActive)
	}
	a.mode = ModeIdle
	a.reference = nil
	a.report = nil
	a.line = "Ready"
	return nil
}

// StopResult is what StopSession ended.
type StopResult struct {
	Mode    Mode           `json:"mode"`
	Routine *store.Routine `json:"routine,omitempty"`
	Session *store.Session `json:"session,omitempty"`
}

// StopSession stops whatever session is active.
func (a *App) StopSession() (*StopResult, error) {
	switch mode := a.Mode(); mode {
	case ModeRecording:
		rt, err := a.StopRecording()
		if err != nil {
			return nil, err
		}
		return &StopResult{Mode: mode, Routine: rt}, nil
	case ModePlaying:
		sess, err := a.StopPlayback()
		if err != nil {
			return nil, err
		}
		return &StopResult{Mode: mode, Session: sess}, nil
	case ModeChecking:
		if err := a.StopChecking(); err != nil {
			return nil, err
		}
		return &StopResult{Mode: mode}, nil
	default:
		return nil, ErrNotActive
	}
}

// ProcessBody feeds one frame's selected body into the active session.
// body is nil when nobody was found in the frame.
func (a *App) ProcessBody(body *skeleton.Body) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.live = pose.New(body)

	switch a.mode {
	case ModeRecording:
		if body != nil {
			a.recorder.Add(*body)
		} else {
			missing := skeleton.NewBody(0)
			missing.Tracked = false
			a.recorder.Add(missing)
		}
		a.line = statusRecording(a.recorder.Len())

	case ModePlaying:
		idx := a.playbackIndex()
		a.refIndex = idx
		a.comparer.Update(a.live, idx)
		a.line = statusScore(a.comparer.Score())

		if idx >= a.comparer.Len()-1+a.cfg.Settings.Scoring.PostWindow {
			if _, err := a.finishPlayback(); err != nil {
				log.Printf("Failed to finish playback: %v", err)
			}
		}

	case ModeChecking:
		if a.reference == nil || !a.reference.IsValid() {
			a.reference = a.live
			return
		}
		r := pose.Inspect(a.reference, a.live, a.checkBone)
		a.report = &r
		a.line = r.String()
	}
}

// playbackIndex returns the reference frame the current sample is nominally
// aligned with. Past the end of the routine the index keeps growing so the
// session can run out.
func (a *App) playbackIndex() int {
	if a.cfg.Settings.Scoring.IndexMode != config.IndexModeClock {
		i := a.frame
		a.frame++
		return i
	}

	seq := a.comparer.Sequence()
	elapsed := float64(a.clock.Since(a.started).Microseconds()) / 1000
	over := elapsed - seq.DurationMs()
	if over <= 0 {
		return seq.IndexAt(elapsed)
	}

	step := 1000.0 / float64(capture.DefaultFPS)
	if n := seq.Len(); n > 1 && seq.DurationMs() > 0 {
		step = seq.DurationMs() / float64(n-1)
	}
	return seq.Len() - 1 + int(math.Ceil(over/step))
}

func statusRecording(n int) string { return fmt.Sprintf("Recording frames %d", n) }
func statusScore(n int) string     { return fmt.Sprintf("Score %d", n) }
