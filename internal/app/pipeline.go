package app

import (
	"fmt"
	"log"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/posematch/internal/capture"
)

// Start opens the camera and runs the capture pipeline.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		return nil
	}

	if err := a.camera.Open(); err != nil {
		return fmt.Errorf("open camera: %w", err)
	}
	a.camera.SetFPS(a.idleFPS())

	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	go a.runPipeline(a.stopCh, a.doneCh)

	log.Println("Capture pipeline started")
	return nil
}

// Stop halts the pipeline, releases the camera and detector and waits for
// running hooks.
func (a *App) Stop() {
	a.mu.Lock()
	stopCh, doneCh := a.stopCh, a.doneCh
	a.stopCh, a.doneCh = nil, nil
	a.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
		<-doneCh
	}

	if err := a.Camera().Close(); err != nil {
		log.Printf("Error closing camera: %v", err)
	}
	a.motion.Close()

	if d := a.Detector(); d != nil {
		if err := d.Close(); err != nil {
			log.Printf("Error closing detector: %v", err)
		}
	}

	a.WaitHooks()
	log.Println("Capture pipeline stopped")
}

// Running reports whether the pipeline is running.
func (a *App) Running() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.stopCh != nil
}

func (a *App) idleFPS() int {
	if fps := a.cfg.Settings.Camera.IdleFPS; fps > 0 {
		return fps
	}
	return capture.DefaultFPS
}

func (a *App) activeFPS() int {
	if fps := a.cfg.Settings.Camera.FPS; fps > 0 {
		return fps
	}
	return capture.DefaultFPS
}

// runPipeline reads frames on a ticker. While idle with nobody moving in
// front of the camera it runs at the idle rate and skips detection; motion
// or an active session switches it to the full camera rate.
func (a *App) runPipeline(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	active := false
	ticker := a.clock.NewTicker(time.Second / time.Duration(a.idleFPS()))
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C():
			if a.step() == active {
				continue
			}
			active = !active

			fps := a.idleFPS()
			if active {
				fps = a.activeFPS()
			}
			a.Camera().SetFPS(fps)
			ticker.Reset(time.Second / time.Duration(fps))
			if active {
				log.Println("Switched to active mode")
			} else {
				log.Println("Switched to idle mode")
			}
		}
	}
}

// step processes one camera frame and reports whether the pipeline should
// run at the active rate.
func (a *App) step() bool {
	frame, err := a.Camera().ReadFrame()
	if err != nil {
		log.Printf("Error reading frame: %v", err)
		return a.Mode() != ModeIdle
	}
	defer frame.Close()

	a.publish(frame)
	a.motion.Detect(frame)

	if a.Mode() == ModeIdle && !a.motion.Active() {
		return false
	}

	bodies, err := a.Detector().Detect(frame)
	if err != nil {
		log.Printf("Error detecting poses: %v", err)
		return true
	}

	a.ProcessBody(a.selector.Select(bodies))
	return true
}

// publish keeps the latest frame as JPEG while someone is watching.
func (a *App) publish(frame *gocv.Mat) {
	if a.viewers.Load() == 0 {
		return
	}

	buf, err := gocv.IMEncode(".jpg", *frame)
	if err != nil {
		return
	}
	data := append([]byte(nil), buf.GetBytes()...)
	buf.Close()

	a.jpegMu.Lock()
	a.jpeg = data
	a.jpegMu.Unlock()
}

// Watch asks the pipeline to keep JPEG frames for LatestJPEG until the
// returned release func is called.
func (a *App) Watch() (release func()) {
	a.viewers.Add(1)
	var once sync.Once
	return func() {
		once.Do(func() { a.viewers.Add(-1) })
	}
}

// LatestJPEG returns the latest published frame, or nil.
func (a *App) LatestJPEG() []byte {
	a.jpegMu.RLock()
	defer a.jpegMu.RUnlock()
	return a.jpeg
}
