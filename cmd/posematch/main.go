package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/ayusman/posematch/internal/app"
	"github.com/ayusman/posematch/internal/config"
	"github.com/ayusman/posematch/internal/server"
	"github.com/ayusman/posematch/internal/store"
	"github.com/ayusman/posematch/internal/tray"
)

func main() {
	configPath := flag.String("config", "", "path to config.toml (default: standard locations)")
	noTray := flag.Bool("no-tray", false, "run without the system tray")
	flag.Parse()

	fmt.Println("posematch - pose rehearsal scoring")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := os.MkdirAll(cfg.Storage.DataDir, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	st, err := store.New(cfg.DBPath(), store.WithFrameCompression(cfg.Storage.CompressFrames))
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}

	a := app.New(app.Config{Store: st, Settings: cfg})
	if err := a.DiscoverHooks(); err != nil {
		log.Printf("Hook discovery failed: %v", err)
	}
	if err := a.Start(); err != nil {
		log.Printf("Camera unavailable, serving stored routines only: %v", err)
	}

	webDir := findWebDir(cfg)
	if webDir != "" {
		fmt.Printf("Serving static files from: %s\n", webDir)
	}

	srv := server.New(server.Config{
		StaticDir:  webDir,
		Store:      st,
		Controller: a,
		Hooks:      a.Hooks(),
		Frames:     a,
	})

	go func() {
		fmt.Printf("Starting server on %s\n", cfg.Server.Addr)
		if err := srv.ListenAndServe(cfg.Server.Addr); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	var once sync.Once
	shutdown := func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				log.Printf("Server shutdown: %v", err)
			}
			if _, err := a.StopSession(); err == nil {
				log.Println("Stopped active session")
			}
			a.Stop()
			if err := st.Close(); err != nil {
				log.Printf("Error closing store: %v", err)
			}
		})
	}
	defer shutdown()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	if *noTray {
		<-sigCh
		return
	}

	runTray(a, settingsURL(cfg.Server.Addr), sigCh)
}

// runTray blocks until the tray quits or a signal arrives.
func runTray(a *app.App, url string, sigCh <-chan os.Signal) {
	tr := tray.New()

	tr.On(tray.ActionRecord, func() {
		name := "Routine " + time.Now().Format("2006-01-02 15:04:05")
		if err := a.StartRecording(name); err != nil {
			log.Printf("Record: %v", err)
		}
	})
	tr.On(tray.ActionPlay, func() {
		if err := a.StartPlayback(""); err != nil {
			log.Printf("Play: %v", err)
		}
	})
	tr.On(tray.ActionStop, func() {
		if _, err := a.StopSession(); err != nil {
			log.Printf("Stop: %v", err)
		}
	})
	tr.On(tray.ActionSettings, func() {
		if err := openBrowser(url); err != nil {
			log.Printf("Open settings: %v", err)
		}
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-sigCh:
				tr.Quit()
				return
			case <-ticker.C:
				tr.SetStatus(a.StatusLine(), a.Mode() != app.ModeIdle)
			}
		}
	}()

	tr.Run()
}

func settingsURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr + "/"
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}

// findWebDir returns the configured static directory if it exists, else the
// first of "web", "../web", "../../web" and <data_dir>/web that does.
// Returns empty string if none found.
func findWebDir(cfg config.Config) string {
	candidates := []string{cfg.Server.StaticDir, "web", "../web", "../../web", filepath.Join(cfg.Storage.DataDir, "web")}
	for _, p := range candidates {
		if p == "" {
			continue
		}
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}
	return ""
}
