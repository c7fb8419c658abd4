package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ayusman/moodcam/internal/app"
	"github.com/ayusman/moodcam/internal/capture"
	"github.com/ayusman/moodcam/internal/config"
	"github.com/ayusman/moodcam/internal/detector"
	"github.com/ayusman/moodcam/internal/events"
	"github.com/ayusman/moodcam/internal/face"
	"github.com/ayusman/moodcam/internal/plugin"
	"github.com/ayusman/moodcam/internal/server"
	"github.com/ayusman/moodcam/internal/store"
	"github.com/ayusman/moodcam/internal/tray"
)

const (
	pluginTimeout       = 5 * time.Second
	maxConcurrentPlugin = 4
)

func main() {
	fmt.Println("Moodcam - Emotion and Gesture Recognition")

	cfg := config.Load()

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	st, err := store.New(cfg.DBPath())
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	det, err := newDetector(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize hand detector: %v", err)
	}
	if cfg.HandModel != "" {
		defer detector.DestroyONNXRuntime()
	}
	defer det.Close()

	faceConfig := face.DefaultConfig()
	faceConfig.URL = cfg.FaceURL
	faceConfig.DetectorBackend = cfg.FaceBackend
	analyzer := face.NewHTTPAnalyzer(faceConfig)

	camera := capture.NewCamera(capture.Config{
		DeviceID: cfg.CameraID,
		Width:    cfg.Width,
		Height:   cfg.Height,
		FPS:      cfg.FPS,
		Mirror:   cfg.Mirror,
	})

	appConfig := app.DefaultConfig()
	appConfig.Store = st
	appConfig.Downsample = cfg.Downsample
	appConfig.DisplayFPS = cfg.DisplayFPS
	appConfig.Thresholds = cfg.Thresholds
	a := app.New(appConfig, camera, analyzer, det)

	webDir := cfg.StaticDir
	if webDir == "" {
		webDir = findWebDir(cfg.DataDir)
	}
	if webDir != "" {
		fmt.Printf("Serving static files from: %s\n", webDir)
	}

	srv := server.New(server.Config{
		StaticDir: webDir,
		Store:     st,
		App:       a,
	})
	a.AddFrameSink(srv.Stream())
	a.AddStatusSink(srv.Live())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx, cfg.Addr)
	})

	if cfg.MQTTBroker != "" {
		client, err := events.Connect(events.ClientConfig{
			Broker:   cfg.MQTTBroker,
			ClientID: cfg.MQTTClientID,
			Username: cfg.MQTTUsername,
			Password: cfg.MQTTPassword,
			Prefix:   cfg.MQTTTopic,
		})
		if err != nil {
			log.Printf("Warning: MQTT events disabled: %v", err)
		} else {
			publisher := events.NewPublisher(client, cfg.MQTTTopic)
			defer publisher.Close()
			a.AddEventSink(publisher)
			g.Go(func() error {
				publisher.Start(gctx)
				return nil
			})
		}
	}

	plugins := plugin.NewManager(cfg.PluginDir)
	if err := plugins.Discover(); err != nil {
		log.Printf("Warning: plugin discovery failed: %v", err)
	}
	if n := len(plugins.List()); n > 0 {
		log.Printf("Loaded %d plugin(s) from %s", n, plugins.PluginDir())
		dispatcher := plugin.NewDispatcher(plugins, plugin.NewExecutor(pluginTimeout), maxConcurrentPlugin)
		defer dispatcher.Close()
		a.AddEventSink(dispatcher)
	}

	dashboardURL := dashboardURL(cfg.Addr)
	fmt.Printf("Dashboard: %s\n", dashboardURL)

	if cfg.NoTray {
		<-gctx.Done()
	} else {
		t := tray.New(a)
		a.AddStatusSink(t)
		t.OnOpenDashboard(func() {
			if err := openBrowser(dashboardURL); err != nil {
				log.Printf("Failed to open dashboard: %v", err)
			}
		})
		t.OnQuit(cancel)
		go func() {
			<-gctx.Done()
			t.Quit()
		}()
		// systray needs the main goroutine.
		t.Run()
	}

	cancel()
	if a.IsRunning() {
		if _, err := a.StopSession(); err != nil {
			log.Printf("Error stopping session: %v", err)
		}
	}
	if err := g.Wait(); err != nil {
		log.Printf("Server failed: %v", err)
	}
}

// newDetector prefers the in-process ONNX model, then the Python service,
// and falls back to the mock detector when neither is available.
func newDetector(cfg *config.Config) (detector.Detector, error) {
	detConfig := detector.Config{
		MaxHands:      cfg.MaxHands,
		MinConfidence: cfg.MinConfidence,
	}

	if cfg.HandModel != "" {
		if err := detector.InitONNXRuntime(cfg.ORTLib); err != nil {
			return nil, err
		}
		det, err := detector.NewONNXDetector(detConfig, detector.DefaultONNXConfig(cfg.HandModel))
		if err != nil {
			detector.DestroyONNXRuntime()
			return nil, err
		}
		log.Printf("Using ONNX hand model %s", cfg.HandModel)
		return det, nil
	}

	det, err := detector.NewServiceDetector(detConfig)
	if err == nil {
		log.Println("Using MediaPipe hand service")
		return det, nil
	}

	log.Printf("Warning: no hand detector available (%v), gestures are disabled", err)
	return detector.NewMockDetector(), nil
}

// dashboardURL turns a listen address into a browsable URL.
func dashboardURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr
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

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and <dataDir>/web.
// Returns the first existing directory or empty string if none found.
func findWebDir(dataDir string) string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	dataWebDir := filepath.Join(dataDir, "web")
	if info, err := os.Stat(dataWebDir); err == nil && info.IsDir() {
		return dataWebDir
	}

	return ""
}
