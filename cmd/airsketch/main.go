package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/ayusman/airsketch/internal/app"
	"github.com/ayusman/airsketch/internal/config"
	"github.com/ayusman/airsketch/internal/detector"
	"github.com/ayusman/airsketch/internal/logging"
	"github.com/ayusman/airsketch/internal/server"
	"github.com/ayusman/airsketch/internal/store"
	"github.com/ayusman/airsketch/internal/tray"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	webDir := flag.String("web", "", "directory with the browser UI (default: search ./web and ~/.airsketch/web)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		printConfigError(err)
		os.Exit(1)
	}
	if err := cfg.EnsureDirs(); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "✗ %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(logging.Options{
		Development: cfg.Log.Development,
		Level:       cfg.Log.Level,
		FilePath:    cfg.LogFile(),
	})
	if err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "✗ failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	st, err := store.New(cfg.Data.DBPath())
	if err != nil {
		logger.Fatal("failed to initialize store", zap.String("path", cfg.Data.DBPath()), zap.Error(err))
	}
	defer st.Close()

	engineCfg, cameraIndex := engineConfig(cfg, st, logger)
	engine := app.NewEngine(engineCfg, logger)
	defer engine.Close()

	det := newDetector(cfg, logger)
	a := app.New(app.Config{
		Engine:          engineCfg,
		CameraIndex:     cameraIndex,
		FPS:             cfg.Camera.FPS,
		Mirror:          cfg.Camera.Mirror,
		MotionThreshold: cfg.Camera.MotionThreshold,
	}, logger, app.WithEngine(engine), app.WithDetector(det))

	sourceErr := a.Start()
	defer a.Stop()

	static := *webDir
	if static == "" {
		static = findWebDir(cfg.Data.Dir)
	}
	srv := server.New(server.Config{
		StaticDir:   static,
		DrawingsDir: cfg.Data.DrawingsDir(),
		Store:       st,
		App:         a,
		Logger:      logger,
	})

	printSummary(cfg, static, cameraIndex, sourceErr, det)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.ListenAndServe(cfg.Server.Addr)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Tray.Enabled {
		tr := newTray(a, st, cfg, logger)
		go func() {
			select {
			case <-ctx.Done():
			case err := <-serverErr:
				if err != nil {
					logger.Error("server failed", zap.Error(err))
				}
			}
			tr.Quit()
		}()
		// systray needs the main goroutine.
		tr.Run()
	} else {
		select {
		case <-ctx.Done():
			logger.Info("received interrupt signal, shutting down")
		case err := <-serverErr:
			if err != nil {
				logger.Error("server failed", zap.Error(err))
			}
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown", zap.Error(err))
	}
	logger.Info("goodbye")
}

// engineConfig builds the engine settings, preferring the brush and camera
// last chosen at runtime over the configured ones.
func engineConfig(cfg config.Config, st *store.Store, logger *zap.Logger) (app.EngineConfig, int) {
	brush, err := cfg.Brush.Stroke()
	if err != nil {
		// Validate already checked the brush.
		logger.Fatal("invalid brush", zap.Error(err))
	}

	if saved, err := st.Settings().LoadBrush(); err == nil {
		brush = saved
	} else if !errors.Is(err, store.ErrNotFound) {
		logger.Warn("ignoring stored brush", zap.Error(err))
	}

	cameraIndex := cfg.Camera.Index
	if saved, err := st.Settings().LoadCameraIndex(); err == nil {
		cameraIndex = saved
	} else if !errors.Is(err, store.ErrNotFound) {
		logger.Warn("ignoring stored camera index", zap.Error(err))
	}

	return app.EngineConfig{
		ReferenceWidth:  cfg.Canvas.ReferenceWidth,
		ReferenceHeight: cfg.Canvas.ReferenceHeight,
		ScalingFactor:   cfg.Canvas.ScalingFactor,
		SmoothingWindow: cfg.Smoothing.Window,
		Brush:           brush,
	}, cameraIndex
}

// newDetector starts the MediaPipe detector, falling back to a detector that
// never sees a hand so the UI and commands keep working.
func newDetector(cfg config.Config, logger *zap.Logger) detector.Detector {
	dcfg := detector.DefaultConfig()
	dcfg.MinConfidence = cfg.Detector.MinConfidence
	dcfg.MinTrackingConf = cfg.Detector.MinConfidence
	dcfg.ModelComplexity = cfg.Detector.ModelComplexity

	det, err := detector.NewMediaPipeDetector(dcfg, logger)
	if err != nil {
		logger.Warn("hand detection unavailable", zap.Error(err))
		return detector.NewMockDetector()
	}
	return det
}

func newTray(a *app.App, st *store.Store, cfg config.Config, logger *zap.Logger) *tray.Tray {
	tr := tray.New()
	tr.OnToggle(a.SetEnabled)
	tr.OnAction(func(action tray.Action) {
		engine := a.Engine()
		switch action {
		case tray.ActionUndo:
			if _, err := engine.Undo(); err != nil {
				logger.Error("undo failed", zap.Error(err))
			}
		case tray.ActionRedo:
			if _, err := engine.Redo(); err != nil {
				logger.Error("redo failed", zap.Error(err))
			}
		case tray.ActionClear:
			engine.Clear()
		case tray.ActionSave:
			saveDrawing(engine, st, cfg.Data.DrawingsDir(), logger)
		case tray.ActionOpenCanvas:
			openBrowser(browserURL(cfg.Server.Addr), logger)
		}
	})

	go func() {
		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()
		last := ""
		for range ticker.C {
			status := a.LastResult().Intent.String()
			if !a.IsEnabled() {
				status = "paused"
			}
			if status != last {
				tr.SetStatus(status)
				last = status
			}
		}
	}()

	return tr
}

func saveDrawing(engine *app.Engine, st *store.Store, dir string, logger *zap.Logger) {
	path := filepath.Join(dir, "airsketch-"+time.Now().Format("20060102-150405")+".png")
	if err := engine.SaveImage(path); err != nil {
		logger.Error("save failed", zap.Error(err))
		return
	}
	width, height := engine.Compositor().Size()
	d := &store.Drawing{
		Path:     path,
		Kind:     store.DrawingSaved,
		Format:   "png",
		Width:    width,
		Height:   height,
		Segments: engine.Recorder().Len(),
	}
	if err := st.Drawings().Create(d); err != nil {
		logger.Warn("drawing not recorded", zap.Error(err))
	}
}

func browserURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

func openBrowser(url string, logger *zap.Logger) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		logger.Warn("could not open browser", zap.String("url", url), zap.Error(err))
		return
	}
	go cmd.Wait()
}

func printConfigError(err error) {
	red := color.New(color.FgRed, color.Bold)
	var ce *config.ConfigError
	if errors.As(err, &ce) {
		red.Fprintf(os.Stderr, "✗ %s: %s\n", ce.Code, ce.Message)
		if ce.Action != "" {
			color.New(color.FgHiBlack).Fprintf(os.Stderr, "    └─ %s\n", ce.Action)
		}
		return
	}
	red.Fprintf(os.Stderr, "✗ %v\n", err)
}

func printSummary(cfg config.Config, static string, cameraIndex int, sourceErr error, det detector.Detector) {
	out := os.Stdout
	header := color.New(color.FgCyan, color.Bold)
	ok := color.New(color.FgGreen)
	warn := color.New(color.FgYellow)
	dim := color.New(color.FgHiBlack)

	fmt.Fprintln(out)
	header.Fprintln(out, "━━━ AirSketch ━━━")

	if sourceErr != nil {
		warn.Fprintf(out, "  ! camera %d", cameraIndex)
		dim.Fprintf(out, " - %v\n", sourceErr)
	} else {
		ok.Fprintf(out, "  ✓ camera %d\n", cameraIndex)
	}

	if _, mock := det.(*detector.MockDetector); mock {
		warn.Fprintf(out, "  ! hand detection")
		dim.Fprintln(out, " - MediaPipe service not found")
	} else {
		ok.Fprintln(out, "  ✓ hand detection")
	}

	ok.Fprintf(out, "  ✓ canvas %dx%d", cfg.Canvas.Width(), cfg.Canvas.Height())
	dim.Fprintf(out, " - smoothing window %d\n", cfg.Smoothing.Window)
	ok.Fprintf(out, "  ✓ listening on %s\n", browserURL(cfg.Server.Addr))
	if static != "" {
		dim.Fprintf(out, "    └─ serving %s\n", static)
	}
	dim.Fprintf(out, "  data: %s\n", cfg.Data.Dir)
	fmt.Fprintln(out)
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and <data dir>/web.
// Returns the first existing directory or empty string if none found.
func findWebDir(dataDir string) string {
	candidates := []string{"web", "../web", "../../web", filepath.Join(dataDir, "web")}
	for _, p := range candidates {
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
