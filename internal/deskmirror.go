/**
 * Deskmirror - display mirroring session orchestrator
 *
 * Owns the session lifecycle:
 * - display detection on activation
 * - capture start/stop on request
 * - unconditional capture teardown on deactivation
 */

package deskmirror

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/ln64-git/deskmirror/src/config"
	desktopmonitor "github.com/ln64-git/deskmirror/src/features/desktop-monitor"
	mirrorsession "github.com/ln64-git/deskmirror/src/features/mirror-session"
	"github.com/ln64-git/deskmirror/src/utility"
)

// Deskmirror wires the desktop platform to a mirror session
type Deskmirror struct {
	logger   *utility.Logger
	config   *config.Config
	platform mirrorsession.Platform
	desktop  *desktopmonitor.DesktopPlatform
	session  *mirrorsession.MirrorSession
	active   bool
	mu       sync.Mutex
}

// NewDeskmirror creates a Deskmirror bound to the running desktop session
func NewDeskmirror(logger *utility.Logger, cfg *config.Config) *Deskmirror {
	if logger == nil {
		logger = utility.GetLogger()
	}
	if cfg == nil {
		var err error
		cfg, err = config.Load()
		if err != nil {
			logger.Warn("Failed to load config: %v, using defaults", err)
			cfg = config.Default()
		}
	}

	compositor := desktopmonitor.DetectCompositor(os.Getenv)
	logger.Debug("Detected compositor: %s", compositor)

	desktop := desktopmonitor.NewDesktopPlatform(logger, utility.NewShell(logger), compositor, PlatformOptions(cfg))
	d := NewWithPlatform(logger, cfg, desktop)
	d.desktop = desktop
	return d
}

// NewWithPlatform creates a Deskmirror on an arbitrary platform
func NewWithPlatform(logger *utility.Logger, cfg *config.Config, platform mirrorsession.Platform) *Deskmirror {
	if logger == nil {
		logger = utility.GetLogger()
	}
	if cfg == nil {
		cfg = config.Default()
	}
	return &Deskmirror{
		logger:   logger,
		config:   cfg,
		platform: platform,
		session:  mirrorsession.NewMirrorSession(platform, logger),
	}
}

// PlatformOptions derives desktop platform options from cfg
func PlatformOptions(cfg *config.Config) desktopmonitor.PlatformOptions {
	return desktopmonitor.PlatformOptions{
		Screen:         mirrorsession.Size{Width: cfg.ScreenWidth, Height: cfg.ScreenHeight},
		Viewport:       mirrorsession.Size{Width: cfg.ViewportWidth, Height: cfg.ViewportHeight},
		CaptureCommand: cfg.CaptureCommand,
		CaptureFile:    captureFileFunc(cfg),
		StartupGrace:   cfg.CaptureStartupGrace,
		StopGrace:      cfg.CaptureStopGrace,
		Timeout:        cfg.CommandTimeout,
	}
}

// Session returns the mirror session
func (d *Deskmirror) Session() *mirrorsession.MirrorSession {
	return d.session
}

// Activate runs display detection once per activation
func (d *Deskmirror) Activate(ctx context.Context) {
	d.mu.Lock()
	if d.active {
		d.mu.Unlock()
		return
	}
	d.active = true
	d.mu.Unlock()

	d.logger.Info("Deskmirror activating...")
	d.session.DetectDisplays(ctx)
}

// Deactivate stops mirroring unconditionally
func (d *Deskmirror) Deactivate() {
	d.mu.Lock()
	d.active = false
	d.mu.Unlock()

	d.session.StopMirroring()
	d.logger.Info("Deskmirror deactivated")
}

// Run activates the session, starts mirroring displayID (or the default
// selection when empty) and blocks until ctx is done or mirroring stops.
// The returned error carries the session's failure message, if any.
func (d *Deskmirror) Run(ctx context.Context, displayID string) error {
	d.Activate(ctx)
	defer d.Deactivate()

	if displayID != "" {
		if err := d.session.SelectDisplay(displayID); err != nil {
			return err
		}
	}

	idle := make(chan mirrorsession.State, 1)
	unsubscribe := d.session.Subscribe(func(st mirrorsession.State) {
		if st.Mirroring {
			return
		}
		select {
		case idle <- st:
		default:
		}
	})
	defer unsubscribe()

	d.session.StartMirroring(ctx)
	st := d.session.State()
	if !st.Mirroring {
		return fmt.Errorf("mirroring did not start: %s", st.Error)
	}
	// drop the notification StartMirroring may have queued before installing
	select {
	case <-idle:
	default:
	}
	if st = d.session.State(); !st.Mirroring {
		return sessionResult(st)
	}

	d.logger.Info("Mirroring %s, press Ctrl+C to stop", st.Selected.ID)

	select {
	case <-ctx.Done():
		d.logger.Info("Stopping mirroring: %v", ctx.Err())
		return nil
	case st := <-idle:
		return sessionResult(st)
	}
}

func sessionResult(st mirrorsession.State) error {
	if st.Error != "" {
		return fmt.Errorf("mirroring stopped: %s", st.Error)
	}
	return nil
}

// GetDisplays runs detection and returns the resulting state
func (d *Deskmirror) GetDisplays(ctx context.Context) mirrorsession.State {
	d.session.DetectDisplays(ctx)
	return d.session.State()
}

// GetStatus returns a formatted status of the compositor and the session
func (d *Deskmirror) GetStatus(ctx context.Context) string {
	d.Activate(ctx)

	lines := []string{
		"Deskmirror Status",
		strings.Repeat("=", 50),
		"",
	}

	if d.desktop != nil {
		compositor := d.desktop.Compositor()
		info := compositor.GetCompositorInfo(ctx)
		lines = append(lines, compositor.FormatCompositorInfo(info, compositor.GetActiveWindow(ctx)))
		lines = append(lines, "")

		if monitors, err := d.desktop.Displays().GetMonitors(ctx); err == nil {
			lines = append(lines, d.desktop.Displays().FormatMonitorInfo(monitors))
			lines = append(lines, "")
		}
	}

	lines = append(lines, mirrorsession.FormatState(d.session.State()))
	return strings.Join(lines, "\n")
}

func captureFileFunc(cfg *config.Config) func(string) string {
	return func(output string) string {
		return cfg.CaptureFile(output, time.Now())
	}
}
