/**
 * Desktop platform - mirror session capabilities backed by the running compositor
 */

package desktopmonitor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	mirrorsession "github.com/ln64-git/deskmirror/src/features/mirror-session"
	"github.com/ln64-git/deskmirror/src/utility"
)

// Spawner starts long-running capture commands. *utility.Shell satisfies it.
type Spawner interface {
	Spawn(command string, opts *utility.ExecOptions) (*utility.Process, error)
}

// PlatformOptions configures a DesktopPlatform
type PlatformOptions struct {
	// Screen and Viewport override queried geometry when non-zero
	Screen   mirrorsession.Size
	Viewport mirrorsession.Size

	// CaptureCommand is a template with {output}, {width}, {height}, {fps}
	// and {file} placeholders
	CaptureCommand string
	CaptureFile    func(output string) string
	StartupGrace   time.Duration
	StopGrace      time.Duration
	Timeout        time.Duration
}

// DesktopPlatform implements mirrorsession.Platform on a Wayland/X11 desktop
type DesktopPlatform struct {
	logger     *utility.Logger
	runner     CommandRunner
	spawner    Spawner
	displays   *DisplayMonitor
	compositor *CompositorMonitor
	opts       PlatformOptions
}

var xrandrCurrent = regexp.MustCompile(`current (\d+) x (\d+)`)

// NewDesktopPlatform creates a platform running its queries through shell
func NewDesktopPlatform(logger *utility.Logger, shell *utility.Shell, compositor CompositorType, opts PlatformOptions) *DesktopPlatform {
	return newDesktopPlatform(logger, shell, shell, compositor, opts)
}

func newDesktopPlatform(logger *utility.Logger, runner CommandRunner, spawner Spawner, compositor CompositorType, opts PlatformOptions) *DesktopPlatform {
	if opts.CaptureFile == nil {
		opts.CaptureFile = func(output string) string { return os.DevNull }
	}
	return &DesktopPlatform{
		logger:     logger,
		runner:     runner,
		spawner:    spawner,
		displays:   NewDisplayMonitor(logger, runner, compositor, opts.Timeout),
		compositor: NewCompositorMonitor(logger, runner, compositor, opts.Timeout),
		opts:       opts,
	}
}

// Displays returns the underlying display monitor
func (p *DesktopPlatform) Displays() *DisplayMonitor {
	return p.displays
}

// Compositor returns the underlying compositor monitor
func (p *DesktopPlatform) Compositor() *CompositorMonitor {
	return p.compositor
}

// EnumerateScreens lists the compositor outputs
func (p *DesktopPlatform) EnumerateScreens(ctx context.Context) ([]mirrorsession.ScreenInfo, error) {
	monitors, err := p.displays.GetMonitors(ctx)
	if err != nil {
		return nil, err
	}
	return ToScreens(monitors), nil
}

// PrimaryScreenSize returns the configured override, the X screen size,
// the focused monitor size, or 1920x1080, in that order
func (p *DesktopPlatform) PrimaryScreenSize(ctx context.Context) mirrorsession.Size {
	if valid(p.opts.Screen) {
		return p.opts.Screen
	}

	result, err := p.runner.Execute(ctx, "xrandr --current", &utility.ExecOptions{Timeout: p.opts.Timeout})
	if err == nil && result.ExitCode == 0 {
		if size, ok := parseXrandrScreen(result.Stdout); ok {
			return size
		}
	}

	if monitors, err := p.displays.GetMonitors(ctx); err == nil {
		for _, m := range monitors {
			if m.Focused {
				return mirrorsession.Size{Width: m.Width, Height: m.Height}
			}
		}
		if len(monitors) > 0 {
			return mirrorsession.Size{Width: monitors[0].Width, Height: monitors[0].Height}
		}
	}

	return mirrorsession.Size{Width: 1920, Height: 1080}
}

// ViewportSize returns the configured override, the active window size,
// or the screen size
func (p *DesktopPlatform) ViewportSize(ctx context.Context) mirrorsession.Size {
	if valid(p.opts.Viewport) {
		return p.opts.Viewport
	}
	if w := p.compositor.GetActiveWindow(ctx); w != nil && w.Size[0] > 0 && w.Size[1] > 0 {
		return mirrorsession.Size{Width: w.Size[0], Height: w.Size[1]}
	}
	return p.PrimaryScreenSize(ctx)
}

// RequestCapture starts the capture command for the requested output. The
// process counts as started once it survives the startup grace period.
func (p *DesktopPlatform) RequestCapture(ctx context.Context, c mirrorsession.Constraints) (mirrorsession.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, mirrorsession.NewCaptureError(mirrorsession.FailureOther, "", err)
	}

	if p.displays.IsAvailable() {
		monitor, err := p.displays.FindMonitor(ctx, c.DisplayID)
		if err != nil {
			return nil, mirrorsession.NewCaptureError(mirrorsession.FailureNotFound, "", err)
		}
		if monitor == nil {
			return nil, mirrorsession.NewCaptureError(mirrorsession.FailureNotFound,
				fmt.Sprintf("output %q is not connected", c.DisplayID), nil)
		}
	}

	command := expandCaptureCommand(p.opts.CaptureCommand, c, p.opts.CaptureFile(c.DisplayID))
	p.logger.Debug("Capture command: %s", command)

	proc, err := p.spawner.Spawn(command, &utility.ExecOptions{
		StderrCallback: func(line string) {
			p.logger.Debug("capture: %s", line)
		},
	})
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return nil, mirrorsession.NewCaptureError(mirrorsession.FailureNotAllowed, "", err)
		}
		return nil, mirrorsession.NewCaptureError(mirrorsession.FailureOther, "", err)
	}

	select {
	case <-proc.Done():
		return nil, startupFailure(proc)
	case <-ctx.Done():
		proc.Stop(p.opts.StopGrace)
		return nil, mirrorsession.NewCaptureError(mirrorsession.FailureOther, "", ctx.Err())
	case <-time.After(p.opts.StartupGrace):
	}

	track := newProcessTrack(proc, c.DisplayID, p.opts.StopGrace, p.logger)
	return newCaptureStream(track), nil
}

// startupFailure classifies a capture process that exited during startup
func startupFailure(proc *utility.Process) error {
	detail := proc.Stderr()
	if detail == "" {
		detail = fmt.Sprintf("capture exited with code %d", proc.ExitCode())
	}

	switch proc.ExitCode() {
	case 126:
		return mirrorsession.NewCaptureError(mirrorsession.FailureNotAllowed, detail, nil)
	case 127:
		return mirrorsession.NewCaptureError(mirrorsession.FailureOther, "capture command not found: "+detail, nil)
	default:
		return mirrorsession.NewCaptureError(mirrorsession.FailureNotReadable, detail, nil)
	}
}

func expandCaptureCommand(template string, c mirrorsession.Constraints, file string) string {
	return strings.NewReplacer(
		"{output}", shellQuote(c.DisplayID),
		"{width}", strconv.Itoa(c.Width),
		"{height}", strconv.Itoa(c.Height),
		"{fps}", strconv.Itoa(c.FrameRate),
		"{file}", shellQuote(file),
	).Replace(template)
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func parseXrandrScreen(output string) (mirrorsession.Size, bool) {
	m := xrandrCurrent.FindStringSubmatch(output)
	if len(m) != 3 {
		return mirrorsession.Size{}, false
	}
	w, errW := strconv.Atoi(m[1])
	h, errH := strconv.Atoi(m[2])
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return mirrorsession.Size{}, false
	}
	return mirrorsession.Size{Width: w, Height: h}, true
}

func valid(s mirrorsession.Size) bool {
	return s.Width > 0 && s.Height > 0
}
