/**
 * Display monitor - lists compositor outputs
 */

package desktopmonitor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mirrorsession "github.com/ln64-git/deskmirror/src/features/mirror-session"
	"github.com/ln64-git/deskmirror/src/utility"
)

// CommandRunner executes compositor queries. *utility.Shell satisfies it.
type CommandRunner interface {
	Execute(ctx context.Context, command string, opts *utility.ExecOptions) (*utility.Result, error)
}

// DisplayMonitor monitors display/monitor information
type DisplayMonitor struct {
	logger     *utility.Logger
	runner     CommandRunner
	compositor CompositorType
	timeout    time.Duration
}

// NewDisplayMonitor creates a DisplayMonitor for the given compositor
func NewDisplayMonitor(logger *utility.Logger, runner CommandRunner, compositor CompositorType, timeout time.Duration) *DisplayMonitor {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &DisplayMonitor{
		logger:     logger,
		runner:     runner,
		compositor: compositor,
		timeout:    timeout,
	}
}

// IsAvailable reports whether the compositor can list its outputs
func (dm *DisplayMonitor) IsAvailable() bool {
	return dm.compositor == CompositorTypeHyprland || dm.compositor == CompositorTypeSway
}

// GetMonitors gets all enabled monitors. Compositors without an output
// query return mirrorsession.ErrEnumerationUnsupported.
func (dm *DisplayMonitor) GetMonitors(ctx context.Context) ([]MonitorInfo, error) {
	var command string
	var parse func([]byte) ([]MonitorInfo, error)

	switch dm.compositor {
	case CompositorTypeHyprland:
		command, parse = "hyprctl monitors -j", parseHyprMonitors
	case CompositorTypeSway:
		command, parse = "swaymsg -t get_outputs -r", parseSwayOutputs
	default:
		return nil, mirrorsession.ErrEnumerationUnsupported
	}

	result, err := dm.runner.Execute(ctx, command, &utility.ExecOptions{
		Timeout: dm.timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("%s failed: %w", command, err)
	}
	if result.ExitCode != 0 {
		return nil, fmt.Errorf("%s exited with %d: %s", command, result.ExitCode, result.Stderr)
	}

	monitors, err := parse([]byte(result.Stdout))
	if err != nil {
		dm.logger.Error("Error parsing monitors JSON: %v", err)
		return nil, fmt.Errorf("%w: %v", mirrorsession.ErrEnumerationUnsupported, err)
	}

	return monitors, nil
}

// FindMonitor returns the monitor with the given name
func (dm *DisplayMonitor) FindMonitor(ctx context.Context, name string) (*MonitorInfo, error) {
	monitors, err := dm.GetMonitors(ctx)
	if err != nil {
		return nil, err
	}
	for i := range monitors {
		if monitors[i].Name == name {
			return &monitors[i], nil
		}
	}
	return nil, nil
}

func parseHyprMonitors(data []byte) ([]MonitorInfo, error) {
	var monitors []MonitorInfo
	if err := json.Unmarshal(data, &monitors); err != nil {
		return nil, err
	}
	enabled := monitors[:0]
	for _, m := range monitors {
		if !m.Disabled {
			enabled = append(enabled, m)
		}
	}
	return enabled, nil
}

func parseSwayOutputs(data []byte) ([]MonitorInfo, error) {
	var outputs []swayOutput
	if err := json.Unmarshal(data, &outputs); err != nil {
		return nil, err
	}

	monitors := make([]MonitorInfo, 0, len(outputs))
	for i, o := range outputs {
		if !o.Active {
			continue
		}
		m := MonitorInfo{
			ID:      i,
			Name:    o.Name,
			Make:    o.Make,
			Model:   o.Model,
			Width:   o.Rect.Width,
			Height:  o.Rect.Height,
			X:       o.Rect.X,
			Y:       o.Rect.Y,
			Scale:   o.Scale,
			Focused: o.Focused,
		}
		if o.CurrentMode != nil {
			m.Width = o.CurrentMode.Width
			m.Height = o.CurrentMode.Height
			m.RefreshRate = float64(o.CurrentMode.Refresh) / 1000
		}
		monitors = append(monitors, m)
	}
	return monitors, nil
}

// ToScreens converts monitors to enumeration records; the focused monitor is primary
func ToScreens(monitors []MonitorInfo) []mirrorsession.ScreenInfo {
	screens := make([]mirrorsession.ScreenInfo, 0, len(monitors))
	for _, m := range monitors {
		name := m.Name
		if m.Description != "" {
			name = fmt.Sprintf("%s (%s)", m.Name, m.Description)
		}
		screens = append(screens, mirrorsession.ScreenInfo{
			ID:        m.Name,
			Name:      name,
			IsPrimary: m.Focused,
			Width:     m.Width,
			Height:    m.Height,
		})
	}
	return screens
}

// FormatMonitorInfo formats monitor info for display
func (dm *DisplayMonitor) FormatMonitorInfo(monitors []MonitorInfo) string {
	if len(monitors) == 0 {
		return "Display Information:\n  No monitors detected"
	}

	lines := []string{"Display Information:"}

	for _, monitor := range monitors {
		lines = append(lines, "")
		lines = append(lines, fmt.Sprintf("  %s:", monitor.Name))

		if monitor.Description != "" && monitor.Description != monitor.Name {
			lines = append(lines, fmt.Sprintf("    Description: %s", monitor.Description))
		}

		if monitor.Make != "" && monitor.Model != "" {
			lines = append(lines, fmt.Sprintf("    Make/Model: %s %s", monitor.Make, monitor.Model))
		}

		lines = append(lines, fmt.Sprintf("    Resolution: %dx%d@%.2fHz", monitor.Width, monitor.Height, monitor.RefreshRate))
		lines = append(lines, fmt.Sprintf("    Position: %d,%d", monitor.X, monitor.Y))
		lines = append(lines, fmt.Sprintf("    Focused: %s", boolToYesNo(monitor.Focused)))
	}

	return strings.Join(lines, "\n")
}

func boolToYesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
