/**
 * Compositor monitor - compositor detection and window queries
 */

package desktopmonitor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ln64-git/deskmirror/src/utility"
)

// DetectCompositor detects the compositor type from its IPC socket variables
func DetectCompositor(getenv func(string) string) CompositorType {
	if getenv("HYPRLAND_INSTANCE_SIGNATURE") != "" {
		return CompositorTypeHyprland
	}
	if getenv("NIRI_SOCKET") != "" {
		return CompositorTypeNiri
	}
	if getenv("SWAYSOCK") != "" {
		return CompositorTypeSway
	}
	if getenv("I3SOCK") != "" {
		return CompositorTypeI3
	}
	return CompositorTypeUnknown
}

// CompositorMonitor queries the running compositor
type CompositorMonitor struct {
	logger     *utility.Logger
	runner     CommandRunner
	compositor CompositorType
	timeout    time.Duration
}

// NewCompositorMonitor creates a CompositorMonitor
func NewCompositorMonitor(logger *utility.Logger, runner CommandRunner, compositor CompositorType, timeout time.Duration) *CompositorMonitor {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &CompositorMonitor{
		logger:     logger,
		runner:     runner,
		compositor: compositor,
		timeout:    timeout,
	}
}

// Type returns the detected compositor
func (cm *CompositorMonitor) Type() CompositorType {
	return cm.compositor
}

// GetCompositorInfo gets compositor information
func (cm *CompositorMonitor) GetCompositorInfo(ctx context.Context) *CompositorInfo {
	switch cm.compositor {
	case CompositorTypeHyprland:
		return cm.hyprlandInfo(ctx)
	case CompositorTypeSway:
		return cm.swayInfo(ctx)
	case CompositorTypeUnknown:
		return &CompositorInfo{Name: "unknown", Version: "unknown"}
	default:
		return &CompositorInfo{Name: string(cm.compositor), Version: "unknown", Available: true}
	}
}

func (cm *CompositorMonitor) hyprlandInfo(ctx context.Context) *CompositorInfo {
	info := &CompositorInfo{Name: "Hyprland", Version: "unknown"}

	result, err := cm.runner.Execute(ctx, "hyprctl version -j", &utility.ExecOptions{Timeout: cm.timeout})
	if err != nil || result.ExitCode != 0 {
		cm.logger.Error("hyprctl version failed: %v", err)
		return info
	}

	var versionData map[string]interface{}
	if err := json.Unmarshal([]byte(result.Stdout), &versionData); err != nil {
		cm.logger.Error("Error parsing version JSON: %v", err)
		return info
	}

	if b, ok := versionData["branch"].(string); ok {
		info.Branch = b
	}
	if c, ok := versionData["commit"].(string); ok {
		info.Commit = c
	}
	if tag, ok := versionData["tag"].(string); ok && tag != "" {
		info.Version = tag
	} else if info.Commit != "" {
		info.Version = shortCommit(info.Commit)
	}
	info.Available = true
	return info
}

func (cm *CompositorMonitor) swayInfo(ctx context.Context) *CompositorInfo {
	info := &CompositorInfo{Name: "Sway", Version: "unknown"}

	result, err := cm.runner.Execute(ctx, "swaymsg -t get_version -r", &utility.ExecOptions{Timeout: cm.timeout})
	if err != nil || result.ExitCode != 0 {
		cm.logger.Error("swaymsg get_version failed: %v", err)
		return info
	}

	var versionData struct {
		HumanReadable string `json:"human_readable"`
	}
	if err := json.Unmarshal([]byte(result.Stdout), &versionData); err != nil {
		cm.logger.Error("Error parsing version JSON: %v", err)
		return info
	}
	if versionData.HumanReadable != "" {
		info.Version = versionData.HumanReadable
	}
	info.Available = true
	return info
}

// GetActiveWindow gets the active window, or nil when none is focused
func (cm *CompositorMonitor) GetActiveWindow(ctx context.Context) *WindowInfo {
	if cm.compositor != CompositorTypeHyprland {
		return nil
	}

	result, err := cm.runner.Execute(ctx, "hyprctl activewindow -j", &utility.ExecOptions{Timeout: cm.timeout})
	if err != nil || result.ExitCode != 0 {
		return nil
	}

	return parseActiveWindow([]byte(result.Stdout))
}

func parseActiveWindow(data []byte) *WindowInfo {
	var window WindowInfo
	if err := json.Unmarshal(data, &window); err != nil {
		return nil
	}
	if window.Address == "" || window.Address == "0x" {
		return nil
	}
	return &window
}

// FormatCompositorInfo formats compositor info for display
func (cm *CompositorMonitor) FormatCompositorInfo(info *CompositorInfo, activeWindow *WindowInfo) string {
	lines := []string{
		"Compositor Information:",
		fmt.Sprintf("  Name: %s", info.Name),
		fmt.Sprintf("  Version: %s", info.Version),
		fmt.Sprintf("  Available: %s", boolToYesNo(info.Available)),
	}

	if info.Branch != "" {
		lines = append(lines, fmt.Sprintf("  Branch: %s", info.Branch))
	}
	if info.Commit != "" {
		lines = append(lines, fmt.Sprintf("  Commit: %s", shortCommit(info.Commit)))
	}

	if activeWindow != nil {
		lines = append(lines, fmt.Sprintf("  Active Window: %s (%dx%d)", activeWindow.Title, activeWindow.Size[0], activeWindow.Size[1]))
	}

	return strings.Join(lines, "\n")
}

func shortCommit(commit string) string {
	if len(commit) > 7 {
		return commit[:7]
	}
	return commit
}
