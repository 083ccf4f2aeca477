package desktopmonitor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	mirrorsession "github.com/ln64-git/deskmirror/src/features/mirror-session"
	"github.com/ln64-git/deskmirror/src/utility"
)

const hyprMonitorsJSON = `[
  {"id": 0, "name": "DP-1", "description": "Dell U2720Q", "make": "Dell", "model": "U2720Q",
   "width": 3840, "height": 2160, "refreshRate": 59.997, "x": 0, "y": 0,
   "activeWorkspace": {"id": 1, "name": "1"}, "scale": 1.5, "focused": false, "disabled": false},
  {"id": 1, "name": "HDMI-A-1", "description": "", "make": "LG", "model": "27GL850",
   "width": 2560, "height": 1440, "refreshRate": 143.9, "x": 2560, "y": 0,
   "activeWorkspace": {"id": 2, "name": "2"}, "scale": 1.0, "focused": true, "disabled": false},
  {"id": 2, "name": "eDP-1", "width": 1920, "height": 1080, "disabled": true}
]`

const swayOutputsJSON = `[
  {"name": "eDP-1", "make": "BOE", "model": "0x095F", "active": true, "focused": true, "scale": 1.0,
   "current_mode": {"width": 2256, "height": 1504, "refresh": 59999},
   "rect": {"x": 0, "y": 0, "width": 2256, "height": 1504}},
  {"name": "DP-3", "active": false, "focused": false, "current_mode": null,
   "rect": {"x": 0, "y": 0, "width": 0, "height": 0}}
]`

func testLogger() *utility.Logger {
	return utility.NewLogger("silent", utility.DEBUG)
}

// fakeRunner answers compositor queries from a command table
type fakeRunner struct {
	outputs map[string]string
	calls   []string
}

func (r *fakeRunner) Execute(ctx context.Context, command string, opts *utility.ExecOptions) (*utility.Result, error) {
	r.calls = append(r.calls, command)
	out, ok := r.outputs[command]
	if !ok {
		return &utility.Result{ExitCode: 127, Stderr: "command not found", Command: command}, nil
	}
	return &utility.Result{Stdout: out, Command: command}, nil
}

func TestGetMonitorsHyprland(t *testing.T) {
	runner := &fakeRunner{outputs: map[string]string{"hyprctl monitors -j": hyprMonitorsJSON}}
	dm := NewDisplayMonitor(testLogger(), runner, CompositorTypeHyprland, 0)

	monitors, err := dm.GetMonitors(context.Background())
	if err != nil {
		t.Fatalf("GetMonitors: %v", err)
	}
	if len(monitors) != 2 {
		t.Fatalf("got %d monitors, want 2 (disabled output skipped)", len(monitors))
	}
	if m := monitors[1]; m.Name != "HDMI-A-1" || !m.Focused || m.Width != 2560 || m.Height != 1440 {
		t.Errorf("monitor[1] = %+v", m)
	}
}

func TestGetMonitorsSway(t *testing.T) {
	runner := &fakeRunner{outputs: map[string]string{"swaymsg -t get_outputs -r": swayOutputsJSON}}
	dm := NewDisplayMonitor(testLogger(), runner, CompositorTypeSway, 0)

	monitors, err := dm.GetMonitors(context.Background())
	if err != nil {
		t.Fatalf("GetMonitors: %v", err)
	}
	if len(monitors) != 1 {
		t.Fatalf("got %d monitors, want 1 (inactive output skipped)", len(monitors))
	}
	m := monitors[0]
	if m.Name != "eDP-1" || m.Width != 2256 || m.Height != 1504 || !m.Focused {
		t.Errorf("monitor = %+v", m)
	}
	if m.RefreshRate < 59.9 || m.RefreshRate > 60.1 {
		t.Errorf("RefreshRate = %v, want ~60", m.RefreshRate)
	}
}

func TestGetMonitorsUnsupported(t *testing.T) {
	tests := []struct {
		name       string
		compositor CompositorType
		outputs    map[string]string
	}{
		{"unknown compositor", CompositorTypeUnknown, nil},
		{"niri", CompositorTypeNiri, nil},
		{"malformed json", CompositorTypeHyprland, map[string]string{"hyprctl monitors -j": `{"not": "a list"}`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dm := NewDisplayMonitor(testLogger(), &fakeRunner{outputs: tt.outputs}, tt.compositor, 0)
			_, err := dm.GetMonitors(context.Background())
			if !errors.Is(err, mirrorsession.ErrEnumerationUnsupported) {
				t.Errorf("err = %v, want ErrEnumerationUnsupported", err)
			}
		})
	}
}

func TestGetMonitorsCommandFailure(t *testing.T) {
	dm := NewDisplayMonitor(testLogger(), &fakeRunner{}, CompositorTypeHyprland, 0)

	_, err := dm.GetMonitors(context.Background())
	if err == nil {
		t.Fatal("expected error when hyprctl fails")
	}
	if errors.Is(err, mirrorsession.ErrEnumerationUnsupported) {
		t.Errorf("command failure reported as unsupported: %v", err)
	}
}

func TestToScreens(t *testing.T) {
	screens := ToScreens([]MonitorInfo{
		{Name: "DP-1", Description: "Dell", Width: 100, Height: 50},
		{Name: "HDMI-A-1", Width: 200, Height: 100, Focused: true},
	})

	want := []mirrorsession.ScreenInfo{
		{ID: "DP-1", Name: "DP-1 (Dell)", Width: 100, Height: 50},
		{ID: "HDMI-A-1", Name: "HDMI-A-1", IsPrimary: true, Width: 200, Height: 100},
	}
	for i := range want {
		if screens[i] != want[i] {
			t.Errorf("screens[%d] = %+v, want %+v", i, screens[i], want[i])
		}
	}
}

func TestDetectCompositor(t *testing.T) {
	tests := []struct {
		env  map[string]string
		want CompositorType
	}{
		{map[string]string{"HYPRLAND_INSTANCE_SIGNATURE": "abc"}, CompositorTypeHyprland},
		{map[string]string{"SWAYSOCK": "/run/user/1000/sway.sock"}, CompositorTypeSway},
		{map[string]string{"NIRI_SOCKET": "/run/niri.sock"}, CompositorTypeNiri},
		{map[string]string{"I3SOCK": "/run/i3.sock"}, CompositorTypeI3},
		{map[string]string{}, CompositorTypeUnknown},
	}

	for _, tt := range tests {
		got := DetectCompositor(func(k string) string { return tt.env[k] })
		if got != tt.want {
			t.Errorf("DetectCompositor(%v) = %q, want %q", tt.env, got, tt.want)
		}
	}
}

func TestParseActiveWindow(t *testing.T) {
	tests := []struct {
		data string
		want *WindowInfo
	}{
		{`{"address": "0x55d", "title": "foot", "class": "foot", "at": [10, 20], "size": [1900, 1040], "monitor": 1}`,
			&WindowInfo{Address: "0x55d", Title: "foot", Class: "foot", At: [2]int{10, 20}, Size: [2]int{1900, 1040}, Monitor: 1}},
		{`{}`, nil},
		{`{"address": "0x"}`, nil},
		{`not json`, nil},
	}

	for _, tt := range tests {
		got := parseActiveWindow([]byte(tt.data))
		if fmt.Sprint(got) != fmt.Sprint(tt.want) {
			t.Errorf("parseActiveWindow(%s) = %+v, want %+v", tt.data, got, tt.want)
		}
	}
}

func TestFormatUsesLowercaseYesNo(t *testing.T) {
	runner := &fakeRunner{}
	dm := NewDisplayMonitor(testLogger(), runner, CompositorTypeHyprland, 0)
	cm := NewCompositorMonitor(testLogger(), runner, CompositorTypeUnknown, 0)

	monitors := dm.FormatMonitorInfo([]MonitorInfo{
		{Name: "DP-1", Width: 2560, Height: 1440, Focused: true},
		{Name: "HDMI-A-1", Width: 1920, Height: 1080},
	})
	for _, want := range []string{"Focused: yes", "Focused: no"} {
		if !strings.Contains(monitors, want) {
			t.Errorf("FormatMonitorInfo missing %q:\n%s", want, monitors)
		}
	}

	info := cm.FormatCompositorInfo(cm.GetCompositorInfo(context.Background()), nil)
	if !strings.Contains(info, "Available: no") {
		t.Errorf("FormatCompositorInfo = %q, want Available: no", info)
	}
}
