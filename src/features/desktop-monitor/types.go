/**
 * Desktop monitor type definitions
 */

package desktopmonitor

// CompositorInfo represents compositor information
type CompositorInfo struct {
	Name      string
	Version   string
	Available bool
	Branch    string
	Commit    string
}

// WindowInfo represents the active window as reported by hyprctl
type WindowInfo struct {
	Address string
	Title   string
	Class   string
	At      [2]int
	Size    [2]int
	Monitor int
}

// MonitorInfo represents monitor information
type MonitorInfo struct {
	ID          int
	Name        string
	Description string
	Make        string
	Model       string
	Width       int
	Height      int
	RefreshRate float64
	X           int
	Y           int
	Scale       float64
	Focused     bool
	Disabled    bool
}

// swayOutput is one entry of `swaymsg -t get_outputs -r`
type swayOutput struct {
	Name        string  `json:"name"`
	Make        string  `json:"make"`
	Model       string  `json:"model"`
	Active      bool    `json:"active"`
	Focused     bool    `json:"focused"`
	Scale       float64 `json:"scale"`
	CurrentMode *struct {
		Width   int `json:"width"`
		Height  int `json:"height"`
		Refresh int `json:"refresh"`
	} `json:"current_mode"`
	Rect struct {
		X      int `json:"x"`
		Y      int `json:"y"`
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"rect"`
}

// CompositorType represents compositor types
type CompositorType string

const (
	CompositorTypeHyprland CompositorType = "hyprland"
	CompositorTypeSway     CompositorType = "sway"
	CompositorTypeNiri     CompositorType = "niri"
	CompositorTypeI3       CompositorType = "i3"
	CompositorTypeUnknown  CompositorType = "unknown"
)
