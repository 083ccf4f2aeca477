package mirrorsession

import (
	"fmt"
	"strings"
)

// formatDisplayList formats displays on one line for logging
func formatDisplayList(displays []Display) string {
	if len(displays) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(displays))
	for _, d := range displays {
		parts = append(parts, d.String())
	}
	return strings.Join(parts, ", ")
}

func (d Display) String() string {
	primary := ""
	if d.IsPrimary {
		primary = " [primary]"
	}
	return fmt.Sprintf("%s (%dx%d)%s", d.ID, d.Width, d.Height, primary)
}

// FormatState formats a session snapshot for display
func FormatState(st State) string {
	lines := []string{"Mirror Session:"}

	if len(st.Displays) == 0 {
		lines = append(lines, "  Displays: none detected")
	} else {
		lines = append(lines, "  Displays:")
		for _, d := range st.Displays {
			marker := " "
			if st.Selected != nil && st.Selected.ID == d.ID {
				marker = "*"
			}
			lines = append(lines, fmt.Sprintf("   %s %s - %s", marker, d.Name, d.String()))
		}
	}

	if st.Selected != nil {
		lines = append(lines, fmt.Sprintf("  Selected: %s", st.Selected.ID))
	} else {
		lines = append(lines, "  Selected: none")
	}

	if st.Mirroring {
		lines = append(lines, fmt.Sprintf("  Mirroring: yes (stream %s)", st.StreamID))
	} else {
		lines = append(lines, "  Mirroring: no")
	}

	if st.Error != "" {
		lines = append(lines, fmt.Sprintf("  Error: %s", st.Error))
	}

	return strings.Join(lines, "\n")
}
