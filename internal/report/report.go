// Package report renders workspace state for the terminal.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"cnc-frame-wizard/internal/frame"
	"cnc-frame-wizard/internal/slots"
	"cnc-frame-wizard/internal/textutil"

	"github.com/charmbracelet/lipgloss"
)

var (
	TitleStyle  = lipgloss.NewStyle().Bold(true)
	HeaderStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	ManualStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFA500"))
	AutoStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#5FD75F"))
	MutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	WarnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F"))
)

// Column widths.
const (
	previewLength = 48
	slotColumn    = 13
	stateColumn   = 8
	linesColumn   = 7
	varNameColumn = 16
)

// Status is the summary printed by the status command.
type Status struct {
	HingeProfile string
	LockProfile  string
	Ready        bool
	FrameFile    bool
	Files        slots.Snapshot
}

// SlotState classifies a slot for display.
func SlotState(c slots.Content) string {
	switch {
	case c.IsManual:
		return "manual"
	case c.Manual == "":
		return "empty"
	default:
		return "auto"
	}
}

// WriteStatus prints the selection and one row per slot.
func WriteStatus(w io.Writer, st Status) error {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("Selection") + "\n")
	fmt.Fprintf(&b, "  hinge profile  %s\n", orNone(st.HingeProfile))
	fmt.Fprintf(&b, "  lock profile   %s\n", orNone(st.LockProfile))
	frameSource := "frame.yaml"
	if !st.FrameFile {
		frameSource = "defaults"
	}
	fmt.Fprintf(&b, "  frame          %s\n", frameSource)
	if !st.Ready {
		b.WriteString(WarnStyle.Render("  generation blocked: select an existing hinge and lock profile") + "\n")
	}
	b.WriteString("\n")

	b.WriteString(row(
		HeaderStyle.Render("slot"),
		HeaderStyle.Render("state"),
		HeaderStyle.Render("lines"),
		HeaderStyle.Render("preview"),
	))
	for _, s := range slots.All {
		c := st.Files[s]
		state := SlotState(c)
		b.WriteString(row(
			s.String(),
			stateStyle(state).Render(state),
			fmt.Sprint(textutil.LineCount(c.Manual)),
			MutedStyle.Render(textutil.Truncate(textutil.FirstLine(c.Manual), previewLength)),
		))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func row(slot, state, lines, preview string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(slotColumn).Render(slot),
		lipgloss.NewStyle().Width(stateColumn).Render(state),
		lipgloss.NewStyle().Width(linesColumn).Render(lines),
		preview,
	) + "\n"
}

func stateStyle(state string) lipgloss.Style {
	switch state {
	case "manual":
		return ManualStyle
	case "auto":
		return AutoStyle
	default:
		return MutedStyle
	}
}

func orNone(s string) string {
	if s == "" {
		return MutedStyle.Render("(none)")
	}
	return s
}

// WriteVars prints the dollar namespace, one variable per line, sorted.
func WriteVars(w io.Writer, vars frame.Vars) error {
	var b strings.Builder
	for _, k := range vars.Keys() {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
			lipgloss.NewStyle().Width(varNameColumn).Render("$"+k),
			frame.FormatValue(vars[k]),
		) + "\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteValues prints a substitution set, one name per line in name order.
func WriteValues(w io.Writer, values map[string]string) error {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
			lipgloss.NewStyle().Width(varNameColumn).Render(name),
			values[name],
		) + "\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteList prints a titled list of names, marking the selected one.
func WriteList(w io.Writer, title string, names []string, selected string) error {
	var b strings.Builder
	b.WriteString(TitleStyle.Render(title) + "\n")
	if len(names) == 0 {
		b.WriteString(MutedStyle.Render("  (none)") + "\n")
	}
	for _, n := range names {
		marker := "  "
		if n == selected && selected != "" {
			marker = ManualStyle.Render("*") + " "
		}
		b.WriteString(marker + n + "\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}
