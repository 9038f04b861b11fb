package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/miczat/fc-profiler/internal/profile"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")).
			Bold(true).
			MarginTop(1)

	keyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// RenderProfile renders the properties and the field structure of a
// feature class for the console.
func RenderProfile(props []profile.Property, fs profile.FieldStructure) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Feature Class Profile"))
	b.WriteString("\n")
	width := 0
	for _, p := range props {
		width = max(width, lipgloss.Width(p.Label))
	}
	key := keyStyle.Width(width + 2)
	for _, p := range props {
		b.WriteString(key.Render(p.Label))
		b.WriteString(fmt.Sprint(p.Value))
		b.WriteString("\n")
	}

	b.WriteString(titleStyle.Render("Feature Class Structure"))
	b.WriteString("\n")
	headings := fs.Headings
	if len(headings) == 0 {
		headings = profile.Headings
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers(headings...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for _, f := range fs.Fields {
		values := f.Values()
		row := make([]string, len(values))
		for i, v := range values {
			row[i] = fmt.Sprint(v)
		}
		t.Row(row...)
	}
	b.WriteString(t.Render())
	b.WriteString("\n")
	return b.String()
}
