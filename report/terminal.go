package report

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/lipgloss"
)

const (
	chartHeight = 10
	barWidth    = 3
	barGap      = 1
)

// Terminal renders a report as styled text with one bar chart per
// table. Proportions of empty groups print as "n/a" and draw no bar.
type Terminal struct {
	w      io.Writer
	charts bool

	header  lipgloss.Style
	section lipgloss.Style
	label   lipgloss.Style
	value   lipgloss.Style
	dim     lipgloss.Style
	bar     lipgloss.Style
	axis    lipgloss.Style
}

// NewTerminal writes to w. The colour profile is detected from w, so
// output to a file or buffer carries no escape codes. charts=false
// prints tables only.
func NewTerminal(w io.Writer, charts bool) *Terminal {
	re := lipgloss.NewRenderer(w)
	return &Terminal{
		w:      w,
		charts: charts,
		header: re.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("51")).
			Bold(true).
			Padding(0, 1),
		section: re.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true).
			MarginTop(1),
		label: re.NewStyle().Foreground(lipgloss.Color("45")),
		value: re.NewStyle().Foreground(lipgloss.Color("231")).Bold(true),
		dim:   re.NewStyle().Foreground(lipgloss.Color("245")),
		bar:   re.NewStyle().Foreground(lipgloss.Color("51")),
		axis:  re.NewStyle().Foreground(lipgloss.Color("238")),
	}
}

func (t *Terminal) Present(_ context.Context, r *Report) error {
	var b strings.Builder

	b.WriteString(t.header.Render("No-show appointments: " + r.Source))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "%s %s\n", t.label.Render("Appointments:"), t.value.Render(fmt.Sprint(r.Summary.Rows)))
	fmt.Fprintf(&b, "%s %s\n", t.label.Render("Patients:    "), t.value.Render(fmt.Sprint(r.Summary.Patients)))
	fmt.Fprintf(&b, "%s %s\n", t.label.Render("No-shows:    "), t.value.Render(fmt.Sprint(r.Summary.NoShows)))

	for _, nt := range r.Tables {
		b.WriteString(t.section.Render(nt.Title))
		b.WriteString("\n")
		b.WriteString(t.renderTable(nt))
		if t.charts {
			b.WriteString(t.renderChart(nt))
			b.WriteString("\n")
		}
	}

	b.WriteString(t.renderDistribution(r))

	_, err := io.WriteString(t.w, b.String())
	return err
}

func (t *Terminal) renderTable(nt NamedTable) string {
	width := 0
	for _, g := range nt.Groups {
		width = max(width, len(g.Label))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", t.dim.Render(fmt.Sprintf("%-*s %10s %10s %10s", width, "group", "no-shows", "total", "proportion")))
	for _, g := range nt.Groups {
		fmt.Fprintf(&b, "%s %10s %10s %10s\n",
			t.label.Render(fmt.Sprintf("%-*s", width, g.Label)),
			formatCount(g.NoShows),
			formatCount(g.Total),
			t.value.Render(fmt.Sprintf("%10s", FormatProportion(g.Proportion))))
	}
	return b.String()
}

func (t *Terminal) renderChart(nt NamedTable) string {
	data := make([]barchart.BarData, 0, len(nt.Groups))
	for _, g := range nt.Groups {
		v := g.Proportion
		if math.IsNaN(v) {
			v = 0
		}
		data = append(data, barchart.BarData{
			Label:  abbreviate(g.Label, barWidth),
			Values: []barchart.BarValue{{Name: g.Label, Value: v, Style: t.bar}},
		})
	}

	width := len(data)*(barWidth+barGap) + 2
	bc := barchart.New(width, chartHeight)
	bc.PushAll(data)
	bc.Draw()
	return t.axis.Render(bc.View())
}

func (t *Terminal) renderDistribution(r *Report) string {
	d := r.Distribution
	var b strings.Builder

	b.WriteString(t.section.Render("Distribution of no-shows among patients"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %s\n", t.label.Render("missed appointments:"), t.value.Render(fmt.Sprint(d.MissedAppointments)))
	fmt.Fprintf(&b, "%s %s\n", t.label.Render("patients who missed:"), t.value.Render(fmt.Sprint(d.Count)))

	stats := []struct {
		name string
		v    float64
	}{
		{"mean", d.Mean}, {"std", d.Std}, {"min", d.Min}, {"25%", d.Q25},
		{"50%", d.Median}, {"75%", d.Q75}, {"max", d.Max},
	}
	for _, s := range stats {
		fmt.Fprintf(&b, "  %-5s %s\n", t.dim.Render(s.name), FormatProportion(s.v))
	}

	if len(d.Histogram) > 0 {
		b.WriteString(t.dim.Render("missed  patients"))
		b.WriteString("\n")
		for _, h := range d.Histogram {
			fmt.Fprintf(&b, "%6d  %8d\n", h.Missed, h.Patients)
		}
	}
	return b.String()
}

// FormatProportion prints three decimals, or "n/a" for NaN.
func FormatProportion(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.3f", v)
}

func formatCount(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}

// abbreviate shortens CamelCase labels for narrow bars:
// "EarlyMorning" → "EM", "Monday" → "Mon".
func abbreviate(label string, n int) string {
	var caps []rune
	for _, r := range label {
		if r >= 'A' && r <= 'Z' {
			caps = append(caps, r)
		}
	}
	if len(caps) > 1 && len(caps) <= n {
		return string(caps)
	}
	if len(label) > n {
		return label[:n]
	}
	return label
}
