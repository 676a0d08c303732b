package ui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	cyan   = lipgloss.Color("#00FFFF")
	yellow = lipgloss.Color("#FFFF00")
	red    = lipgloss.Color("#FF0000")
	green  = lipgloss.Color("#39FF14")
	orange = lipgloss.Color("#FF6700")
	dim    = lipgloss.Color("#B0B0B0")
)

// cellPadding separates table columns
const cellPadding = 2

// Printer writes CLI messages. Colors follow the capabilities of the
// destination, so output to pipes and buffers stays plain.
type Printer struct {
	out      io.Writer
	renderer *lipgloss.Renderer

	errorStyle   lipgloss.Style
	successStyle lipgloss.Style
	labelStyle   lipgloss.Style
	valueStyle   lipgloss.Style
	warningStyle lipgloss.Style
	headerStyle  lipgloss.Style
	cellStyle    lipgloss.Style
}

// NewPrinter creates a Printer for w
func NewPrinter(w io.Writer) *Printer {
	r := lipgloss.NewRenderer(w)
	return &Printer{
		out:      w,
		renderer: r,

		errorStyle:   r.NewStyle().Foreground(red).Bold(true),
		successStyle: r.NewStyle().Foreground(green).Bold(true),
		labelStyle:   r.NewStyle().Foreground(cyan).Bold(true),
		valueStyle:   r.NewStyle().Foreground(yellow),
		warningStyle: r.NewStyle().Foreground(orange).Bold(true),
		headerStyle:  r.NewStyle().Foreground(dim).Faint(true),
		cellStyle:    r.NewStyle(),
	}
}

// Error prints an error message in red, followed by its cause if given
func (p *Printer) Error(msg string, args ...interface{}) {
	if len(args) > 0 {
		msg = msg + ": " + fmt.Sprintf("%v", args[0])
	}
	fmt.Fprintln(p.out, p.errorStyle.Render(msg))
}

// Success prints a success message in green
func (p *Printer) Success(msg string) {
	fmt.Fprintln(p.out, p.successStyle.Render(msg))
}

// Info prints a label/value pair
func (p *Printer) Info(label string, value string) {
	fmt.Fprintf(p.out, "%s: %s\n", p.labelStyle.Render(label), p.valueStyle.Render(value))
}

// Warning prints a warning message
func (p *Printer) Warning(msg string, args ...interface{}) {
	if len(args) > 0 {
		msg = msg + ": " + fmt.Sprintf("%v", args[0])
	}
	fmt.Fprintln(p.out, p.warningStyle.Render(msg))
}

// Table prints rows as aligned columns under a dimmed header. Widths are
// measured on the visible text, so styled cells stay aligned.
func (p *Printer) Table(header []string, rows [][]string) error {
	last := len(header) - 1
	t := table.New().
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderHeader(false).
		BorderColumn(false).
		Headers(header...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			style := p.cellStyle
			if row == table.HeaderRow {
				style = p.headerStyle
			}
			if col < last {
				style = style.PaddingRight(cellPadding)
			}
			return style
		})

	_, err := fmt.Fprintln(p.out, t.Render())
	return err
}

// Raw writes text unchanged
func (p *Printer) Raw(text string) {
	fmt.Fprint(p.out, text)
}
