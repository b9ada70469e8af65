package cli

import (
	"errors"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/robinvdvleuten/taxlots/gains"
	"github.com/robinvdvleuten/taxlots/history"
)

var (
	errMarkerStyle  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#FF5F87", Dark: "#FF5F87"})
	errContextStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#808080", Dark: "#808080"})
)

// ErrorRenderer renders errors with terminal styling and CSV source context.
type ErrorRenderer struct {
	filename string
	source   []byte
}

// NewErrorRenderer creates a renderer with the content of filename for
// context. Errors in other files are given context by reading those files.
func NewErrorRenderer(filename string, source []byte) *ErrorRenderer {
	return &ErrorRenderer{filename: filename, source: source}
}

// Render formats a single error with styling and context.
func (r *ErrorRenderer) Render(err error) string {
	var recErr *gains.RecordError
	if errors.As(err, &recErr) {
		if source := r.sourceFor(recErr.Record.Filename); source != nil {
			return r.renderWithSourceContext(recErr.Record.Line, err.Error(), source)
		}
		return err.Error()
	}

	var colErr *history.MissingColumnError
	if errors.As(err, &colErr) {
		if source := r.sourceFor(colErr.Filename); source != nil {
			return r.renderWithSourceContext(1, err.Error(), source)
		}
	}

	return err.Error()
}

// RenderAll formats multiple errors, separating them with blank lines.
func (r *ErrorRenderer) RenderAll(errs []error) string {
	if len(errs) == 0 {
		return ""
	}

	var buf strings.Builder
	for i, err := range errs {
		buf.WriteString(r.Render(err))

		if i < len(errs)-1 {
			buf.WriteString("\n\n")
		}
	}

	return buf.String()
}

func (r *ErrorRenderer) sourceFor(filename string) []byte {
	if filename == r.filename && r.source != nil {
		return r.source
	}
	if filename == "" || filename == stdinName {
		return nil
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil
	}
	return data
}

// renderWithSourceContext shows up to two lines before the failing CSV line
// and one after, with the failing line marked.
func (r *ErrorRenderer) renderWithSourceContext(line int, message string, sourceContent []byte) string {
	var buf strings.Builder

	buf.WriteString(errorStyle.Render(message))
	buf.WriteString("\n\n")

	sourceLines := strings.Split(strings.TrimRight(string(sourceContent), "\n"), "\n")

	startLine := max(line-3, 0)
	endLine := min(line, len(sourceLines)-1)

	for i := startLine; i <= endLine; i++ {
		if i == line-1 {
			buf.WriteString(errMarkerStyle.Render(" > "))
			buf.WriteString(sourceLines[i])
		} else {
			buf.WriteString("   ")
			buf.WriteString(errContextStyle.Render(sourceLines[i]))
		}
		buf.WriteByte('\n')
	}

	return buf.String()
}
