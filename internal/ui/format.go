package ui

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/mgutz/ansi"

	apperrors "repdata/pkg/errors"
)

var (
	// Check if output supports colors
	supportsColor = isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())

	// Color functions
	ColorSuccess  = colorFunc(ansi.Green)
	ColorError    = colorFunc(ansi.Red)
	ColorWarning  = colorFunc(ansi.Yellow)
	ColorInfo     = colorFunc(ansi.Cyan)
	ColorProgress = colorFunc(ansi.Blue)
	ColorBold     = colorFunc("default+b")
	ColorDim      = colorFunc("default+h")
)

// colorFunc returns a function that colors text if supported
func colorFunc(style string) func(string) string {
	return func(text string) string {
		if supportsColor {
			return ansi.Color(text, style)
		}
		return text
	}
}

// SetColor forces colored output on or off.
func SetColor(enabled bool) {
	supportsColor = enabled
	color.NoColor = !enabled
}

// Printer writes human-readable status lines.
type Printer struct {
	out     io.Writer
	Quiet   bool
	Verbose bool
}

// NewPrinter creates a printer writing to out
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// Out returns the underlying writer
func (p *Printer) Out() io.Writer {
	return p.out
}

// Header displays a formatted header
func (p *Printer) Header(title string) {
	if p.Quiet {
		return
	}
	width := 50
	if len(title)+4 > width {
		width = len(title) + 4
	}
	padding := (width - len(title) - 2) / 2

	fmt.Fprintln(p.out, "\n+"+strings.Repeat("-", width-2)+"+")
	fmt.Fprintf(p.out, "|%s%s%s|\n",
		strings.Repeat(" ", padding),
		ColorBold(title),
		strings.Repeat(" ", width-2-padding-len(title)),
	)
	fmt.Fprintln(p.out, "+"+strings.Repeat("-", width-2)+"+")
}

// Success displays a success message
func (p *Printer) Success(message string) {
	if !p.Quiet {
		fmt.Fprintf(p.out, "%s %s\n", ColorSuccess("SUCCESS:"), message)
	}
}

// Warning displays a warning message
func (p *Printer) Warning(message string) {
	if !p.Quiet {
		fmt.Fprintf(p.out, "%s %s\n", ColorWarning("WARNING:"), ColorWarning(message))
	}
}

// Info displays an info message
func (p *Printer) Info(message string) {
	if !p.Quiet {
		fmt.Fprintf(p.out, "%s %s\n", ColorInfo("INFO:"), message)
	}
}

// Verbosef prints only in verbose mode
func (p *Printer) Verbosef(format string, args ...interface{}) {
	if p.Verbose && !p.Quiet {
		fmt.Fprintf(p.out, format, args...)
	}
}

// Section prints a section header
func (p *Printer) Section(title string) {
	if p.Quiet {
		return
	}
	fmt.Fprintf(p.out, "\n%s %s\n", ColorBold(">"), ColorBold(title))
	fmt.Fprintln(p.out, strings.Repeat("-", 50))
}

// KeyValue prints a key-value pair in a formatted way
func (p *Printer) KeyValue(key, value string) {
	if !p.Quiet {
		fmt.Fprintf(p.out, "  %-22s %s\n", ColorDim(key+":"), value)
	}
}

// Error displays an error. Application errors show their code, cause and
// suggestions on separate lines. Errors are printed even in quiet mode.
func (p *Printer) Error(err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		fmt.Fprintf(p.out, "\n%s %s\n", ColorError("ERROR:"), err.Error())
		if tip := suggestion(err.Error()); tip != "" {
			fmt.Fprintf(p.out, "\n  %s %s\n", ColorInfo("TIP:"), ColorInfo(tip))
		}
		return
	}

	fmt.Fprintf(p.out, "\n%s [%s] %s\n", ColorError("ERROR:"), appErr.Code, appErr.Message)
	if appErr.Cause != nil {
		for _, line := range strings.Split(appErr.Cause.Error(), "\n") {
			fmt.Fprintf(p.out, "  %s\n", ColorDim(line))
		}
	}
	for _, s := range appErr.Suggestions {
		fmt.Fprintf(p.out, "  %s %s\n", ColorInfo("TIP:"), s)
	}
}

// suggestion returns a hint for driver errors that carry no suggestions
func suggestion(message string) string {
	lower := strings.ToLower(message)

	switch {
	case strings.Contains(lower, "authentication failed"):
		return "Check your username and password in the configuration"
	case strings.Contains(lower, "connection refused"):
		return "Verify the warehouse host and network connectivity"
	case strings.Contains(lower, "does not exist"):
		return "Verify the source tables exist or check the database/schema context"
	case strings.Contains(lower, "permission denied"):
		return "Ensure your role has the necessary privileges"
	default:
		return ""
	}
}
