package util

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/tebeka/atexit"
)

var (
	// Stderr receives every diagnostic. It defaults to a color-aware stderr.
	Stderr io.Writer = color.Error

	program = "ptxlower"
	mu      sync.Mutex

	errorTag   = color.New(color.FgRed, color.Bold)
	warningTag = color.New(color.FgYellow, color.Bold)
	infoTag    = color.New(color.FgCyan)
	caretColor = color.New(color.FgGreen)
)

// SetProgram sets the name printed in front of messages without a location.
func SetProgram(name string) { program = name }

// SetColor forces colored output on or off.
func SetColor(enabled bool) { color.NoColor = !enabled }

// Location points a diagnostic at a kernel file, and optionally at a block
// and the instruction inside it.
type Location struct {
	File        string
	Kernel      string
	Block       string
	Instruction string
}

func (l Location) String() string {
	if l.File == "" && l.Kernel == "" { return program }
	parts := []string{}
	for _, p := range []string{l.File, l.Kernel, l.Block} {
		if p != "" { parts = append(parts, p) }
	}
	return strings.Join(parts, ":")
}

// printInstruction shows the instruction a diagnostic refers to, underlined.
func printInstruction(w io.Writer, loc Location) {
	if loc.Instruction == "" { return }
	fmt.Fprintf(w, "  %s\n", loc.Instruction)
	fmt.Fprintf(w, "  %s\n", caretColor.Sprint("^"+strings.Repeat("~", len(loc.Instruction)-1)))
}

// report is safe for concurrent use.
func report(loc Location, tag *color.Color, label, msg, suffix string) {
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintf(Stderr, "%s: %s %s%s\n", loc, tag.Sprint(label), msg, suffix)
	printInstruction(Stderr, loc)
}

// Error prints a formatted error message and exits the program. Handlers
// registered with atexit run first.
func Error(loc Location, format string, args ...any) {
	report(loc, errorTag, "error:", fmt.Sprintf(format, args...), "")
	atexit.Exit(1)
}

// Fatal is Error without a location.
func Fatal(format string, args ...any) { Error(Location{}, format, args...) }

// Warn prints a warning tagged with the switch that controls it. Callers
// decide whether the switch is enabled.
func Warn(loc Location, flag string, format string, args ...any) {
	suffix := ""
	if flag != "" { suffix = fmt.Sprintf(" [-W%s]", flag) }
	report(loc, warningTag, "warning:", fmt.Sprintf(format, args...), suffix)
}

func Info(format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintf(Stderr, "%s: %s %s\n", program, infoTag.Sprint("info:"), fmt.Sprintf(format, args...))
}
