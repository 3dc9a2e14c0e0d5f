package ui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Colors for consistent UI
const (
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
	ColorReset  = "\033[0m"
)

var (
	input            = bufio.NewReader(os.Stdin)
	output io.Writer = os.Stdout
)

// PrintWarning displays a warning message with consistent formatting
func PrintWarning(message string) {
	fmt.Fprintf(output, "%s\nWarning:%s\n", ColorYellow, ColorReset)
	fmt.Fprintf(output, "%s%s%s\n", ColorYellow, message, ColorReset)
}

// PrintError displays an error message with consistent formatting
func PrintError(message string) {
	fmt.Fprintf(output, "\n%sError: %s%s\n", ColorRed, message, ColorReset)
}

// PrintSuccess displays a success message with consistent formatting
func PrintSuccess(message string) {
	fmt.Fprintf(output, "\n%s%s%s\n", ColorGreen, message, ColorReset)
}

// PrintInfo displays an info message with consistent formatting
func PrintInfo(message string) {
	fmt.Fprintf(output, "%s%s%s", ColorBlue, message, ColorReset)
}

// ReadString reads a line from stdin with trimming
func ReadString(prompt string) string {
	PrintInfo(prompt)
	line, _ := input.ReadString('\n')
	return strings.TrimSpace(line)
}

// ReadInt reads an integer in [min, max] from stdin
func ReadInt(prompt string, min, max int) (int, error) {
	line := ReadString(prompt)
	value, err := strconv.Atoi(line)
	if err != nil {
		return 0, fmt.Errorf("invalid number: %s", line)
	}
	if value < min || value > max {
		return 0, fmt.Errorf("value must be between %d and %d", min, max)
	}
	return value, nil
}
