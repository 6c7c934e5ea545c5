package util

import (
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"
)

/*
   references:
   - https://no-color.org/
*/

// IsTerminal checks if stdout is a terminal using go-isatty
func IsTerminal() bool {
	return isatty.IsTerminal(os.Stdout.Fd())
}

// TerminalWidth returns the width of the attached terminal, or fallback
// when stdout is not a terminal
func TerminalWidth(fallback int) int {
	if !IsTerminal() {
		return fallback
	}
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return fallback
	}
	return width
}

// ShouldUseColors determines if coloured output should be used
func ShouldUseColors() bool {
	if noColor := os.Getenv("NO_COLOR"); noColor != "" {
		return false
	}

	if forceColor := os.Getenv("FORCE_COLOR"); forceColor != "" {
		return forceColor != "0"
	}

	if proxyColors := os.Getenv("SKYRIMNET_FORCE_COLORS"); proxyColors != "" {
		return strings.ToLower(proxyColors) == "true"
	}

	return IsTerminal()
}
