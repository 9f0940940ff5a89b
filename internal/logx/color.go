package logx

import (
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
)

const (
	ansiReset  = "\x1b[0m"
	ansiGreen  = "\x1b[97;42m"
	ansiYellow = "\x1b[90;43m"
	ansiRed    = "\x1b[97;41m"
	ansiBlue   = "\x1b[97;44m"
)

// ColorEnabled reports whether stdout is a terminal and NO_COLOR is unset.
func ColorEnabled() bool {
	if strings.TrimSpace(os.Getenv("NO_COLOR")) != "" {
		return false
	}
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// ColorizeStatusWith renders status, wrapped in ANSI colours when color is set.
func ColorizeStatusWith(status int, color bool) string {
	s := strconv.Itoa(status)
	if !color {
		return s
	}
	var c string
	switch {
	case status >= 500:
		c = ansiRed
	case status >= 400:
		c = ansiYellow
	case status >= 300:
		c = ansiBlue
	default:
		c = ansiGreen
	}
	return c + " " + s + " " + ansiReset
}
