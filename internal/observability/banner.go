package observability

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

const (
	colorReset    = "\033[0m"
	colorNeonCyan = "\033[96m"
	colorNeonMag  = "\033[95m"
)

const banner = `
    _    ___    ___  ____  ____
   / \  |_ _|  / _ \|  _ \/ ___|
  / _ \  | |  | | | | |_) \___ \
 / ___ \ | |  | |_| |  __/ ___) |
/_/   \_\___|  \___/|_|   |____/

   >> PLAN . EXECUTE . VERIFY <<
`

func termWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return 80
	}
	return w
}

// PrintBanner writes the centered startup banner. Colors are only used
// when stdout is a terminal.
func PrintBanner(w io.Writer, version string) {
	color := term.IsTerminal(int(os.Stdout.Fd()))
	width := termWidth()

	for _, l := range strings.Split(banner, "\n") {
		padding := (width - len([]rune(l))) / 2
		if padding < 0 {
			padding = 0
		}
		if color {
			fmt.Fprintf(w, "%s%s%s%s\n", strings.Repeat(" ", padding), colorNeonCyan, l, colorReset)
		} else {
			fmt.Fprintf(w, "%s%s\n", strings.Repeat(" ", padding), l)
		}
	}

	line := "version " + version
	padding := (width - len(line)) / 2
	if padding < 0 {
		padding = 0
	}
	if color {
		fmt.Fprintf(w, "%s%s%s%s\n\n", strings.Repeat(" ", padding), colorNeonMag, line, colorReset)
	} else {
		fmt.Fprintf(w, "%s%s\n\n", strings.Repeat(" ", padding), line)
	}
}
