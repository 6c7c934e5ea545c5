package version

import (
	"fmt"
	"log"
	"strings"

	"github.com/rhinos0608/skyrimnet-proxy/internal/util"
	"github.com/rhinos0608/skyrimnet-proxy/theme"
)

// splashWidth is the column count of the ASCII banner; narrower terminals
// get the one-line form instead of wrapped box art
const splashWidth = 58

var (
	Name        = "skyrimnet-proxy"
	Description = "Local model-alias router for OpenAI-compatible providers"
	Version     = "v0.0.1"
	Commit      = "none"
	Date        = "nowish"
	User        = "local"
)

const (
	GithubHomeText  = "github.com/rhinos0608/skyrimnet-proxy"
	GithubHomeUri   = "https://github.com/rhinos0608/skyrimnet-proxy"
	GithubLatestUri = "https://github.com/rhinos0608/skyrimnet-proxy/releases/latest"
)

func PrintVersionInfo(extendedInfo bool, vlog *log.Logger) {
	githubUri := theme.Hyperlink(GithubHomeUri, GithubHomeText)
	latestUri := theme.Hyperlink(GithubLatestUri, Version)

	var b strings.Builder

	if util.TerminalWidth(splashWidth) < splashWidth {
		b.WriteString(theme.ColourSplash(Name))
		b.WriteString(" ")
		b.WriteString(theme.ColourVersion(latestUri))
		b.WriteString("  ")
		b.WriteString(theme.StyleUrl(githubUri))
		vlog.Println(b.String())
		return
	}

	b.WriteString(theme.ColourSplash(`
╔══════════════════════════════════════════════════════╗
│   ███████╗███╗   ██╗██████╗ ██████╗  ██████╗ ██╗  ██╗ │
│   ██╔════╝████╗  ██║██╔══██╗██╔══██╗██╔═══██╗╚██╗██╔╝ │
│   ███████╗██╔██╗ ██║██████╔╝██████╔╝██║   ██║ ╚███╔╝  │
│   ╚════██║██║╚██╗██║██╔═══╝ ██╔══██╗██║   ██║ ██╔██╗  │
│   ███████║██║ ╚████║██║     ██║  ██║╚██████╔╝██╔╝ ██╗ │
│   ╚══════╝╚═╝  ╚═══╝╚═╝     ╚═╝  ╚═╝ ╚═════╝ ╚═╝  ╚═╝ │` + "\n"))

	b.WriteString(theme.ColourSplash("│ "))
	b.WriteString(theme.StyleUrl(githubUri))
	b.WriteString("  ")
	b.WriteString(theme.ColourVersion(latestUri))
	b.WriteString(theme.ColourSplash("\n╚══════════════════════════════════════════════════════╝"))

	if extendedInfo {
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf(" Commit: %s\n", Commit))
		b.WriteString(fmt.Sprintf("  Built: %s\n", Date))
		b.WriteString(fmt.Sprintf("  Using: %s\n", User))
	}

	vlog.Println(b.String())
}
