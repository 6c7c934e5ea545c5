// Package dash is a small terminal dashboard over the proxy's status
// endpoint: provider concurrency, pool counts and the live slot table,
// refreshed on a timer.
package dash

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	jsoniter "github.com/json-iterator/go"

	"github.com/rhinos0608/skyrimnet-proxy/internal/util"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const refreshInterval = 2 * time.Second

type providerStatus struct {
	ID            string `json:"id"`
	BaseURL       string `json:"base_url"`
	InFlight      int    `json:"in_flight"`
	MaxConcurrent int    `json:"max_concurrent"`
	CacheControl  string `json:"cache_control"`
}

type slotStatus struct {
	Alias     string `json:"alias"`
	Provider  string `json:"provider"`
	Model     string `json:"model"`
	Reasoning bool   `json:"reasoning"`
}

type proxyStatus struct {
	Version   string           `json:"version"`
	Uptime    string           `json:"uptime"`
	Pools     int              `json:"pools"`
	Providers []providerStatus `json:"providers"`
	Slots     []slotStatus     `json:"slots"`
}

type keyMap struct {
	Reload key.Binding
	Quit   key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Reload, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Reload, k.Quit}}
}

var keys = keyMap{
	Reload: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "refresh"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

type slotItem struct {
	slot slotStatus
}

func (i slotItem) Title() string {
	reasoning := ""
	if i.slot.Reasoning {
		reasoning = "  [reasoning]"
	}
	return fmt.Sprintf("%s → %s%s", i.slot.Alias, i.slot.Model, reasoning)
}

func (i slotItem) Description() string {
	return "provider: " + i.slot.Provider
}

func (i slotItem) FilterValue() string {
	return strings.ToLower(i.slot.Alias + " " + i.slot.Provider + " " + i.slot.Model)
}

type statusMsg struct {
	status *proxyStatus
	err    error
}

type tickMsg time.Time

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	headerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("99"))
	providerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	busyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	errStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	faintStyle    = lipgloss.NewStyle().Faint(true)
)

type model struct {
	statusURL string
	client    *http.Client
	refresh   time.Duration

	list   list.Model
	help   help.Model
	keys   keyMap
	status *proxyStatus
	err    error

	width  int
	height int
}

// NewProgram builds the dashboard against a running proxy's base URL
func NewProgram(baseURL string, in io.Reader, out io.Writer) *tea.Program {
	m := newModel(baseURL)
	return tea.NewProgram(m, tea.WithInput(in), tea.WithOutput(out), tea.WithAltScreen())
}

func newModel(baseURL string) model {
	d := list.NewDefaultDelegate()
	d.ShowDescription = true
	d.SetSpacing(0)

	l := list.New(nil, d, 0, 0)
	l.Title = "Model Slots"
	l.SetShowHelp(false)
	l.SetFilteringEnabled(true)
	l.DisableQuitKeybindings()

	h := help.New()
	h.ShowAll = false

	return model{
		statusURL: strings.TrimRight(baseURL, "/") + "/internal/status",
		client:    &http.Client{Timeout: 5 * time.Second},
		refresh:   util.ParseDurationOrDefault(os.Getenv("SKYRIMNET_DASH_REFRESH"), refreshInterval),
		list:      l,
		help:      h,
		keys:      keys,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.fetchStatusCmd(), tickCmd(m.refresh))
}

func tickCmd(every time.Duration) tea.Cmd {
	return tea.Tick(every, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) fetchStatusCmd() tea.Cmd {
	return func() tea.Msg {
		resp, err := m.client.Get(m.statusURL)
		if err != nil {
			return statusMsg{err: err}
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return statusMsg{err: err}
		}

		var status proxyStatus
		if err := json.Unmarshal(body, &status); err != nil {
			return statusMsg{err: err}
		}
		return statusMsg{status: &status}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.fetchStatusCmd(), tickCmd(m.refresh))

	case statusMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.status = msg.status
		m.err = nil
		items := make([]list.Item, 0, len(msg.status.Slots))
		for _, slot := range msg.status.Slots {
			items = append(items, slotItem{slot: slot})
		}
		m.list.SetItems(items)
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Reload):
			return m, m.fetchStatusCmd()
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *model) resize() {
	headerHeight := 8
	listHeight := m.height - headerHeight
	if listHeight < 4 {
		listHeight = 4
	}
	m.list.SetSize(m.width, listHeight)
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("skyrimnet-proxy"))
	if m.status != nil {
		b.WriteString(faintStyle.Render(fmt.Sprintf("  %s  up %s  pools %d",
			m.status.Version, m.status.Uptime, m.status.Pools)))
	}
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(errStyle.Render("status unavailable: " + m.err.Error()))
		b.WriteString("\n\n")
	} else if m.status != nil {
		b.WriteString(headerStyle.Render("Providers"))
		b.WriteString("\n")
		for _, p := range m.status.Providers {
			line := fmt.Sprintf("  %s  %d/%d in flight  cache=%s",
				providerStyle.Render(p.ID), p.InFlight, p.MaxConcurrent, p.CacheControl)
			if p.InFlight >= p.MaxConcurrent {
				line = busyStyle.Render(line)
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(m.list.View())
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))

	return b.String()
}
