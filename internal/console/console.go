// Package console is a terminal dashboard for dispatchers. It polls a
// running Beacon server's read API and renders the most recent incident:
// severity banner, dispatch recommendation, and the live transcript.
package console

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ShayCichocki/beacon/pkg/models"
)

// Options configures the dashboard.
type Options struct {
	// BaseURL is the Beacon server, e.g. http://localhost:8080.
	BaseURL string
	// Refresh is the poll interval.
	Refresh time.Duration
}

type incidentMsg struct {
	rec *models.IncidentRecord
}

type fetchErrMsg struct {
	err error
}

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#45B7D1")).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	criticalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#CC0000")).
			Bold(true).
			Padding(0, 1)

	standardStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#000000")).
			Background(lipgloss.Color("#FFC857")).
			Padding(0, 1)

	nonEmergencyStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#000000")).
				Background(lipgloss.Color("#96E6A1")).
				Padding(0, 1)

	degradedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#CC0000")).
			Bold(true)

	callerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF8E53"))
	systemStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#4ECDC4"))
)

// Model is the bubbletea model for the dashboard.
type Model struct {
	opts   Options
	client *http.Client

	spinner  spinner.Model
	viewport viewport.Model

	rec     *models.IncidentRecord
	fetchEr error

	width  int
	height int
	ready  bool
}

// New creates the dashboard model.
func New(opts Options) Model {
	if opts.Refresh <= 0 {
		opts.Refresh = time.Second
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#45B7D1"))
	return Model{
		opts:    opts,
		client:  &http.Client{Timeout: 5 * time.Second},
		spinner: sp,
	}
}

// Init starts the spinner and the first poll.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.fetch())
}

// fetch polls the latest-incident endpoint once.
func (m Model) fetch() tea.Cmd {
	client := m.client
	url := strings.TrimRight(m.opts.BaseURL, "/") + "/api/incidents/latest"
	return func() tea.Msg {
		resp, err := client.Get(url)
		if err != nil {
			return fetchErrMsg{err: err}
		}
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound {
			return incidentMsg{rec: nil}
		}
		if resp.StatusCode != http.StatusOK {
			return fetchErrMsg{err: fmt.Errorf("server returned %s", resp.Status)}
		}
		var rec models.IncidentRecord
		if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
			return fetchErrMsg{err: err}
		}
		return incidentMsg{rec: &rec}
	}
}

// schedule queues the next poll after the refresh interval.
func (m Model) schedule() tea.Cmd {
	refresh := m.opts.Refresh
	fetch := m.fetch()
	return tea.Tick(refresh, func(time.Time) tea.Msg {
		return fetch()
	})
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		vpHeight := m.height - 14
		if vpHeight < 3 {
			vpHeight = 3
		}
		if !m.ready {
			m.viewport = viewport.New(m.width, vpHeight)
			m.ready = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = vpHeight
		}
		m.viewport.SetContent(m.transcriptView())
		return m, nil

	case incidentMsg:
		m.rec = msg.rec
		m.fetchEr = nil
		if m.ready {
			atBottom := m.viewport.AtBottom()
			m.viewport.SetContent(m.transcriptView())
			if atBottom {
				m.viewport.GotoBottom()
			}
		}
		return m, m.schedule()

	case fetchErrMsg:
		m.fetchEr = msg.err
		return m, m.schedule()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the dashboard.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("BEACON"))
	b.WriteString(labelStyle.Render("  emergency call triage  "))
	b.WriteString(m.spinner.View())
	b.WriteString("\n\n")

	if m.fetchEr != nil {
		b.WriteString(degradedStyle.Render(fmt.Sprintf("connection error: %v", m.fetchEr)))
		b.WriteString("\n\n")
	}

	if m.rec == nil {
		b.WriteString(labelStyle.Render("waiting for calls..."))
		b.WriteString("\n\n")
		b.WriteString(labelStyle.Render("q to quit"))
		return b.String()
	}

	b.WriteString(severityBanner(m.rec))
	b.WriteString("\n\n")

	b.WriteString(labelStyle.Render("call    "))
	b.WriteString(m.rec.CallID)
	b.WriteString(labelStyle.Render("   status "))
	b.WriteString(string(m.rec.Status))
	if m.rec.Degraded {
		b.WriteString("   ")
		b.WriteString(degradedStyle.Render("DEGRADED"))
	}
	b.WriteString("\n")

	if m.rec.CallType != "" {
		b.WriteString(labelStyle.Render("type    "))
		b.WriteString(m.rec.CallType)
		b.WriteString("\n")
	}
	if m.rec.Summary != "" {
		b.WriteString(labelStyle.Render("summary "))
		b.WriteString(m.rec.Summary)
		b.WriteString("\n")
	}
	if loc := m.rec.Location; loc != nil && loc.RawText != "" {
		b.WriteString(labelStyle.Render("where   "))
		b.WriteString(loc.RawText)
		if loc.Geocode == models.GeocodePending {
			b.WriteString(labelStyle.Render(" (geocode pending)"))
		}
		b.WriteString("\n")
	}
	if d := m.rec.Dispatch; d != nil {
		b.WriteString(labelStyle.Render("units   "))
		b.WriteString(dispatchLine(d))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.ready {
		b.WriteString(m.viewport.View())
	} else {
		b.WriteString(m.transcriptView())
	}
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("q to quit · arrows to scroll"))
	return b.String()
}

// transcriptView formats the transcript for the viewport.
func (m Model) transcriptView() string {
	if m.rec == nil || len(m.rec.Transcript) == 0 {
		return labelStyle.Render("(no transcript yet)")
	}
	var b strings.Builder
	for _, u := range m.rec.Transcript {
		style := callerStyle
		who := "caller"
		if u.Speaker == models.SpeakerSystem {
			style = systemStyle
			who = "beacon"
		}
		b.WriteString(style.Render(who))
		b.WriteString("  ")
		b.WriteString(u.Text)
		b.WriteString("\n")
	}
	return b.String()
}

// severityBanner renders the classification banner.
func severityBanner(rec *models.IncidentRecord) string {
	switch rec.Severity {
	case models.SeverityCritical:
		return criticalStyle.Render(fmt.Sprintf("CRITICAL EMERGENCY  %.0f%%", rec.Confidence*100))
	case models.SeverityStandard:
		return standardStyle.Render(fmt.Sprintf("STANDARD ASSISTANCE  %.0f%%", rec.Confidence*100))
	case models.SeverityNonEmergency:
		return nonEmergencyStyle.Render(fmt.Sprintf("NON-EMERGENCY  %.0f%%", rec.Confidence*100))
	default:
		return labelStyle.Render("classifying...")
	}
}

// dispatchLine flattens a dispatch recommendation into one line.
func dispatchLine(d *models.Dispatch) string {
	var units []string
	if d.Police {
		units = append(units, "police")
	}
	if d.Ambulance {
		units = append(units, "ambulance")
	}
	if d.Fire {
		units = append(units, "fire")
	}
	if d.SWAT {
		units = append(units, "SWAT")
	}
	if d.AdditionalUnits > 0 {
		units = append(units, fmt.Sprintf("+%d units", d.AdditionalUnits))
	}
	line := strings.Join(units, ", ")
	if d.Priority != "" {
		line += "  priority " + d.Priority
	}
	return line
}

// Run starts the dashboard and blocks until the user quits.
func Run(opts Options) error {
	p := tea.NewProgram(New(opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
